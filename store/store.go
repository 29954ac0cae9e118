package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	sheetpipe "github.com/ideamans/go-sheetpipe"
	"github.com/ideamans/go-sheetpipe/gologger"

	// registers the "sqlite" driver
	_ "modernc.org/sqlite"
)

const (
	driverName = "sqlite"

	// TimeLayout is how date values are stored in TIMESTAMP columns.
	TimeLayout = "2006-01-02 15:04:05"
)

var logger = gologger.NewLogger()

// Config selects the backing database.
type Config struct {
	Path string // Database file; empty opens a private in-memory database
}

// ColumnInfo describes one column of a stored relation.
type ColumnInfo struct {
	Name string
	Type string // Declared SQL type
	Kind sheetpipe.Kind
}

// Store is an open handle on the relational store. Tables are materialized
// with drop-and-recreate semantics: the latest load of a name wins.
type Store struct {
	db   *sql.DB
	path string

	mu     sync.Mutex
	closed bool
}

// Open connects to the store described by cfg.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	dsn := cfg.Path
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", dsn, err)
	}
	// Every connection to :memory: is a separate database, and the pipeline is sequential
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to store %s: %w", dsn, err)
	}

	logger.Debug().Str("path", dsn).Msg("store opened")
	return &Store{db: db, path: dsn}, nil
}

// With opens a store, runs fn and closes the store on every path.
func With(ctx context.Context, cfg Config, fn func(s *Store) error) (err error) {
	s, err := Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, s.Close())
	}()
	return fn(s)
}

// Path returns the data source the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Close releases the database handle. Closing twice is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	logger.Debug().Str("path", s.path).Msg("store closed")
	return s.db.Close()
}

func (s *Store) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return sheetpipe.ErrStoreClosed
	}
	return nil
}

// Materialize replaces the relation called name with the table's contents.
// The drop, create and inserts run in one transaction, so a failure leaves
// the previous relation in place.
func (s *Store) Materialize(ctx context.Context, name string, table *sheetpipe.Table) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("table name is required")
	}
	if table == nil || table.NumColumns() == 0 {
		return fmt.Errorf("table %q has no columns to store", name)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	drop := "DROP TABLE IF EXISTS " + QuoteIdent(name)
	if _, err := tx.ExecContext(ctx, drop); err != nil {
		return &sheetpipe.QueryError{Statement: drop, Cause: err}
	}

	defs := make([]string, table.NumColumns())
	marks := make([]string, table.NumColumns())
	for i, col := range table.Columns {
		defs[i] = QuoteIdent(col.Name) + " " + SQLType(col.Kind)
		marks[i] = "?"
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdent(name), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return &sheetpipe.QueryError{Statement: create, Cause: err}
	}

	insert := fmt.Sprintf("INSERT INTO %s VALUES (%s)", QuoteIdent(name), strings.Join(marks, ", "))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return &sheetpipe.QueryError{Statement: insert, Cause: err}
	}
	defer stmt.Close()

	for i, row := range table.Rows() {
		args := make([]interface{}, len(row))
		for j, v := range row {
			args[j] = BindValue(v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return &sheetpipe.QueryError{Statement: insert, Cause: fmt.Errorf("row %d: %w", i, err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit table %q: %w", name, err)
	}

	logger.Info().
		Str("table", name).
		Int("rows", table.NumRows()).
		Int("columns", table.NumColumns()).
		Msg("materialized table")
	return nil
}

// Tables returns the names of the stored relations in sorted order.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	const query = "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &sheetpipe.QueryError{Statement: query, Cause: err}
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, &sheetpipe.QueryError{Statement: query, Cause: err}
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, &sheetpipe.QueryError{Statement: query, Cause: err}
	}
	return names, nil
}

// Schema returns the columns of a stored relation in order.
func (s *Store) Schema(ctx context.Context, name string) ([]ColumnInfo, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	query := "PRAGMA table_info(" + QuoteIdent(name) + ")"
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &sheetpipe.QueryError{Statement: query, Cause: err}
	}
	defer rows.Close()

	var columns []ColumnInfo
	for rows.Next() {
		var (
			cid         int
			colName     string
			colType     string
			notNull, pk int
			dflt        sql.NullString
		)
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, &sheetpipe.QueryError{Statement: query, Cause: err}
		}
		columns = append(columns, ColumnInfo{Name: colName, Type: colType, Kind: KindOf(colType)})
	}
	if err := rows.Err(); err != nil {
		return nil, &sheetpipe.QueryError{Statement: query, Cause: err}
	}
	if len(columns) == 0 {
		return nil, sheetpipe.NewQueryError(query, "unknown table %q", name)
	}
	return columns, nil
}

// Query runs a raw statement and returns its result set as a table.
func (s *Store) Query(ctx context.Context, statement string, args ...interface{}) (*sheetpipe.Table, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, &sheetpipe.QueryError{Statement: statement, Cause: err}
	}
	defer rows.Close()

	table, err := scanTable(rows)
	if err != nil {
		return nil, &sheetpipe.QueryError{Statement: statement, Cause: err}
	}

	logger.Debug().
		Str("statement", statement).
		Int("rows", table.NumRows()).
		Msg("query executed")
	return table, nil
}

func scanTable(rows *sql.Rows) (*sheetpipe.Table, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	values := make([][]interface{}, len(names))
	dest := make([]interface{}, len(names))
	ptrs := make([]interface{}, len(names))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range dest {
			values[i] = append(values[i], scanValue(v, types[i].DatabaseTypeName()))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(names))
	columns := make([]*sheetpipe.Column, len(names))
	for i, name := range names {
		unique := name
		for n := 1; seen[unique]; n++ {
			unique = name + "." + strconv.Itoa(n)
		}
		seen[unique] = true

		col := sheetpipe.NewColumn(unique, values[i]...)
		if col.Kind == sheetpipe.KindNull {
			col.Kind = KindOf(types[i].DatabaseTypeName())
		}
		columns[i] = col
	}
	return sheetpipe.NewTable("", columns...)
}

// scanValue normalizes a driver value, parsing text held in date columns.
func scanValue(v interface{}, declType string) interface{} {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case string:
		if KindOf(declType) == sheetpipe.KindDate {
			for _, layout := range append([]string{TimeLayout}, sheetpipe.DateLayouts...) {
				if t, err := time.Parse(layout, val); err == nil {
					return t
				}
			}
		}
		return val
	default:
		return val
	}
}

// BindValue converts a column value into the form stored in SQLite.
func BindValue(v interface{}) interface{} {
	switch val := v.(type) {
	case time.Time:
		return val.UTC().Format(TimeLayout)
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	default:
		return val
	}
}

// SQLType maps a column kind onto the declared type used in CREATE TABLE.
func SQLType(k sheetpipe.Kind) string {
	switch k {
	case sheetpipe.KindInt:
		return "INTEGER"
	case sheetpipe.KindFloat:
		return "REAL"
	case sheetpipe.KindDate:
		return "TIMESTAMP"
	case sheetpipe.KindBool:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// KindOf maps a declared SQL type back onto a column kind.
// Booleans are stored as 0/1 and read back as integers.
func KindOf(declType string) sheetpipe.Kind {
	switch strings.ToUpper(declType) {
	case "INTEGER", "INT", "BIGINT", "BOOLEAN":
		return sheetpipe.KindInt
	case "REAL", "FLOAT", "DOUBLE", "NUMERIC":
		return sheetpipe.KindFloat
	case "TIMESTAMP", "DATETIME", "DATE":
		return sheetpipe.KindDate
	case "TEXT", "VARCHAR":
		return sheetpipe.KindText
	default:
		return sheetpipe.KindNull
	}
}

// QuoteIdent quotes a table or column name for use in a statement.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
