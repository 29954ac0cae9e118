package analytics

import (
	"context"
	"errors"

	sheetpipe "github.com/ideamans/go-sheetpipe"
	"github.com/ideamans/go-sheetpipe/gologger"
	"github.com/ideamans/go-sheetpipe/store"
)

var logger = gologger.NewLogger()

// Querier is the part of the relational store the engine needs.
type Querier interface {
	Query(ctx context.Context, statement string, args ...interface{}) (*sheetpipe.Table, error)
	Schema(ctx context.Context, table string) ([]store.ColumnInfo, error)
}

var _ Querier = (*store.Store)(nil)

// Report is a statement whose result is written to a sheet.
type Report struct {
	Sheet     string
	Statement Statement
}

// Engine compiles statements against the store's schema and runs them.
type Engine struct {
	q Querier
}

// New creates an engine over q.
func New(q Querier) *Engine {
	return &Engine{q: q}
}

// Compile returns the SQL text and bound arguments for a statement.
func (e *Engine) Compile(ctx context.Context, st Statement) (string, []interface{}, error) {
	c, err := compile(ctx, e.q, st)
	if err != nil {
		return "", nil, err
	}
	return c.sql, c.args, nil
}

// Query runs a statement and returns its result. The result table is named
// after the statement.
func (e *Engine) Query(ctx context.Context, st Statement) (*sheetpipe.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c, err := compile(ctx, e.q, st)
	if err != nil {
		return nil, err
	}

	result, err := e.q.Query(ctx, c.sql, c.args...)
	if err != nil {
		var qerr *sheetpipe.QueryError
		if errors.As(err, &qerr) || errors.Is(err, sheetpipe.ErrStoreClosed) {
			return nil, err
		}
		return nil, &sheetpipe.QueryError{Statement: c.sql, Cause: err}
	}

	// Empty or all-null columns take the kind the compiler inferred
	for i, col := range result.Columns {
		if i < len(c.fields) && col.Kind == sheetpipe.KindNull {
			col.Kind = c.fields[i].kind
		}
	}
	result.Name = st.Name

	logger.Debug().
		Str("statement", st.label()).
		Int("rows", result.NumRows()).
		Msg("statement executed")
	return result, nil
}

// Run executes every report and returns the results named after their sheets.
func (e *Engine) Run(ctx context.Context, reports []Report) ([]*sheetpipe.Table, error) {
	results := make([]*sheetpipe.Table, 0, len(reports))
	for _, r := range reports {
		table, err := e.Query(ctx, r.Statement)
		if err != nil {
			return nil, err
		}
		table.Name = r.Sheet
		results = append(results, table)

		logger.Info().
			Str("sheet", r.Sheet).
			Int("rows", table.NumRows()).
			Msg("report ready")
	}
	return results, nil
}
