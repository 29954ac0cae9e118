package analytics

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	sheetpipe "github.com/ideamans/go-sheetpipe"
	"github.com/ideamans/go-sheetpipe/store"
)

type scopeTable struct {
	name    string
	columns []store.ColumnInfo
}

type outputField struct {
	name string
	sql  string
	kind sheetpipe.Kind
	expr Expr
}

type compiled struct {
	sql    string
	args   []interface{}
	fields []outputField
}

type compiler struct {
	label   string
	scope   []scopeTable
	outputs map[string]outputField
	args    []interface{}
	inAgg   bool
}

var sqlOps = map[string]string{
	"==": "=",
	"!=": "<>",
	">":  ">",
	">=": ">=",
	"<":  "<",
	"<=": "<=",
}

func compile(ctx context.Context, q Querier, st Statement) (*compiled, error) {
	c := &compiler{label: st.label(), outputs: make(map[string]outputField)}
	if err := ValidateStatement(st); err != nil {
		return nil, c.errorf("%v", err)
	}

	if err := c.addTable(ctx, q, st.From); err != nil {
		return nil, err
	}
	for _, j := range st.Joins {
		if err := c.addTable(ctx, q, j.Table); err != nil {
			return nil, err
		}
	}

	var b strings.Builder
	fields, err := c.selectList(st)
	if err != nil {
		return nil, err
	}
	b.WriteString("SELECT ")
	for i, f := range fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.sql + " AS " + store.QuoteIdent(f.name))
	}
	b.WriteString(" FROM " + store.QuoteIdent(st.From))

	for i, j := range st.Joins {
		on, err := c.joinCondition(i+1, j)
		if err != nil {
			return nil, err
		}
		if j.Left {
			b.WriteString(" LEFT")
		}
		b.WriteString(" JOIN " + store.QuoteIdent(j.Table) + " ON " + on)
	}

	if len(st.Where) > 0 {
		terms := make([]string, len(st.Where))
		for i, cond := range st.Where {
			if terms[i], err = c.condition(cond); err != nil {
				return nil, err
			}
		}
		b.WriteString(" WHERE " + strings.Join(terms, " AND "))
	}

	if len(st.GroupBy) > 0 {
		terms := make([]string, len(st.GroupBy))
		for i, name := range st.GroupBy {
			if terms[i], err = c.groupTerm(name); err != nil {
				return nil, err
			}
		}
		b.WriteString(" GROUP BY " + strings.Join(terms, ", "))
	}

	if len(st.Having) > 0 {
		terms := make([]string, len(st.Having))
		for i, cond := range st.Having {
			if terms[i], err = c.havingCondition(cond); err != nil {
				return nil, err
			}
		}
		b.WriteString(" HAVING " + strings.Join(terms, " AND "))
	}

	if len(st.OrderBy) > 0 {
		terms := make([]string, len(st.OrderBy))
		for i, o := range st.OrderBy {
			term, err := c.orderTerm(o.Column)
			if err != nil {
				return nil, err
			}
			if o.Desc {
				term += " DESC"
			}
			terms[i] = term
		}
		b.WriteString(" ORDER BY " + strings.Join(terms, ", "))
	}

	switch {
	case st.Limit > 0:
		b.WriteString(" LIMIT " + strconv.Itoa(st.Limit))
		if st.Offset > 0 {
			b.WriteString(" OFFSET " + strconv.Itoa(st.Offset))
		}
	case st.Offset > 0:
		b.WriteString(" LIMIT -1 OFFSET " + strconv.Itoa(st.Offset))
	}

	return &compiled{sql: b.String(), args: c.args, fields: fields}, nil
}

func (c *compiler) errorf(format string, args ...interface{}) error {
	return sheetpipe.NewQueryError(c.label, format, args...)
}

func (c *compiler) addTable(ctx context.Context, q Querier, name string) error {
	for _, t := range c.scope {
		if t.name == name {
			return c.errorf("table %q appears twice", name)
		}
	}
	columns, err := q.Schema(ctx, name)
	if err != nil {
		if errors.Is(err, sheetpipe.ErrQuery) {
			return c.errorf("unknown table %q", name)
		}
		return err
	}
	c.scope = append(c.scope, scopeTable{name: name, columns: columns})
	return nil
}

// resolve finds a column among the given tables. A "table.column" reference
// is tried as a qualified name first and as a plain column name otherwise.
func (c *compiler) resolve(ref string, tables []scopeTable) (string, sheetpipe.Kind, string, error) {
	if i := strings.Index(ref, "."); i > 0 {
		prefix, name := ref[:i], ref[i+1:]
		for _, t := range tables {
			if t.name != prefix {
				continue
			}
			if col, ok := findColumn(t, name); ok {
				return qualified(t.name, col.Name), col.Kind, col.Name, nil
			}
		}
	}

	var (
		found []scopeTable
		info  store.ColumnInfo
	)
	for _, t := range tables {
		if col, ok := findColumn(t, ref); ok {
			found = append(found, t)
			info = col
		}
	}
	switch len(found) {
	case 0:
		return "", 0, "", c.errorf("unknown column %q", ref)
	case 1:
		return qualified(found[0].name, info.Name), info.Kind, info.Name, nil
	default:
		return "", 0, "", c.errorf("ambiguous column %q (in %s and %s)", ref, found[0].name, found[1].name)
	}
}

func findColumn(t scopeTable, name string) (store.ColumnInfo, bool) {
	for _, col := range t.columns {
		if col.Name == name {
			return col, true
		}
	}
	return store.ColumnInfo{}, false
}

func qualified(table, column string) string {
	return store.QuoteIdent(table) + "." + store.QuoteIdent(column)
}

func (c *compiler) selectList(st Statement) ([]outputField, error) {
	var fields []outputField
	if len(st.Select) == 0 {
		fields = c.allColumns(st)
	} else {
		for i, f := range st.Select {
			sql, kind, err := c.render(f.Expr)
			if err != nil {
				return nil, err
			}
			name := f.As
			if name == "" {
				col, ok := f.Expr.(columnExpr)
				if !ok {
					return nil, c.errorf("field %d needs a name", i)
				}
				_, _, name, _ = c.resolve(col.ref, c.scope)
			}
			fields = append(fields, outputField{name: name, sql: sql, kind: kind, expr: f.Expr})
		}
	}

	for _, f := range fields {
		if _, dup := c.outputs[f.name]; dup {
			return nil, c.errorf("duplicate output column %q", f.name)
		}
		c.outputs[f.name] = f
	}
	return fields, nil
}

// allColumns expands an empty select list. Join keys of joined tables are
// dropped and later columns whose name is taken become table_column.
func (c *compiler) allColumns(st Statement) []outputField {
	var fields []outputField
	taken := make(map[string]bool)
	for i, t := range c.scope {
		for _, col := range t.columns {
			if i > 0 && col.Name == st.Joins[i-1].Key {
				continue
			}
			name := col.Name
			if taken[name] {
				name = t.name + "_" + col.Name
			}
			taken[name] = true
			fields = append(fields, outputField{
				name: name,
				sql:  qualified(t.name, col.Name),
				kind: col.Kind,
				expr: Col(t.name + "." + col.Name),
			})
		}
	}
	return fields
}

func (c *compiler) joinCondition(index int, j Join) (string, error) {
	right := c.scope[index]
	col, ok := findColumn(right, j.Key)
	if !ok {
		return "", c.errorf("unknown column %q in joined table %q", j.Key, j.Table)
	}
	leftKey := j.LeftKey
	if leftKey == "" {
		leftKey = j.Key
	}
	leftSQL, leftKind, _, err := c.resolve(leftKey, c.scope[:index])
	if err != nil {
		return "", err
	}
	if !compatible(leftKind, col.Kind) {
		return "", c.errorf("type mismatch joining %s (%v) with %s.%s (%v)", leftKey, leftKind, j.Table, j.Key, col.Kind)
	}
	return leftSQL + " = " + qualified(right.name, col.Name), nil
}

func (c *compiler) condition(cond Condition) (string, error) {
	lhs, lkind, _, err := c.resolve(cond.Column, c.scope)
	if err != nil {
		return "", err
	}
	return c.predicate(lhs, lkind, cond, false)
}

// havingCondition filters groups. The column is an output alias, or a
// column of the scope such as a grouping key, and values may be aggregates.
// Aliased expressions are rendered again so their literals are bound in order.
func (c *compiler) havingCondition(cond Condition) (string, error) {
	if f, ok := c.outputs[cond.Column]; ok {
		if f.expr == nil {
			return c.predicate(f.sql, f.kind, cond, true)
		}
		lhs, lkind, err := c.render(f.expr)
		if err != nil {
			return "", err
		}
		return c.predicate(lhs, lkind, cond, true)
	}
	lhs, lkind, _, err := c.resolve(cond.Column, c.scope)
	if err != nil {
		return "", err
	}
	return c.predicate(lhs, lkind, cond, true)
}

func (c *compiler) predicate(lhs string, lkind sheetpipe.Kind, cond Condition, aggregates bool) (string, error) {
	operand := func(v interface{}) (string, sheetpipe.Kind, error) {
		return c.operand(lkind, v, aggregates)
	}

	switch cond.Operator {
	case "in":
		list := cond.Value.([]interface{})
		items := make([]string, len(list))
		for i, v := range list {
			sql, kind, err := operand(v)
			if err != nil {
				return "", err
			}
			if !compatible(lkind, kind) {
				return "", c.errorf("type mismatch: %s is %v, list value %d is %v", cond.Column, lkind, i, kind)
			}
			items[i] = sql
		}
		return lhs + " IN (" + strings.Join(items, ", ") + ")", nil

	case "between":
		lo, hi, _ := bounds(cond.Value)
		loSQL, loKind, err := operand(lo)
		if err != nil {
			return "", err
		}
		hiSQL, hiKind, err := operand(hi)
		if err != nil {
			return "", err
		}
		if !compatible(lkind, loKind) || !compatible(lkind, hiKind) {
			return "", c.errorf("type mismatch: %s is %v, bounds are %v and %v", cond.Column, lkind, loKind, hiKind)
		}
		return lhs + " BETWEEN " + loSQL + " AND " + hiSQL, nil
	}

	if cond.Value == nil {
		if cond.Operator == "==" {
			return lhs + " IS NULL", nil
		}
		return lhs + " IS NOT NULL", nil
	}

	rhs, rkind, err := operand(cond.Value)
	if err != nil {
		return "", err
	}
	if !compatible(lkind, rkind) {
		return "", c.errorf("type mismatch: cannot compare %s (%v) with %v", cond.Column, lkind, rkind)
	}
	return lhs + " " + sqlOps[cond.Operator] + " " + rhs, nil
}

// operand renders the right-hand side of a comparison against a column of
// kind lkind. Text compared with a date column is bound as a date when it
// parses as one.
func (c *compiler) operand(lkind sheetpipe.Kind, v interface{}, aggregates bool) (string, sheetpipe.Kind, error) {
	e, ok := v.(Expr)
	if !ok {
		if s, isText := v.(string); isText && lkind == sheetpipe.KindDate {
			if t, ok := parseDate(s); ok {
				v = t
			}
		}
		e = Lit(v)
	}
	if isAggregate(e) && !aggregates {
		return "", 0, c.errorf("aggregates are not allowed in conditions")
	}
	return c.render(e)
}

func (c *compiler) groupTerm(name string) (string, error) {
	if f, ok := c.outputs[name]; ok {
		if isAggregate(f.expr) {
			return "", c.errorf("cannot group by aggregate %q", name)
		}
		if _, plain := f.expr.(columnExpr); plain {
			return f.sql, nil
		}
		sql, _, err := c.render(f.expr)
		return sql, err
	}
	sql, _, _, err := c.resolve(name, c.scope)
	return sql, err
}

func (c *compiler) orderTerm(name string) (string, error) {
	if _, ok := c.outputs[name]; ok {
		return store.QuoteIdent(name), nil
	}
	sql, _, _, err := c.resolve(name, c.scope)
	return sql, err
}

// render turns an expression into SQL and its result kind, binding literals.
func (c *compiler) render(e Expr) (string, sheetpipe.Kind, error) {
	switch x := e.(type) {
	case columnExpr:
		sql, kind, _, err := c.resolve(x.ref, c.scope)
		return sql, kind, err

	case literalExpr:
		kind, values := sheetpipe.InferValues([]interface{}{x.value})
		if kind == sheetpipe.KindNull {
			return "NULL", kind, nil
		}
		c.args = append(c.args, store.BindValue(values[0]))
		return "?", kind, nil

	case arithExpr:
		l, lk, err := c.render(x.left)
		if err != nil {
			return "", 0, err
		}
		r, rk, err := c.render(x.right)
		if err != nil {
			return "", 0, err
		}
		if !lk.IsNumeric() || !rk.IsNumeric() {
			return "", 0, c.errorf("type mismatch: %v %s %v", lk, x.op, rk)
		}
		if x.op == "/" {
			return "(CAST(" + l + " AS REAL) / " + r + ")", sheetpipe.KindFloat, nil
		}
		return "(" + l + " " + x.op + " " + r + ")", arithKind(lk, rk), nil

	case aggExpr:
		return c.renderAggregate(x)

	case roundExpr:
		if x.places < 0 {
			return "", 0, c.errorf("round needs a non-negative number of places, got %d", x.places)
		}
		arg, kind, err := c.render(x.arg)
		if err != nil {
			return "", 0, err
		}
		if !kind.IsNumeric() {
			return "", 0, c.errorf("type mismatch: cannot round %v", kind)
		}
		return "ROUND(" + arg + ", " + strconv.Itoa(x.places) + ")", sheetpipe.KindFloat, nil

	case dateFormatExpr:
		arg, kind, err := c.render(x.arg)
		if err != nil {
			return "", 0, err
		}
		if kind != sheetpipe.KindDate && kind != sheetpipe.KindText && kind != sheetpipe.KindNull {
			return "", 0, c.errorf("type mismatch: cannot format %v as a date", kind)
		}
		return "strftime(" + sqlString(x.layout) + ", " + arg + ")", sheetpipe.KindText, nil

	case nil:
		return "", 0, c.errorf("missing expression")

	default:
		return "", 0, c.errorf("unsupported expression %T", e)
	}
}

func (c *compiler) renderAggregate(x aggExpr) (string, sheetpipe.Kind, error) {
	if x.fn == aggCountAll {
		return "COUNT(*)", sheetpipe.KindInt, nil
	}
	if c.inAgg {
		return "", 0, c.errorf("nested aggregates are not supported")
	}
	c.inAgg = true
	arg, kind, err := c.render(x.arg)
	c.inAgg = false
	if err != nil {
		return "", 0, err
	}

	switch x.fn {
	case aggSum:
		if !kind.IsNumeric() {
			return "", 0, c.errorf("type mismatch: cannot sum %v", kind)
		}
		return "SUM(" + arg + ")", kind, nil
	case aggMean:
		if !kind.IsNumeric() {
			return "", 0, c.errorf("type mismatch: cannot average %v", kind)
		}
		return "AVG(" + arg + ")", sheetpipe.KindFloat, nil
	case aggMin:
		return "MIN(" + arg + ")", kind, nil
	case aggMax:
		return "MAX(" + arg + ")", kind, nil
	case aggCount:
		return "COUNT(" + arg + ")", sheetpipe.KindInt, nil
	case aggCountDistinct:
		return "COUNT(DISTINCT " + arg + ")", sheetpipe.KindInt, nil
	default:
		return "", 0, fmt.Errorf("unknown aggregate %d", x.fn)
	}
}

func arithKind(l, r sheetpipe.Kind) sheetpipe.Kind {
	switch {
	case l == sheetpipe.KindFloat || r == sheetpipe.KindFloat:
		return sheetpipe.KindFloat
	case l == sheetpipe.KindNull && r == sheetpipe.KindNull:
		return sheetpipe.KindNull
	default:
		return sheetpipe.KindInt
	}
}

// compatible reports whether values of the two kinds can be compared.
// Dates are stored as text, booleans as integers.
func compatible(a, b sheetpipe.Kind) bool {
	if a == b || a == sheetpipe.KindNull || b == sheetpipe.KindNull {
		return true
	}
	numeric := func(k sheetpipe.Kind) bool {
		return k == sheetpipe.KindInt || k == sheetpipe.KindFloat || k == sheetpipe.KindBool
	}
	if numeric(a) && numeric(b) {
		return true
	}
	textual := func(k sheetpipe.Kind) bool {
		return k == sheetpipe.KindText || k == sheetpipe.KindDate
	}
	return textual(a) && textual(b)
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range sheetpipe.DateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func sqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
