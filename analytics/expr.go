package analytics

// Expr is a scalar or aggregate expression in a statement.
type Expr interface {
	isExpr()
}

type columnExpr struct {
	ref string
}

type literalExpr struct {
	value interface{}
}

type arithExpr struct {
	op          string // "+", "-", "*", "/"
	left, right Expr
}

type aggFunc int

const (
	aggSum aggFunc = iota
	aggMean
	aggMin
	aggMax
	aggCount
	aggCountAll
	aggCountDistinct
)

type aggExpr struct {
	fn  aggFunc
	arg Expr // nil for CountAll
}

type roundExpr struct {
	arg    Expr
	places int
}

type dateFormatExpr struct {
	layout string // strftime layout
	arg    Expr
}

func (columnExpr) isExpr()     {}
func (literalExpr) isExpr()    {}
func (arithExpr) isExpr()      {}
func (aggExpr) isExpr()        {}
func (roundExpr) isExpr()      {}
func (dateFormatExpr) isExpr() {}

// Col references a column. Use "table.column" to pick a joined table's column.
func Col(ref string) Expr { return columnExpr{ref: ref} }

// Lit is a constant value.
func Lit(v interface{}) Expr { return literalExpr{value: v} }

func Add(l, r Expr) Expr { return arithExpr{op: "+", left: l, right: r} }
func Sub(l, r Expr) Expr { return arithExpr{op: "-", left: l, right: r} }
func Mul(l, r Expr) Expr { return arithExpr{op: "*", left: l, right: r} }

// Div divides as real numbers, also when both sides are integers.
func Div(l, r Expr) Expr { return arithExpr{op: "/", left: l, right: r} }

// Sum, Mean, Min, Max and Count ignore nulls.
func Sum(e Expr) Expr  { return aggExpr{fn: aggSum, arg: e} }
func Mean(e Expr) Expr { return aggExpr{fn: aggMean, arg: e} }
func Min(e Expr) Expr  { return aggExpr{fn: aggMin, arg: e} }
func Max(e Expr) Expr  { return aggExpr{fn: aggMax, arg: e} }

// Count counts the non-null values of e.
func Count(e Expr) Expr { return aggExpr{fn: aggCount, arg: e} }

// CountAll counts rows.
func CountAll() Expr { return aggExpr{fn: aggCountAll} }

// CountDistinct counts the distinct non-null values of e.
func CountDistinct(e Expr) Expr { return aggExpr{fn: aggCountDistinct, arg: e} }

// Round rounds e to the given number of decimal places.
func Round(e Expr, places int) Expr { return roundExpr{arg: e, places: places} }

// Month formats a date as YYYY-MM.
func Month(e Expr) Expr { return dateFormatExpr{layout: "%Y-%m", arg: e} }

// DateFormat formats a date with an strftime layout.
func DateFormat(layout string, e Expr) Expr { return dateFormatExpr{layout: layout, arg: e} }

func isAggregate(e Expr) bool {
	switch x := e.(type) {
	case aggExpr:
		return true
	case arithExpr:
		return isAggregate(x.left) || isAggregate(x.right)
	case roundExpr:
		return isAggregate(x.arg)
	case dateFormatExpr:
		return isAggregate(x.arg)
	default:
		return false
	}
}
