// Package sqlast defines the abstract syntax tree for the SQL subset the
// aggregate compiler rewrites. Trees are plain data: the compiler builds
// derived queries by cloning and splicing nodes, never by mutating a
// caller's tree in place.
package sqlast

// Statement represents a SQL statement.
type Statement interface {
	stmtNode()
}

// Expr represents an expression.
type Expr interface {
	exprNode()
}

// TableRef represents a table reference in a FROM clause.
type TableRef interface {
	tableRefNode()
}

// ---------- Statement types ----------

// SelectStmt is a complete SELECT statement with an optional WITH clause.
type SelectStmt struct {
	With *WithClause
	Body *SelectBody
}

func (*SelectStmt) stmtNode() {}

// WithClause holds common table expressions. The compiler parses these only
// to reject them with a useful position.
type WithClause struct {
	Recursive bool
	CTEs      []*CTE
}

// CTE is a single common table expression.
type CTE struct {
	Name   string
	Select *SelectStmt
}

// SelectBody is the body of a SELECT with possible set operations.
type SelectBody struct {
	Left  *SelectCore
	Op    SetOp
	Right *SelectBody // chained set operations
}

// SetOp identifies a set operation between select cores.
type SetOp string

// Set operations recognized by the parser.
const (
	SetOpNone     SetOp = ""
	SetOpUnion    SetOp = "UNION"
	SetOpUnionAll SetOp = "UNION ALL"
)

// SelectCore is a single SELECT ... FROM ... clause.
type SelectCore struct {
	Distinct bool
	Columns  []SelectItem
	From     *FromClause
	Where    Expr
	GroupBy  []Expr
	Having   Expr
	OrderBy  []OrderByItem
	Limit    Expr
	Offset   Expr
}

// SelectItem is one item in the SELECT list.
type SelectItem struct {
	Star      bool   // SELECT *
	TableStar string // SELECT t.*
	Expr      Expr
	Alias     string // AS alias
}

// FromClause is the FROM clause with any trailing joins.
type FromClause struct {
	Source TableRef
	Joins  []*Join
}

// Join is a single JOIN clause.
type Join struct {
	Type      JoinType
	Right     TableRef
	Condition Expr
}

// JoinType identifies the kind of join.
type JoinType string

// Join kinds recognized by the parser.
const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
	JoinCross JoinType = "CROSS"
	JoinComma JoinType = "," // implicit cross join
)

// OrderByItem is one item in an ORDER BY clause.
type OrderByItem struct {
	Expr       Expr
	Desc       bool
	NullsFirst *bool // nil means dialect default
}

// ---------- Table reference types ----------

// TableName references a (possibly schema-qualified) table or view.
type TableName struct {
	Schema string
	Name   string
	Alias  string
}

func (*TableName) tableRefNode() {}

// DerivedTable is a subquery in a FROM clause.
type DerivedTable struct {
	Select *SelectStmt
	Alias  string
}

func (*DerivedTable) tableRefNode() {}

// ---------- Expression types ----------

// ColumnRef references a column, optionally qualified by table or alias.
type ColumnRef struct {
	Table  string
	Column string
}

func (*ColumnRef) exprNode() {}

// Literal is a literal value. Value holds the raw text without quotes.
type Literal struct {
	Type  LiteralType
	Value string
}

func (*Literal) exprNode() {}

// LiteralType identifies the kind of a literal.
type LiteralType int

// Literal kinds.
const (
	LiteralNumber LiteralType = iota
	LiteralString
	LiteralBool
	LiteralNull
)

// IntervalLiteral is an INTERVAL 'value' literal. Bucket widths arrive as
// these, so they are a distinct node rather than a cast of a string.
type IntervalLiteral struct {
	Value string // the quoted text, e.g. "1 hour"
}

func (*IntervalLiteral) exprNode() {}

// BinaryExpr is a binary expression.
type BinaryExpr struct {
	Left  Expr
	Op    string
	Right Expr
}

func (*BinaryExpr) exprNode() {}

// UnaryExpr is a unary expression (-, +, NOT).
type UnaryExpr struct {
	Op   string
	Expr Expr
}

func (*UnaryExpr) exprNode() {}

// FuncCall is a function call. Aggregates, bucket functions and scalar
// calls all use this node; the dialect layer classifies them by name.
type FuncCall struct {
	Schema   string // optional schema qualifier
	Name     string
	Distinct bool
	Args     []Expr
	Star     bool        // COUNT(*)
	Window   *WindowSpec // OVER clause, parsed only to be rejected
	Filter   Expr        // FILTER (WHERE ...) clause
}

func (*FuncCall) exprNode() {}

// WindowSpec is an OVER clause. The compiler never materializes window
// functions; the parser keeps just enough to report what was written.
type WindowSpec struct {
	PartitionBy []Expr
	OrderBy     []OrderByItem
}

// CaseExpr is a CASE expression.
type CaseExpr struct {
	Operand Expr // CASE operand WHEN ... (optional)
	Whens   []WhenClause
	Else    Expr
}

func (*CaseExpr) exprNode() {}

// WhenClause is one WHEN arm of a CASE expression.
type WhenClause struct {
	Condition Expr
	Result    Expr
}

// CastExpr is a CAST(expr AS type) or expr::type expression.
type CastExpr struct {
	Expr     Expr
	TypeName string
}

func (*CastExpr) exprNode() {}

// InExpr is an IN expression.
type InExpr struct {
	Expr   Expr
	Not    bool
	Values []Expr
	Query  *SelectStmt
}

func (*InExpr) exprNode() {}

// BetweenExpr is a BETWEEN expression.
type BetweenExpr struct {
	Expr Expr
	Not  bool
	Low  Expr
	High Expr
}

func (*BetweenExpr) exprNode() {}

// IsNullExpr is an IS [NOT] NULL expression.
type IsNullExpr struct {
	Expr Expr
	Not  bool
}

func (*IsNullExpr) exprNode() {}

// LikeExpr is a [NOT] LIKE expression.
type LikeExpr struct {
	Expr    Expr
	Not     bool
	Pattern Expr
}

func (*LikeExpr) exprNode() {}

// ParenExpr is a parenthesized expression.
type ParenExpr struct {
	Expr Expr
}

func (*ParenExpr) exprNode() {}

// SubqueryExpr is a subquery used as a scalar expression.
type SubqueryExpr struct {
	Select *SelectStmt
}

func (*SubqueryExpr) exprNode() {}
