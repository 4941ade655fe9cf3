// Package ir implements pex's typed expression tree: the lowered,
// name-resolved form the code generator (internal/compiler) consumes. It
// sits between the front-end AST (internal/ast) and bytecode.
package ir

// Expr is the tagged sum of IR expression kinds: Const, Var, If, Let, Seq,
// Call, Fn and Effect.
type Expr interface {
	irExpr()
}

// Const is a literal constant: null, bool, f64, string, or a regex literal.
type Const struct {
	Value ConstValue
}

// ConstValue is the closed set of constant payloads an IR Const may carry.
type ConstValue interface {
	constValue()
}

type (
	ConstNull   struct{}
	ConstBool   bool
	ConstNumber float64
	ConstString string
	ConstRegex  struct{ Pattern, Flags string }
)

func (ConstNull) constValue()   {}
func (ConstBool) constValue()   {}
func (ConstNumber) constValue() {}
func (ConstString) constValue() {}
func (ConstRegex) constValue()  {}

// Var is a reference to a name: a parameter, a let-bound local, a captured
// free variable, or a global (builtin/user global), resolved later by the
// code generator's environment.
type Var struct {
	Name string
}

// If evaluates Cond and lazily executes Then or Else.
type If struct {
	Cond, Then, Else Expr
}

// Let binds Name to Value for the evaluation of Body.
type Let struct {
	Name  string
	Value Expr
	Body  Expr
}

// Seq evaluates each expression in order, yielding the value of the last.
type Seq struct {
	Exprs []Expr
}

// Call invokes Callee with Args, evaluated callee-first then left to right.
type Call struct {
	Callee Expr
	Args   []Expr
}

// Fn is a function literal: formal Params, a Body expression, and the list
// of free variables captured from enclosing scopes, in source order of
// first use.
type Fn struct {
	Name     string // "" for anonymous
	Params   []string
	Body     Expr
	Captures []string
}

// Effect suspends to the host's effect handler with Name and Args;
// print/debug/assert are the language-predefined effects, but any "name:"
// trailing-colon form the front end produces desugars to one of these.
type Effect struct {
	Name string
	Args []Expr
}

func (*Const) irExpr()  {}
func (*Var) irExpr()    {}
func (*If) irExpr()     {}
func (*Let) irExpr()    {}
func (*Seq) irExpr()    {}
func (*Call) irExpr()   {}
func (*Fn) irExpr()     {}
func (*Effect) irExpr() {}

// Module is the lowered form of a complete source file: its module-level
// body expression, evaluated with the implicit `input` parameter bound to
// the program's entry argument ($$/§4.3).
type Module struct {
	Body Expr
}
