// Package ast is the typed-AST contract lowering consumes: a tree
// exposing, per node, its kind, its C-level type, and (when known at
// compile time) a pre-computed constant value. The lexer, parser, and
// semantic analyzer that would populate a real C AST are external
// collaborators; this package only fixes the shape they hand to the
// lowering core.
package ast

import "github.com/slowlang/cir/compiler/ctypes"

type (
	// Node is any AST node. Every concrete expression node type below
	// embeds Base, which carries the two fields the lowering core needs
	// from every expression regardless of kind: its type, and (if the
	// semantic analyzer evaluated it) its compile-time constant value.
	// Statement and declaration nodes do not embed Base.
	Node interface {
		node()
	}

	// Expr is any expression node: a Node that additionally carries a
	// C-level type, the thing Type Lowering and expression lowering
	// both need from every operand. Statement nodes implement Node but
	// not Expr; a statement has no type.
	Expr interface {
		Node
		Type() ctypes.Type
	}

	// Const is a pre-computed compile-time constant value attached to
	// an expression node by the (external) semantic analyzer. Exactly
	// one of the fields is meaningful, chosen by the node's own type.
	Const struct {
		Int   int64
		Float float64
		Str   []byte
	}

	// Base is embedded in every concrete node type.
	Base struct {
		Typ ctypes.Type

		// Val is non-nil when the semantic analyzer attached a
		// pre-computed constant value to this node.
		Val *Const
	}
)

func (Base) node() {}

func (b Base) Type() ctypes.Type { return b.Typ }
func (b Base) Value() (Const, bool) {
	if b.Val == nil {
		return Const{}, false
	}

	return *b.Val, true
}

// IntConst and FloatConst build a Base carrying a pre-computed constant,
// the shape every literal/constant-expression node below uses.
func IntConst(t ctypes.Type, v int64) Base   { return Base{Typ: t, Val: &Const{Int: v}} }
func FloatConst(t ctypes.Type, v float64) Base { return Base{Typ: t, Val: &Const{Float: v}} }
func StrConst(t ctypes.Type, v []byte) Base  { return Base{Typ: t, Val: &Const{Str: v}} }
func Typed(t ctypes.Type) Base                { return Base{Typ: t} }

// --- Expressions ---

type (
	// Lit is any node carrying a pre-computed constant value: integer,
	// character, floating, enumeration constants all look the same to
	// lowering and so share one node type here.
	Lit struct {
		Base
	}

	// StringLit is a string literal; lowering treats it specially
	// (lvalue, emits an anonymous symbol) rather than as a Lit.
	StringLit struct {
		Base
		Bytes []byte
	}

	// DeclRef refers to a declared name: a local, a global, or a
	// function. Lowering's symbol-stack lookup resolves Name.
	DeclRef struct {
		Base
		Name    string
		IsLocal bool
	}

	// Paren is a parenthesized expression; lowering collapses it.
	Paren struct {
		Base
		X Expr
	}

	BinOp string

	// Binary is a binary arithmetic, bitwise, shift, or comparison
	// expression.
	Binary struct {
		Base
		Op   BinOp
		X, Y Expr
	}

	// Unary is a unary +, -, ~, or ! expression.
	Unary struct {
		Base
		Op BinOp
		X  Expr
	}

	// AddrOf is C's `&x`.
	AddrOf struct {
		Base
		X Expr
	}

	// Deref is C's unary `*x`.
	Deref struct {
		Base
		X Expr

		// FromFuncPtr marks that X is an implicit function-to-pointer
		// cast, the one case lowering must not emit a load for.
		FromFuncPtr bool
	}

	// IncDec is `++x`, `--x`, `x++`, or `x--`.
	IncDec struct {
		Base
		Inc bool // true for ++, false for --
		Pre bool
		X   Expr
	}

	// Assign is a plain `x = y`.
	Assign struct {
		Base
		Lhs, Rhs Expr
	}

	// CompoundAssign is `x += y` and friends. Op is the underlying
	// binary opcode (Add, Sub, ...).
	CompoundAssign struct {
		Base
		Op       BinOp
		Lhs, Rhs Expr
	}

	// Comma is C's sequencing operator.
	Comma struct {
		Base
		X, Y Expr
	}

	// Conditional is `cond ? then : els`. GNU marks the `cond ?: els`
	// elided-middle-operand extension, in which case Then is nil and
	// CondDummy nodes inside what would have been Then refer back to
	// the condition's value.
	Conditional struct {
		Base
		Cond, Then, Else Expr
		GNU              bool
	}

	// CondDummy stands in for the elided middle operand of a GNU `?:`
	// expression; it resolves to the cond_dummy_ref the lowering
	// Builder publishes for the enclosing GNU `?:`.
	CondDummy struct {
		Base
	}

	CastKind string

	// Cast is an explicit or implicit conversion. Kind selects the
	// lowering rule; X is the operand being converted.
	Cast struct {
		Base
		Kind CastKind
		X    Expr
	}

	// Call is a function call, direct or indirect.
	Call struct {
		Base
		Fun  Expr
		Args []Expr
	}
)

const (
	Add BinOp = "+"
	Sub BinOp = "-"
	Mul BinOp = "*"
	Div BinOp = "/"
	Mod BinOp = "%"

	BitAnd BinOp = "&"
	BitOr  BinOp = "|"
	BitXor BinOp = "^"
	Shl    BinOp = "<<"
	Shr    BinOp = ">>"

	CmpEQ BinOp = "=="
	CmpNE BinOp = "!="
	CmpLT BinOp = "<"
	CmpLE BinOp = "<="
	CmpGT BinOp = ">"
	CmpGE BinOp = ">="

	LogAnd BinOp = "&&"
	LogOr  BinOp = "||"

	UnaryPlus  BinOp = "+"
	UnaryMinus BinOp = "-"
	UnaryNot   BinOp = "!"  // logical not
	UnaryBNot  BinOp = "~"  // bitwise not
)

const (
	CastNoOp             CastKind = "no_op"
	CastLValToRVal       CastKind = "lval_to_rval"
	CastFunctionToPointer CastKind = "function_to_pointer"
	CastArrayToPointer   CastKind = "array_to_pointer"
	CastIntCast          CastKind = "int_cast"
	CastBoolToInt        CastKind = "bool_to_int"
	CastToBool           CastKind = "to_bool"
)

func (Lit) node()            {}
func (StringLit) node()      {}
func (DeclRef) node()        {}
func (Paren) node()          {}
func (Binary) node()         {}
func (Unary) node()          {}
func (AddrOf) node()         {}
func (Deref) node()          {}
func (IncDec) node()         {}
func (Assign) node()         {}
func (CompoundAssign) node() {}
func (Comma) node()          {}
func (Conditional) node()    {}
func (CondDummy) node()      {}
func (Cast) node()           {}
func (Call) node()           {}

// --- Statements ---

type (
	// Compound is a `{ ... }` block: a new lexical scope.
	Compound struct {
		List []Node
	}

	// VarDecl declares a local with an optional initializer.
	VarDecl struct {
		Name string
		Typ  ctypes.Type
		Init Expr
	}

	// NullStmt is a bare `;`.
	NullStmt struct{}

	// Labeled is `name: stmt`.
	Labeled struct {
		Name string
		Stmt Node
	}

	// If covers both if-then and if-then-else; Else is nil for the
	// former.
	If struct {
		Cond       Expr
		Then, Else Node
	}

	// While is `while (Cond) Body`.
	While struct {
		Cond Expr
		Body Node
	}

	// DoWhile is `do Body while (Cond);`.
	DoWhile struct {
		Cond Expr
		Body Node
	}

	// For is a general C for-loop. Init, Cond, and Incr may each be
	// nil (the `for(;;)` forever loop has all three nil). Init is a
	// statement (an ExprStmt or a VarDecl); Cond and Incr are plain
	// expressions.
	For struct {
		Init       Node
		Cond, Incr Expr
		Body       Node
	}

	// Switch is a switch statement; Body is almost always a Compound
	// whose children are Case/Default/other statements.
	Switch struct {
		Tag  Expr
		Body Node
	}

	// Case is `case Val: Stmt`. Val must carry a pre-computed constant.
	Case struct {
		Val  Expr
		Stmt Node
	}

	// Default is `default: Stmt`.
	Default struct {
		Stmt Node
	}

	Break struct{}

	Continue struct{}

	// Goto targets a Labeled statement by name within the same
	// function. Computed goto (`goto *expr`) is not represented here;
	// it is a declared gap.
	Goto struct {
		Name string
	}

	// Return is `return;` (X nil) or `return X;`.
	Return struct {
		X Expr
	}

	// ExprStmt is an expression evaluated for its side effects, result
	// discarded.
	ExprStmt struct {
		X Expr
	}
)

func (Compound) node() {}
func (VarDecl) node()  {}
func (NullStmt) node() {}
func (Labeled) node()  {}
func (If) node()       {}
func (While) node()    {}
func (DoWhile) node()  {}
func (For) node()      {}
func (Switch) node()   {}
func (Case) node()     {}
func (Default) node()  {}
func (Break) node()    {}
func (Continue) node() {}
func (Goto) node()     {}
func (Return) node()   {}
func (ExprStmt) node() {}

// --- Declarations ---

type (
	// Param is one function parameter.
	Param struct {
		Name string
		Typ  ctypes.Type
	}

	// FuncDecl is a function definition (Body non-nil) or a prototype
	// (Body nil, no runtime effect; skipped by the driver).
	FuncDecl struct {
		Name    string
		Params  []Param
		Ret     ctypes.Type
		Body    Node // *Compound, or nil for a prototype

		// ImplicitReturnZero marks that control can fall off the end
		// of Body and, by C's implicit-return rule,
		// must return a zero of Ret rather than leaving the function
		// without a terminal return value (C's `main` does this).
		ImplicitReturnZero bool
	}

	// GlobalVarDecl is a file-scope variable; this core treats its
	// lowering "largely a stub in this core."
	GlobalVarDecl struct {
		Name string
		Typ  ctypes.Type
		Init Expr
	}

	// Decl is any declarative node with no runtime effect: typedef,
	// record/enum declaration, function prototype, extern variable,
	// static_assert. The driver skips these.
	Decl struct {
		Name string
	}
)

func (FuncDecl) node()      {}
func (GlobalVarDecl) node() {}
func (Decl) node()          {}

// File is a translation unit: an ordered list of top-level declarations.
type File struct {
	Path  string
	Decls []Node
}
