// Package sample builds typed ASTs by hand for a handful of C
// fragments, standing in for the parser and semantic analyzer this
// core does not own. Each builder below corresponds to one concrete
// end-to-end lowering scenario; the lower package's tests and the cir
// command both lower these rather than carrying a parser dependency.
package sample

import (
	"github.com/slowlang/cir/compiler/ast"
	"github.com/slowlang/cir/compiler/ctypes"
)

var (
	intT  = ctypes.Int{Bits: 32, Signed: true}
	boolT = ctypes.Bool{}
)

func lit(v int64) *ast.Lit {
	b := ast.IntConst(intT, v)
	return &ast.Lit{Base: b}
}

func param(name string) *ast.DeclRef {
	return &ast.DeclRef{Base: ast.Typed(intT), Name: name, IsLocal: true}
}

func ret(x ast.Expr) *ast.Return {
	return &ast.Return{X: x}
}

// Identity builds `int id(int x){ return x; }`.
func Identity() *ast.FuncDecl {
	return &ast.FuncDecl{
		Name:   "id",
		Params: []ast.Param{{Name: "x", Typ: intT}},
		Ret:    intT,
		Body: &ast.Compound{List: []ast.Node{
			ret(param("x")),
		}},
	}
}

// Add builds `int add(int a,int b){ return a+b; }`.
func Add() *ast.FuncDecl {
	a, b := param("a"), param("b")

	sum := &ast.Binary{Base: ast.Typed(intT), Op: ast.Add, X: a, Y: b}

	return &ast.FuncDecl{
		Name:   "add",
		Params: []ast.Param{{Name: "a", Typ: intT}, {Name: "b", Typ: intT}},
		Ret:    intT,
		Body: &ast.Compound{List: []ast.Node{
			ret(sum),
		}},
	}
}

// Pick builds `int pick(int c){ if(c) return 1; return 0; }`.
func Pick() *ast.FuncDecl {
	c := param("c")

	cond := &ast.Cast{Base: ast.Typed(boolT), Kind: ast.CastToBool, X: c}

	return &ast.FuncDecl{
		Name:   "pick",
		Params: []ast.Param{{Name: "c", Typ: intT}},
		Ret:    intT,
		Body: &ast.Compound{List: []ast.Node{
			&ast.If{Cond: cond, Then: ret(lit(1))},
			ret(lit(0)),
		}},
	}
}

// Sum builds `int sum(int n){ int s=0; for(int i=0;i<n;i++) s+=i; return s; }`.
func Sum() *ast.FuncDecl {
	n := param("n")

	sDecl := &ast.VarDecl{Name: "s", Typ: intT, Init: lit(0)}
	iDecl := &ast.VarDecl{Name: "i", Typ: intT, Init: lit(0)}

	i := param("i")
	s := param("s")

	cond := &ast.Binary{Base: ast.Typed(intT), Op: ast.CmpLT, X: i, Y: n}
	incr := &ast.IncDec{Base: ast.Typed(intT), Inc: true, Pre: false, X: i}
	body := &ast.CompoundAssign{Base: ast.Typed(intT), Op: ast.Add, Lhs: s, Rhs: i}

	forStmt := &ast.For{
		Init: iDecl,
		Cond: cond,
		Incr: incr,
		Body: &ast.ExprStmt{X: body},
	}

	return &ast.FuncDecl{
		Name:   "sum",
		Params: []ast.Param{{Name: "n", Typ: intT}},
		Ret:    intT,
		Body: &ast.Compound{List: []ast.Node{
			sDecl,
			forStmt,
			ret(s),
		}},
	}
}

// Switcher builds `int sw(int x){ switch(x){case 1: return 10; default: return 20;} }`.
func Switcher() *ast.FuncDecl {
	x := param("x")

	body := &ast.Compound{List: []ast.Node{
		&ast.Case{Val: lit(1), Stmt: ret(lit(10))},
		&ast.Default{Stmt: ret(lit(20))},
	}}

	return &ast.FuncDecl{
		Name:   "sw",
		Params: []ast.Param{{Name: "x", Typ: intT}},
		Ret:    intT,
		Body: &ast.Compound{List: []ast.Node{
			&ast.Switch{Tag: x, Body: body},
		}},
	}
}

// LogicalAnd builds `int land(int a,int b){ return a && b; }`.
func LogicalAnd() *ast.FuncDecl {
	a, b := param("a"), param("b")

	and := &ast.Binary{Base: ast.Typed(intT), Op: ast.LogAnd, X: a, Y: b}

	return &ast.FuncDecl{
		Name:   "land",
		Params: []ast.Param{{Name: "a", Typ: intT}, {Name: "b", Typ: intT}},
		Ret:    intT,
		Body: &ast.Compound{List: []ast.Node{
			ret(and),
		}},
	}
}

// LogicalAndConstLHS builds `int land_const(int b){ return 1 && b; }`,
// a logical-and whose left operand is a compile-time constant, so
// lowering must fold it away rather than emit a branch for it.
func LogicalAndConstLHS() *ast.FuncDecl {
	b := param("b")

	and := &ast.Binary{Base: ast.Typed(intT), Op: ast.LogAnd, X: lit(1), Y: b}

	return &ast.FuncDecl{
		Name:   "land_const",
		Params: []ast.Param{{Name: "b", Typ: intT}},
		Ret:    intT,
		Body: &ast.Compound{List: []ast.Node{
			ret(and),
		}},
	}
}

// Elvis builds `int elvis(int a,int b){ return a ?: b; }`, the GNU
// elided-middle-operand `?:` extension.
func Elvis() *ast.FuncDecl {
	a, b := param("a"), param("b")

	cond := &ast.Conditional{Base: ast.Typed(intT), Cond: a, Else: b, GNU: true}

	return &ast.FuncDecl{
		Name:   "elvis",
		Params: []ast.Param{{Name: "a", Typ: intT}, {Name: "b", Typ: intT}},
		Ret:    intT,
		Body: &ast.Compound{List: []ast.Node{
			ret(cond),
		}},
	}
}

// WrappedCall builds `int wrapped(int x){ return (*&id)(x); }`, a direct
// call to the file-scope `id` function reached through an addr-of/deref
// wrapper pair rather than a bare name, so the callee must still resolve
// to a direct symbol call rather than falling back to an indirect
// function-pointer load.
func WrappedCall() *ast.FuncDecl {
	x := param("x")

	funcT := ctypes.Func{Params: []ctypes.Type{intT}, Ret: intT}
	ptrToFuncT := ctypes.Pointer{Elem: funcT}

	id := &ast.DeclRef{Base: ast.Typed(funcT), Name: "id", IsLocal: false}
	addr := &ast.AddrOf{Base: ast.Typed(ptrToFuncT), X: id}
	deref := &ast.Deref{Base: ast.Typed(funcT), X: addr}

	call := &ast.Call{Base: ast.Typed(intT), Fun: deref, Args: []ast.Expr{x}}

	return &ast.FuncDecl{
		Name:   "wrapped",
		Params: []ast.Param{{Name: "x", Typ: intT}},
		Ret:    intT,
		Body: &ast.Compound{List: []ast.Node{
			ret(call),
		}},
	}
}

// File bundles every sample function into one translation unit.
func File() *ast.File {
	return &ast.File{
		Path: "sample.c",
		Decls: []ast.Node{
			Identity(),
			Add(),
			Pick(),
			Sum(),
			Switcher(),
			LogicalAnd(),
			LogicalAndConstLHS(),
			Elvis(),
			WrappedCall(),
		},
	}
}
