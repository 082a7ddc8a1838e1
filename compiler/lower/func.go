package lower

import (
	"context"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"github.com/slowlang/cir/compiler/ast"
	"github.com/slowlang/cir/compiler/ctypes"
	"github.com/slowlang/cir/compiler/diag"
	"github.com/slowlang/cir/compiler/intern"
	"github.com/slowlang/cir/compiler/ir"
)

// fnCtx bundles the collaborators every lowering rule for one function
// needs: the shared type interner, the type-lowering rules, the
// function's instruction Builder, and its lexical symbol table.
type fnCtx struct {
	pool *intern.Pool
	tl   *TypeLowering
	b    *Builder
	sc   *Scope

	// retLabel is where every `return` jumps to; the function's single
	// ret/ret_value instruction is emitted once, at retLabel, rather
	// than once per return statement.
	retLabel ir.Label

	// retSlot holds the return value between a `return expr;` storing
	// into it and retLabel's ret_value loading it back out. NoRef for
	// a void function.
	retSlot ir.Ref
	retType ir.Type
}

// LowerFunc lowers one function definition to its IR form. It returns
// (nil, nil) for a prototype (Body == nil); the driver skips those,
// along with every other declarative-only node.
func LowerFunc(ctx context.Context, pool *intern.Pool, tl *TypeLowering, fn *ast.FuncDecl) (_ *ir.Func, err error) {
	if fn.Body == nil {
		return nil, nil
	}

	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "lower: function", "name", fn.Name)
	defer tr.Finish("err", &err)

	out := tl.MustLower(fn.Ret)

	fc := &fnCtx{
		pool:    pool,
		tl:      tl,
		b:       NewBuilder(pool),
		sc:      NewScope(),
		retSlot: ir.NoRef,
		retType: out,
	}

	in := make([]ir.Ref, len(fn.Params))

	for i, p := range fn.Params {
		typ := tl.MustLower(p.Typ)
		argVal := fc.b.Arg(i, typ)
		addr := fc.b.Alloc(p.Typ.Size(), p.Typ.Align())
		fc.b.Store(addr, argVal)
		fc.sc.Declare(p.Name, addr, p.Typ)
		in[i] = addr
	}

	fc.retLabel = fc.b.NewLabel()

	if _, isVoid := fn.Ret.(ctypes.Void); !isVoid {
		fc.retSlot = fc.b.Alloc(fn.Ret.Size(), fn.Ret.Align())

		// A well-typed AST guarantees every path through a non-void
		// function ends in an explicit `return`, except the one case
		// the typed AST contract calls out itself: a function whose
		// body can fall off the end (ImplicitReturnZero), which this
		// core treats as implicitly `return 0;`. Priming the slot here
		// makes that the default; an explicit `return expr;` anywhere
		// in the body overwrites it before retLabel is ever reached.
		if fn.ImplicitReturnZero {
			fc.b.Store(fc.retSlot, fc.b.Constant(0, out))
		}
	}

	preDeclareLabels(fc, fn.Body)

	if err := fc.lowerStmtChecked(fn.Body); err != nil {
		return nil, errors.Wrap(err, "body")
	}

	fc.b.Bind(fc.retLabel)

	if fc.retSlot == ir.NoRef {
		fc.b.Ret()
	} else {
		fc.b.RetValue(fc.b.Load(fc.retSlot, fc.retType))
	}

	return fc.b.Func(fn.Name, in, out, fc.retLabel), nil
}

// lowerStmtChecked wraps LowerStmt with the diag.Unsupported recovery
// every translation-unit-level entry point needs: lowering panics with
// diag.Invariant on an internal contract violation, but returns
// diag.Unsupported as a normal error for input this core has no rule
// for.
func (fc *fnCtx) lowerStmtChecked(n ast.Node) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if u, ok := r.(diag.Unsupported); ok {
				err = u
				return
			}

			panic(r)
		}
	}()

	fc.LowerStmt(n)

	return nil
}

// preDeclareLabels walks a function body's statement tree allocating
// (but not binding) one ir.Label per Labeled statement it finds, so
// goto lowering can resolve a forward reference before the statement
// it targets has itself been lowered.
func preDeclareLabels(fc *fnCtx, n ast.Node) {
	switch s := n.(type) {
	case *ast.Compound:
		for _, c := range s.List {
			preDeclareLabels(fc, c)
		}
	case *ast.Labeled:
		fc.sc.SetLabel(s.Name, fc.b.NewLabel())
		preDeclareLabels(fc, s.Stmt)
	case *ast.If:
		preDeclareLabels(fc, s.Then)
		if s.Else != nil {
			preDeclareLabels(fc, s.Else)
		}
	case *ast.While:
		preDeclareLabels(fc, s.Body)
	case *ast.DoWhile:
		preDeclareLabels(fc, s.Body)
	case *ast.For:
		preDeclareLabels(fc, s.Body)
	case *ast.Switch:
		preDeclareLabels(fc, s.Body)
	case *ast.Case:
		preDeclareLabels(fc, s.Stmt)
	case *ast.Default:
		preDeclareLabels(fc, s.Stmt)
	}
}
