package lower

import (
	"context"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"github.com/slowlang/cir/compiler/ast"
	"github.com/slowlang/cir/compiler/diag"
	"github.com/slowlang/cir/compiler/intern"
	"github.com/slowlang/cir/compiler/ir"
)

// Lower is the package's single entry point: it walks one translation
// unit's top-level declarations, lowering each function definition and
// recording each global declaration's shape, and assembles the result
// into one ir.Package sharing one intern.Pool. The first diag.Unsupported
// any declaration raises ends the walk; per the fatal-unsupported-
// construct contract, there is no partial or best-effort output.
func Lower(ctx context.Context, file *ast.File, target Target) (_ *ir.Package, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "lower: translation unit", "path", file.Path)
	defer tr.Finish("err", &err)

	pool := intern.NewPool()
	tl := NewTypeLowering(pool, target)

	pkg := &ir.Package{Path: file.Path}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			fn, err := LowerFunc(ctx, pool, tl, d)
			if err != nil {
				return nil, errors.Wrap(err, "func %v", d.Name)
			}

			if fn != nil {
				pkg.Funcs = append(pkg.Funcs, fn)
			}

		case *ast.GlobalVarDecl:
			g, err := lowerGlobal(tl, d)
			if err != nil {
				return nil, errors.Wrap(err, "global %v", d.Name)
			}

			pkg.Globals = append(pkg.Globals, g)

		case *ast.Decl:
			// declarative only, no runtime effect

		default:
			diag.Raise("no top-level lowering rule for %T", decl)
		}
	}

	pkg.Types = pool.Types()

	return pkg, nil
}

// lowerGlobal records a file-scope variable's name and type. Actual
// initializer-data emission is a declared gap: a global with an
// initializer expression would need a constant-data emitter this core
// does not have, so it is rejected rather than silently dropped.
func lowerGlobal(tl *TypeLowering, d *ast.GlobalVarDecl) (ir.Global, error) {
	typ, err := tl.Lower(d.Typ)
	if err != nil {
		return ir.Global{}, err
	}

	if d.Init != nil {
		return ir.Global{}, diag.NewUnsupported("global variable initializer", d.Name)
	}

	return ir.Global{Name: d.Name, Type: typ}, nil
}
