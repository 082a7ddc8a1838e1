// Package irprint renders a lowered ir.Package as readable text, the
// way a disassembler renders object code: one function per block, one
// instruction per line, in body order.
package irprint

import (
	"context"
	"strconv"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/hacked/hfmt"

	"github.com/slowlang/cir/compiler/ir"
)

// Print renders pkg in full.
func Print(ctx context.Context, b []byte, pkg *ir.Package) ([]byte, error) {
	for _, g := range pkg.Globals {
		b = app(b, 0, "global %v %v\n", g.Name, typeString(pkg, g.Type))
	}

	if len(pkg.Globals) != 0 {
		b = append(b, '\n')
	}

	for i, fn := range pkg.Funcs {
		if i != 0 {
			b = append(b, '\n')
		}

		var err error

		b, err = printFunc(ctx, b, pkg, fn)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", fn.Name)
		}
	}

	return b, nil
}

func printFunc(ctx context.Context, b []byte, pkg *ir.Package, fn *ir.Func) (_ []byte, err error) {
	b = app(b, 0, "func %v(", fn.Name)

	for i, in := range fn.In {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = app(b, 0, "%v", ref(in))
	}

	b = app(b, 0, ") %v {\n", typeString(pkg, fn.Out))

	for _, r := range fn.Body {
		inst := fn.Exprs[r]

		b, err = printInst(b, pkg, fn, r, inst)
		if err != nil {
			return nil, errors.Wrap(err, "inst %v", ref(r))
		}
	}

	b = app(b, 0, "}\n")

	return b, nil
}

func printInst(b []byte, pkg *ir.Package, fn *ir.Func, r ir.Ref, inst ir.Inst) (_ []byte, err error) {
	if inst.Op == ir.OpLabel {
		return app(b, 0, "%v:\n", label(inst.Label)), nil
	}

	b = app(b, 1, "%v = %v", ref(r), inst.Op)

	switch inst.Op {
	case ir.OpConstant:
		b = app(b, 0, " %v %v", inst.Imm, typeString(pkg, inst.Type))

	case ir.OpSymbol:
		b = app(b, 0, " %v %v", inst.Name, typeString(pkg, inst.Type))

	case ir.OpArg:
		b = app(b, 0, " %v %v", inst.Imm, typeString(pkg, inst.Type))

	case ir.OpAlloc:
		b = app(b, 0, " size=%v align=%v", inst.AllocSize(), inst.AllocAlign())

	case ir.OpLoad:
		b = app(b, 0, " %v %v", ref(inst.A), typeString(pkg, inst.Type))

	case ir.OpStore:
		b = app(b, 0, " %v %v", ref(inst.A), ref(inst.C))

	case ir.OpBitNot:
		b = app(b, 0, " %v %v", ref(inst.A), typeString(pkg, inst.Type))

	case ir.OpZext, ir.OpSext, ir.OpTrunc:
		b = app(b, 0, " %v -> %v", ref(inst.A), typeString(pkg, inst.Type))

	case ir.OpJump:
		b = app(b, 0, " %v", label(inst.Label))

	case ir.OpBranch:
		b = app(b, 0, " %v true=%v false=%v", ref(inst.A), label(inst.Label), label(inst.Label2))

	case ir.OpSwitch:
		b = app(b, 0, " %v default=%v [", ref(inst.A), label(inst.Label))

		for i := 0; i < inst.ArenaLen; i++ {
			if i != 0 {
				b = append(b, ", "...)
			}

			c := fn.ArenaCases[inst.ArenaIdx+i]
			b = app(b, 0, "%v:%v", c.Value, label(c.Label))
		}

		b = append(b, ']')

	case ir.OpRet:
		// no operands

	case ir.OpRetValue:
		b = app(b, 0, " %v", ref(inst.A))

	case ir.OpCall:
		b = app(b, 0, " %v(", ref(inst.A))

		for i := 0; i < inst.ArenaLen; i++ {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = app(b, 0, "%v", ref(fn.ArenaRefs[inst.ArenaIdx+i]))
		}

		b = app(b, 0, ") %v", typeString(pkg, inst.Type))

	case ir.OpSelect:
		b = app(b, 0, " %v ? %v : %v", ref(inst.A), ref(inst.C), ref(inst.B))

	default:
		b = app(b, 0, " %v, %v %v", ref(inst.A), ref(inst.B), typeString(pkg, inst.Type))
	}

	return append(b, '\n'), nil
}

func typeString(pkg *ir.Package, t ir.Type) string {
	if int(t) >= len(pkg.Types) {
		return "?"
	}

	return pkg.Types[t].String()
}

func ref(r ir.Ref) string {
	if r == ir.NoRef {
		return "_"
	}

	return "%" + strconv.Itoa(int(r))
}

func label(l ir.Label) string {
	if l == ir.NoLabel {
		return "L_none"
	}

	return "L" + strconv.Itoa(int(l))
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t"
	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)

	return b
}
