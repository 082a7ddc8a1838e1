package lower

import (
	"github.com/slowlang/cir/compiler/ctypes"
	"github.com/slowlang/cir/compiler/diag"
	"github.com/slowlang/cir/compiler/intern"
	"github.com/slowlang/cir/compiler/ir"
)

// Target gathers the compilation-target facts Type Lowering needs to
// canonicalize a source-level integer type that the semantic analyzer
// left width-less (ctypes.Int{Bits: 0} means "whatever `int`/`long`
// means on this target").
type Target struct {
	IntBits    int
	LongBits   int
	PointerBits int
	FloatBits  int
	DoubleBits int
}

// LP64 is the data model this core defaults to: 32-bit int, 64-bit long
// and pointer, matching the x86-64/AArch64 System V ABIs.
var LP64 = Target{IntBits: 32, LongBits: 64, PointerBits: 64, FloatBits: 32, DoubleBits: 64}

func (t Target) intWidth(c ctypes.Int) int {
	if c.Bits != 0 {
		return c.Bits
	}

	return t.IntBits
}

// TypeLowering maps ctypes.Type values to interned ir.Type handles. It
// holds no per-function state, only the target and the shared pool, so
// one TypeLowering serves an entire translation unit.
type TypeLowering struct {
	pool   *intern.Pool
	target Target
}

func NewTypeLowering(pool *intern.Pool, target Target) *TypeLowering {
	return &TypeLowering{pool: pool, target: target}
}

// Lower maps a C-level type to its IR representation. Complex types
// have no lowering rule; lowering one is a declared gap, surfaced as a
// diag.Unsupported rather than a panic since it can occur on otherwise
// well-formed source (a `_Complex` variable this core was never asked
// to support).
func (tl *TypeLowering) Lower(t ctypes.Type) (ir.Type, error) {
	switch c := t.(type) {
	case ctypes.Void:
		return intern.Void, nil

	case ctypes.Bool:
		return intern.I1, nil

	case ctypes.Int:
		return tl.pool.Type(ir.TypeDesc{Kind: ir.KindInt, Width: tl.target.intWidth(c)}), nil

	case ctypes.Float:
		return tl.pool.Type(ir.TypeDesc{Kind: ir.KindFloat, Width: c.Bits}), nil

	case ctypes.Pointer:
		return intern.Ptr, nil

	case ctypes.Array:
		elem, err := tl.Lower(c.Elem)
		if err != nil {
			return 0, err
		}

		return tl.pool.Type(ir.TypeDesc{Kind: ir.KindArray, Elem: elem, Len: c.Len}), nil

	case ctypes.Vector:
		elem, err := tl.Lower(c.Elem)
		if err != nil {
			return 0, err
		}

		return tl.pool.Type(ir.TypeDesc{Kind: ir.KindVector, Elem: elem, Len: c.Len}), nil

	case ctypes.Func:
		ret, err := tl.Lower(c.Ret)
		if err != nil {
			return 0, err
		}

		params := make([]ir.Type, len(c.Params))
		for i, p := range c.Params {
			pt, err := tl.Lower(p)
			if err != nil {
				return 0, err
			}

			params[i] = pt
		}

		return tl.pool.Type(ir.TypeDesc{Kind: ir.KindFunc, Elem: ret, Params: params}), nil

	case ctypes.Complex:
		return 0, diag.NewUnsupported("type", c)

	default:
		return 0, diag.NewUnsupported("type", t)
	}
}

// MustLower is Lower for call sites lowering a node the typed AST
// contract promises carries a type this core already accepted once
// before (e.g. re-lowering an operand's own .Type() inside expression
// lowering, after the function's parameter/return types were already
// lowered successfully by LowerFunc).
func (tl *TypeLowering) MustLower(t ctypes.Type) ir.Type {
	typ, err := tl.Lower(t)
	if err != nil {
		diag.Raise("type %v rejected after lowering already accepted it: %v", t, err)
	}

	return typ
}
