package lower

import (
	"github.com/slowlang/cir/compiler/ast"
	"github.com/slowlang/cir/compiler/ctypes"
	"github.com/slowlang/cir/compiler/diag"
	"github.com/slowlang/cir/compiler/intern"
	"github.com/slowlang/cir/compiler/ir"
)

// LowerBool lowers a boolean-valued expression under the branch-context
// protocol: rather than producing a value, x jumps to t if it evaluates
// true and to f if it evaluates false. Every path through what this
// emits ends in a branch or jump; the caller is responsible for
// arranging that both t and f eventually get bound.
func (fc *fnCtx) LowerBool(x ast.Node, t, f ir.Label) {
	switch n := x.(type) {
	case *ast.Paren:
		fc.LowerBool(n.X, t, f)
		return

	case *ast.Unary:
		if n.Op == ast.UnaryNot {
			// De Morgan at the branch-context level: negation swaps
			// which destination "true" and "false" mean, with no
			// instruction emitted for the ! itself.
			fc.LowerBool(n.X, f, t)
			return
		}

	case *ast.Binary:
		switch n.Op {
		case ast.LogAnd:
			if truth, ok := constTruth(n.X); ok {
				if !truth {
					fc.b.Jump(f)
					return
				}

				fc.LowerBool(n.Y, t, f)
				return
			}

			mid := fc.b.NewLabel()
			fc.LowerBool(n.X, mid, f)
			fc.b.Bind(mid)
			fc.LowerBool(n.Y, t, f)

			return

		case ast.LogOr:
			if truth, ok := constTruth(n.X); ok {
				if truth {
					fc.b.Jump(t)
					return
				}

				fc.LowerBool(n.Y, t, f)
				return
			}

			mid := fc.b.NewLabel()
			fc.LowerBool(n.X, t, mid)
			fc.b.Bind(mid)
			fc.LowerBool(n.Y, t, f)

			return

		case ast.CmpEQ, ast.CmpNE, ast.CmpLT, ast.CmpLE, ast.CmpGT, ast.CmpGE:
			l := fc.LowerRValue(n.X)
			r := fc.LowerRValue(n.Y)
			cmp := fc.b.Cmp(cmpOp(n.Op), l, r)

			restore := fc.b.SetBranchContext(t, f)
			fc.b.Branch(cmp)
			restore()

			return
		}
	}

	// Fallback: any other expression used as a condition (a plain
	// variable, a function call, a cast) is evaluated for its value and
	// compared against zero, matching C's "any scalar is a condition"
	// rule.
	v := fc.LowerRValue(x)
	fc.emitBranchOnValue(v, typeOf(x), t, f)
}

// constTruth reports x's pre-computed compile-time truth value, if x
// carries one (any node embedding ast.Base that has a Value() hit, e.g.
// a literal or a folded constant expression). The branch-context
// lowering rules for && and || consult this before recursing so a
// constant operand short-circuits instead of emitting a dead branch.
func constTruth(x ast.Node) (truth bool, ok bool) {
	cv, isConst := x.(interface{ Value() (ast.Const, bool) })
	if !isConst {
		return false, false
	}

	c, has := cv.Value()
	if !has {
		return false, false
	}

	if _, isFloat := typeOf(x).(ctypes.Float); isFloat {
		return c.Float != 0, true
	}

	return c.Int != 0, true
}

// typeOf extracts x's C-level type for the lowering rules (the
// LowerBool fallback, constTruth, lowerBoolValue, the switch tag) that
// need to inspect it without knowing x's concrete expression kind ahead
// of time.
func typeOf(x ast.Node) ctypes.Type {
	e, ok := x.(ast.Expr)
	if !ok {
		diag.Raise("%T used where an expression was expected", x)
	}

	return e.Type()
}

// emitBranchOnValue branches on an already-lowered value v: directly,
// if it is already i1-typed, or via a compare-not-equal-to-zero
// fallback otherwise.
func (fc *fnCtx) emitBranchOnValue(v ir.Ref, ct ctypes.Type, t, f ir.Label) {
	restore := fc.b.SetBranchContext(t, f)
	defer restore()

	if _, isBool := ct.(ctypes.Bool); isBool {
		fc.b.Branch(v)
		return
	}

	zero := fc.b.Constant(0, fc.tl.MustLower(ct))
	cmp := fc.b.Cmp(ir.OpCmpNE, v, zero)
	fc.b.Branch(cmp)
}

// lowerBoolValue lowers a &&/||/! expression that appears in value
// position (e.g. `int ok = a && b;`) rather than as a statement's
// condition: a two-armed diamond storing 1 or 0 into a temporary i1
// cell, so the short-circuit evaluation order LowerBool guarantees is
// preserved even though the result is a value rather than a jump.
func (fc *fnCtx) lowerBoolValue(x ast.Node) ir.Ref {
	resultType := fc.tl.MustLower(typeOf(x))

	temp := fc.b.Alloc(1, 1)

	trueLbl := fc.b.NewLabel()
	falseLbl := fc.b.NewLabel()
	joinLbl := fc.b.NewLabel()

	fc.LowerBool(x, trueLbl, falseLbl)

	fc.b.Bind(trueLbl)
	fc.b.Store(temp, fc.b.Constant(1, intern.I1))
	fc.b.Jump(joinLbl)

	fc.b.Bind(falseLbl)
	fc.b.Store(temp, fc.b.Constant(0, intern.I1))
	fc.b.Jump(joinLbl)

	fc.b.Bind(joinLbl)
	boolVal := fc.b.Load(temp, intern.I1)

	if resultType == intern.I1 {
		return boolVal
	}

	return fc.b.Conv(ir.OpZext, resultType, boolVal)
}
