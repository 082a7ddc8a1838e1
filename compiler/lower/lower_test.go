package lower

import (
	"context"
	"testing"

	"github.com/slowlang/cir/compiler/intern"
	"github.com/slowlang/cir/compiler/ir"
	"github.com/slowlang/cir/compiler/sample"
)

// checkInvariants verifies the global body-shape properties every
// lowered function must hold, regardless of which fragment produced
// it: every label binds exactly once, every jump/branch/switch target
// names a label that is actually bound, every parameter's arg value is
// stored into its alloc, every cmp_* result is i1, and the body ends
// with the return label followed by ret/ret_value.
func checkInvariants(t *testing.T, fn *ir.Func) {
	t.Helper()

	bound := map[ir.Label]int{}

	for _, r := range fn.Body {
		if fn.Exprs[r].Op == ir.OpLabel {
			bound[fn.Exprs[r].Label]++
		}
	}

	for lab, n := range bound {
		if n != 1 {
			t.Errorf("label %d bound %d times, want exactly 1", int(lab), n)
		}
	}

	checkTarget := func(lab ir.Label) {
		if bound[lab] != 1 {
			t.Errorf("jump/branch/switch target %d is not bound exactly once", int(lab))
		}
	}

	for _, r := range fn.Body {
		inst := fn.Exprs[r]

		switch inst.Op {
		case ir.OpJump:
			checkTarget(inst.Label)
		case ir.OpBranch:
			checkTarget(inst.Label)
			checkTarget(inst.Label2)
		case ir.OpSwitch:
			if inst.Label != ir.NoLabel {
				checkTarget(inst.Label)
			}

			for i := 0; i < inst.ArenaLen; i++ {
				checkTarget(fn.ArenaCases[inst.ArenaIdx+i].Label)
			}
		case ir.OpCmpEQ, ir.OpCmpNE, ir.OpCmpLT, ir.OpCmpLE, ir.OpCmpGT, ir.OpCmpGE:
			if fn.Types[r] != intern.I1 {
				t.Errorf("cmp result at %%%d has type %v, want i1", int(r), fn.Types[r])
			}
		}
	}

	for i, in := range fn.In {
		argRef := ir.NoRef

		for r, inst := range fn.Exprs {
			if inst.Op == ir.OpArg && inst.Imm == int64(i) {
				argRef = ir.Ref(r)
				break
			}
		}

		if argRef == ir.NoRef {
			t.Errorf("no arg instruction found for parameter %d", i)
			continue
		}

		stored := false

		for _, r := range fn.Body {
			inst := fn.Exprs[r]
			if inst.Op == ir.OpStore && inst.A == in && inst.C == argRef {
				stored = true
			}
		}

		if !stored {
			t.Errorf("parameter %d's arg value %%%d is never stored into its alloc", i, argRef)
		}
	}

	if len(fn.Body) < 2 {
		t.Fatalf("body too short to hold a terminal return")
	}

	lastLabel := fn.Exprs[fn.Body[len(fn.Body)-2]]
	if lastLabel.Op != ir.OpLabel || lastLabel.Label != fn.ReturnLabel {
		t.Errorf("second-to-last body entry is not the return label")
	}

	last := fn.Exprs[fn.Body[len(fn.Body)-1]]
	if last.Op != ir.OpRet && last.Op != ir.OpRetValue {
		t.Errorf("last body entry is %v, want ret or ret_value", last.Op)
	}
}

func TestIdentity(t *testing.T) {
	pool := intern.NewPool()
	tl := NewTypeLowering(pool, LP64)

	fn, err := LowerFunc(context.Background(), pool, tl, sample.Identity())
	if err != nil {
		t.Fatalf("lower: %v", err)
	}

	checkInvariants(t, fn)

	var retValues int

	for _, r := range fn.Body {
		if fn.Exprs[r].Op == ir.OpRetValue {
			retValues++
		}
	}

	if retValues != 1 {
		t.Errorf("got %d ret_value instructions, want exactly 1", retValues)
	}
}

func TestAdd(t *testing.T) {
	pool := intern.NewPool()
	tl := NewTypeLowering(pool, LP64)

	fn, err := LowerFunc(context.Background(), pool, tl, sample.Add())
	if err != nil {
		t.Fatalf("lower: %v", err)
	}

	checkInvariants(t, fn)

	var adds int

	for _, r := range fn.Body {
		if fn.Exprs[r].Op == ir.OpAdd {
			adds++
		}
	}

	if adds != 1 {
		t.Errorf("got %d add instructions, want exactly 1", adds)
	}
}

func TestPick(t *testing.T) {
	pool := intern.NewPool()
	tl := NewTypeLowering(pool, LP64)

	fn, err := LowerFunc(context.Background(), pool, tl, sample.Pick())
	if err != nil {
		t.Fatalf("lower: %v", err)
	}

	checkInvariants(t, fn)

	var branches, rets int

	for _, r := range fn.Body {
		switch fn.Exprs[r].Op {
		case ir.OpBranch:
			branches++
		case ir.OpRet:
			rets++
		}
	}

	if branches != 1 {
		t.Errorf("got %d branches, want exactly 1", branches)
	}

	if rets != 1 {
		t.Errorf("got %d terminal rets, want exactly 1", rets)
	}
}

func TestSum(t *testing.T) {
	pool := intern.NewPool()
	tl := NewTypeLowering(pool, LP64)

	fn, err := LowerFunc(context.Background(), pool, tl, sample.Sum())
	if err != nil {
		t.Fatalf("lower: %v", err)
	}

	checkInvariants(t, fn)

	var allocs, jumps int

	for _, r := range fn.Body {
		switch fn.Exprs[r].Op {
		case ir.OpAlloc:
			allocs++
		case ir.OpJump:
			jumps++
		}
	}

	// n, s, and i each get their own alloc.
	if allocs != 3 {
		t.Errorf("got %d allocs, want exactly 3 (n, s, i)", allocs)
	}

	if jumps == 0 {
		t.Errorf("expected at least one jump for the loop's condition/backedge")
	}
}

func TestSwitcher(t *testing.T) {
	pool := intern.NewPool()
	tl := NewTypeLowering(pool, LP64)

	fn, err := LowerFunc(context.Background(), pool, tl, sample.Switcher())
	if err != nil {
		t.Fatalf("lower: %v", err)
	}

	checkInvariants(t, fn)

	var sw *ir.Inst

	for _, r := range fn.Body {
		if fn.Exprs[r].Op == ir.OpSwitch {
			inst := fn.Exprs[r]
			sw = &inst
		}
	}

	if sw == nil {
		t.Fatalf("no switch instruction emitted")
	}

	if sw.ArenaLen != 1 {
		t.Errorf("got %d cases, want exactly 1", sw.ArenaLen)
	}

	if sw.Label == ir.NoLabel {
		t.Errorf("switch has no default label bound")
	}
}

func TestLogicalAnd(t *testing.T) {
	pool := intern.NewPool()
	tl := NewTypeLowering(pool, LP64)

	fn, err := LowerFunc(context.Background(), pool, tl, sample.LogicalAnd())
	if err != nil {
		t.Fatalf("lower: %v", err)
	}

	checkInvariants(t, fn)

	var cmps, zexts, branches int

	for _, r := range fn.Body {
		switch fn.Exprs[r].Op {
		case ir.OpCmpNE:
			cmps++
		case ir.OpZext:
			zexts++
		case ir.OpBranch:
			branches++
		}
	}

	if cmps != 2 {
		t.Errorf("got %d cmp_ne against zero, want exactly 2 (one per operand)", cmps)
	}

	if branches != 2 {
		t.Errorf("got %d branches, want exactly 2 (one per operand)", branches)
	}

	if zexts != 1 {
		t.Errorf("got %d zext, want exactly 1 (the joined i1 widened to int)", zexts)
	}
}

// TestLogicalAndConstLHS exercises the constant-folding rule LowerBool
// applies before recursing into a LogAnd/LogOr operand: a constant-true
// left operand must fold away entirely, leaving only the right
// operand's own branch, not a dead cmp/branch pair for the constant.
func TestLogicalAndConstLHS(t *testing.T) {
	pool := intern.NewPool()
	tl := NewTypeLowering(pool, LP64)

	fn, err := LowerFunc(context.Background(), pool, tl, sample.LogicalAndConstLHS())
	if err != nil {
		t.Fatalf("lower: %v", err)
	}

	checkInvariants(t, fn)

	var cmps, branches, jumps int

	for _, r := range fn.Body {
		switch fn.Exprs[r].Op {
		case ir.OpCmpNE:
			cmps++
		case ir.OpBranch:
			branches++
		case ir.OpJump:
			jumps++
		}
	}

	if cmps != 1 {
		t.Errorf("got %d cmp_ne against zero, want exactly 1 (only for the non-constant operand)", cmps)
	}

	if branches != 1 {
		t.Errorf("got %d branches, want exactly 1 (the constant operand folds away, no branch)", branches)
	}

	if jumps == 0 {
		t.Errorf("expected at least one unconditional jump from lowerBoolValue's diamond")
	}
}

// TestElvis exercises the GNU `a ?: b` extension: a true condition must
// store the condition's own value, not ir.NoRef, which is what a
// premature restore of the branch builder's cond_dummy_ref would yield.
func TestElvis(t *testing.T) {
	pool := intern.NewPool()
	tl := NewTypeLowering(pool, LP64)

	fn, err := LowerFunc(context.Background(), pool, tl, sample.Elvis())
	if err != nil {
		t.Fatalf("lower: %v", err)
	}

	checkInvariants(t, fn)

	for _, r := range fn.Body {
		inst := fn.Exprs[r]
		if inst.Op == ir.OpStore && inst.C == ir.NoRef {
			t.Errorf("store at %%%d stores ir.NoRef, cond_dummy_ref was cleared before use", int(r))
		}
	}
}

// TestWrappedCall exercises directCallee's unwrap chain: a direct call
// to a file-scope function reached through addr-of/deref wrappers must
// still emit a symbol callee and a call, never an indirect
// function-pointer load.
func TestWrappedCall(t *testing.T) {
	pool := intern.NewPool()
	tl := NewTypeLowering(pool, LP64)

	fn, err := LowerFunc(context.Background(), pool, tl, sample.WrappedCall())
	if err != nil {
		t.Fatalf("lower: %v", err)
	}

	checkInvariants(t, fn)

	var symbols, calls int
	var callInst *ir.Inst

	for _, r := range fn.Body {
		inst := fn.Exprs[r]

		switch inst.Op {
		case ir.OpSymbol:
			symbols++
		case ir.OpCall:
			calls++
			callInst = &inst
		}
	}

	if symbols != 1 {
		t.Errorf("got %d symbol refs, want exactly 1 (the direct callee, unwrapped through addr-of/deref)", symbols)
	}

	if calls != 1 {
		t.Fatalf("got %d calls, want exactly 1", calls)
	}

	if fn.Exprs[callInst.A].Op != ir.OpSymbol {
		t.Errorf("call's callee operand is %v, want a symbol ref (indirect load instead of direct call)", fn.Exprs[callInst.A].Op)
	}
}
