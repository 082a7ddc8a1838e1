// Package lower is the AST-to-IR lowering core: Type Lowering, the
// instruction Builder, the lexical symbol table, boolean/branch-context
// lowering, expression lowering, and statement lowering, wired together
// by Lower, the package's single entry point.
package lower

import (
	"github.com/nikandfor/tlog"

	"github.com/slowlang/cir/compiler/diag"
	"github.com/slowlang/cir/compiler/intern"
	"github.com/slowlang/cir/compiler/ir"
	"github.com/slowlang/cir/compiler/set"
)

// branchPair is the {true_label, false_label} destination pair a boolean
// expression lowers against, per the branch-context protocol: a boolean
// subexpression does not produce a value, it jumps to one of these two
// labels.
type branchPair struct {
	True, False ir.Label
}

// Builder accumulates one function's instruction buffer, arena, and
// label table. It also carries the scoped, save-restorable state that
// the statement and expression lowering rules thread through a
// function body: the active branch context, the active break/continue
// targets, the active switch context, and the GNU `?:` cond_dummy_ref.
//
// A Builder is single-function-scoped; Lower makes a fresh one per
// ast.FuncDecl.
type Builder struct {
	pool *intern.Pool

	exprs []ir.Inst
	types []ir.Type
	body  []ir.Ref

	arenaRefs  []ir.Ref
	arenaCases []ir.SwitchCase

	labelRef []ir.Ref
	bound    set.Bits[ir.Label]

	branch    *branchPair
	condDummy ir.Ref

	brk, cont *ir.Label

	sw *switchContext

	anonCount int
}

// switchContext is the scoped state a switch statement publishes for
// its body to consume: where `break` jumps, and where each case/default
// label attaches once statement lowering reaches it.
type switchContext struct {
	breakLabel ir.Label
	tagType    ir.Type
	cases      []ir.SwitchCase
	defaultLbl ir.Label
	sawDefault bool
}

// NewBuilder creates an empty Builder sharing pool with every other
// function of the same translation unit.
func NewBuilder(pool *intern.Pool) *Builder {
	return &Builder{
		pool:      pool,
		condDummy: ir.NoRef,
	}
}

func (b *Builder) alloc(inst ir.Inst) ir.Ref {
	r := ir.Ref(len(b.exprs))
	b.exprs = append(b.exprs, inst)
	b.types = append(b.types, inst.Type)

	return r
}

func (b *Builder) emit(inst ir.Inst) ir.Ref {
	r := b.alloc(inst)
	b.body = append(b.body, r)

	return r
}

// Constant emits a constant value of the given (already-lowered) type.
func (b *Builder) Constant(value int64, typ ir.Type) ir.Ref {
	return b.emit(ir.Inst{Op: ir.OpConstant, Type: typ, Imm: value})
}

// Symbol emits a reference to an external (function or global) name.
func (b *Builder) Symbol(name string, typ ir.Type) ir.Ref {
	return b.emit(ir.Inst{Op: ir.OpSymbol, Type: typ, Name: b.pool.String(name)})
}

// Arg emits a reference to the i'th incoming parameter.
func (b *Builder) Arg(i int, typ ir.Type) ir.Ref {
	return b.emit(ir.Inst{Op: ir.OpArg, Type: typ, Imm: int64(i)})
}

// NewLabel allocates a label that does not yet appear in the body.
// Binding it with Bind is a separate step, so forward references
// (an `if` with no else, a loop header) can be created before the code
// that binds them is lowered.
func (b *Builder) NewLabel() ir.Label {
	lab := ir.Label(len(b.labelRef))
	r := b.alloc(ir.Inst{Op: ir.OpLabel, Type: intern.Void, Label: lab})
	b.labelRef = append(b.labelRef, r)

	return lab
}

// Bind appends lab's marker instruction to the body at the current
// position. Per spec, a label binds exactly once; binding it twice is
// an invariant violation in a correctly-lowered function.
func (b *Builder) Bind(lab ir.Label) {
	if b.bound.IsSet(lab) {
		tlog.Printw("duplicate label bind", "label", int(lab), "bound", b.bound)
		diag.Raise("label %d bound more than once", int(lab))
	}

	b.bound.Set(lab)
	b.body = append(b.body, b.labelRef[lab])
}

// Alloc reserves size bytes of stack storage aligned to align, and
// returns a ptr-typed reference to it.
func (b *Builder) Alloc(size, align int) ir.Ref {
	return b.emit(ir.Inst{Op: ir.OpAlloc, Type: intern.Ptr, Imm: ir.PackAlloc(size, align)})
}

// Load reads a typ-typed value from addr.
func (b *Builder) Load(addr ir.Ref, typ ir.Type) ir.Ref {
	return b.emit(ir.Inst{Op: ir.OpLoad, Type: typ, A: addr})
}

// Store writes value to addr. A store has no usable result.
func (b *Builder) Store(addr, value ir.Ref) {
	b.emit(ir.Inst{Op: ir.OpStore, Type: intern.Void, A: addr, C: value})
}

// BinOp emits a binary arithmetic or bitwise instruction.
func (b *Builder) BinOp(op ir.Op, typ ir.Type, l, r ir.Ref) ir.Ref {
	return b.emit(ir.Inst{Op: op, Type: typ, A: l, B: r})
}

// BitNot emits a unary bitwise-complement instruction.
func (b *Builder) BitNot(typ ir.Type, x ir.Ref) ir.Ref {
	return b.emit(ir.Inst{Op: ir.OpBitNot, Type: typ, A: x})
}

// Cmp emits a comparison; its result is always i1.
func (b *Builder) Cmp(op ir.Op, l, r ir.Ref) ir.Ref {
	return b.emit(ir.Inst{Op: op, Type: intern.I1, A: l, B: r})
}

// Conv emits a zext/sext/trunc width-conversion instruction.
func (b *Builder) Conv(op ir.Op, typ ir.Type, x ir.Ref) ir.Ref {
	return b.emit(ir.Inst{Op: op, Type: typ, A: x})
}

// Jump emits an unconditional branch to lab.
func (b *Builder) Jump(lab ir.Label) ir.Ref {
	return b.emit(ir.Inst{Op: ir.OpJump, Type: intern.Void, Label: lab})
}

// Branch emits a conditional two-way branch on cond, using the Builder's
// currently-published branch context as the true/false destinations.
// Callers establish that context with SetBranchContext first; calling
// Branch with none set is an invariant violation, since every caller
// of it is lowering a boolean expression under the branch-context
// protocol.
func (b *Builder) Branch(cond ir.Ref) ir.Ref {
	if b.branch == nil {
		diag.Raise("add_branch with no branch context set")
	}

	bp := b.branch

	return b.emit(ir.Inst{Op: ir.OpBranch, Type: intern.Void, A: cond, Label: bp.True, Label2: bp.False})
}

// SetBranchContext publishes (t, f) as the destinations a Branch call
// targets, returning a restore closure the caller defers to pop it back
// to whatever was active before, the scoped save/restore discipline
// every context this Builder carries follows.
func (b *Builder) SetBranchContext(t, f ir.Label) (restore func()) {
	prev := b.branch
	b.branch = &branchPair{True: t, False: f}

	return func() { b.branch = prev }
}

// BranchContext reports the currently active true/false destinations,
// if any. LowerBool does not consult it; it passes its destinations as
// parameters.
func (b *Builder) BranchContext() (t, f ir.Label, ok bool) {
	if b.branch == nil {
		return 0, 0, false
	}

	return b.branch.True, b.branch.False, true
}

// SetCondDummy publishes r as the value a CondDummy node resolves to,
// the elided middle operand of a GNU `cond ?: els` expression.
func (b *Builder) SetCondDummy(r ir.Ref) (restore func()) {
	prev := b.condDummy
	b.condDummy = r

	return func() { b.condDummy = prev }
}

// CondDummy returns the currently published cond_dummy_ref, or NoRef if
// none is active.
func (b *Builder) CondDummy() ir.Ref {
	return b.condDummy
}

// SetLoopContext publishes the jump targets `break` and `continue`
// resolve to inside a loop body.
func (b *Builder) SetLoopContext(brk, cont ir.Label) (restore func()) {
	prevBrk, prevCont := b.brk, b.cont
	b.brk, b.cont = &brk, &cont

	return func() { b.brk, b.cont = prevBrk, prevCont }
}

// BreakTarget and ContinueTarget resolve `break`/`continue`. Both panic
// if there is no enclosing loop or (for BreakTarget) switch; a
// well-typed AST never asks for one.
func (b *Builder) BreakTarget() ir.Label {
	if b.sw != nil {
		return b.sw.breakLabel
	}

	if b.brk == nil {
		diag.Raise("break with no enclosing loop or switch")
	}

	return *b.brk
}

func (b *Builder) ContinueTarget() ir.Label {
	if b.cont == nil {
		diag.Raise("continue with no enclosing loop")
	}

	return *b.cont
}

// ReserveSwitch emits a switch instruction over tag, with its case
// table and default label left unpatched, since the case table is not known
// until the switch's body has been lowered, since case/default
// statements appear inside it.
func (b *Builder) ReserveSwitch(tag ir.Ref) ir.Ref {
	return b.emit(ir.Inst{Op: ir.OpSwitch, Type: intern.Void, A: tag, Label: ir.NoLabel})
}

// PatchSwitch fills in ref's case table and default label, once the
// switch body lowering that discovers them has finished.
func (b *Builder) PatchSwitch(ref ir.Ref, cases []ir.SwitchCase, def ir.Label) {
	idx := len(b.arenaCases)
	b.arenaCases = append(b.arenaCases, cases...)

	inst := b.exprs[ref]
	inst.ArenaIdx = idx
	inst.ArenaLen = len(cases)
	inst.Label = def
	b.exprs[ref] = inst
}

// SetSwitchContext publishes the scoped state a switch statement's body
// lowering accumulates case/default labels into.
func (b *Builder) SetSwitchContext(tagType ir.Type, breakLabel ir.Label) (restore func()) {
	prev := b.sw
	b.sw = &switchContext{tagType: tagType, breakLabel: breakLabel, defaultLbl: ir.NoLabel}

	return func() { b.sw = prev }
}

// SwitchAddCase and SwitchSetDefault record a case/default label seen
// while lowering a switch's body, for ReserveSwitch's eventual
// PatchSwitch call to consume.
func (b *Builder) SwitchAddCase(value int64, lab ir.Label) {
	if b.sw == nil {
		diag.Raise("case label outside any switch")
	}

	b.sw.cases = append(b.sw.cases, ir.SwitchCase{Value: value, Label: lab})
}

func (b *Builder) SwitchSetDefault(lab ir.Label) {
	if b.sw == nil {
		diag.Raise("default label outside any switch")
	}

	b.sw.defaultLbl = lab
	b.sw.sawDefault = true
}

// Call emits a call through callee (a symbol or a loaded function
// pointer) with args, returning typ.
func (b *Builder) Call(typ ir.Type, callee ir.Ref, args []ir.Ref) ir.Ref {
	idx := len(b.arenaRefs)
	b.arenaRefs = append(b.arenaRefs, args...)

	return b.emit(ir.Inst{Op: ir.OpCall, Type: typ, A: callee, ArenaIdx: idx, ArenaLen: len(args)})
}

// Ret and RetValue emit a function's terminal return.
func (b *Builder) Ret() ir.Ref {
	return b.emit(ir.Inst{Op: ir.OpRet, Type: intern.Void})
}

func (b *Builder) RetValue(v ir.Ref) ir.Ref {
	return b.emit(ir.Inst{Op: ir.OpRetValue, Type: intern.Void, A: v})
}

// NewAnonSymbol mints a fresh linker-style name for a value with no
// source-level name of its own, a string literal's backing storage,
// chiefly.
func (b *Builder) NewAnonSymbol(prefix string) string {
	b.anonCount++

	return prefix + "." + itoa(b.anonCount)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}

	var buf [20]byte
	i := len(buf)

	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}

	return string(buf[i:])
}

// Func finishes the function being built, assigning it name, in (one
// alloc Ref per parameter), and out, binding the function's return
// label at the current position.
func (b *Builder) Func(name string, in []ir.Ref, out ir.Type, returnLabel ir.Label) *ir.Func {
	return &ir.Func{
		Name:        name,
		In:          in,
		Out:         out,
		Exprs:       b.exprs,
		Types:       b.types,
		Body:        b.body,
		ArenaRefs:   b.arenaRefs,
		ArenaCases:  b.arenaCases,
		ReturnLabel: returnLabel,
	}
}
