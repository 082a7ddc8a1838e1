package lower

import (
	"github.com/nikandfor/loc"
	"github.com/nikandfor/tlog"

	"github.com/slowlang/cir/compiler/ctypes"
	"github.com/slowlang/cir/compiler/diag"
	"github.com/slowlang/cir/compiler/ir"
)

// local is what the symbol table remembers about one name: the alloc
// that holds it and its C-level type (needed to know how much to load
// from that alloc).
type local struct {
	addr ir.Ref
	typ  ctypes.Type
}

// Scope is the lexical symbol table: a stack of blocks, each mapping a
// declared local name to its storage. Declaring a name pushes it onto
// the current (innermost) block; entering/leaving a `{ ... }` pushes
// and pops a block. Lookup walks outward from the innermost block,
// matching C's shadowing rules. Non-local names never go through
// Scope at all: ast.DeclRef.IsLocal already tells expression lowering
// to build a Symbol reference instead of consulting the symbol table.
type Scope struct {
	blocks []map[string]local
	labels map[string]ir.Label

	// from is the Go call site that created this Scope, stamped the way
	// front/compile7.go stamps each nested scope it allocates, so a
	// trace can answer "which lowering call site opened this block."
	from loc.PC
}

// NewScope creates an empty symbol table with one (function-parameter)
// block already open.
func NewScope() *Scope {
	s := &Scope{
		blocks: []map[string]local{{}},
		labels: map[string]ir.Label{},
		from:   loc.Caller(1),
	}

	tlog.V("scope").Printw("new scope", "from", s.from)

	return s
}

// Push opens a new lexical block, returning a restore closure that pops
// it, the same scoped save/restore discipline the Builder's contexts
// use, applied to name visibility.
func (s *Scope) Push() (restore func()) {
	s.blocks = append(s.blocks, map[string]local{})

	tlog.V("scope").Printw("push block", "depth", len(s.blocks), "from", loc.Caller(1))

	return func() {
		s.blocks = s.blocks[:len(s.blocks)-1]
	}
}

// Declare binds name to addr/typ in the innermost block.
func (s *Scope) Declare(name string, addr ir.Ref, typ ctypes.Type) {
	s.blocks[len(s.blocks)-1][name] = local{addr: addr, typ: typ}

	tlog.V("vars").Printw("declare local", "name", name, "addr", addr, "from", loc.Caller(1))
}

// Lookup resolves a local name, searching inner blocks outward. It
// panics if the name is not bound; lowering trusts the typed AST's
// DeclRef.IsLocal to have already told the caller this name has a
// local binding.
func (s *Scope) Lookup(name string) (addr ir.Ref, typ ctypes.Type) {
	for i := len(s.blocks) - 1; i >= 0; i-- {
		if l, ok := s.blocks[i][name]; ok {
			return l.addr, l.typ
		}
	}

	diag.Raise("undeclared local %q reached lowering", name)

	panic("unreachable")
}

// SetLabel and ResolveLabel implement the two-pass goto/labelled-
// statement protocol: a function's labels are all pre-allocated (not
// bound) before its body is lowered, so a `goto` appearing lexically
// before the `Labeled` statement it targets can still Jump to the right
// ir.Label. SetLabel runs during the pre-pass; ResolveLabel is what
// both `goto` lowering and the `Labeled` statement's own binding site
// call afterward.
func (s *Scope) SetLabel(name string, lab ir.Label) {
	s.labels[name] = lab
}

func (s *Scope) ResolveLabel(name string) ir.Label {
	lab, ok := s.labels[name]
	if !ok {
		diag.Raise("goto to undeclared label %q", name)
	}

	return lab
}
