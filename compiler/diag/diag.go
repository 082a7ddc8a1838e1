// Package diag holds the one error kind the lowering pass raises itself
// (as opposed to propagating, e.g. an allocator out-of-memory error):
// the fatal unsupported-construct error.
package diag

import (
	"fmt"
	"reflect"
)

// Unsupported is raised when the input AST contains a node or cast kind
// lowering does not implement. The driver treats it as a translation-
// unit failure; there is no local recovery.
type Unsupported struct {
	// What names the kind of thing that was unsupported: "ast node",
	// "cast kind", "statement", ...
	What string

	// Value is the offending value itself, kept for diagnostics.
	Value any
}

func NewUnsupported(what string, value any) Unsupported {
	return Unsupported{What: what, Value: value}
}

func (e Unsupported) Error() string {
	return fmt.Sprintf("unsupported %s: %v (%v)", e.What, e.Value, reflect.TypeOf(e.Value))
}

// Invariant is raised for a condition that is unreachable given a
// well-typed AST, e.g. a literal node reaching rvalue lowering with no
// pre-computed constant attached. Lowering does not validate its input,
// so these are implementation bugs or a malformed AST, not user-facing
// diagnostics; they panic rather than return an error.
type Invariant struct {
	Msg string
}

func (e Invariant) Error() string {
	return "lowering invariant violated: " + e.Msg
}

// Raise panics with an Invariant, for call sites that hit a case the
// typed AST contract promises cannot happen.
func Raise(format string, args ...any) {
	panic(Invariant{Msg: fmt.Sprintf(format, args...)})
}
