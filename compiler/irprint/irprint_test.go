package irprint

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slowlang/cir/compiler/intern"
	"github.com/slowlang/cir/compiler/ir"
	"github.com/slowlang/cir/compiler/lower"
	"github.com/slowlang/cir/compiler/sample"
)

func TestPrintSample(t *testing.T) {
	ctx := context.Background()

	pkg, err := lower.Lower(ctx, sample.File(), lower.LP64)
	require.NoError(t, err)

	buf, err := Print(ctx, nil, pkg)
	require.NoError(t, err)

	out := string(buf)

	require.Contains(t, out, "func id(")
	require.Contains(t, out, "func add(")
	require.Contains(t, out, "func pick(")
	require.Contains(t, out, "func sum(")
	require.Contains(t, out, "func sw(")
	require.Contains(t, out, "func land(")

	require.Equal(t, len(pkg.Funcs), strings.Count(out, "func "))
}

func TestPrintGlobal(t *testing.T) {
	pool := intern.NewPool()
	pkg := &ir.Package{
		Path:    "g.c",
		Globals: []ir.Global{{Name: "counter", Type: intern.I1}},
		Types:   pool.Types(),
	}

	buf, err := Print(context.Background(), nil, pkg)
	require.NoError(t, err)
	require.Contains(t, string(buf), "global counter i1")
}
