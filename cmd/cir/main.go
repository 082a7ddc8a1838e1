package main

import (
	"context"
	"fmt"
	"os"

	"nikand.dev/go/cli"
	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"github.com/slowlang/cir/compiler/irprint"
	"github.com/slowlang/cir/compiler/lower"
	"github.com/slowlang/cir/compiler/sample"
)

func main() {
	lowerCmd := &cli.Command{
		Name:   "lower",
		Action: lowerAct,
		Args:   cli.Args{},
	}

	app := &cli.Command{
		Name:        "cir",
		Description: "cir lowers a typed C AST to its pre-SSA IR",
		Commands: []*cli.Command{
			lowerCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func lowerAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	file := sample.File()

	pkg, err := lower.Lower(ctx, file, lower.LP64)
	if err != nil {
		return errors.Wrap(err, "lower %v", file.Path)
	}

	var buf []byte

	buf, err = irprint.Print(ctx, buf, pkg)
	if err != nil {
		return errors.Wrap(err, "print %v", file.Path)
	}

	fmt.Printf("%s", buf)

	return nil
}
