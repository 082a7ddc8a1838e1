package lower

import (
	"github.com/slowlang/cir/compiler/ast"
	"github.com/slowlang/cir/compiler/diag"
	"github.com/slowlang/cir/compiler/ir"
)

// LowerStmt lowers one statement for its side effects. It never
// produces a usable value.
func (fc *fnCtx) LowerStmt(n ast.Node) {
	switch s := n.(type) {
	case *ast.Compound:
		restore := fc.sc.Push()
		defer restore()

		for _, c := range s.List {
			fc.LowerStmt(c)
		}

	case *ast.VarDecl:
		addr := fc.b.Alloc(s.Typ.Size(), s.Typ.Align())
		fc.sc.Declare(s.Name, addr, s.Typ)

		if s.Init != nil {
			fc.b.Store(addr, fc.LowerRValue(s.Init))
		}

	case *ast.NullStmt:
		// no instructions

	case *ast.Labeled:
		fc.b.Bind(fc.sc.ResolveLabel(s.Name))
		fc.LowerStmt(s.Stmt)

	case *ast.If:
		fc.lowerIf(s)

	case *ast.While:
		fc.lowerWhile(s)

	case *ast.DoWhile:
		fc.lowerDoWhile(s)

	case *ast.For:
		fc.lowerFor(s)

	case *ast.Switch:
		fc.lowerSwitch(s)

	case *ast.Case:
		fc.lowerCase(s)

	case *ast.Default:
		lab := fc.b.NewLabel()
		fc.b.Bind(lab)
		fc.b.SwitchSetDefault(lab)
		fc.LowerStmt(s.Stmt)

	case *ast.Break:
		fc.b.Jump(fc.b.BreakTarget())

	case *ast.Continue:
		fc.b.Jump(fc.b.ContinueTarget())

	case *ast.Goto:
		fc.b.Jump(fc.sc.ResolveLabel(s.Name))

	case *ast.Return:
		if s.X != nil {
			fc.b.Store(fc.retSlot, fc.LowerRValue(s.X))
		}

		fc.b.Jump(fc.retLabel)

	case *ast.ExprStmt:
		fc.LowerRValue(s.X)

	case *ast.Decl:
		// declarative only, no runtime effect

	default:
		diag.Raise("no statement lowering rule for %T", n)
	}
}

func (fc *fnCtx) lowerIf(s *ast.If) {
	thenLbl := fc.b.NewLabel()
	endLbl := fc.b.NewLabel()

	if s.Else == nil {
		fc.LowerBool(s.Cond, thenLbl, endLbl)
		fc.b.Bind(thenLbl)
		fc.LowerStmt(s.Then)
		fc.b.Jump(endLbl)
		fc.b.Bind(endLbl)

		return
	}

	elseLbl := fc.b.NewLabel()
	fc.LowerBool(s.Cond, thenLbl, elseLbl)

	fc.b.Bind(thenLbl)
	fc.LowerStmt(s.Then)
	fc.b.Jump(endLbl)

	fc.b.Bind(elseLbl)
	fc.LowerStmt(s.Else)
	fc.b.Jump(endLbl)

	fc.b.Bind(endLbl)
}

func (fc *fnCtx) lowerWhile(s *ast.While) {
	headLbl := fc.b.NewLabel()
	bodyLbl := fc.b.NewLabel()
	endLbl := fc.b.NewLabel()

	fc.b.Bind(headLbl)
	fc.LowerBool(s.Cond, bodyLbl, endLbl)

	fc.b.Bind(bodyLbl)
	restore := fc.b.SetLoopContext(endLbl, headLbl)
	fc.LowerStmt(s.Body)
	restore()

	fc.b.Jump(headLbl)
	fc.b.Bind(endLbl)
}

func (fc *fnCtx) lowerDoWhile(s *ast.DoWhile) {
	bodyLbl := fc.b.NewLabel()
	condLbl := fc.b.NewLabel()
	endLbl := fc.b.NewLabel()

	fc.b.Bind(bodyLbl)
	restore := fc.b.SetLoopContext(endLbl, condLbl)
	fc.LowerStmt(s.Body)
	restore()

	fc.b.Bind(condLbl)
	fc.LowerBool(s.Cond, bodyLbl, endLbl)

	fc.b.Bind(endLbl)
}

func (fc *fnCtx) lowerFor(s *ast.For) {
	restoreScope := fc.sc.Push()
	defer restoreScope()

	if s.Init != nil {
		fc.LowerStmt(s.Init)
	}

	headLbl := fc.b.NewLabel()
	bodyLbl := fc.b.NewLabel()
	incrLbl := fc.b.NewLabel()
	endLbl := fc.b.NewLabel()

	fc.b.Bind(headLbl)

	if s.Cond != nil {
		fc.LowerBool(s.Cond, bodyLbl, endLbl)
	} else {
		fc.b.Jump(bodyLbl)
	}

	fc.b.Bind(bodyLbl)
	restore := fc.b.SetLoopContext(endLbl, incrLbl)
	fc.LowerStmt(s.Body)
	restore()

	fc.b.Jump(incrLbl)
	fc.b.Bind(incrLbl)

	if s.Incr != nil {
		fc.LowerRValue(s.Incr)
	}

	fc.b.Jump(headLbl)
	fc.b.Bind(endLbl)
}

// lowerSwitch binds endLbl, the switch's break/fallthrough destination,
// exactly once, after the switch's case table has been fully discovered
// by lowering its body.
func (fc *fnCtx) lowerSwitch(s *ast.Switch) {
	tag := fc.LowerRValue(s.Tag)
	tagType := fc.tl.MustLower(typeOf(s.Tag))

	swRef := fc.b.ReserveSwitch(tag)
	endLbl := fc.b.NewLabel()

	restore := fc.b.SetSwitchContext(tagType, endLbl)
	fc.LowerStmt(s.Body)

	cases := append([]ir.SwitchCase(nil), fc.b.sw.cases...)
	def := fc.b.sw.defaultLbl
	restore()

	if def == ir.NoLabel {
		def = endLbl
	}

	fc.b.PatchSwitch(swRef, cases, def)
	fc.b.Bind(endLbl)
}

func (fc *fnCtx) lowerCase(s *ast.Case) {
	lit, ok := s.Val.(*ast.Lit)
	if !ok {
		diag.Raise("case value is not a constant literal: %T", s.Val)
	}

	c, ok := lit.Value()
	if !ok {
		diag.Raise("case value literal carries no pre-computed constant")
	}

	lab := fc.b.NewLabel()
	fc.b.Bind(lab)
	fc.b.SwitchAddCase(c.Int, lab)
	fc.LowerStmt(s.Stmt)
}
