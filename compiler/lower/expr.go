package lower

import (
	"math"

	"github.com/slowlang/cir/compiler/ast"
	"github.com/slowlang/cir/compiler/ctypes"
	"github.com/slowlang/cir/compiler/diag"
	"github.com/slowlang/cir/compiler/intern"
	"github.com/slowlang/cir/compiler/ir"
)

// LowerRValue lowers x for its value.
func (fc *fnCtx) LowerRValue(x ast.Node) ir.Ref {
	switch n := x.(type) {
	case *ast.Lit:
		return fc.lowerLit(n)

	case *ast.StringLit:
		return fc.LowerLValue(n)

	case *ast.DeclRef:
		return fc.lowerDeclRefRValue(n)

	case *ast.Paren:
		return fc.LowerRValue(n.X)

	case *ast.Binary:
		return fc.lowerBinaryRValue(n)

	case *ast.Unary:
		return fc.lowerUnaryRValue(n)

	case *ast.AddrOf:
		return fc.LowerLValue(n.X)

	case *ast.Deref:
		return fc.lowerDerefRValue(n)

	case *ast.IncDec:
		return fc.lowerIncDec(n)

	case *ast.Assign:
		rhs := fc.LowerRValue(n.Rhs)
		addr := fc.LowerLValue(n.Lhs)
		fc.b.Store(addr, rhs)

		return rhs

	case *ast.CompoundAssign:
		return fc.lowerCompoundAssign(n)

	case *ast.Comma:
		fc.LowerRValue(n.X)
		return fc.LowerRValue(n.Y)

	case *ast.Conditional:
		return fc.lowerConditional(n)

	case *ast.CondDummy:
		if r := fc.b.CondDummy(); r != ir.NoRef {
			return r
		}

		diag.Raise("cond_dummy reached outside a GNU ?: elided operand")

		panic("unreachable")

	case *ast.Cast:
		return fc.lowerCast(n)

	case *ast.Call:
		return fc.lowerCall(n)

	default:
		diag.Raise("no rvalue lowering rule for %T", x)

		panic("unreachable")
	}
}

// LowerLValue lowers x for its address. Only expressions that denote
// storage reach here; a well-typed AST never asks for the lvalue of,
// say, a Binary expression.
func (fc *fnCtx) LowerLValue(x ast.Node) ir.Ref {
	switch n := x.(type) {
	case *ast.DeclRef:
		if n.IsLocal {
			addr, _ := fc.sc.Lookup(n.Name)
			return addr
		}

		return fc.b.Symbol(n.Name, intern.Ptr)

	case *ast.StringLit:
		name := fc.b.NewAnonSymbol(".str")
		return fc.b.Symbol(name, intern.Ptr)

	case *ast.Paren:
		return fc.LowerLValue(n.X)

	case *ast.Deref:
		if n.FromFuncPtr {
			return fc.LowerRValue(n.X)
		}

		return fc.LowerRValue(n.X)

	case *ast.Cast:
		if n.Kind == ast.CastArrayToPointer {
			return fc.LowerLValue(n.X)
		}

		diag.Raise("no lvalue lowering rule for cast kind %v", n.Kind)

		panic("unreachable")

	default:
		diag.Raise("no lvalue lowering rule for %T", x)

		panic("unreachable")
	}
}

func (fc *fnCtx) lowerLit(n *ast.Lit) ir.Ref {
	c, ok := n.Value()
	if !ok {
		diag.Raise("literal node reached lowering with no pre-computed value")
	}

	typ := fc.tl.MustLower(n.Typ)

	if _, isFloat := n.Typ.(ctypes.Float); isFloat {
		return fc.b.Constant(floatBits(n.Typ.(ctypes.Float), c.Float), typ)
	}

	return fc.b.Constant(c.Int, typ)
}

func floatBits(t ctypes.Float, v float64) int64 {
	if t.Bits == 32 {
		return int64(math.Float32bits(float32(v)))
	}

	return int64(math.Float64bits(v))
}

func (fc *fnCtx) lowerDeclRefRValue(n *ast.DeclRef) ir.Ref {
	if n.IsLocal {
		addr, typ := fc.sc.Lookup(n.Name)
		return fc.b.Load(addr, fc.tl.MustLower(typ))
	}

	typ := fc.tl.MustLower(n.Typ)

	if _, isFunc := n.Typ.(ctypes.Func); isFunc {
		return fc.b.Symbol(n.Name, typ)
	}

	addr := fc.b.Symbol(n.Name, intern.Ptr)

	return fc.b.Load(addr, typ)
}

func (fc *fnCtx) lowerDerefRValue(n *ast.Deref) ir.Ref {
	if n.FromFuncPtr {
		return fc.LowerRValue(n.X)
	}

	addr := fc.LowerRValue(n.X)
	typ := fc.tl.MustLower(n.Typ)

	return fc.b.Load(addr, typ)
}

// pointerScale returns the ir.Ref to add/subtract in place of a raw
// integer operand of a pointer +/- integer expression: the integer
// scaled by the pointee's element size, per C's pointer-arithmetic
// rule.
func (fc *fnCtx) pointerScale(ptrType ctypes.Pointer, count ir.Ref, countType ir.Type) ir.Ref {
	elem := ctypes.ElemSize(ptrType)
	if elem == 1 {
		return count
	}

	scale := fc.b.Constant(int64(elem), countType)

	return fc.b.BinOp(ir.OpMul, countType, count, scale)
}

func (fc *fnCtx) lowerBinaryRValue(n *ast.Binary) ir.Ref {
	switch n.Op {
	case ast.LogAnd, ast.LogOr:
		return fc.lowerBoolValue(n)

	case ast.CmpEQ, ast.CmpNE, ast.CmpLT, ast.CmpLE, ast.CmpGT, ast.CmpGE:
		l := fc.LowerRValue(n.X)
		r := fc.LowerRValue(n.Y)
		cmp := fc.b.Cmp(cmpOp(n.Op), l, r)

		return fc.b.Conv(ir.OpZext, fc.tl.MustLower(n.Typ), cmp)
	}

	l := fc.LowerRValue(n.X)
	r := fc.LowerRValue(n.Y)
	typ := fc.tl.MustLower(n.Typ)

	if n.Op == ast.Add || n.Op == ast.Sub {
		if pt, ok := n.X.Type().(ctypes.Pointer); ok {
			rt := fc.tl.MustLower(n.Y.Type())
			r = fc.pointerScale(pt, r, rt)
		} else if pt, ok := n.Y.Type().(ctypes.Pointer); ok && n.Op == ast.Add {
			lt := fc.tl.MustLower(n.X.Type())
			l = fc.pointerScale(pt, l, lt)
		}
	}

	return fc.b.BinOp(binOp(n.Op), typ, l, r)
}

func cmpOp(op ast.BinOp) ir.Op {
	switch op {
	case ast.CmpEQ:
		return ir.OpCmpEQ
	case ast.CmpNE:
		return ir.OpCmpNE
	case ast.CmpLT:
		return ir.OpCmpLT
	case ast.CmpLE:
		return ir.OpCmpLE
	case ast.CmpGT:
		return ir.OpCmpGT
	case ast.CmpGE:
		return ir.OpCmpGE
	default:
		diag.Raise("not a comparison operator: %v", op)
		panic("unreachable")
	}
}

func binOp(op ast.BinOp) ir.Op {
	switch op {
	case ast.Add:
		return ir.OpAdd
	case ast.Sub:
		return ir.OpSub
	case ast.Mul:
		return ir.OpMul
	case ast.Div:
		return ir.OpDiv
	case ast.Mod:
		return ir.OpMod
	case ast.BitAnd:
		return ir.OpBitAnd
	case ast.BitOr:
		return ir.OpBitOr
	case ast.BitXor:
		return ir.OpBitXor
	case ast.Shl:
		return ir.OpBitShl
	case ast.Shr:
		return ir.OpBitShr
	default:
		diag.Raise("not a binary arithmetic/bitwise operator: %v", op)
		panic("unreachable")
	}
}

// lowerUnaryRValue handles the two unary operators that need their own
// rule: `!E` always produces i1 then zext-extends to the node's own
// type (never a type-mismatched cmp_ne against E's raw type), and
// `~E`/unary +/- are otherwise ordinary single-operand instructions.
func (fc *fnCtx) lowerUnaryRValue(n *ast.Unary) ir.Ref {
	if n.Op == ast.UnaryNot {
		return fc.lowerBoolValue(n)
	}

	x := fc.LowerRValue(n.X)
	typ := fc.tl.MustLower(n.Typ)

	switch n.Op {
	case ast.UnaryPlus:
		return x
	case ast.UnaryMinus:
		zero := fc.b.Constant(0, typ)
		return fc.b.BinOp(ir.OpSub, typ, zero, x)
	case ast.UnaryBNot:
		return fc.b.BitNot(typ, x)
	default:
		diag.Raise("not a unary operator: %v", n.Op)
		panic("unreachable")
	}
}

func (fc *fnCtx) lowerIncDec(n *ast.IncDec) ir.Ref {
	addr := fc.LowerLValue(n.X)
	typ := fc.tl.MustLower(n.Typ)

	old := fc.b.Load(addr, typ)

	delta := ir.Ref(0)
	if pt, ok := n.X.Type().(ctypes.Pointer); ok {
		one := fc.b.Constant(1, typ)
		delta = fc.pointerScale(pt, one, typ)
	} else {
		delta = fc.b.Constant(1, typ)
	}

	op := ir.OpAdd
	if !n.Inc {
		op = ir.OpSub
	}

	updated := fc.b.BinOp(op, typ, old, delta)
	fc.b.Store(addr, updated)

	if n.Pre {
		return updated
	}

	return old
}

// lowerCompoundAssign loads the current value from the lvalue's
// address, then operates, rather than using the lvalue's address
// directly as an arithmetic operand.
func (fc *fnCtx) lowerCompoundAssign(n *ast.CompoundAssign) ir.Ref {
	addr := fc.LowerLValue(n.Lhs)
	typ := fc.tl.MustLower(n.Typ)

	old := fc.b.Load(addr, typ)
	rhs := fc.LowerRValue(n.Rhs)

	if n.Op == ast.Add || n.Op == ast.Sub {
		if pt, ok := n.Lhs.Type().(ctypes.Pointer); ok {
			rt := fc.tl.MustLower(n.Rhs.Type())
			rhs = fc.pointerScale(pt, rhs, rt)
		}
	}

	result := fc.b.BinOp(binOp(n.Op), typ, old, rhs)
	fc.b.Store(addr, result)

	return result
}

// lowerConditional lowers `?:` to a diamond CFG built from alloc/store/
// load, evaluating exactly one arm, rather than a value-level select
// that would evaluate both unconditionally.
func (fc *fnCtx) lowerConditional(n *ast.Conditional) ir.Ref {
	typ := fc.tl.MustLower(n.Typ)
	temp := fc.b.Alloc(n.Typ.Size(), n.Typ.Align())

	thenLbl := fc.b.NewLabel()
	elseLbl := fc.b.NewLabel()
	joinLbl := fc.b.NewLabel()

	var restoreCondDummy func()

	if n.GNU {
		condVal := fc.LowerRValue(n.Cond)
		restoreCondDummy = fc.b.SetCondDummy(condVal)

		fc.emitBranchOnValue(condVal, n.Cond.Type(), thenLbl, elseLbl)
	} else {
		fc.LowerBool(n.Cond, thenLbl, elseLbl)
	}

	fc.b.Bind(thenLbl)
	if n.GNU {
		// CondDummy must be read before restoreCondDummy clears it;
		// the published value only survives until this then-arm
		// stores it.
		fc.b.Store(temp, fc.b.CondDummy())
		restoreCondDummy()
	} else {
		fc.b.Store(temp, fc.LowerRValue(n.Then))
	}
	fc.b.Jump(joinLbl)

	fc.b.Bind(elseLbl)
	fc.b.Store(temp, fc.LowerRValue(n.Else))
	fc.b.Jump(joinLbl)

	fc.b.Bind(joinLbl)

	return fc.b.Load(temp, typ)
}

func (fc *fnCtx) lowerCast(n *ast.Cast) ir.Ref {
	switch n.Kind {
	case ast.CastNoOp:
		return fc.LowerRValue(n.X)

	case ast.CastLValToRVal:
		addr := fc.LowerLValue(n.X)
		return fc.b.Load(addr, fc.tl.MustLower(n.Typ))

	case ast.CastFunctionToPointer:
		return fc.LowerRValue(n.X)

	case ast.CastArrayToPointer:
		return fc.LowerLValue(n.X)

	case ast.CastIntCast:
		return fc.lowerIntCast(n)

	case ast.CastBoolToInt:
		x := fc.LowerRValue(n.X)
		return fc.b.Conv(ir.OpZext, fc.tl.MustLower(n.Typ), x)

	case ast.CastToBool:
		x := fc.LowerRValue(n.X)
		zero := fc.b.Constant(0, fc.tl.MustLower(n.X.Type()))

		return fc.b.Cmp(ir.OpCmpNE, x, zero)

	default:
		panic(diag.NewUnsupported("cast kind", n.Kind))
	}
}

func (fc *fnCtx) lowerIntCast(n *ast.Cast) ir.Ref {
	x := fc.LowerRValue(n.X)

	srcInt, srcOK := n.X.Type().(ctypes.Int)
	dstInt, dstOK := n.Typ.(ctypes.Int)

	if !srcOK || !dstOK {
		diag.Raise("int_cast between non-integer types %v -> %v", n.X.Type(), n.Typ)
	}

	dstType := fc.tl.MustLower(n.Typ)

	switch {
	case dstInt.Bits == srcInt.Bits:
		return x
	case dstInt.Bits > srcInt.Bits:
		if srcInt.Signed {
			return fc.b.Conv(ir.OpSext, dstType, x)
		}

		return fc.b.Conv(ir.OpZext, dstType, x)
	default:
		return fc.b.Conv(ir.OpTrunc, dstType, x)
	}
}

// directCallee reports whether fun is the common direct-call shape:
// a reference to a non-local (i.e. file-scope) function name, letting
// Call lowering emit a symbol reference instead of loading a function
// pointer through an indirect call.
func directCallee(fun ast.Node) (name string, typ ctypes.Type, ok bool) {
	for {
		switch n := fun.(type) {
		case *ast.Paren:
			fun = n.X
			continue
		case *ast.AddrOf:
			fun = n.X
			continue
		case *ast.Deref:
			fun = n.X
			continue
		case *ast.Cast:
			fun = n.X
			continue
		}

		break
	}

	ref, isRef := fun.(*ast.DeclRef)
	if !isRef || ref.IsLocal {
		return "", nil, false
	}

	return ref.Name, ref.Typ, true
}

func (fc *fnCtx) lowerCall(n *ast.Call) ir.Ref {
	args := make([]ir.Ref, len(n.Args))
	for i, a := range n.Args {
		args[i] = fc.LowerRValue(a)
	}

	typ := fc.tl.MustLower(n.Typ)

	if name, funcType, ok := directCallee(n.Fun); ok {
		callee := fc.b.Symbol(name, fc.tl.MustLower(funcType))
		return fc.b.Call(typ, callee, args)
	}

	callee := fc.LowerRValue(n.Fun)

	return fc.b.Call(typ, callee, args)
}
