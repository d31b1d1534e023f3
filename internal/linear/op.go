package linear

import "fmt"

// Op is the opcode of a linear instruction. The set of implementations is
// closed: every Op is declared in this file.
type Op interface {
	// Name is the stable wire name of the opcode.
	Name() string
	isOp()
}

// Label identifies a code position inside a unit. Zero is never a valid label.
type Label int

// NoLabel marks an absent branch target.
const NoLabel Label = 0

// Cond is a comparison condition.
type Cond uint8

const (
	CondEq Cond = iota
	CondNe
	CondLt
	CondLe
	CondGt
	CondGe
)

func (c Cond) String() string {
	switch c {
	case CondEq:
		return "=="
	case CondNe:
		return "!="
	case CondLt:
		return "<"
	case CondLe:
		return "<="
	case CondGt:
		return ">"
	case CondGe:
		return ">="
	default:
		return "?"
	}
}

// Comparison is an integer comparison, signed unless Unsigned is set.
type Comparison struct {
	Unsigned bool `msgpack:"u,omitempty"`
	Cond     Cond `msgpack:"c"`
}

func (c Comparison) String() string {
	if c.Unsigned {
		return c.Cond.String() + "u"
	}
	return c.Cond.String()
}

// Signed builds a signed comparison.
func Signed(c Cond) Comparison { return Comparison{Cond: c} }

// Unsigned builds an unsigned comparison.
func Unsigned(c Cond) Comparison { return Comparison{Unsigned: true, Cond: c} }

// Chunk is the memory access size class of a load or store.
type Chunk uint8

const (
	ByteUnsigned Chunk = iota
	ByteSigned
	SixteenUnsigned
	SixteenSigned
	ThirtytwoUnsigned
	ThirtytwoSigned
	Word
	Single
	Double
	DoubleU
)

func (c Chunk) String() string {
	switch c {
	case ByteUnsigned:
		return "unsigned int8"
	case ByteSigned:
		return "signed int8"
	case SixteenUnsigned:
		return "unsigned int16"
	case SixteenSigned:
		return "signed int16"
	case ThirtytwoUnsigned:
		return "unsigned int32"
	case ThirtytwoSigned:
		return "signed int32"
	case Word:
		return "word"
	case Single:
		return "float32"
	case Double:
		return "float64"
	case DoubleU:
		return "float64u"
	default:
		return "chunk?"
	}
}

// AddrKind distinguishes addressing modes.
type AddrKind uint8

const (
	// AddrIndexed is base register plus immediate offset.
	AddrIndexed AddrKind = iota
	// AddrBased is a link-time symbol plus offset.
	AddrBased
)

// Addressing is the address operand of a load or store.
type Addressing struct {
	Kind   AddrKind `msgpack:"k"`
	Symbol string   `msgpack:"s,omitempty"`
	Offset int      `msgpack:"o,omitempty"`
}

// Indexed builds a register+offset addressing mode.
func Indexed(ofs int) Addressing { return Addressing{Kind: AddrIndexed, Offset: ofs} }

// Based builds a symbol+offset addressing mode.
func Based(sym string, ofs int) Addressing {
	return Addressing{Kind: AddrBased, Symbol: sym, Offset: ofs}
}

// UsesBaseReg reports whether the addressing mode consumes a register argument.
func (a Addressing) UsesBaseReg() bool { return a.Kind == AddrIndexed }

// IntOperation is an integer arithmetic operation.
type IntOperation uint8

const (
	IntAdd IntOperation = iota
	IntSub
	IntMul
	IntMulh
	IntDiv
	IntMod
	IntAnd
	IntOr
	IntXor
	IntLsl
	IntLsr
	IntAsr
	IntComp
	IntCheckBound
)

func (o IntOperation) String() string {
	switch o {
	case IntAdd:
		return "+"
	case IntSub:
		return "-"
	case IntMul:
		return "*"
	case IntMulh:
		return "*h"
	case IntDiv:
		return "/"
	case IntMod:
		return "mod"
	case IntAnd:
		return "&"
	case IntOr:
		return "|"
	case IntXor:
		return "^"
	case IntLsl:
		return "<<"
	case IntLsr:
		return ">>u"
	case IntAsr:
		return ">>s"
	case IntComp:
		return "cmp"
	case IntCheckBound:
		return "check >"
	default:
		return "intop?"
	}
}

// FloatOperation is a floating-point operation.
type FloatOperation uint8

const (
	FloatNeg FloatOperation = iota
	FloatAbs
	FloatAdd
	FloatSub
	FloatMul
	FloatDiv
	FloatOfInt
	IntOfFloat
)

func (o FloatOperation) String() string {
	switch o {
	case FloatNeg:
		return "-f"
	case FloatAbs:
		return "absf"
	case FloatAdd:
		return "+f"
	case FloatSub:
		return "-f"
	case FloatMul:
		return "*f"
	case FloatDiv:
		return "/f"
	case FloatOfInt:
		return "floatofint"
	case IntOfFloat:
		return "intoffloat"
	default:
		return "floatop?"
	}
}

// ArithOp selects add or sub for the shifted-operand forms.
type ArithOp uint8

const (
	ArithAdd ArithOp = iota
	ArithSub
)

// ShiftKind selects the shift applied to the second operand.
type ShiftKind uint8

const (
	ShiftLsl ShiftKind = iota
	ShiftAsr
)

// FusedKind selects one of the fused multiply-add forms.
type FusedKind uint8

const (
	FusedMulAdd FusedKind = iota
	FusedNegMulAdd
	FusedMulSub
	FusedNegMulSub
)

// TestKind selects the condition of a conditional branch.
type TestKind uint8

const (
	TestTrue TestKind = iota
	TestFalse
	TestInt
	TestIntImm
	TestFloat
	TestOdd
	TestEven
)

// Test is the condition of a conditional branch.
type Test struct {
	Kind    TestKind   `msgpack:"k"`
	Cmp     Comparison `msgpack:"c,omitempty"`
	Imm     int64      `msgpack:"i,omitempty"`
	Negated bool       `msgpack:"n,omitempty"`
}

func (t Test) String() string {
	switch t.Kind {
	case TestTrue:
		return "true"
	case TestFalse:
		return "false"
	case TestInt:
		return fmt.Sprintf("int %s", t.Cmp)
	case TestIntImm:
		return fmt.Sprintf("int %s %d", t.Cmp, t.Imm)
	case TestFloat:
		if t.Negated {
			return fmt.Sprintf("not float %s", t.Cmp.Cond)
		}
		return fmt.Sprintf("float %s", t.Cmp.Cond)
	case TestOdd:
		return "odd"
	case TestEven:
		return "even"
	default:
		return "test?"
	}
}

// RaiseKind tells how an exception is raised.
type RaiseKind uint8

const (
	RaiseRegular RaiseKind = iota
	RaiseReraise
	RaiseNoTrace
)

func (k RaiseKind) String() string {
	switch k {
	case RaiseRegular:
		return "raise"
	case RaiseReraise:
		return "reraise"
	case RaiseNoTrace:
		return "raise_notrace"
	default:
		return "raise?"
	}
}

type (
	// Move copies Args[0] to Res[0].
	Move struct{}
	// Spill stores a register into its stack home.
	Spill struct{}
	// Reload loads a register from its stack home.
	Reload struct{}
	// ConstInt loads an integer constant into Res[0].
	ConstInt struct {
		Value int64 `msgpack:"v"`
	}
	// ConstFloat loads the double with bit pattern Bits into Res[0].
	ConstFloat struct {
		Bits uint64 `msgpack:"b"`
	}
	// ConstSymbol loads the address of Symbol into Res[0].
	ConstSymbol struct {
		Symbol string `msgpack:"s"`
	}
	// CallInd calls the closure code pointer in Args[0].
	CallInd struct{}
	// CallImm calls Symbol directly.
	CallImm struct {
		Symbol string `msgpack:"s"`
	}
	// TailCallInd tail-calls the code pointer in Args[0].
	TailCallInd struct{}
	// TailCallImm tail-calls Symbol.
	TailCallImm struct {
		Symbol string `msgpack:"s"`
	}
	// ExtCall calls a C function; Alloc means it may allocate or raise.
	ExtCall struct {
		Symbol string `msgpack:"s"`
		Alloc  bool   `msgpack:"a,omitempty"`
	}
	// StackOffset pushes (positive) or pops (negative) Bytes of outgoing space.
	StackOffset struct {
		Bytes int `msgpack:"n"`
	}
	// Load reads memory into Res[0].
	Load struct {
		Chunk Chunk      `msgpack:"c"`
		Addr  Addressing `msgpack:"a"`
	}
	// Store writes Args[0] to memory; the base register, if any, is Args[1].
	Store struct {
		Chunk Chunk      `msgpack:"c"`
		Addr  Addressing `msgpack:"a"`
	}
	// Alloc allocates Bytes on the minor heap (header included).
	Alloc struct {
		Bytes int `msgpack:"n"`
	}
	// IntOp is a register-register integer operation.
	IntOp struct {
		Op  IntOperation `msgpack:"o"`
		Cmp Comparison   `msgpack:"c,omitempty"`
	}
	// IntOpImm is a register-immediate integer operation.
	IntOpImm struct {
		Op  IntOperation `msgpack:"o"`
		Cmp Comparison   `msgpack:"c,omitempty"`
		Imm int64        `msgpack:"i"`
	}
	// FloatOp is a floating-point operation.
	FloatOp struct {
		Op FloatOperation `msgpack:"o"`
	}
	// ShiftArith computes Args[0] op (Args[1] shifted by Shift).
	ShiftArith struct {
		Arith ArithOp   `msgpack:"a"`
		Kind  ShiftKind `msgpack:"k"`
		Shift int       `msgpack:"s"`
	}
	// ShiftCheckBound checks Args[1] against (Args[0] >> Shift).
	ShiftCheckBound struct {
		Shift int `msgpack:"s"`
	}
	// MulAdd computes Args[0]*Args[1] + Args[2].
	MulAdd struct{}
	// MulSub computes Args[2] - Args[0]*Args[1].
	MulSub struct{}
	// FusedFloat is one of the fused float multiply-add forms over
	// Args[1]*Args[2] and Args[0].
	FusedFloat struct {
		Kind FusedKind `msgpack:"k"`
	}
	// NegMulF computes -(Args[0]*Args[1]).
	NegMulF struct{}
	// SqrtF computes the square root of Args[0].
	SqrtF struct{}
	// Bswap reverses the bytes in the low Bits of Args[0].
	Bswap struct {
		Bits int `msgpack:"b"`
	}
	// ReloadRetAddr is a no-op on this target.
	ReloadRetAddr struct{}
	// Return leaves the function.
	Return struct{}
	// LabelDef defines label ID at this position.
	LabelDef struct {
		ID Label `msgpack:"l"`
	}
	// Branch jumps to Target.
	Branch struct {
		Target Label `msgpack:"l"`
	}
	// CondBranch jumps to Target when Test holds.
	CondBranch struct {
		Test   Test  `msgpack:"t"`
		Target Label `msgpack:"l"`
	}
	// CondBranch3 compares Args[0] with 1 and jumps to Lt, Eq or Gt.
	// NoLabel means fall through.
	CondBranch3 struct {
		Lt Label `msgpack:"lt,omitempty"`
		Eq Label `msgpack:"eq,omitempty"`
		Gt Label `msgpack:"gt,omitempty"`
	}
	// Switch jumps to Targets[Args[0]].
	Switch struct {
		Targets []Label `msgpack:"l"`
	}
	// SetupTrap loads the resume address and jumps to the handler body.
	SetupTrap struct {
		Handler Label `msgpack:"l"`
	}
	// PushTrap installs a trap frame.
	PushTrap struct{}
	// PopTrap removes the innermost trap frame.
	PopTrap struct{}
	// AdjustTrap tells the emitter that Delta trap frames are installed on
	// entry to the following code compared to the code before it. It emits
	// nothing; it keeps the frame model right across a path that popped
	// frames before branching away.
	AdjustTrap struct {
		Delta int `msgpack:"d"`
	}
	// Raise raises the exception in Args[0].
	Raise struct {
		Kind RaiseKind `msgpack:"k"`
	}
	// End terminates a function body.
	End struct{}
)

func (Move) Name() string            { return "move" }
func (Spill) Name() string           { return "spill" }
func (Reload) Name() string          { return "reload" }
func (ConstInt) Name() string        { return "const_int" }
func (ConstFloat) Name() string      { return "const_float" }
func (ConstSymbol) Name() string     { return "const_symbol" }
func (CallInd) Name() string         { return "call_ind" }
func (CallImm) Name() string         { return "call_imm" }
func (TailCallInd) Name() string     { return "tailcall_ind" }
func (TailCallImm) Name() string     { return "tailcall_imm" }
func (ExtCall) Name() string         { return "extcall" }
func (StackOffset) Name() string     { return "stackoffset" }
func (Load) Name() string            { return "load" }
func (Store) Name() string           { return "store" }
func (Alloc) Name() string           { return "alloc" }
func (IntOp) Name() string           { return "intop" }
func (IntOpImm) Name() string        { return "intop_imm" }
func (FloatOp) Name() string         { return "floatop" }
func (ShiftArith) Name() string      { return "shiftarith" }
func (ShiftCheckBound) Name() string { return "shiftcheckbound" }
func (MulAdd) Name() string          { return "muladd" }
func (MulSub) Name() string          { return "mulsub" }
func (FusedFloat) Name() string      { return "fusedfloat" }
func (NegMulF) Name() string         { return "negmulf" }
func (SqrtF) Name() string           { return "sqrtf" }
func (Bswap) Name() string           { return "bswap" }
func (ReloadRetAddr) Name() string   { return "reloadretaddr" }
func (Return) Name() string          { return "return" }
func (LabelDef) Name() string        { return "label" }
func (Branch) Name() string          { return "branch" }
func (CondBranch) Name() string      { return "condbranch" }
func (CondBranch3) Name() string     { return "condbranch3" }
func (Switch) Name() string          { return "switch" }
func (SetupTrap) Name() string       { return "setuptrap" }
func (PushTrap) Name() string        { return "pushtrap" }
func (PopTrap) Name() string         { return "poptrap" }
func (AdjustTrap) Name() string      { return "adjusttrap" }
func (Raise) Name() string           { return "raise" }
func (End) Name() string             { return "end" }

func (Move) isOp()            {}
func (Spill) isOp()           {}
func (Reload) isOp()          {}
func (ConstInt) isOp()        {}
func (ConstFloat) isOp()      {}
func (ConstSymbol) isOp()     {}
func (CallInd) isOp()         {}
func (CallImm) isOp()         {}
func (TailCallInd) isOp()     {}
func (TailCallImm) isOp()     {}
func (ExtCall) isOp()         {}
func (StackOffset) isOp()     {}
func (Load) isOp()            {}
func (Store) isOp()           {}
func (Alloc) isOp()           {}
func (IntOp) isOp()           {}
func (IntOpImm) isOp()        {}
func (FloatOp) isOp()         {}
func (ShiftArith) isOp()      {}
func (ShiftCheckBound) isOp() {}
func (MulAdd) isOp()          {}
func (MulSub) isOp()          {}
func (FusedFloat) isOp()      {}
func (NegMulF) isOp()         {}
func (SqrtF) isOp()           {}
func (Bswap) isOp()           {}
func (ReloadRetAddr) isOp()   {}
func (Return) isOp()          {}
func (LabelDef) isOp()        {}
func (Branch) isOp()          {}
func (CondBranch) isOp()      {}
func (CondBranch3) isOp()     {}
func (Switch) isOp()          {}
func (SetupTrap) isOp()       {}
func (PushTrap) isOp()        {}
func (PopTrap) isOp()         {}
func (AdjustTrap) isOp()      {}
func (Raise) isOp()           {}
func (End) isOp()             {}

// IsCall reports whether op transfers control to another function and
// returns here, which makes it a GC point.
func IsCall(op Op) bool {
	switch o := op.(type) {
	case CallInd, CallImm:
		return true
	case ExtCall:
		return o.Alloc
	default:
		return false
	}
}
