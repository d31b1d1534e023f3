package linear

// DebugKind tells what a debug location describes.
type DebugKind uint8

const (
	// DebugCall marks a call site.
	DebugCall DebugKind = iota
	// DebugRaise marks a raise site.
	DebugRaise
)

// DebugInfo is the source position attached to an instruction.
type DebugInfo struct {
	File      string    `msgpack:"f,omitempty"`
	Line      int       `msgpack:"l,omitempty"`
	CharStart int       `msgpack:"s,omitempty"`
	CharEnd   int       `msgpack:"e,omitempty"`
	Kind      DebugKind `msgpack:"k,omitempty"`
}

// IsNone reports whether no source position is attached.
func (d DebugInfo) IsNone() bool { return d.Line == 0 && d.File == "" }

// Instr is one linear instruction.
type Instr struct {
	Op   Op
	Args []Reg
	Res  []Reg
	// Live is the set of registers live across the instruction. Only calls and
	// allocations look at it.
	Live []Reg
	Dbg  DebugInfo
}

// Function is the register-allocated body of one function.
type Function struct {
	Name string `msgpack:"name"`
	// Fast selects the inline allocation sequence instead of runtime helpers.
	Fast bool      `msgpack:"fast,omitempty"`
	Body []Instr   `msgpack:"body"`
	Dbg  DebugInfo `msgpack:"dbg,omitempty"`
	// NumStackSlots counts local spill slots per register class.
	NumStackSlots [2]int `msgpack:"slots"`
	// ContainsCalls is set when the body calls a function, so the link
	// register must be saved.
	ContainsCalls bool `msgpack:"calls,omitempty"`
}

// DataKind enumerates static data items.
type DataKind uint8

const (
	DataGlobalSymbol DataKind = iota
	DataDefineSymbol
	DataDefineLabel
	DataInt8
	DataInt16
	DataInt32
	DataInt
	DataSingle
	DataDouble
	DataSymbolAddress
	DataLabelAddress
	DataString
	DataSkip
	DataAlign
)

// DataItem is one entry of a static data block.
type DataItem struct {
	Kind   DataKind `msgpack:"k"`
	Symbol string   `msgpack:"s,omitempty"`
	Label  Label    `msgpack:"l,omitempty"`
	Int    int64    `msgpack:"i,omitempty"`
	Float  float64  `msgpack:"f,omitempty"`
	Str    string   `msgpack:"t,omitempty"`
}

// UnitItem is either a function or a data block, kept in source order.
type UnitItem struct {
	Func *Function  `msgpack:"fn,omitempty"`
	Data []DataItem `msgpack:"data,omitempty"`
}

// Unit is one compilation unit: the contents of one assembly file.
type Unit struct {
	Name  string     `msgpack:"name"`
	Items []UnitItem `msgpack:"items"`
}

// Functions returns the functions of u in order.
func (u *Unit) Functions() []*Function {
	if u == nil {
		return nil
	}
	out := make([]*Function, 0, len(u.Items))
	for i := range u.Items {
		if u.Items[i].Func != nil {
			out = append(out, u.Items[i].Func)
		}
	}
	return out
}

// DefinedSymbols returns every symbol the unit defines, either as a function
// or as a data symbol.
func (u *Unit) DefinedSymbols() map[string]struct{} {
	out := make(map[string]struct{})
	if u == nil {
		return out
	}
	for i := range u.Items {
		it := &u.Items[i]
		if it.Func != nil {
			out[it.Func.Name] = struct{}{}
		}
		for _, d := range it.Data {
			if d.Kind == DataDefineSymbol {
				out[d.Symbol] = struct{}{}
			}
		}
	}
	return out
}

// MaxLabel returns the largest label mentioned by any function or data
// block of u.
func (u *Unit) MaxLabel() Label {
	var max Label
	bump := func(l Label) {
		if l > max {
			max = l
		}
	}
	if u == nil {
		return max
	}
	for i := range u.Items {
		it := &u.Items[i]
		for _, d := range it.Data {
			if d.Kind == DataDefineLabel || d.Kind == DataLabelAddress {
				bump(d.Label)
			}
		}
		if it.Func == nil {
			continue
		}
		for j := range it.Func.Body {
			for _, l := range Labels(it.Func.Body[j].Op) {
				bump(l)
			}
		}
	}
	return max
}

// Labels returns the labels an opcode defines or refers to.
func Labels(op Op) []Label {
	switch o := op.(type) {
	case LabelDef:
		return []Label{o.ID}
	case Branch:
		return []Label{o.Target}
	case CondBranch:
		return []Label{o.Target}
	case CondBranch3:
		out := make([]Label, 0, 3)
		for _, l := range []Label{o.Lt, o.Eq, o.Gt} {
			if l != NoLabel {
				out = append(out, l)
			}
		}
		return out
	case Switch:
		return o.Targets
	case SetupTrap:
		return []Label{o.Handler}
	default:
		return nil
	}
}
