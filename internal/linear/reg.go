package linear

import "fmt"

// MachType classifies the contents of a pseudo-register.
type MachType uint8

const (
	// TypeVal holds a value the collector must scan.
	TypeVal MachType = iota
	// TypeAddr holds a derived pointer; never live across a GC point.
	TypeAddr
	// TypeInt holds an untagged integer.
	TypeInt
	// TypeFloat holds a double.
	TypeFloat
)

func (t MachType) String() string {
	switch t {
	case TypeVal:
		return "val"
	case TypeAddr:
		return "addr"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	default:
		return "unknown"
	}
}

// Class returns the register class: 0 for the integer file, 1 for the float file.
func (t MachType) Class() int {
	if t == TypeFloat {
		return 1
	}
	return 0
}

// LocKind tells where a register was placed by the allocator.
type LocKind uint8

const (
	// LocUnknown means the allocator did not assign the register.
	LocUnknown LocKind = iota
	// LocReg is a physical register.
	LocReg
	// LocStack is a stack slot.
	LocStack
)

// SlotKind distinguishes the three stack areas.
type SlotKind uint8

const (
	// SlotLocal is a spill slot, indexed per register class.
	SlotLocal SlotKind = iota
	// SlotIncoming is a byte offset into the caller's outgoing area.
	SlotIncoming
	// SlotOutgoing is a byte offset into this frame's outgoing area.
	SlotOutgoing
)

// Slot is a stack location.
type Slot struct {
	Kind  SlotKind `msgpack:"k"`
	Index int      `msgpack:"i"`
}

// Location is the allocated home of a pseudo-register.
type Location struct {
	Kind LocKind `msgpack:"k"`
	Reg  int     `msgpack:"r,omitempty"`
	Slot Slot    `msgpack:"s,omitempty"`
}

// InReg places a value in physical register idx.
func InReg(idx int) Location { return Location{Kind: LocReg, Reg: idx} }

// OnStack places a value in slot s.
func OnStack(s Slot) Location { return Location{Kind: LocStack, Slot: s} }

// Local returns the n-th local spill slot.
func Local(n int) Slot { return Slot{Kind: SlotLocal, Index: n} }

// Incoming returns the incoming argument slot at byte offset n.
func Incoming(n int) Slot { return Slot{Kind: SlotIncoming, Index: n} }

// Outgoing returns the outgoing argument slot at byte offset n.
func Outgoing(n int) Slot { return Slot{Kind: SlotOutgoing, Index: n} }

func (s Slot) String() string {
	switch s.Kind {
	case SlotLocal:
		return fmt.Sprintf("local %d", s.Index)
	case SlotIncoming:
		return fmt.Sprintf("incoming %d", s.Index)
	case SlotOutgoing:
		return fmt.Sprintf("outgoing %d", s.Index)
	default:
		return "slot ?"
	}
}

// Reg is a pseudo-register after register allocation.
type Reg struct {
	Name string   `msgpack:"n,omitempty"`
	Typ  MachType `msgpack:"t"`
	Loc  Location `msgpack:"l"`
}

// IsPointer reports whether the collector must see this register at a safepoint.
func (r Reg) IsPointer() bool { return r.Typ == TypeVal }

// InReg reports whether r lives in a physical register.
func (r Reg) InReg() bool { return r.Loc.Kind == LocReg }

// OnStack reports whether r lives in a stack slot.
func (r Reg) OnStack() bool { return r.Loc.Kind == LocStack }

// SameLoc reports whether r and other share one location.
func (r Reg) SameLoc(other Reg) bool { return r.Loc == other.Loc }

// Phys builds a register of type t already assigned to physical register idx.
func Phys(t MachType, idx int) Reg { return Reg{Typ: t, Loc: InReg(idx)} }

// Stack builds a register of type t assigned to slot s.
func Stack(t MachType, s Slot) Reg { return Reg{Typ: t, Loc: OnStack(s)} }
