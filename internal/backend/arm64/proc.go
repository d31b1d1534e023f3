package arm64

import "fmt"

// Physical register indices as assigned by the register allocator.
// 0..27 index the integer file, FloatBase.. the float file.
const (
	FloatBase = 100

	numIntRegs   = 28
	numFloatRegs = 32
)

var intRegNames = [numIntRegs]string{
	"x0", "x1", "x2", "x3", "x4", "x5", "x6", "x7",
	"x8", "x9", "x10", "x11", "x12", "x13", "x14", "x15",
	"x19", "x20", "x21", "x22", "x23", "x24", "x25", "x26",
	"x27", "x28", "x16", "x17",
}

// Fixed-purpose registers.
const (
	regTrapPtr    = "x26"
	regAllocPtr   = "x27"
	regAllocLimit = "x28"
	regTmp1       = "x16"
	regTmp2       = "x17"
	regExtraArg   = "x15"
	regLink       = "x30"
	regZero       = "xzr"

	// Scratch float register for single-precision loads and stores.
	regFloatTmp = "7"
)

// Indices of the fixed-purpose registers in the allocator numbering.
const (
	IdxExtraArg   = 15
	IdxTrapPtr    = 23
	IdxAllocPtr   = 24
	IdxAllocLimit = 25
	IdxTmp1       = 26
	IdxTmp2       = 27
)

// RegisterName renders a physical register index. Unknown indices render as
// "r?<idx>" so listings stay printable.
func RegisterName(idx int) string {
	if name, ok := xName(idx); ok {
		return name
	}
	if idx >= FloatBase && idx < FloatBase+numFloatRegs {
		return fmt.Sprintf("d%d", idx-FloatBase)
	}
	return fmt.Sprintf("r?%d", idx)
}

func xName(idx int) (string, bool) {
	if idx < 0 || idx >= numIntRegs {
		return "", false
	}
	return intRegNames[idx], true
}

func wName(idx int) (string, bool) {
	x, ok := xName(idx)
	if !ok {
		return "", false
	}
	return "w" + x[1:], true
}

func floatName(prefix byte, idx int) (string, bool) {
	if idx < FloatBase || idx >= FloatBase+numFloatRegs {
		return "", false
	}
	return fmt.Sprintf("%c%d", prefix, idx-FloatBase), true
}

// IsFloatReg reports whether idx names a register of the float file.
func IsFloatReg(idx int) bool {
	return idx >= FloatBase && idx < FloatBase+numFloatRegs
}
