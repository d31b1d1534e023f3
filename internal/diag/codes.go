package diag

import (
	"fmt"
)

type Code uint16

const (
	// Неизвестная ошибка
	UnknownCode Code = 0

	// Входной линейный код
	LinInfo             Code = 1000
	LinDecode           Code = 1001
	LinSchemaMismatch   Code = 1002
	LinUnterminated     Code = 1003
	LinUnlocatedOperand Code = 1004
	LinBadLabel         Code = 1005
	LinBadShape         Code = 1006

	// Эмиттер: внутренние инварианты
	EmitInfo          Code = 2000
	EmitUnsupportedOp Code = 2001
	EmitBadOperand    Code = 2002
	EmitRangeOverflow Code = 2003
	EmitTrapUnderflow Code = 2004
	EmitBadAddressing Code = 2005
	EmitBadFrame      Code = 2006

	// Ввод-вывод
	IOInfo           Code = 3000
	IOLoadFileError  Code = 3001
	IOWriteFileError Code = 3002
	IOCacheError     Code = 3003

	// Конфигурация
	ProjInfo       Code = 4000
	ProjBadConfig  Code = 4001
	ProjUnknownKey Code = 4002
	ProjBadTarget  Code = 4003
)

var (
	codeDescription = map[Code]string{
		UnknownCode:         "Unknown error",
		LinInfo:             "Linear input information",
		LinDecode:           "Malformed linear unit",
		LinSchemaMismatch:   "Linear unit schema mismatch",
		LinUnterminated:     "Function body is not terminated",
		LinUnlocatedOperand: "Operand has no location",
		LinBadLabel:         "Invalid or duplicate label",
		LinBadShape:         "Malformed instruction",
		EmitInfo:            "Emitter information",
		EmitUnsupportedOp:   "Unsupported instruction",
		EmitBadOperand:      "Operand not resident where the instruction expects it",
		EmitRangeOverflow:   "Immediate or table field out of range",
		EmitTrapUnderflow:   "Trap frame removed with none installed",
		EmitBadAddressing:   "Malformed addressing mode",
		EmitBadFrame:        "Inconsistent stack frame",
		IOInfo:              "I/O information",
		IOLoadFileError:     "I/O load file error",
		IOWriteFileError:    "I/O write file error",
		IOCacheError:        "Output cache error",
		ProjInfo:            "Configuration information",
		ProjBadConfig:       "Invalid configuration file",
		ProjUnknownKey:      "Unknown configuration key",
		ProjBadTarget:       "Unknown target system",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LIN%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("EMT%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("PRJ%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
