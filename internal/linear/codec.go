package linear

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// SchemaVersion is bumped whenever the wire shape of a unit changes.
const SchemaVersion uint16 = 1

// ErrSchemaMismatch is wrapped by DecodeUnit when a file was written with
// another schema version.
var ErrSchemaMismatch = errors.New("schema mismatch")

type unitFile struct {
	Schema uint16 `msgpack:"schema"`
	Unit   *Unit  `msgpack:"unit"`
}

// EncodeUnit writes u to w in the .lin format.
func EncodeUnit(w io.Writer, u *Unit) error {
	bw := bufio.NewWriter(w)
	enc := msgpack.NewEncoder(bw)
	if err := enc.Encode(&unitFile{Schema: SchemaVersion, Unit: u}); err != nil {
		return fmt.Errorf("encode unit: %w", err)
	}
	return bw.Flush()
}

// DecodeUnit reads one unit in the .lin format.
func DecodeUnit(r io.Reader) (*Unit, error) {
	var file unitFile
	dec := msgpack.NewDecoder(bufio.NewReader(r))
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode unit: %w", err)
	}
	if file.Schema != SchemaVersion {
		return nil, fmt.Errorf("decode unit: %w: schema %d, want %d", ErrSchemaMismatch, file.Schema, SchemaVersion)
	}
	if file.Unit == nil {
		return nil, fmt.Errorf("decode unit: missing unit")
	}
	return file.Unit, nil
}

// EncodeMsgpack writes the instruction as [name, payload, args, res, live, dbg].
func (ins Instr) EncodeMsgpack(enc *msgpack.Encoder) error {
	if ins.Op == nil {
		return fmt.Errorf("instruction without opcode")
	}
	if err := enc.EncodeArrayLen(6); err != nil {
		return err
	}
	if err := enc.EncodeString(ins.Op.Name()); err != nil {
		return err
	}
	if err := enc.Encode(ins.Op); err != nil {
		return err
	}
	for _, rs := range [][]Reg{ins.Args, ins.Res, ins.Live} {
		if err := enc.Encode(rs); err != nil {
			return err
		}
	}
	return enc.Encode(&ins.Dbg)
}

// DecodeMsgpack is the inverse of EncodeMsgpack.
func (ins *Instr) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n != 6 {
		return fmt.Errorf("instruction: %d fields, want 6", n)
	}
	name, err := dec.DecodeString()
	if err != nil {
		return err
	}
	decode, ok := opDecoders[name]
	if !ok {
		return fmt.Errorf("unknown opcode %q", name)
	}
	op, err := decode(dec)
	if err != nil {
		return fmt.Errorf("opcode %s: %w", name, err)
	}
	ins.Op = op
	if err := dec.Decode(&ins.Args); err != nil {
		return err
	}
	if err := dec.Decode(&ins.Res); err != nil {
		return err
	}
	if err := dec.Decode(&ins.Live); err != nil {
		return err
	}
	return dec.Decode(&ins.Dbg)
}

type opDecoder func(*msgpack.Decoder) (Op, error)

var opDecoders = make(map[string]opDecoder)

func registerOp[T Op]() {
	var zero T
	opDecoders[zero.Name()] = func(dec *msgpack.Decoder) (Op, error) {
		var v T
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func init() {
	registerOp[Move]()
	registerOp[Spill]()
	registerOp[Reload]()
	registerOp[ConstInt]()
	registerOp[ConstFloat]()
	registerOp[ConstSymbol]()
	registerOp[CallInd]()
	registerOp[CallImm]()
	registerOp[TailCallInd]()
	registerOp[TailCallImm]()
	registerOp[ExtCall]()
	registerOp[StackOffset]()
	registerOp[Load]()
	registerOp[Store]()
	registerOp[Alloc]()
	registerOp[IntOp]()
	registerOp[IntOpImm]()
	registerOp[FloatOp]()
	registerOp[ShiftArith]()
	registerOp[ShiftCheckBound]()
	registerOp[MulAdd]()
	registerOp[MulSub]()
	registerOp[FusedFloat]()
	registerOp[NegMulF]()
	registerOp[SqrtF]()
	registerOp[Bswap]()
	registerOp[ReloadRetAddr]()
	registerOp[Return]()
	registerOp[LabelDef]()
	registerOp[Branch]()
	registerOp[CondBranch]()
	registerOp[CondBranch3]()
	registerOp[Switch]()
	registerOp[SetupTrap]()
	registerOp[PushTrap]()
	registerOp[PopTrap]()
	registerOp[AdjustTrap]()
	registerOp[Raise]()
	registerOp[End]()
}
