package linear

import (
	"errors"
	"fmt"
)

// Check names a family of structural invariants.
type Check uint8

const (
	CheckTerminated Check = iota + 1 // body ends with exactly one End
	CheckOperands                    // every operand has a location
	CheckLabels                      // labels are positive, unique and defined
	CheckShapes                      // opcode-specific arity and ranges
)

func (c Check) String() string {
	switch c {
	case CheckTerminated:
		return "terminated"
	case CheckOperands:
		return "operands"
	case CheckLabels:
		return "labels"
	case CheckShapes:
		return "shapes"
	default:
		return "check?"
	}
}

// Violation is one broken invariant. Index is the instruction index, -1 for
// the function as a whole.
type Violation struct {
	Check Check
	Func  string
	Index int
	Msg   string
	Dbg   DebugInfo
}

func (v *Violation) Error() string {
	if v.Index < 0 {
		return fmt.Sprintf("function %s: %s", v.Func, v.Msg)
	}
	return fmt.Sprintf("function %s: #%d: %s", v.Func, v.Index, v.Msg)
}

// Validate checks the structural invariants of every function in u.
// The result joins one *Violation per problem; see Violations.
func Validate(u *Unit) error {
	if u == nil {
		return nil
	}
	var errs []error
	for _, fn := range u.Functions() {
		errs = append(errs, ValidateFunction(fn))
	}
	return errors.Join(errs...)
}

// ValidateFunction checks the invariants the emitter relies on for one function.
func ValidateFunction(fn *Function) error {
	if fn == nil {
		return nil
	}
	c := &checker{fn: fn}
	c.terminated()
	c.operands()
	c.labels()
	c.shapes()
	return errors.Join(c.errs...)
}

// Violations flattens an error returned by Validate.
func Violations(err error) []*Violation {
	var out []*Violation
	var walk func(error)
	walk = func(err error) {
		switch e := err.(type) {
		case nil:
		case *Violation:
			out = append(out, e)
		case interface{ Unwrap() []error }:
			for _, inner := range e.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(e.Unwrap())
		}
	}
	walk(err)
	return out
}

type checker struct {
	fn   *Function
	errs []error
}

func (c *checker) report(check Check, i int, format string, args ...any) {
	v := &Violation{Check: check, Func: c.fn.Name, Index: i, Msg: fmt.Sprintf(format, args...)}
	if i >= 0 {
		v.Dbg = c.fn.Body[i].Dbg
	} else {
		v.Dbg = c.fn.Dbg
	}
	c.errs = append(c.errs, v)
}

func (c *checker) terminated() {
	body := c.fn.Body
	if len(body) == 0 {
		c.report(CheckTerminated, -1, "empty body")
		return
	}
	if _, ok := body[len(body)-1].Op.(End); !ok {
		c.report(CheckTerminated, -1, "body does not end with end")
	}
	for i := 0; i < len(body)-1; i++ {
		if _, ok := body[i].Op.(End); ok {
			c.report(CheckTerminated, i, "end before the last instruction")
			return
		}
	}
}

func (c *checker) operands() {
	for i := range c.fn.Body {
		ins := &c.fn.Body[i]
		if ins.Op == nil {
			c.report(CheckOperands, i, "missing opcode")
			continue
		}
		for j, r := range ins.Args {
			if r.Loc.Kind == LocUnknown {
				c.report(CheckOperands, i, "%s: argument %d has no location", ins.Op.Name(), j)
			}
		}
		for j, r := range ins.Res {
			if r.Loc.Kind == LocUnknown {
				c.report(CheckOperands, i, "%s: result %d has no location", ins.Op.Name(), j)
			}
		}
	}
}

func (c *checker) labels() {
	defined := make(map[Label]int)
	for i := range c.fn.Body {
		def, ok := c.fn.Body[i].Op.(LabelDef)
		if !ok {
			continue
		}
		if def.ID <= NoLabel {
			c.report(CheckLabels, i, "invalid label %d", def.ID)
			continue
		}
		if prev, dup := defined[def.ID]; dup {
			c.report(CheckLabels, i, "label L%d already defined at #%d", def.ID, prev)
			continue
		}
		defined[def.ID] = i
	}
	for i := range c.fn.Body {
		ins := &c.fn.Body[i]
		if ins.Op == nil {
			continue
		}
		if _, ok := ins.Op.(LabelDef); ok {
			continue
		}
		for _, l := range Labels(ins.Op) {
			if _, ok := defined[l]; !ok {
				c.report(CheckLabels, i, "%s: undefined label L%d", ins.Op.Name(), l)
			}
		}
	}
}

func (c *checker) shapes() {
	for i := range c.fn.Body {
		ins := &c.fn.Body[i]
		for j, r := range ins.Live {
			if r.Typ == TypeAddr {
				c.report(CheckShapes, i, "live register %d is a derived pointer", j)
			}
		}
		if cmp, ok := comparisonOf(ins.Op); ok && cmp.Cond > CondGe {
			c.report(CheckShapes, i, "unknown comparison %d", cmp.Cond)
		}
		switch o := ins.Op.(type) {
		case Switch:
			if len(o.Targets) == 0 {
				c.report(CheckShapes, i, "switch with no targets")
			}
		case StackOffset:
			if o.Bytes%16 != 0 {
				c.report(CheckShapes, i, "stack offset %d is not 16-byte aligned", o.Bytes)
			}
		case Alloc:
			if o.Bytes <= 0 {
				c.report(CheckShapes, i, "alloc of %d bytes", o.Bytes)
			}
		case Move, Spill, Reload:
			if len(ins.Args) != 1 || len(ins.Res) != 1 {
				c.report(CheckShapes, i, "%s: want 1 argument and 1 result", o.Name())
			}
		case Bswap:
			if o.Bits != 16 && o.Bits != 32 && o.Bits != 64 {
				c.report(CheckShapes, i, "bswap of %d bits", o.Bits)
			}
		}
	}
}

// comparisonOf returns the comparison an instruction evaluates, if any.
func comparisonOf(op Op) (Comparison, bool) {
	switch o := op.(type) {
	case IntOp:
		return o.Cmp, o.Op == IntComp
	case IntOpImm:
		return o.Cmp, o.Op == IntComp
	case CondBranch:
		switch o.Test.Kind {
		case TestInt, TestIntImm, TestFloat:
			return o.Test.Cmp, true
		}
	}
	return Comparison{}, false
}
