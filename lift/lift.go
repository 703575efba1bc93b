package lift

import (
	"fmt"

	"github.com/patternjit/dbtcore/guest"
)

// Lift converts an externally decoded block into the internal guest.Block
// representation, then computes backward register/flag liveness and
// per-instruction SaveCC over the whole block (§4.3). An unrecognized
// mnemonic aborts the lift: Lift returns a nil block and an error naming
// the instruction's index and pc.
func Lift(db DecodedBlock) (*guest.Block, error) {
	block := &guest.Block{Entry: db.Entry, Instrs: make([]guest.Instruction, 0, len(db.Instrs))}

	for i, d := range db.Instrs {
		inst, err := liftOne(d)
		if err != nil {
			return nil, fmt.Errorf("lifting instruction %d at pc=0x%x: %w", i, d.PC, err)
		}
		block.Instrs = append(block.Instrs, inst)
	}

	computeLiveness(block)
	return block, nil
}

// liftOne converts one DecodedInst into a guest.Instruction, then applies
// the handful of x86-specific normalizations a rule template is written
// against rather than the decoder's raw operand count (§4.3 step 3).
func liftOne(d DecodedInst) (guest.Instruction, error) {
	entry, ok := lookupMnemonic(d.Mnemonic)
	if !ok {
		return guest.Instruction{}, fmt.Errorf("unrecognized mnemonic %q", d.Mnemonic)
	}

	inst := guest.Instruction{
		PC:       d.PC,
		Opc:      entry.opc,
		InstSize: d.InstSizeBytes,
		SrcSize:  sizeBytesToOperandSize(d.OperandSizeBytes),
		DestSize: sizeBytesToOperandSize(d.OperandSizeBytes),
	}
	if entry.hasCond {
		inst.Cond = entry.cond
	}

	operands := make([]guest.Operand, 0, len(d.Operands))
	for _, do := range d.Operands {
		opd, err := liftOperand(do)
		if err != nil {
			return guest.Instruction{}, err
		}
		operands = append(operands, opd)
	}

	operands = applyQuirks(inst.Opc, operands)
	if len(operands) > 3 {
		return guest.Instruction{}, fmt.Errorf("%s: too many operands after normalization (%d)", guest.OpcToStr(inst.Opc), len(operands))
	}
	inst.OpdNum = len(operands)
	for i, o := range operands {
		inst.Opd[i] = o
	}
	return inst, nil
}

func liftOperand(d DecodedOperand) (guest.Operand, error) {
	switch d.Kind {
	case DecOperandImm:
		return guest.NewImmOperand(guest.ConcreteImm(d.Imm)), nil
	case DecOperandLabel:
		return guest.NewImmOperand(guest.ImmValue{Symbolic: true, Symbol: d.Label, IsRipLiteral: true}), nil
	case DecOperandReg:
		reg, size := toGuestReg(d.Reg)
		if reg == guest.RegInvalid {
			return guest.Operand{}, fmt.Errorf("invalid register operand (num=%d, xmm=%v)", d.Reg.Num, d.Reg.IsXMM)
		}
		return guest.NewRegOperand(guest.RegOperand{Num: reg, HighByte: d.Reg.HighByte, Size: size}), nil
	case DecOperandMem:
		mem := guest.MemOperand{Offset: guest.ConcreteImm(d.Disp)}
		if d.HasBase {
			base, _ := toGuestReg(d.MemBase)
			mem.Base = base
		} else {
			mem.Base = guest.RegInvalid
		}
		mem.Index = guest.RegInvalid
		if d.HasIndex {
			idx, _ := toGuestReg(d.MemIndex)
			mem.Index = idx
			mem.Scale = guest.ConcreteImm(int64(d.Scale))
		}
		if mem.Base == guest.RegInvalid {
			return guest.Operand{}, fmt.Errorf("memory operand with no base register")
		}
		return guest.NewMemOperand(mem), nil
	default:
		return guest.Operand{}, fmt.Errorf("unsupported decoded operand kind %d", d.Kind)
	}
}

// applyQuirks normalizes a handful of x86 operand-count idioms that a rule
// template is written against directly rather than the decoder's literal
// operand list (§4.3 step 3):
//
//   - A three-operand form (e.g. IMUL dst, src, imm) drops its middle
//     operand, keeping dest and the final source — the middle operand on
//     these x86 forms duplicates information already implied by dest.
//   - JMP/CALL/PUSH/POP keep only their last operand: a decoder may hand
//     these a leading implicit operand (e.g. a segment override) that the
//     guest template never needs.
//   - A one-operand shift (SHR/SHL/SAR/ROL/ROR with an implicit shift count
//     of 1) gets a synthesized immediate-1 second operand, so every shift
//     template can assume two operands uniformly.
func applyQuirks(opc guest.Opcode, operands []guest.Operand) []guest.Operand {
	switch opc {
	case guest.OpJMP, guest.OpCALL, guest.OpPUSH, guest.OpPOP:
		if len(operands) > 1 {
			return operands[len(operands)-1:]
		}
	case guest.OpSHL, guest.OpSHR, guest.OpSAR, guest.OpROL, guest.OpROR:
		if len(operands) == 1 {
			return append(operands, guest.NewImmOperand(guest.ConcreteImm(1)))
		}
	}
	if len(operands) == 3 {
		return []guest.Operand{operands[0], operands[2]}
	}
	return operands
}
