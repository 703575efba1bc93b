package emit

import (
	"fmt"

	"github.com/patternjit/dbtcore/host"
)

// riscvVectorFunct6 gives each supported RVV vv-form instruction's funct6
// field under the OP-V major opcode. This emitter carries no vtype/vl
// state (the host opcode model has no vsetvli instruction), so every
// vector op here assumes the caller's runtime has already configured a
// matching vector context before entering translated code; vm is always 1
// (unmasked).
var riscvVectorFunct6 = map[host.RiscvOpcode]uint32{
	host.RiscvVADD:  0x00,
	host.RiscvVSUB:  0x02,
	host.RiscvVMUL:  0x25,
	host.RiscvVFADD: 0x00,
	host.RiscvVFSUB: 0x02,
	host.RiscvVMSEQ: 0x18,
	host.RiscvVMSGT: 0x1F,
}

// encodeRiscvVector handles the RVV vv-form subset (§4.5.9): integer
// add/sub/mul, float add/sub, and the mask-producing compares, all taking
// two vector source registers and a vector (or mask) destination.
func encodeRiscvVector(rl *rule, in *host.RiscvInstruction, buf *CodeBuffer, ctx *Context) error {
	if in.OpdNum < 3 {
		return fmt.Errorf("%s requires 3 operands", host.RiscvOpcToStr(in.Opc))
	}
	vd, err := resolveRiscvReg(rl, in.Opd[0].Reg, ctx)
	if err != nil {
		return err
	}
	vs2, err := resolveRiscvReg(rl, in.Opd[1].Reg, ctx)
	if err != nil {
		return err
	}
	vs1, err := resolveRiscvReg(rl, in.Opd[2].Reg, ctx)
	if err != nil {
		return err
	}
	funct6, ok := riscvVectorFunct6[in.Opc]
	if !ok {
		return fmt.Errorf("unhandled vector opcode %s", host.RiscvOpcToStr(in.Opc))
	}
	var funct3 uint32 = 0x0 // OPIVV
	switch in.Opc {
	case host.RiscvVMUL:
		funct3 = 0x2 // OPMVV
	case host.RiscvVFADD, host.RiscvVFSUB:
		funct3 = 0x1 // OPFVV
	}
	vm := uint32(1)
	word := funct6<<26 | vm<<25 | riscvRegNum(vs2)<<20 | riscvRegNum(vs1)<<15 | funct3<<12 | riscvRegNum(vd)<<7 | riscvOpV
	buf.Emit32(word)
	return nil
}
