package emit

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/patternjit/dbtcore/host"
	"github.com/patternjit/dbtcore/match"
)

// Context is the state shared across every rule emitted into one
// translated block: the guest->host register mapping tables, the block's
// base guest PC (for diagnostics; the synthetic opcodes take their guest
// addresses from each rule's own fallthrough PC and label bindings), and a
// logger. A Context is not reused
// across blocks translated concurrently; callers construct one per block.
type Context struct {
	ARM64Regs ARM64RegisterMap
	RiscvRegs RiscvRegisterMap

	// GuestBlockPC is the guest program counter the block being translated
	// starts at, carried for diagnostics. Label targets themselves resolve
	// from the binding's own (target, fallthrough) pair, since a matched
	// branch's displacement is relative to the instruction that carried
	// it, not to the block entry.
	GuestBlockPC int64

	Log *zap.SugaredLogger
}

// NewContext builds a Context with the default register maps, logging
// through log (nil is replaced with a no-op logger).
func NewContext(guestBlockPC int64, log *zap.SugaredLogger) *Context {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Context{
		ARM64Regs:    DefaultARM64RegisterMap(),
		RiscvRegs:    DefaultRiscvRegisterMap(),
		GuestBlockPC: guestBlockPC,
		Log:          log,
	}
}

// rule is the per-rule emission scratchpad: a RuleRecord plus a temp
// register allocator cursor, reset at the start of every EmitRule call so
// two different rules in the same block don't fight over the same scratch
// register mid-sequence.
type rule struct {
	rec        *match.RuleRecord
	gprTempPos int
	xmmTempPos int
	fpTempPos  int
}

// nextARM64GPRTemp hands out the next unused ARM64 scratch GPR for this
// rule's emission and advances the cursor, so a rule needing several
// independent scratch values (e.g. addressing-mode legalization followed by
// a FlipCF sequence) never has two live values collide in the same
// register.
func (rl *rule) nextARM64GPRTemp(ctx *Context) (host.ARM64Register, error) {
	if rl.gprTempPos >= len(ctx.ARM64Regs.GPRTemp) {
		return 0, fmt.Errorf("rule %d: out of ARM64 scratch GPRs", rl.rec.Rule.Index)
	}
	r := ctx.ARM64Regs.GPRTemp[rl.gprTempPos]
	rl.gprTempPos++
	return r, nil
}

// nextRiscvGPRTemp is the RISC-V counterpart of nextARM64GPRTemp.
func (rl *rule) nextRiscvGPRTemp(ctx *Context) (host.RiscvRegister, error) {
	if rl.gprTempPos >= len(ctx.RiscvRegs.GPRTemp) {
		return 0, fmt.Errorf("rule %d: out of RISC-V scratch GPRs", rl.rec.Rule.Index)
	}
	r := ctx.RiscvRegs.GPRTemp[rl.gprTempPos]
	rl.gprTempPos++
	return r, nil
}
