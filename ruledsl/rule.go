// Package ruledsl parses the textual rule file format (§4.2.1) into a
// hashed TranslationRule database (§3.3, §4.2.2). Parsing happens once at
// process startup; after Load returns, a DB is read-only and safe to
// share across matcher instances (§5).
package ruledsl

import (
	"github.com/patternjit/dbtcore/guest"
	"github.com/patternjit/dbtcore/host"
)

// CCState is one of the four values a rule's cc_mapping entry can take for
// a single condition flag (§3.3).
type CCState int

const (
	CCUndefined CCState = iota // rule does not define this flag at all
	CCPreserved                // host flag == x86 flag, isomorphically
	CCInverted                 // host flag preserves x86 semantics only after a carry/borrow flip
)

// CCFlag indexes TranslationRule.CCMapping; the four flags spec §3.1/§3.3
// track liveness and preservation for.
type CCFlag int

const (
	CCFlagOF CCFlag = iota
	CCFlagSF
	CCFlagCF
	CCFlagZF
	ccFlagCount
)

// ccFlagToReg maps a CCFlag to the guest condition-flag pseudo-register
// reg_liveness is indexed by, so the matcher's final flag-preservation
// check (§4.4.2) can go from "which cc_mapping slot" to "which liveness
// bit" without a parallel switch living in the matcher package.
var ccFlagToReg = [ccFlagCount]guest.Register{
	CCFlagOF: guest.FlagOF, CCFlagSF: guest.FlagSF, CCFlagCF: guest.FlagCF, CCFlagZF: guest.FlagZF,
}

// CCFlagRegister returns the guest liveness register backing f.
func CCFlagRegister(f CCFlag) guest.Register { return ccFlagToReg[f] }

// HostArch selects which host template a TranslationRule carries, and which
// of the two instruction models the emitter walks.
type HostArch int

const (
	ArchARM64 HostArch = iota
	ArchRISCV
)

// TranslationRule is one parsed rule: a guest template bound to a host
// template for each supported architecture (§3.3). A rule need not carry
// both host templates — a rule authored only for ARM64 has a nil
// HostTemplateRiscv, and vice versa.
type TranslationRule struct {
	Index             int
	GuestTemplate     []guest.Instruction
	HostTemplateARM   []HostTemplateInstr
	HostTemplateRiscv []HostTemplateInstr
	CCMapping         [ccFlagCount]CCState
}

// GuestInstrCount is the rule's guest_instr_count (§3.3): how many real
// guest instructions a successful match of this rule consumes. SET_LABEL
// entries are zero-width anchors (§4.2.1) and are excluded, so this is the
// window width the matcher slides over a live guest block, not simply
// len(GuestTemplate).
func (r *TranslationRule) GuestInstrCount() int {
	n := 0
	for _, in := range r.GuestTemplate {
		if in.Opc != guest.OpSetLabel {
			n++
		}
	}
	return n
}

// HostTemplateInstr is architecture-agnostic storage for one host template
// instruction: exactly one of ARM64 or Riscv is populated, selected by the
// TranslationRule field (HostTemplateARM vs HostTemplateRiscv) it lives in.
// A tagged union isn't needed here because the two slices are never mixed.
type HostTemplateInstr struct {
	ARM64 *host.ARM64Instruction
	Riscv *host.RiscvInstruction
}
