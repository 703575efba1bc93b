// Package dbtcore ties the rule database, matcher, and emitter together
// behind the surface the surrounding emulator drives: prepare the rule
// tables once per process, then per basic block match against the database
// and emit host code into a caller-owned buffer.
package dbtcore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/patternjit/dbtcore/emit"
	"github.com/patternjit/dbtcore/guest"
	"github.com/patternjit/dbtcore/lift"
	"github.com/patternjit/dbtcore/match"
	"github.com/patternjit/dbtcore/ruledsl"
)

// Arch selects the host instruction set a PatternMatcher emits for.
type Arch int

const (
	ArchARM64 Arch = iota + 1
	ArchRiscv64
)

// DefaultRuleFile is where Prepare looks for the rule database when given
// an empty path, relative to the user's home directory.
const DefaultRuleFile = "rules4all"

var (
	prepareOnce sync.Once
	preparedDB  *ruledsl.DB
	prepareErr  error
)

// Prepare loads and installs the rule database, once per process; later
// calls return the first call's result regardless of arguments (§5: the
// tables are immutable and shared after load). An empty path reads
// DefaultRuleFile from the user's home directory. Rules whose ids appear
// in hotIDs go to the cache rule table and are scanned first.
func Prepare(path string, hotIDs []int) (*ruledsl.DB, error) {
	prepareOnce.Do(func() {
		preparedDB, prepareErr = loadRuleDB(path, hotIDs)
	})
	return preparedDB, prepareErr
}

func loadRuleDB(path string, hotIDs []int) (*ruledsl.DB, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving default rule file: %w", err)
		}
		path = filepath.Join(home, DefaultRuleFile)
	}
	src, err := os.ReadFile(path) // #nosec G304 -- operator-supplied rule file path
	if err != nil {
		return nil, fmt.Errorf("reading rule file: %w", err)
	}
	hot := make(ruledsl.HotRuleIDs, len(hotIDs))
	for _, id := range hotIDs {
		hot[id] = true
	}
	db, _, err := ruledsl.Load(string(src), path, hot)
	if err != nil {
		return nil, fmt.Errorf("loading rule file %s: %w", path, err)
	}
	return db, nil
}

// PatternMatcher is one emulator thread's matcher/emitter pair: it owns the
// per-block match state (rule records, the matched-pc set) and the
// code-buffer cursor, while sharing the immutable rule database. It is not
// safe for concurrent use; each thread constructs its own.
type PatternMatcher struct {
	arch Arch
	db   *ruledsl.DB
	log  *zap.SugaredLogger

	arm64Regs emit.ARM64RegisterMap
	riscvRegs emit.RiscvRegisterMap

	budget int

	block    *guest.Block
	records  []*match.RuleRecord
	ruleAtPC map[int64]int
	codeBuf  []byte
	prologue []byte
	epilogue []byte
}

// NewPatternMatcher constructs a matcher for one thread against an
// already-prepared rule database. A nil logger is replaced with a no-op
// one; the register mapping tables default to the package's fixed
// assignment and can be overridden with SetRegisterMaps before the first
// EmitCode call.
func NewPatternMatcher(arch Arch, db *ruledsl.DB, log *zap.SugaredLogger) *PatternMatcher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &PatternMatcher{
		arch:      arch,
		db:        db,
		log:       log,
		arm64Regs: emit.DefaultARM64RegisterMap(),
		riscvRegs: emit.DefaultRiscvRegisterMap(),
	}
}

// SetRegisterMaps replaces the guest->host register assignment tables
// (§4.5.4's gpr_mapped/gpr_temp/xmm_mapped/xmm_temp, bundled per
// architecture).
func (pm *PatternMatcher) SetRegisterMaps(arm emit.ARM64RegisterMap, riscv emit.RiscvRegisterMap) {
	pm.arm64Regs = arm
	pm.riscvRegs = riscv
}

// SetMatchBudget bounds cumulative per-rule match attempts per block; zero
// means unbounded.
func (pm *PatternMatcher) SetMatchBudget(budget int) { pm.budget = budget }

// MatchBlock lifts a decoded guest block, scans it against the rule
// database, and remembers the resulting rule records for EmitCode. It
// returns true iff at least one rule matched. The previous block's match
// state is discarded either way.
func (pm *PatternMatcher) MatchBlock(decoded lift.DecodedBlock) bool {
	if len(decoded.Instrs) == 0 {
		pm.block = nil
		pm.records = nil
		pm.ruleAtPC = make(map[int64]int)
		return false
	}
	block, err := lift.Lift(decoded)
	if err != nil {
		pm.block = nil
		pm.records = nil
		pm.ruleAtPC = make(map[int64]int)
		pm.log.Errorw("lifting decoded block failed", "entry", decoded.Entry, "error", err)
		return false
	}
	return pm.MatchLifted(block)
}

// MatchLifted is MatchBlock for callers that already hold a lifted
// guest.Block with liveness computed.
func (pm *PatternMatcher) MatchLifted(block *guest.Block) bool {
	pm.block = block
	pm.records = nil
	pm.ruleAtPC = make(map[int64]int)
	if block == nil || block.Len() == 0 {
		return false
	}

	records, unmatched := match.MatchBlock(pm.db, block, pm.budget)
	pm.records = records
	for _, rec := range records {
		for i := rec.StartIndex; i <= rec.LastGuestIndex; i++ {
			pm.ruleAtPC[int64(block.At(i).PC)] = rec.Rule.Index
		}
	}
	if len(unmatched) > 0 {
		pm.log.Debugw("block partially matched", "entry", block.Entry, "unmatched", len(unmatched))
	}
	return len(records) > 0
}

// Records exposes the last MatchBlock's rule records for diagnostics and
// tracing.
func (pm *PatternMatcher) Records() []*match.RuleRecord { return pm.records }

// SetCodeBuffer hands the emitter the memory EmitCode writes into. The
// caller owns the buffer and its executable mapping; len(buf) is the
// arena capacity (§5), and overflowing it is fatal.
func (pm *PatternMatcher) SetCodeBuffer(buf []byte) { pm.codeBuf = buf }

// SetPrologue installs raw host code copied in front of the first emitted
// rule.
func (pm *PatternMatcher) SetPrologue(code []byte) { pm.prologue = code }

// SetEpilogue installs raw host code copied after the last emitted rule,
// replacing the default dispatcher return.
func (pm *PatternMatcher) SetEpilogue(code []byte) { pm.epilogue = code }

// EmitCode emits host code for every rule record the last MatchBlock
// produced, in order, into the buffer given to SetCodeBuffer. It returns
// the written slice; the caller flushes the instruction cache. With no
// matched records it returns (nil, nil), per the contract that an
// unmatched block is the fallback translator's problem, not an error.
func (pm *PatternMatcher) EmitCode() ([]byte, error) {
	if len(pm.records) == 0 {
		return nil, nil
	}
	if pm.codeBuf == nil {
		return nil, fmt.Errorf("no code buffer set")
	}

	buf := emit.NewCodeBufferWithCap(len(pm.codeBuf))
	buf.EmitBytes(pm.prologue)

	ctx := emit.NewContext(int64(pm.block.Entry), pm.log)
	ctx.ARM64Regs = pm.arm64Regs
	ctx.RiscvRegs = pm.riscvRegs

	for _, rec := range pm.records {
		var err error
		switch pm.arch {
		case ArchARM64:
			err = emit.EmitARM64Rule(rec, buf, ctx)
		case ArchRiscv64:
			err = emit.EmitRiscvRule(rec, buf, ctx)
		default:
			return nil, fmt.Errorf("unknown arch %d", pm.arch)
		}
		if err != nil {
			// Rule-authoring bug: log and keep going (§7), the block is
			// suspect but the process must stay alive.
			pm.log.Errorw("emit failed for matched rule", "rule", rec.Rule.Index, "entry_pc", rec.EntryPC, "error", err)
		}
	}

	if len(pm.epilogue) > 0 {
		buf.EmitBytes(pm.epilogue)
	} else {
		switch pm.arch {
		case ArchARM64:
			buf.Emit32(emit.ARM64Ret)
		case ArchRiscv64:
			buf.Emit32(emit.RiscvRet)
		}
	}

	n := copy(pm.codeBuf, buf.Bytes())
	return pm.codeBuf[:n], nil
}

// GetRuleIndex reports which rule covered the guest instruction at pc in
// the last matched block, or -1 — a diagnostics hook for the surrounding
// emulator's tracing.
func (pm *PatternMatcher) GetRuleIndex(pc int64) int {
	if idx, ok := pm.ruleAtPC[pc]; ok {
		return idx
	}
	return -1
}
