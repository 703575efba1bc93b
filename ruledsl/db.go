package ruledsl

import "github.com/patternjit/dbtcore/guest"

// MaxGuestLen bounds the hash bucket width (§4.2.2): `hash = (sum of guest
// opcodes) / guest_instr_count`, and no rule is expected to sum to a bucket
// index at or beyond this.
const MaxGuestLen = 500

// DB is the rule database produced by Load (§3.3, §4.2.2): a hashed table of
// TranslationRules, with a small hot subset searched first per bucket. Once
// Load returns, a DB is immutable and may be shared across matcher
// instances without synchronization (§5).
type DB struct {
	// buckets[key] is the single traversal order for hash bucket key: every
	// hot-rule entry first (most recently installed first), followed by every
	// general-rule entry (most recently installed first) — built by Load's
	// concatenation pass
	// (§4.2.2 step 4).
	buckets [MaxGuestLen][]*TranslationRule

	rules []*TranslationRule // all installed rules, indexed by Index for diagnostics
}

// HotRuleIDs is the fixed hardcoded set of rule indices installed into the
// cache table ahead of the general table (§3.3). Populated by LoadOptions;
// empty means no rule is treated as hot.
type HotRuleIDs map[int]bool

// hashKey computes (Σ guest_opc_i) / guest_instr_count using integer
// division, exactly as §4.2.2 step 1 specifies. The spec's own open
// questions note this collides trivially; we keep it rather than "fix" it,
// since every bucket is scanned in full and no rule is ever skipped by a
// collision (§9, testable property 6).
func hashKey(opcodes []guest.Opcode) int {
	if len(opcodes) == 0 {
		return 0
	}
	sum := 0
	for _, opc := range opcodes {
		sum += int(opc)
	}
	key := sum / len(opcodes)
	if key < 0 {
		key = 0
	}
	if key >= MaxGuestLen {
		key = key % MaxGuestLen
	}
	return key
}

// guestOpcodes extracts the opcode sequence a rule or a live guest-block
// prefix hashes on. SET_LABEL markers are zero-width (§4.2.1) and excluded,
// matching TranslationRule.GuestInstrCount so a rule's hash key and the
// live-block window MatchBlock slides are computed over the same notion of
// "length".
func guestOpcodes(instrs []guest.Instruction) []guest.Opcode {
	opcs := make([]guest.Opcode, 0, len(instrs))
	for i := range instrs {
		if instrs[i].Opc == guest.OpSetLabel {
			continue
		}
		opcs = append(opcs, instrs[i].Opc)
	}
	return opcs
}

// HashKeyForTemplate exposes hashKey for a rule's own guest template, used
// by Install.
func HashKeyForTemplate(instrs []guest.Instruction) int { return hashKey(guestOpcodes(instrs)) }

// HashKeyForBlockSlice exposes hashKey for a candidate-length prefix of a
// live guest block, used by match.MatchBlock.
func HashKeyForBlockSlice(instrs []guest.Instruction) int { return hashKey(guestOpcodes(instrs)) }

// buildState is an empty database under construction. Cache and general
// rules are kept apart during installation (§4.2.2 steps 2-3) and merged once in Finalize
// (step 4) so that every bucket ends up with hot entries first.
type buildState struct {
	cache   [MaxGuestLen][]*TranslationRule
	general [MaxGuestLen][]*TranslationRule
	rules   []*TranslationRule
}

func newBuildState() *buildState { return &buildState{} }

// Install places one parsed rule into the cache or general table per
// §4.2.2 steps 2-3. Rules are prepended within their bucket, matching the
// teacher's "most recently parsed wins position" insertion order.
func (b *buildState) Install(rule *TranslationRule, hot HotRuleIDs) {
	key := HashKeyForTemplate(rule.GuestTemplate)
	if hot[rule.Index] {
		b.cache[key] = prepend(b.cache[key], rule)
	} else {
		b.general[key] = prepend(b.general[key], rule)
	}
	b.rules = append(b.rules, rule)
}

func prepend(s []*TranslationRule, r *TranslationRule) []*TranslationRule {
	return append([]*TranslationRule{r}, s...)
}

// Finalize concatenates each general bucket onto the tail of its cache
// bucket (§4.2.2 step 4), producing the single traversal order the matcher
// scans.
func (b *buildState) Finalize() *DB {
	db := &DB{rules: b.rules}
	for key := 0; key < MaxGuestLen; key++ {
		db.buckets[key] = append(b.cache[key], b.general[key]...)
	}
	return db
}

// Bucket returns the traversal order for hash key.
func (db *DB) Bucket(key int) []*TranslationRule {
	if key < 0 || key >= MaxGuestLen {
		return nil
	}
	return db.buckets[key]
}

// Rule returns the installed rule with the given index, or nil.
func (db *DB) Rule(index int) *TranslationRule {
	for _, r := range db.rules {
		if r.Index == index {
			return r
		}
	}
	return nil
}

// Rules returns every installed rule, in installation order.
func (db *DB) Rules() []*TranslationRule { return db.rules }
