// Package match implements the rule matcher (component D, §4.4): scanning a
// lifted guest.Block against a ruledsl.DB for the longest rule whose guest
// template unifies with the block at each position, tracking the bindings
// that unification produces.
package match

// bindingTable is an append-only name->value vector with checkpoint/
// rollback, replacing the parallel linked-list binding maps a reference
// matcher might use with a redo-log shape: a failed match attempt rolls
// back to a mark instead of unwinding pointer-by-pointer (§9 redesign
// note).
type bindingTable[V comparable] struct {
	keys []string
	vals []V
}

func (t *bindingTable[V]) checkpoint() int { return len(t.keys) }

func (t *bindingTable[V]) rollback(mark int) {
	t.keys = t.keys[:mark]
	t.vals = t.vals[:mark]
}

// bind unifies key with v: a fresh key is appended, a previously bound key
// must agree with v exactly, matching §4.4.2's unification rule that a
// repeated symbol in a rule template must observe the same concrete value
// everywhere it appears.
func (t *bindingTable[V]) bind(key string, v V) bool {
	for i, k := range t.keys {
		if k == key {
			return t.vals[i] == v
		}
	}
	t.keys = append(t.keys, key)
	t.vals = append(t.vals, v)
	return true
}

func (t *bindingTable[V]) lookup(key string) (V, bool) {
	for i, k := range t.keys {
		if k == key {
			return t.vals[i], true
		}
	}
	var zero V
	return zero, false
}

func (t *bindingTable[V]) snapshot() map[string]V {
	out := make(map[string]V, len(t.keys))
	for i, k := range t.keys {
		out[k] = t.vals[i]
	}
	return out
}

// ImmMapping binds imm_* rule symbols to the concrete int64 value observed
// in the guest block (§3.4).
type ImmMapping struct{ t bindingTable[int64] }

// GuestRegisterMapping binds a rule's reg0..reg31 symbolic placeholders to
// the concrete guest.Register observed (§3.4).
type GuestRegisterMapping struct{ t bindingTable[guestRegisterKey] }

// guestRegisterKey is the (register, high-byte) pair a rule's symbolic
// register placeholder unifies against; two operands naming "reg0" must
// agree on both the concrete register and whether it's the high-byte view,
// since AH and AL are different storage under the same RAX family.
type guestRegisterKey struct {
	reg      int
	highByte bool
}

// LabelBinding is the pair a rule's label symbol resolves to (§3.4): the
// displacement the matched branch carried (zero for a SET_LABEL anchor)
// and the guest PC immediately after the instruction that bound it. The
// absolute guest target is always Fallthrough+Target, the x86 relative
// branch rule; the emitter's conditional-branch expansion needs both
// halves separately since the not-taken arm of a Jcc continues at
// Fallthrough.
type LabelBinding struct {
	Target      int64
	Fallthrough int64
}

// LabelMapping binds a rule's label symbols to the guest-side pair a
// branch target or SET_LABEL anchor resolves to (§3.4, §4.2.1): either an
// immediate displacement carried by a real Jcc/JMP/CALL, or the guest PC at
// a SET_LABEL marker's position in the template walk.
type LabelMapping struct{ t bindingTable[LabelBinding] }

// Bindings bundles the three concurrent binding tables a single match
// attempt populates, plus one combined checkpoint/rollback pair so the
// matcher's backtracking code has a single mark to take and restore
// instead of three (§9 redesign note: "replace parallel linked-list binding
// maps ... with append-only vectors + checkpoint/rollback").
type Bindings struct {
	Imm   ImmMapping
	Reg   GuestRegisterMapping
	Label LabelMapping
}

// Mark is a combined checkpoint over all three binding tables.
type Mark struct {
	imm, reg, label int
}

func (b *Bindings) Checkpoint() Mark {
	return Mark{b.Imm.t.checkpoint(), b.Reg.t.checkpoint(), b.Label.t.checkpoint()}
}

func (b *Bindings) Rollback(m Mark) {
	b.Imm.t.rollback(m.imm)
	b.Reg.t.rollback(m.reg)
	b.Label.t.rollback(m.label)
}

func (b *Bindings) bindImm(name string, v int64) bool   { return b.Imm.t.bind(name, v) }
func (b *Bindings) lookupImm(name string) (int64, bool) { return b.Imm.t.lookup(name) }

func (b *Bindings) bindReg(name string, reg int, highByte bool) bool {
	return b.Reg.t.bind(name, guestRegisterKey{reg, highByte})
}
func (b *Bindings) lookupReg(name string) (guestRegisterKey, bool) { return b.Reg.t.lookup(name) }

func (b *Bindings) bindLabel(name string, lb LabelBinding) bool { return b.Label.t.bind(name, lb) }
func (b *Bindings) lookupLabel(name string) (LabelBinding, bool) {
	return b.Label.t.lookup(name)
}
