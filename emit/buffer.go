// Package emit implements the code emitter (component E): it walks a
// matched RuleRecord's host template and resolves every symbolic
// placeholder (guest register, immediate, label) into a concrete host
// instruction, appending its encoding to a CodeBuffer.
package emit

import (
	"encoding/binary"
	"fmt"
)

// CodeBuffer accumulates encoded host instructions and reports the current
// write position; it holds no label table (label offsets come from the
// emitter's per-rule pre-pass).
//
// A zero-value cap means unbounded (the buffer grows like an ordinary
// slice); NewCodeBufferWithCap gives it the caller's configured code-buffer
// size (§5), and writing past that size is an arena-overflow condition —
// a fatal bug in rule authoring or sizing, not a recoverable error — so it
// panics rather than silently growing.
type CodeBuffer struct {
	bytes []byte
	cap   int
}

// NewCodeBuffer returns an empty, unbounded buffer.
func NewCodeBuffer() *CodeBuffer {
	return &CodeBuffer{}
}

// NewCodeBufferWithCap returns an empty buffer that panics if more than
// capBytes are ever written to it.
func NewCodeBufferWithCap(capBytes int) *CodeBuffer {
	return &CodeBuffer{bytes: make([]byte, 0, capBytes), cap: capBytes}
}

func (c *CodeBuffer) checkCap(n int) {
	if c.cap > 0 && len(c.bytes)+n > c.cap {
		panic(fmt.Sprintf("emit: code buffer overflow: writing %d bytes at offset %d exceeds capacity %d", n, len(c.bytes), c.cap))
	}
}

// Len returns the current write position in bytes.
func (c *CodeBuffer) Len() int64 { return int64(len(c.bytes)) }

// Bytes returns the accumulated machine code.
func (c *CodeBuffer) Bytes() []byte { return c.bytes }

// Emit32 appends one little-endian 32-bit word (an ARM64 instruction, or
// one RISC-V instruction's base encoding).
func (c *CodeBuffer) Emit32(word uint32) {
	c.checkCap(4)
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], word)
	c.bytes = append(c.bytes, buf[:]...)
}

// EmitBytes appends raw pre-encoded host code, used for caller-supplied
// prologue/epilogue sequences.
func (c *CodeBuffer) EmitBytes(b []byte) {
	if len(b) == 0 {
		return
	}
	c.checkCap(len(b))
	c.bytes = append(c.bytes, b...)
}

// Emit64 appends one little-endian 64-bit word.
func (c *CodeBuffer) Emit64(word uint64) {
	c.checkCap(8)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], word)
	c.bytes = append(c.bytes, buf[:]...)
}
