package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/patternjit/dbtcore/guest"
)

func TestParseBlockFileBasic(t *testing.T) {
	src := `
entry 0x1000
# a comment line
0x1000 3 ADD rax, rcx
0x1003 2 MOV rdx, rax
`
	block, err := parseBlockFile(src, "t.block")
	require.NoError(t, err)
	require.Equal(t, uint64(0x1000), block.Entry)
	require.Equal(t, 2, block.Len())

	first := block.At(0)
	require.Equal(t, guest.OpADD, first.Opc)
	require.Equal(t, uint64(0x1000), first.PC)
	require.Equal(t, 3, first.InstSize)

	second := block.At(1)
	require.Equal(t, guest.OpMOV, second.Opc)
	require.Equal(t, uint64(0x1003), second.PC)
}

func TestParseBlockFileDefaultsEntryToFirstPC(t *testing.T) {
	src := "0x2000 3 ADD rax, rcx\n"
	block, err := parseBlockFile(src, "t.block")
	require.NoError(t, err)
	require.Equal(t, uint64(0x2000), block.Entry, "entry should default to the first instruction's PC")
}

func TestParseBlockFileMissingEntryAddress(t *testing.T) {
	_, err := parseBlockFile("entry\n", "t.block")
	require.ErrorContains(t, err, "entry line missing address")
}

func TestParseBlockFileInvalidPC(t *testing.T) {
	_, err := parseBlockFile("notahex 3 ADD rax, rcx\n", "t.block")
	require.ErrorContains(t, err, "invalid pc")
}

func TestParseBlockFileTooFewFields(t *testing.T) {
	_, err := parseBlockFile("0x1000 3\n", "t.block")
	require.Error(t, err)
}

func TestParseBlockFileUnparsableInstruction(t *testing.T) {
	_, err := parseBlockFile("0x1000 3 FROBNICATE rax\n", "t.block")
	require.Error(t, err)
}

func TestParseBlockFileEmptyProducesEmptyBlock(t *testing.T) {
	block, err := parseBlockFile("# only comments\n\n", "t.block")
	require.NoError(t, err)
	require.Equal(t, 0, block.Len())
}
