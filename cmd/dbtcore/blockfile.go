package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/patternjit/dbtcore/guest"
	"github.com/patternjit/dbtcore/lift"
	"github.com/patternjit/dbtcore/ruledsl"
)

// parseBlockFile reads a guest-block-file (§6.5): a line-oriented text
// format standing in for a real x86-64 decoder's DecodedBlock, so the
// "match" subcommand has something to smoke-test matching against without
// pulling in an actual disassembler. Each instruction line is
//
//	<hex-pc> <size-in-bytes> <guest-instruction-text>
//
// where <guest-instruction-text> is parsed with the exact grammar a rule's
// own .Guest: template uses (ruledsl.ParseGuestInstructionLine) — concrete
// register names and immediates are already valid guest-template syntax,
// so this format needs no parser of its own. An optional leading
// "entry <hex-pc>" line sets the block's entry address; a '#' starts a
// comment; blank lines are ignored.
func parseBlockFile(input, filename string) (*guest.Block, error) {
	block := &guest.Block{}
	haveEntry := false

	for i, raw := range strings.Split(input, "\n") {
		lineNo := i + 1
		line := raw
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.SplitN(line, " ", 3)
		first := strings.ToLower(fields[0])
		if first == "entry" {
			if len(fields) < 2 {
				return nil, fmt.Errorf("%s:%d: entry line missing address", filename, lineNo)
			}
			pc, err := strconv.ParseUint(strings.TrimSpace(fields[1]), 0, 64)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: invalid entry address %q: %w", filename, lineNo, fields[1], err)
			}
			block.Entry = pc
			haveEntry = true
			continue
		}

		if len(fields) < 3 {
			return nil, fmt.Errorf("%s:%d: expected '<pc> <size> <instruction>', got %q", filename, lineNo, line)
		}
		pc, err := strconv.ParseUint(fields[0], 0, 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: invalid pc %q: %w", filename, lineNo, fields[0], err)
		}
		size, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: invalid size %q: %w", filename, lineNo, fields[1], err)
		}

		pos := ruledsl.Position{Filename: filename, Line: lineNo, Column: 1}
		inst, err := ruledsl.ParseGuestInstructionLine(fields[2], pos)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", filename, lineNo, err)
		}
		inst.PC = pc
		inst.InstSize = size

		if !haveEntry && len(block.Instrs) == 0 {
			block.Entry = pc
			haveEntry = true
		}
		block.Instrs = append(block.Instrs, inst)
	}

	lift.ComputeLiveness(block)
	return block, nil
}
