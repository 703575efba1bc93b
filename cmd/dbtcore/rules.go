package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/patternjit/dbtcore/guest"
	"github.com/patternjit/dbtcore/ruledsl"
)

func newRulesCmd() *cobra.Command {
	var rulesPath string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List loaded rules, their guest templates, and bucket keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if rulesPath != "" {
				cfg.Rules.Path = rulesPath
			}

			source, err := readFile(cfg.Rules.Path)
			if err != nil {
				return err
			}

			hot := make(ruledsl.HotRuleIDs, len(cfg.Rules.HotRules))
			for _, id := range cfg.Rules.HotRules {
				hot[id] = true
			}

			db, errs, err := ruledsl.Load(source, cfg.Rules.Path, hot)
			if err != nil {
				return fmt.Errorf("loading rule file: %w", err)
			}

			for _, r := range db.Rules() {
				key := ruledsl.HashKeyForTemplate(r.GuestTemplate)
				templates := []string{}
				if r.HostTemplateARM != nil {
					templates = append(templates, "arm64")
				}
				if r.HostTemplateRiscv != nil {
					templates = append(templates, "riscv64")
				}
				fmt.Printf("#%-4d bucket=%-3d len=%-2d hosts=[%s]  %s\n",
					r.Index, key, r.GuestInstrCount(), strings.Join(templates, ","), renderGuestTemplate(r.GuestTemplate))
			}
			for _, e := range errs.Errors {
				fmt.Printf("skipped: %s\n", e.Error())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rulesPath, "rules", "", "Rule file path (overrides config)")
	return cmd
}

// renderGuestTemplate prints a rule's guest template as a terse opcode
// sequence for the "rules" subcommand's listing, not a full disassembly —
// operand detail is diagnostic-only per §4.1, so a glance at the opcodes is
// enough to tell rules apart in a long listing.
func renderGuestTemplate(instrs []guest.Instruction) string {
	parts := make([]string, 0, len(instrs))
	for _, in := range instrs {
		parts = append(parts, guest.OpcToStr(in.Opc))
	}
	return strings.Join(parts, " ")
}
