package main

import (
	"fmt"

	"github.com/spf13/cobra"

	dbtcore "github.com/patternjit/dbtcore"
	"github.com/patternjit/dbtcore/ruledsl"
)

func newMatchCmd() *cobra.Command {
	var rulesPath string
	var arch string
	var blockPath string

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Load rules, lift and match a guest block, emit host code, and report results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if rulesPath != "" {
				cfg.Rules.Path = rulesPath
			}
			if arch != "" {
				cfg.Target.Arch = arch
			}
			if blockPath == "" {
				return fmt.Errorf("--block is required")
			}
			if cfg.Target.Arch != "arm64" && cfg.Target.Arch != "riscv64" {
				return fmt.Errorf("unknown target arch %q: must be arm64 or riscv64", cfg.Target.Arch)
			}

			log, err := newLogger(cfg.Logging.Level)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ruleSource, err := readFile(cfg.Rules.Path)
			if err != nil {
				return err
			}
			hot := make(ruledsl.HotRuleIDs, len(cfg.Rules.HotRules))
			for _, id := range cfg.Rules.HotRules {
				hot[id] = true
			}
			db, errs, err := ruledsl.Load(ruleSource, cfg.Rules.Path, hot)
			if err != nil {
				return fmt.Errorf("loading rule file: %w", err)
			}
			for _, e := range errs.Errors {
				log.Warnw("skipped malformed rule", "error", e.Error())
			}

			blockSource, err := readFile(blockPath)
			if err != nil {
				return err
			}
			block, err := parseBlockFile(blockSource, blockPath)
			if err != nil {
				return fmt.Errorf("parsing guest block: %w", err)
			}

			if block.Len() == 0 {
				fmt.Println("block is empty; nothing to match")
				return nil
			}

			targetArch := dbtcore.ArchARM64
			if cfg.Target.Arch == "riscv64" {
				targetArch = dbtcore.ArchRiscv64
			}
			pm := dbtcore.NewPatternMatcher(targetArch, db, log)
			pm.SetMatchBudget(cfg.Match.Budget)

			matched := pm.MatchLifted(block)
			records := pm.Records()

			pm.SetCodeBuffer(make([]byte, cfg.CodeBuffer.Size))
			code, err := pm.EmitCode()
			if err != nil {
				return fmt.Errorf("emitting host code: %w", err)
			}

			for _, rec := range records {
				fmt.Printf("matched rule #%-4d entry_pc=0x%x blocksize=%d\n",
					rec.Rule.Index, rec.EntryPC, rec.BlockSize)
			}
			unmatchedCount := 0
			for i := 0; i < block.Len(); i++ {
				pc := int64(block.At(i).PC)
				if pm.GetRuleIndex(pc) < 0 {
					fmt.Printf("unmatched instruction at block index %d (pc=0x%x)\n", i, pc)
					unmatchedCount++
				}
			}

			if !matched {
				fmt.Println("\nno rule matched; caller would fall back to the IR translator")
				return nil
			}
			fmt.Printf("\nsummary: %d rule(s) matched, %d instruction(s) unmatched, %d byte(s) emitted\n",
				len(records), unmatchedCount, len(code))
			return nil
		},
	}
	cmd.Flags().StringVar(&rulesPath, "rules", "", "Rule file path (overrides config)")
	cmd.Flags().StringVar(&arch, "arch", "", "Target architecture: arm64 or riscv64 (overrides config)")
	cmd.Flags().StringVar(&blockPath, "block", "", "Guest-block-file path (required)")
	return cmd
}
