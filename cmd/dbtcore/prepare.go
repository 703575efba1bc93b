package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/patternjit/dbtcore/ruledsl"
)

func newPrepareCmd() *cobra.Command {
	var rulesPath string
	var arch string

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Parse the rule file and report rule-DB stats",
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

			log, err := newLogger(cfg.Logging.Level)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

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
			for _, e := range errs.Errors {
				log.Warnw("skipped malformed rule", "error", e.Error())
			}

			var armCount, riscvCount int
			buckets := 0
			for key := 0; key < ruledsl.MaxGuestLen; key++ {
				if len(db.Bucket(key)) > 0 {
					buckets++
				}
			}
			for _, r := range db.Rules() {
				if r.HostTemplateARM != nil {
					armCount++
				}
				if r.HostTemplateRiscv != nil {
					riscvCount++
				}
			}

			fmt.Printf("rule file:       %s\n", cfg.Rules.Path)
			fmt.Printf("target arch:     %s\n", cfg.Target.Arch)
			fmt.Printf("rules loaded:    %d\n", len(db.Rules()))
			fmt.Printf("rules skipped:   %d\n", len(errs.Errors))
			fmt.Printf("buckets used:    %d / %d\n", buckets, ruledsl.MaxGuestLen)
			fmt.Printf("hot rules:       %d\n", len(hot))
			fmt.Printf("ARM64 templates: %d\n", armCount)
			fmt.Printf("RISC-V templates:%d\n", riscvCount)
			return nil
		},
	}
	cmd.Flags().StringVar(&rulesPath, "rules", "", "Rule file path (overrides config)")
	cmd.Flags().StringVar(&arch, "arch", "", "Target architecture: arm64 or riscv64 (overrides config)")
	return cmd
}
