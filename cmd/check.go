package cmd

import (
	"copier/internal/daemon"
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration without watching",
	RunE: func(cmd *cobra.Command, args []string) error {
		copysets, err := cfg.Resolve()
		if err != nil {
			return err
		}

		reg, err := daemon.NewEngine(cfg, copysets, nil).Check()
		if err != nil {
			return err
		}

		for _, cs := range copysets {
			fmt.Printf("%s: %s -> %s\n", cs.Name, cs.SourceRoot, cs.TargetRoot)
			for _, m := range cs.Mappings {
				fmt.Printf("  %s -> %s\n", m.RelSource, m.RelTarget)
			}
		}
		fmt.Printf("ok: %d mappings, %d watched directories\n", len(reg.Mappings()), len(reg.Dirs()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
