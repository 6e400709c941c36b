package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X copier/cmd.version=... -X copier/cmd.commit=...".
var (
	version = "dev"
	commit  = "unknown"
	date    = ""
)

func versionString() string {
	if date == "" {
		return fmt.Sprintf("%s (%s)", version, commit)
	}
	return fmt.Sprintf("%s (%s %s)", version, commit, date)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("copier %s\n", versionString())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
