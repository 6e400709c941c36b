package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var resyncCmd = &cobra.Command{
	Use:   "resync",
	Short: "Force the running daemon to copy every mapping again",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := callDaemon(http.MethodPost, "/resync", nil); err != nil {
			return err
		}

		fmt.Println("resync scheduled")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resyncCmd)
}
