package cmd

import (
	"copier/internal/daemon"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View daemon status",
	RunE: func(cmd *cobra.Command, args []string) error {
		var status daemon.Status
		if err := callDaemon(http.MethodGet, "/status", &status); err != nil {
			return err
		}

		state := "starting"
		if status.Watching {
			state = "watching"
		}
		fmt.Printf("%s, up %s\n", state, time.Since(status.StartedAt).Round(time.Second))
		if status.History != nil {
			fmt.Printf("history: %d actions, %d failed\n", status.History.Total, status.History.Failed)
		}
		fmt.Println()

		fmt.Printf("%-16s %-14s %-40s %-8s %-8s %-8s %s\n",
			"COPYSET", "STATE", "TARGET", "SYNCED", "REMOVED", "FAILED", "LAST SYNC")

		for _, snap := range status.Mappings {
			lastSync := "-"
			if snap.LastSync != nil {
				lastSync = snap.LastSync.Format("2006-01-02 15:04:05")
			}

			fmt.Printf("%-16s %-14s %-40s %-8d %-8d %-8d %s\n",
				snap.Copyset, snap.State, snap.Target, snap.Synced, snap.Removed, snap.Failed, lastSync)
			if snap.LastError != "" {
				fmt.Printf("       last error: %s\n", snap.LastError)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
