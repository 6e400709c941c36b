package cmd

import (
	"copier/internal/model"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	historyN      int
	historyFailed bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recent actions",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := fmt.Sprintf("/history?n=%d", historyN)
		if historyFailed {
			path += "&failed=true"
		}

		var histories []model.History
		if err := callDaemon(http.MethodGet, path, &histories); err != nil {
			return err
		}

		if len(histories) == 0 {
			fmt.Println("no history yet")
			return nil
		}

		for _, h := range histories {
			status := "✓"
			if h.Outcome == model.OutcomeFailed {
				status = "✗"
			}

			fmt.Printf("%s [%s] %-7s %-14s %s\n",
				status,
				h.SyncedAt.Format("2006-01-02 15:04:05"),
				h.Action,
				h.Outcome,
				h.Target,
			)
			if h.ErrMsg != "" {
				fmt.Printf("    %s\n", h.ErrMsg)
			}
		}

		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyN, "n", 20, "number of history entries to show")
	historyCmd.Flags().BoolVar(&historyFailed, "failed", false, "only show failed actions")
	rootCmd.AddCommand(historyCmd)
}
