package cmd

import (
	"copier/internal/autostart"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the systemd service",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := autostartService()
		if err != nil {
			return err
		}

		err = svc.Uninstall()
		if errors.Is(err, autostart.ErrNotInstalled) {
			fmt.Printf("nothing to remove at %s\n", svc.UnitPath())
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Printf("removed %s\n", svc.UnitPath())
		return nil
	},
}

func init() {
	uninstallCmd.Flags().BoolVar(&systemScope, "system", false, "remove the system-wide unit instead of the user unit")
	rootCmd.AddCommand(uninstallCmd)
}
