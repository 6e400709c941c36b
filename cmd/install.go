package cmd

import (
	"copier/internal/autostart"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var systemScope bool

func autostartService() (*autostart.Service, error) {
	scope := autostart.UserScope
	if systemScope {
		scope = autostart.SystemScope
	}
	return autostart.New(scope)
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Start the watcher on boot as a systemd service",
	RunE: func(cmd *cobra.Command, args []string) error {
		execPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}

		configPath, err := filepath.Abs(cfg.Path)
		if err != nil {
			return fmt.Errorf("failed to resolve config path: %w", err)
		}

		svc, err := autostartService()
		if err != nil {
			return err
		}

		if err := svc.Install(execPath, configPath); err != nil {
			return err
		}

		fmt.Printf("installed %s\n", svc.UnitPath())
		return nil
	},
}

func init() {
	installCmd.Flags().BoolVar(&systemScope, "system", false, "install a system-wide unit instead of a user unit")
	rootCmd.AddCommand(installCmd)
}
