package cmd

import (
	"copier/internal/config"
	"copier/internal/db"
	"copier/internal/logger"
	"copier/internal/repository"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfg     *config.Config
	debug   bool
	verbose int
)

var rootCmd = &cobra.Command{
	Use:           "copier",
	Short:         "Mirror configured files to a target location whenever they change",
	Version:       versionString(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
			return nil
		}

		logger.Init(debug || verbose > 0)

		var err error
		cfg, err = config.Load(viper.GetString("config"))
		return err
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func daemonURL(path string) (string, error) {
	if cfg.StatusAddr == "" {
		return "", errors.New("status server is disabled (status_addr is empty)")
	}
	return fmt.Sprintf("http://%s%s", cfg.StatusAddr, path), nil
}

// openHistory opens the action history when db_path is set.
func openHistory() (*repository.HistoryRepository, error) {
	if cfg.DBPath == "" {
		return nil, nil
	}

	if err := db.Init(cfg.DBPath); err != nil {
		return nil, err
	}

	return repository.NewHistoryRepository(), nil
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", config.DefaultPath, "path to configuration file (env "+config.EnvPrefix+"_CONFIG)")
	flags.BoolVar(&debug, "debug", false, "Enable debug mode")
	flags.CountVarP(&verbose, "verbose", "v", "enable debug logging")
	rootCmd.Flags().BoolP("version", "V", false, "print version information")

	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindEnv("config", config.EnvPrefix+"_CONFIG")
}
