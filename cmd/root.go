/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"

	"github.com/flatcms/accounts/config"
	"github.com/flatcms/accounts/internal/logging"
	"github.com/flatcms/accounts/internal/server"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Accounts service for a flat-file CMS",
	Long: `Accounts service for a flat-file CMS. It registers the first
administrator, logs users in and out and resets forgotten passwords.
Accounts, settings and tokens live as YAML documents in the site's
record store.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
		logging.Init(cfg.Log.Level, cfg.Log.Format)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); environment variables take precedence")
}

// openApp wires the services against the configured record store.
func openApp(ctx context.Context) (*server.App, error) {
	return server.NewApp(ctx, cfg, logging.Logger)
}
