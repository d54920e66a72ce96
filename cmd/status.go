/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/flatcms/accounts/internal/store"
	"github.com/flatcms/accounts/types"
	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Prints the bootstrap state of the site",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		open, err := app.Bootstrap.CanRegister(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "storage:            %s\n", app.Storage.Backend())
		fmt.Fprintf(out, "registration open:  %t\n", open)
		for _, scope := range types.DefaultScopes {
			token, err := app.Settings.GetString(ctx, store.DefaultTokenKey(string(scope)))
			if err != nil {
				return err
			}
			if token == "" {
				token = "-"
			}
			fmt.Fprintf(out, "%-19s %s\n", string(scope)+" token:", token)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
