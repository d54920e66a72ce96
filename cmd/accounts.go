/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// accountsCmd groups the account administration commands.
var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage accounts in the record store",
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists every account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tROLES\tSTATE\tREGISTERED")
		for account, err := range app.Accounts.All(cmd.Context()) {
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", account.ID, account.Name, account.Roles, account.State, account.RegisteredAt)
		}
		return w.Flush()
	},
}

var accountsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Prints one account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		account, err := app.Accounts.Fetch(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "id:            %s\n", account.ID)
		fmt.Fprintf(out, "name:          %s\n", account.Name)
		fmt.Fprintf(out, "roles:         %s\n", account.Roles)
		fmt.Fprintf(out, "state:         %s\n", account.State)
		fmt.Fprintf(out, "uuid:          %s\n", account.UUID)
		fmt.Fprintf(out, "registered_at: %s\n", account.RegisteredAt)
		for key, value := range account.Fields {
			fmt.Fprintf(out, "%s: %v\n", key, value)
		}
		return nil
	},
}

var accountsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Deletes an account profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		deleted, err := app.Accounts.Delete(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("account %s not found", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

var accountsResetCmd = &cobra.Command{
	Use:   "reset-password <id>",
	Short: "Starts a password reset and prints the reset link",
	Long: `Starts a password reset for an account. The reset email is sent as
usual and the link is printed, so an operator can pass it on when mail
delivery is not configured.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		raw, err := app.Reset.RequestReset(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		link, err := app.Reset.ResetLink(cmd.Context(), args[0], raw)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), link)
		return nil
	},
}

func init() {
	accountsCmd.AddCommand(accountsListCmd, accountsShowCmd, accountsDeleteCmd, accountsResetCmd)
	rootCmd.AddCommand(accountsCmd)
}
