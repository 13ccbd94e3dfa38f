package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/xeonx/timeago"

	"github.com/tickora-io/tickora/internal/version"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and remember the session",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.api.Auth.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	RunE:  runWhoami,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if versionJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(version.Current())
		}
		fmt.Fprintf(cmd.OutOrStdout(), "tickora %s\n", version.Full())
		return nil
	},
}

var (
	usernameFlag string
	passwordFlag string
	versionJSON  bool
)

func init() {
	loginCmd.Flags().StringVar(&usernameFlag, "username", "", "Username (required)")
	loginCmd.Flags().StringVar(&passwordFlag, "password", "", "Password (required)")
	loginCmd.MarkFlagRequired("username")
	loginCmd.MarkFlagRequired("password")
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Print build details as JSON")

	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, versionCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	user, err := current.api.Auth.Login(cmd.Context(), usernameFlag, passwordFlag)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", user.Username, user.Role)
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	if err := requireLogin(); err != nil {
		return err
	}
	user, err := current.api.Auth.Profile(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)\n", user.Username, user.Role)
	if name := fullName(user.FirstName, user.LastName); name != "" {
		fmt.Fprintf(out, "Name:    %s\n", name)
	}
	if user.Email != "" {
		fmt.Fprintf(out, "Email:   %s\n", user.Email)
	}
	if exp := current.session.ExpiresAt(); !exp.IsZero() {
		fmt.Fprintf(out, "Token:   expires %s\n", relative(exp))
	}
	fmt.Fprintf(out, "Server:  %s\n", current.api.BaseURL())
	return nil
}

func fullName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}

// relative renders t against now, e.g. "3 minutes ago" or "in 55 minutes".
func relative(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return timeago.English.Format(t)
}
