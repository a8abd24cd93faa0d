package cli

import (
	"github.com/spf13/cobra"
)

// addAuthCommands adds authentication commands.
func addAuthCommands(rootCmd *cobra.Command, app *App) {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication management",
		Long:  "Manage the Fyers API session.",
	}

	authCmd.AddCommand(&cobra.Command{
		Use:   "login",
		Short: "Log in to Fyers",
		Long: `Log in to Fyers. With client_id, pin and totp_secret configured the
headless TOTP flow runs; otherwise the interactive auth-code URL is
printed and 'auth complete <auth-code>' finishes the login.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Fyers.Login(cmd.Context()); err != nil {
				return err
			}
			output.Success("Logged in to Fyers")
			return nil
		},
	})

	authCmd.AddCommand(&cobra.Command{
		Use:   "complete <auth-code>",
		Short: "Complete interactive login with an auth code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Fyers.CompleteLogin(cmd.Context(), args[0]); err != nil {
				return err
			}
			output.Success("Logged in to Fyers")
			return nil
		},
	})

	authCmd.AddCommand(&cobra.Command{
		Use:   "url",
		Short: "Print the interactive login URL",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"url": app.Fyers.LoginURL()})
			} else {
				output.Println(app.Fyers.LoginURL())
			}
		},
	})

	authCmd.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "Log out and clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Fyers.Logout(cmd.Context()); err != nil {
				return err
			}
			output.Success("Logged out")
			return nil
		},
	})

	authCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			authenticated := app.Fyers.IsAuthenticated()
			if output.IsJSON() {
				output.JSON(map[string]bool{"authenticated": authenticated})
				return
			}
			if authenticated {
				output.Success("Authenticated")
			} else {
				output.Warning("Not authenticated, run 'fytrader auth login'")
			}
		},
	})

	rootCmd.AddCommand(authCmd)
}
