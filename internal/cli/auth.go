package cli

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func addAuthCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newLoginCmd(app))
	rootCmd.AddCommand(newLogoutCmd(app))
	rootCmd.AddCommand(newStatusCmd(app))
}

func newLoginCmd(app *App) *cobra.Command {
	var (
		requestToken string
		noBrowser    bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with Zerodha Kite",
		Long: `Start a Kite Connect session. The login page is opened in a browser;
after signing in, paste the request_token from the redirect URL.
The session stays valid until 06:00 IST the next day.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			b, err := app.requireBroker()
			if err != nil {
				return err
			}

			if requestToken == "" {
				loginURL := b.LoginURL()
				output.Info("Open this URL to log in:")
				output.Println(loginURL)
				if !noBrowser {
					if err := openURL(loginURL); err != nil {
						app.Logger.Debug().Err(err).Msg("Could not open browser")
					}
				}
				output.Println()
				output.Printf("Request token: ")

				reader := bufio.NewReader(cmd.InOrStdin())
				line, err := reader.ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read request token: %w", err)
				}
				requestToken = extractRequestToken(line)
			}
			if requestToken == "" {
				return fmt.Errorf("no request token given")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			if err := b.CompleteLogin(ctx, requestToken); err != nil {
				return err
			}
			name, err := b.VerifySession(ctx)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"success":   true,
					"user":      name,
					"timestamp": time.Now().Format(time.RFC3339),
				})
			}
			output.Success("✓ Logged in as %s", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&requestToken, "token", "", "request token (skips the prompt)")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "do not try to open a browser")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the Kite session",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			b, err := app.requireBroker()
			if err != nil {
				return err
			}

			if err := b.Logout(cmd.Context()); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"success":   true,
					"message":   "Logged out successfully",
					"timestamp": time.Now().Format(time.RFC3339),
				})
			}
			output.Success("✓ Logged out successfully")
			return nil
		},
	}
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show broker session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			status := map[string]interface{}{
				"credentials":   app.Broker != nil,
				"authenticated": false,
			}

			if app.Broker != nil && app.Broker.IsAuthenticated() {
				ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
				defer cancel()
				name, err := app.Broker.VerifySession(ctx)
				if err != nil {
					status["error"] = err.Error()
				} else {
					status["authenticated"] = true
					status["user"] = name
				}
			}

			if output.IsJSON() {
				return output.JSON(status)
			}

			switch {
			case app.Broker == nil:
				output.Warning("Kite credentials not configured")
			case status["authenticated"] == true:
				output.Success("✓ Logged in as %s", status["user"])
			case status["error"] != nil:
				output.Warning("Session rejected: %s", status["error"])
				output.Dim("Run 'riskdesk login' to start a new session")
			default:
				output.Warning("Not logged in")
				output.Dim("Run 'riskdesk login' to start a session")
			}
			return nil
		},
	}
}

// extractRequestToken accepts either a bare token or the full redirect URL.
func extractRequestToken(input string) string {
	input = strings.TrimSpace(input)
	const key = "request_token="
	if i := strings.Index(input, key); i >= 0 {
		token := input[i+len(key):]
		if j := strings.IndexAny(token, "&#"); j >= 0 {
			token = token[:j]
		}
		return token
	}
	return input
}

func openURL(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
