package cli

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"lyra-cli/internal/auth"
	"lyra-cli/internal/store"
)

// passwordFlags lets scripts avoid putting a password on the command line.
type passwordFlags struct {
	password string
	stdin    bool
}

func (p *passwordFlags) register(cmd *cobra.Command, name, usage string) {
	cmd.Flags().StringVar(&p.password, name, "", usage)
	cmd.Flags().BoolVar(&p.stdin, name+"-stdin", false, "Read the password from the first line of stdin")
}

func (p *passwordFlags) value(cmd *cobra.Command) (string, error) {
	if !p.stdin {
		return p.password, nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (app *App) authService(cmd *cobra.Command) (*auth.Service, error) {
	c, err := app.apiClient(cmd.Context())
	if err != nil {
		return nil, err
	}
	return auth.NewService(c, c.Session()), nil
}

// rememberAPI stores the URL a login succeeded against, so later commands
// need no --api.
func (app *App) rememberAPI(cmd *cobra.Command) error {
	c, err := app.apiClient(cmd.Context())
	if err != nil {
		return err
	}
	return app.store().Set(cmd.Context(), store.KeyAPIURL, c.BaseURL())
}

func newLoginCmd(app *App) *cobra.Command {
	var email string
	var pw passwordFlags

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := pw.value(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			svc, err := app.authService(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := svc.Login(cmd.Context(), email, password); err != nil {
				return writeErr(cmd, err)
			}
			if err := app.rememberAPI(cmd); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"logged_in": true, "email": strings.TrimSpace(email)})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	pw.register(cmd, "password", "Account password")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newRegisterCmd(app *App) *cobra.Command {
	var name, email string
	var pw passwordFlags

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := pw.value(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			svc, err := app.authService(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := svc.Register(cmd.Context(), name, email, password); err != nil {
				return writeErr(cmd, err)
			}
			if err := app.rememberAPI(cmd); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"logged_in": true, "email": strings.TrimSpace(email)})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	pw.register(cmd, "password", "Password (8-128 characters, a letter and a number)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.authService(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := svc.Logout(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"logged_in": false})
		},
	}
}

func newForgotPasswordCmd(app *App) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Ask the server to send a password reset code",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.authService(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			msg, err := svc.ForgotPassword(cmd.Context(), email)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"message": msg})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newResetPasswordCmd(app *App) *cobra.Command {
	var email, code string
	var pw passwordFlags

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with a reset code",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := pw.value(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			svc, err := app.authService(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			msg, err := svc.ResetPassword(cmd.Context(), email, code, password)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"message": msg})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&code, "code", "", "6-digit reset code")
	pw.register(cmd, "new-password", "New password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the API URL, state directory and login state",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"api":       c.BaseURL(),
				"dir":       app.Dir,
				"logged_in": c.Session().Authenticated(),
			})
		},
	}
}
