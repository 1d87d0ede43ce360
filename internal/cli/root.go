package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lyra-cli/internal/api"
	"lyra-cli/internal/config"
	"lyra-cli/internal/format"
	"lyra-cli/internal/logging"
	"lyra-cli/internal/session"
	"lyra-cli/internal/store"
	"lyra-cli/internal/tui"
)

type App struct {
	Dir        string
	APIURL     string
	PrettyJSON bool
	Format     string
	LogLevel   string

	cfg    config.Config
	log    *zap.Logger
	sess   *session.Session
	client *api.Client
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "lyra",
		Short:        "Lyra writing client (CLI + TUI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  lyra

  # Log in and list projects
  lyra login --email you@example.com --password-stdin
  lyra projects list --format table

  # Try everything against a throwaway local server
  lyra devserver
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.setup(cmd)
	}
	cmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if app.log != nil {
			_ = app.log.Sync()
		}
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", envOr("LYRA_DIR", ""), "Local state directory (default ~/.lyra)")
	cmd.PersistentFlags().StringVar(&app.APIURL, "api", envOr("LYRA_API_URL", ""), "Lyra API base URL (default: last login, else "+api.DefaultBaseURL+")")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("LYRA_FORMAT", "json"), "Output format (json|table)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("LYRA_LOG_LEVEL", ""), "Log level (debug|info|warn|error)")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newRegisterCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newForgotPasswordCmd(app))
	cmd.AddCommand(newResetPasswordCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newProjectsCmd(app))
	cmd.AddCommand(newItemsCmd(app))
	cmd.AddCommand(newOutlineCmd(app))
	cmd.AddCommand(newChaptersCmd(app))
	cmd.AddCommand(newScenesCmd(app))
	cmd.AddCommand(newThemeCmd(app))
	cmd.AddCommand(newDocsCmd(app))
	cmd.AddCommand(newDevserverCmd(app))

	return cmd
}

// setup resolves configuration once per invocation. Flags win over LYRA_*
// variables, which win over .env.
func (app *App) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return writeErr(cmd, err)
	}
	app.cfg = cfg

	if app.Dir == "" {
		app.Dir = cfg.Dir
	}
	if app.Dir == "" {
		d, err := store.DefaultDir()
		if err != nil {
			return writeErr(cmd, err)
		}
		app.Dir = d
	}
	if app.APIURL == "" {
		app.APIURL = cfg.APIURL
	}
	if app.LogLevel == "" {
		app.LogLevel = cfg.LogLevel
	}

	// The TUI owns the terminal, so it logs to a file.
	out := cfg.LogFile
	if out == "" && cmd.Root() == cmd {
		if err := (store.Store{Dir: app.Dir}).Ensure(); err != nil {
			return writeErr(cmd, err)
		}
		out = filepath.Join(app.Dir, "lyra.log")
	}
	log, err := logging.New(logging.Config{Level: app.LogLevel, Encoding: cfg.LogEncoding, OutputPath: out})
	if err != nil {
		return writeErr(cmd, err)
	}
	app.log = log
	return nil
}

func (app *App) store() store.Store { return store.Store{Dir: app.Dir} }

func (app *App) session(ctx context.Context) (*session.Session, error) {
	if app.sess != nil {
		return app.sess, nil
	}
	s, err := session.New(ctx, app.store())
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	app.sess = s
	return s, nil
}

// baseURL is --api, else LYRA_API_URL, else the URL of the last login.
func (app *App) baseURL(ctx context.Context) string {
	if app.APIURL != "" {
		return app.APIURL
	}
	if v, ok, err := app.store().Get(ctx, store.KeyAPIURL); err == nil && ok {
		return v
	}
	return api.DefaultBaseURL
}

func (app *App) apiClient(ctx context.Context) (*api.Client, error) {
	if app.client != nil {
		return app.client, nil
	}
	sess, err := app.session(ctx)
	if err != nil {
		return nil, err
	}
	app.client = api.NewClient(app.baseURL(ctx), sess,
		api.WithTimeout(app.cfg.HTTPTimeout),
		api.WithLogger(app.logger()))
	return app.client, nil
}

func (app *App) logger() *zap.Logger {
	if app.log == nil {
		return zap.NewNop()
	}
	return app.log
}

func runTUI(cmd *cobra.Command, app *App) error {
	ctx := cmd.Context()
	c, err := app.apiClient(ctx)
	if err != nil {
		return writeErr(cmd, err)
	}
	theme, _, err := app.store().Get(ctx, store.KeyTheme)
	if err != nil {
		return writeErr(cmd, err)
	}
	return tui.Run(ctx, tui.Options{
		Client:        c,
		Store:         app.store(),
		Theme:         theme,
		AutosaveDelay: app.cfg.AutosaveDelay,
		AutosaveRetry: app.cfg.AutosaveRetry,
		Logger:        app.logger(),
	})
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, data any) error {
	return format.Write(cmd.OutOrStdout(), format.Envelope{Data: data}, app.Format, app.PrettyJSON)
}

// writeErr prints the user-facing text of err and returns err so cobra exits
// non-zero.
func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), api.Message(err, "Could not reach the Lyra server"))
	return err
}
