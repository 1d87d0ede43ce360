package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"lyra-cli/internal/devserver"
)

func newDevserverCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run an in-memory Lyra API for local testing",
		Long: `Serves the Lyra REST API from memory until interrupted. Nothing is
persisted. Password reset codes are printed to stderr since no mail is sent.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = app.cfg.DevAddr
			}
			srv, err := devserver.New(devserver.Config{
				Addr:      addr,
				JWTSecret: app.cfg.DevJWTSecret,
				OnResetCode: func(email, code string) {
					fmt.Fprintf(cmd.ErrOrStderr(), "reset code for %s: %s\n", email, code)
				},
			}, app.logger())
			if err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Lyra dev server on http://%s (ctrl+c to stop)\n", addr)
			if err := srv.Run(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default LYRA_DEV_ADDR or "+devserver.DefaultAddr+")")
	return cmd
}
