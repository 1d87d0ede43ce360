package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lyra-cli/internal/store"
)

var themeModes = []string{"auto", "light", "dark"}

func parseThemeMode(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, m := range themeModes {
		if s == m {
			return s, nil
		}
	}
	return "", fmt.Errorf("invalid theme %q (expected %s)", s, strings.Join(themeModes, ", "))
}

func newThemeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theme [auto|light|dark]",
		Short: "Show or set the TUI color theme",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st := app.store()
			if len(args) == 0 {
				v, ok, err := st.Get(ctx, store.KeyTheme)
				if err != nil {
					return writeErr(cmd, err)
				}
				if !ok {
					v = "auto"
				}
				return writeOut(cmd, app, map[string]any{"theme": v})
			}
			mode, err := parseThemeMode(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := st.Set(ctx, store.KeyTheme, mode); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"theme": mode})
		},
	}
	return cmd
}
