package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lyra-cli/internal/model"
	"lyra-cli/internal/projects"
)

type projectRows []model.Project

func (projectRows) Header() []string { return []string{"ID", "NAME", "PINNED", "UPDATED"} }

func (r projectRows) Rows() [][]string {
	out := make([][]string, 0, len(r))
	for _, p := range r {
		pinned := ""
		if p.Pinned {
			pinned = "*"
		}
		out = append(out, []string{p.ID, p.Name, pinned, p.UpdatedAt.Local().Format(time.DateTime)})
	}
	return out
}

func (app *App) projectManager(cmd *cobra.Command) (*projects.Manager, error) {
	c, err := app.apiClient(cmd.Context())
	if err != nil {
		return nil, err
	}
	return projects.NewManager(c, app.logger()), nil
}

func newProjectsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Project commands",
	}
	cmd.AddCommand(newProjectsListCmd(app))
	cmd.AddCommand(newProjectsShowCmd(app))
	cmd.AddCommand(newProjectsCreateCmd(app))
	cmd.AddCommand(newProjectsRenameCmd(app))
	cmd.AddCommand(newProjectsDeleteCmd(app))
	cmd.AddCommand(newProjectsPinCmd(app, true))
	cmd.AddCommand(newProjectsPinCmd(app, false))
	return cmd
}

func newProjectsListCmd(app *App) *cobra.Command {
	var query, sortMode string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects (pinned first)",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := projects.ParseSortMode(sortMode)
			if err != nil {
				return writeErr(cmd, err)
			}
			m, err := app.projectManager(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if _, err := m.Refresh(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, projectRows(m.Visible(query, mode)))
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "Only projects whose name contains this text")
	cmd.Flags().StringVar(&sortMode, "sort", string(projects.SortUpdatedDesc), "updated-desc|name-asc|name-desc")
	return cmd
}

func newProjectsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show one project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.apiClient(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := c.GetProject(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, p)
		},
	}
}

func newProjectsCreateCmd(app *App) *cobra.Command {
	var name, cover string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := app.projectManager(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := m.Create(cmd.Context(), name, model.StrPtr(strings.TrimSpace(cover)))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, p)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Project name")
	cmd.Flags().StringVar(&cover, "cover", "", "Cover image URL")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newProjectsRenameCmd(app *App) *cobra.Command {
	var name, cover string

	cmd := &cobra.Command{
		Use:   "rename <project-id>",
		Short: "Rename a project (and optionally change its cover)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := app.projectManager(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			var coverURL *string
			if cmd.Flags().Changed("cover") {
				coverURL = &cover
			}
			p, err := m.Rename(cmd.Context(), args[0], name, coverURL)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, p)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&cover, "cover", "", "New cover image URL (empty clears it)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newProjectsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project and everything in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := app.projectManager(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := m.Delete(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"deleted": args[0]})
		},
	}
}

func newProjectsPinCmd(app *App, pin bool) *cobra.Command {
	use, short := "pin <project-id>", "Pin a project (at most 3)"
	if !pin {
		use, short = "unpin <project-id>", "Unpin a project"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := app.projectManager(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := m.SetPinned(cmd.Context(), args[0], pin)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, p)
		},
	}
}
