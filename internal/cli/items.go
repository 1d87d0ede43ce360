package cli

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lyra-cli/internal/browser"
	"lyra-cli/internal/model"
)

type itemRows []model.Item

func (itemRows) Header() []string {
	return []string{"ID", "TYPE", "TITLE", "CHAPTERS", "WORDS", "UPDATED"}
}

func (r itemRows) Rows() [][]string {
	out := make([][]string, 0, len(r))
	for _, it := range r {
		chapters, words := "", ""
		if it.Doc != nil {
			chapters = strconv.Itoa(it.Doc.ChapterCount)
			words = strconv.Itoa(it.Doc.WordCount)
		}
		out = append(out, []string{
			it.ID, string(it.Kind), it.Title, chapters, words,
			it.UpdatedAt.Local().Format(time.DateTime),
		})
	}
	return out
}

// openBrowser returns a browser positioned in folderID ("" = project root).
func (app *App) openBrowser(ctx context.Context, projectID, folderID string) (*browser.Browser, error) {
	c, err := app.apiClient(ctx)
	if err != nil {
		return nil, err
	}
	b := browser.New(c, projectID, "", app.logger())
	if folderID == "" {
		_, err = b.Refresh(ctx)
		return b, err
	}
	if _, err := b.LoadTree(ctx); err != nil {
		return nil, err
	}
	_, err = b.EnterFolder(ctx, folderID)
	return b, err
}

// parseTarget maps the --to flag to a folder id; "root" and "" mean the
// project root.
func parseTarget(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "root") {
		return nil
	}
	return &s
}

func newItemsCmd(app *App) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "items",
		Short: "Folders and documents of a project",
	}
	cmd.PersistentFlags().StringVar(&projectID, "project", "", "Project id")
	_ = cmd.MarkPersistentFlagRequired("project")

	cmd.AddCommand(newItemsListCmd(app, &projectID))
	cmd.AddCommand(newItemsCreateCmd(app, &projectID))
	cmd.AddCommand(newItemsRenameCmd(app, &projectID))
	cmd.AddCommand(newItemsDeleteCmd(app, &projectID))
	cmd.AddCommand(newItemsMoveCmd(app, &projectID))
	return cmd
}

func newItemsListCmd(app *App, projectID *string) *cobra.Command {
	var parent, query, sortMode string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the items of one folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := browser.ParseSortMode(sortMode)
			if err != nil {
				return writeErr(cmd, err)
			}
			b, err := app.openBrowser(cmd.Context(), *projectID, parent)
			if err != nil {
				return writeErr(cmd, err)
			}
			items := browser.SortItems(browser.Filter(b.Items(), query), mode)
			return writeOut(cmd, app, itemRows(items))
		},
	}

	cmd.Flags().StringVar(&parent, "parent", "", "Folder id (default: project root)")
	cmd.Flags().StringVar(&query, "query", "", "Only items whose title contains this text")
	cmd.Flags().StringVar(&sortMode, "sort", string(browser.SortUpdatedDesc), "updated-desc|title-asc|title-desc")
	return cmd
}

func newItemsCreateCmd(app *App, projectID *string) *cobra.Command {
	var parent, title string
	var folder bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a document (or a folder with --folder)",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := app.openBrowser(cmd.Context(), *projectID, parent)
			if err != nil {
				return writeErr(cmd, err)
			}
			kind := model.ItemDocument
			if folder {
				kind = model.ItemFolder
			}
			it, err := b.Create(cmd.Context(), title, kind)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, it)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Title")
	cmd.Flags().StringVar(&parent, "parent", "", "Folder id (default: project root)")
	cmd.Flags().BoolVar(&folder, "folder", false, "Create a folder instead of a document")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newItemsRenameCmd(app *App, projectID *string) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "rename <item-id>",
		Short: "Rename a folder or document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := app.openBrowser(cmd.Context(), *projectID, "")
			if err != nil {
				return writeErr(cmd, err)
			}
			it, err := b.Rename(cmd.Context(), args[0], title)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, it)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newItemsDeleteCmd(app *App, projectID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <item-id>",
		Short: "Delete an item (a folder takes its contents with it)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := app.openBrowser(cmd.Context(), *projectID, "")
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := b.Delete(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"deleted": args[0]})
		},
	}
}

func newItemsMoveCmd(app *App, projectID *string) *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "move <item-id>",
		Short: "Move an item into a folder (or back to the root)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := app.openBrowser(ctx, *projectID, "")
			if err != nil {
				return writeErr(cmd, err)
			}
			// The whole tree is needed to refuse moves into a descendant.
			if _, err := b.LoadTree(ctx); err != nil {
				return writeErr(cmd, err)
			}
			target := parseTarget(to)
			if err := b.Reparent(ctx, args[0], target); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"moved": args[0], "parent_id": target})
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Target folder id, or \"root\"")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
