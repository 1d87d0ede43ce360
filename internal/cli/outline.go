package cli

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"lyra-cli/internal/compose"
	"lyra-cli/internal/editor"
	"lyra-cli/internal/model"
)

// docRef is the --project/--document pair shared by outline, chapters and
// scenes.
type docRef struct {
	projectID  string
	documentID string
}

func (d *docRef) register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&d.projectID, "project", "", "Project id")
	cmd.PersistentFlags().StringVar(&d.documentID, "document", "", "Document id")
	_ = cmd.MarkPersistentFlagRequired("project")
	_ = cmd.MarkPersistentFlagRequired("document")
}

// openEditor loads the document outline. CLI writes are immediate, so the
// autosave scheduler is only used through SaveChapter and Flush.
func (app *App) openEditor(ctx context.Context, d docRef) (*editor.Editor, error) {
	c, err := app.apiClient(ctx)
	if err != nil {
		return nil, err
	}
	e := editor.New(c, d.projectID, d.documentID, editor.Options{Logger: app.logger()})
	if _, err := e.Open(ctx); err != nil {
		_ = e.Close(ctx)
		return nil, err
	}
	return e, nil
}

// withEditor runs fn against an open editor and closes it afterwards.
func (app *App) withEditor(cmd *cobra.Command, d docRef, fn func(ctx context.Context, e *editor.Editor) error) error {
	ctx := cmd.Context()
	e, err := app.openEditor(ctx, d)
	if err != nil {
		return writeErr(cmd, err)
	}
	err = fn(ctx, e)
	if cerr := e.Close(ctx); err == nil {
		err = cerr
	}
	if err != nil {
		return writeErr(cmd, err)
	}
	return nil
}

type outlineRows model.DocumentOutline

func (outlineRows) Header() []string { return []string{"CHAPTER", "SCENE", "ID", "TITLE", "WORDS"} }

func (o outlineRows) Rows() [][]string {
	var out [][]string
	for ci, ch := range o.Chapters {
		out = append(out, []string{strconv.Itoa(ci + 1), "", ch.ID, ch.Title, strconv.Itoa(ch.Wordcount)})
		for si, sc := range compose.Ordered(ch.Scenes) {
			out = append(out, []string{"", strconv.Itoa(si + 1), sc.ID, sc.Title, strconv.Itoa(sc.Wordcount)})
		}
	}
	return out
}

func newOutlineCmd(app *App) *cobra.Command {
	var ref docRef

	cmd := &cobra.Command{
		Use:   "outline",
		Short: "Document outline commands",
	}
	ref.register(cmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show a document's chapters and scenes with word counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withEditor(cmd, ref, func(ctx context.Context, e *editor.Editor) error {
				o, _ := e.Outline()
				if app.Format == "table" {
					return writeOut(cmd, app, outlineRows(o))
				}
				return writeOut(cmd, app, o)
			})
		},
	})
	return cmd
}
