package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"lyra-cli/internal/editor"
)

// readContent reads --file, or stdin when the flag is empty or "-".
func readContent(cmd *cobra.Command, file string) (string, error) {
	if file == "" || file == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), err
	}
	b, err := os.ReadFile(file)
	return string(b), err
}

func newChaptersCmd(app *App) *cobra.Command {
	var ref docRef

	cmd := &cobra.Command{
		Use:   "chapters",
		Short: "Chapter commands",
	}
	ref.register(cmd)

	cmd.AddCommand(newChaptersCreateCmd(app, &ref))
	cmd.AddCommand(newChaptersRenameCmd(app, &ref))
	cmd.AddCommand(newChaptersDeleteCmd(app, &ref))
	cmd.AddCommand(newChaptersShowCmd(app, &ref))
	cmd.AddCommand(newChaptersWriteCmd(app, &ref))
	return cmd
}

func newChaptersCreateCmd(app *App, ref *docRef) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Append a chapter to the document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withEditor(cmd, *ref, func(ctx context.Context, e *editor.Editor) error {
				ch, err := e.AddChapter(ctx, title)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, ch)
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Title (default \""+editor.DefaultChapterTitle+"\")")
	return cmd
}

func newChaptersRenameCmd(app *App, ref *docRef) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "rename <chapter-id>",
		Short: "Rename a chapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withEditor(cmd, *ref, func(ctx context.Context, e *editor.Editor) error {
				if err := e.RenameChapter(ctx, args[0], title); err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"renamed": args[0]})
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newChaptersDeleteCmd(app *App, ref *docRef) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <chapter-id>",
		Short: "Delete a chapter and its scenes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withEditor(cmd, *ref, func(ctx context.Context, e *editor.Editor) error {
				if err := e.DeleteChapter(ctx, args[0]); err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"deleted": args[0]})
			})
		},
	}
}

func newChaptersShowCmd(app *App, ref *docRef) *cobra.Command {
	return &cobra.Command{
		Use:   "show <chapter-id>",
		Short: "Print a chapter's scenes composed into one buffer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withEditor(cmd, *ref, func(ctx context.Context, e *editor.Editor) error {
				if err := e.SelectChapter(ctx, args[0]); err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{
					"chapter_id": args[0],
					"content":    e.Buffer(),
					"wordcount":  e.ServerWordCount(),
				})
			})
		},
	}
}

func newChaptersWriteCmd(app *App, ref *docRef) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "write <chapter-id>",
		Short: "Save a composed chapter buffer back to its scenes",
		Long: `Reads chapter HTML from --file (or stdin) and splits it at separator
paragraphs (a paragraph holding only "***"). Segment N is written to the
N-th scene. Scenes without a segment are cleared; segments without a scene
are reported under "dropped" and not saved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			html, err := readContent(cmd, file)
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.withEditor(cmd, *ref, func(ctx context.Context, e *editor.Editor) error {
				dropped, err := e.SaveChapter(ctx, args[0], html)
				if err != nil {
					return err
				}
				o, _ := e.Outline()
				words := 0
				if ch, ok := o.FindChapter(args[0]); ok {
					words = ch.Wordcount
				}
				if dropped == nil {
					dropped = []string{}
				}
				return writeOut(cmd, app, map[string]any{
					"chapter_id": args[0],
					"wordcount":  words,
					"dropped":    dropped,
				})
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "HTML file to read (default stdin)")
	return cmd
}
