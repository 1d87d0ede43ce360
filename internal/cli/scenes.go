package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"lyra-cli/internal/editor"
)

type sceneRef struct {
	docRef
	chapterID string
}

func newScenesCmd(app *App) *cobra.Command {
	var ref sceneRef

	cmd := &cobra.Command{
		Use:   "scenes",
		Short: "Scene commands",
	}
	ref.register(cmd)
	cmd.PersistentFlags().StringVar(&ref.chapterID, "chapter", "", "Chapter id")
	_ = cmd.MarkPersistentFlagRequired("chapter")

	cmd.AddCommand(newScenesCreateCmd(app, &ref))
	cmd.AddCommand(newScenesRenameCmd(app, &ref))
	cmd.AddCommand(newScenesDeleteCmd(app, &ref))
	cmd.AddCommand(newScenesShowCmd(app, &ref))
	cmd.AddCommand(newScenesWriteCmd(app, &ref))
	cmd.AddCommand(newScenesReorderCmd(app, &ref))
	return cmd
}

func newScenesCreateCmd(app *App, ref *sceneRef) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Append a scene to the chapter",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withEditor(cmd, ref.docRef, func(ctx context.Context, e *editor.Editor) error {
				sc, err := e.AddScene(ctx, ref.chapterID, title)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, sc)
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Title (default \""+editor.DefaultSceneTitle+"\")")
	return cmd
}

func newScenesRenameCmd(app *App, ref *sceneRef) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "rename <scene-id>",
		Short: "Rename a scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withEditor(cmd, ref.docRef, func(ctx context.Context, e *editor.Editor) error {
				if err := e.RenameScene(ctx, ref.chapterID, args[0], title); err != nil {
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

func newScenesDeleteCmd(app *App, ref *sceneRef) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <scene-id>",
		Short: "Delete a scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withEditor(cmd, ref.docRef, func(ctx context.Context, e *editor.Editor) error {
				if err := e.DeleteScene(ctx, ref.chapterID, args[0]); err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"deleted": args[0]})
			})
		},
	}
}

func newScenesShowCmd(app *App, ref *sceneRef) *cobra.Command {
	return &cobra.Command{
		Use:   "show <scene-id>",
		Short: "Print a scene's content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withEditor(cmd, ref.docRef, func(ctx context.Context, e *editor.Editor) error {
				if err := e.SelectScene(ctx, ref.chapterID, args[0]); err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{
					"scene_id":  args[0],
					"content":   e.Buffer(),
					"wordcount": e.ServerWordCount(),
				})
			})
		},
	}
}

func newScenesWriteCmd(app *App, ref *sceneRef) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "write <scene-id>",
		Short: "Replace a scene's content with HTML from --file or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			html, err := readContent(cmd, file)
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.withEditor(cmd, ref.docRef, func(ctx context.Context, e *editor.Editor) error {
				if err := e.SelectScene(ctx, ref.chapterID, args[0]); err != nil {
					return err
				}
				if err := e.Edit(html); err != nil {
					return err
				}
				if err := e.Flush(ctx); err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{
					"scene_id":  args[0],
					"wordcount": e.ServerWordCount(),
				})
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "HTML file to read (default stdin)")
	return cmd
}

func newScenesReorderCmd(app *App, ref *sceneRef) *cobra.Command {
	var order []string
	var move, over string

	cmd := &cobra.Command{
		Use:   "reorder",
		Short: "Reorder the chapter's scenes",
		Example: strings.TrimSpace(`
  # Full order
  lyra scenes reorder --project P --document D --chapter C --order s2,s1,s3

  # Drop one scene onto another's position
  lyra scenes reorder --project P --document D --chapter C --move s3 --over s1
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(order) == 0) == (move == "") {
				return writeErr(cmd, errors.New("use either --order or --move with --over"))
			}
			if move != "" && over == "" {
				return writeErr(cmd, errors.New("--move needs --over"))
			}
			return app.withEditor(cmd, ref.docRef, func(ctx context.Context, e *editor.Editor) error {
				changed := true
				if len(order) > 0 {
					if err := e.SubmitOrder(ctx, ref.chapterID, order); err != nil {
						return err
					}
				} else {
					var err error
					if changed, err = e.ReorderScenes(ctx, ref.chapterID, move, over); err != nil {
						return err
					}
				}
				ids, _ := e.SceneOrder(ref.chapterID)
				return writeOut(cmd, app, map[string]any{"changed": changed, "order": ids})
			})
		},
	}

	cmd.Flags().StringSliceVar(&order, "order", nil, "Every scene id of the chapter, comma separated, in the new order")
	cmd.Flags().StringVar(&move, "move", "", "Scene to move")
	cmd.Flags().StringVar(&over, "over", "", "Scene whose position it takes")
	return cmd
}
