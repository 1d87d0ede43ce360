package tui

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"lyra-cli/internal/model"
)

// projectItem and itemRow adapt the domain types to list.Item.
type projectItem struct{ p model.Project }

func (i projectItem) FilterValue() string { return i.p.Name }

func (i projectItem) Title() string {
	if i.p.Pinned {
		return "★ " + i.p.Name
	}
	return "  " + i.p.Name
}

func (i projectItem) Meta() string { return i.p.UpdatedAt.Local().Format("2006-01-02 15:04") }

type itemRow struct {
	it model.Item
	// moving marks the item currently picked up for a move.
	moving bool
}

func (i itemRow) FilterValue() string { return i.it.Title }

func (i itemRow) Title() string {
	icon := "▤ "
	if i.it.IsFolder() {
		icon = "▸ "
	}
	t := icon + i.it.Title
	if i.moving {
		t += "  (moving)"
	}
	return t
}

func (i itemRow) Meta() string {
	if i.it.Doc == nil {
		return "folder"
	}
	return strconv.Itoa(i.it.Doc.ChapterCount) + " ch · " + strconv.Itoa(i.it.Doc.WordCount) + " words"
}

// compactDelegate renders one line per entry: title on the left, metadata
// right-aligned.
type compactDelegate struct {
	normal   lipgloss.Style
	selected lipgloss.Style
	meta     lipgloss.Style
}

func newCompactDelegate() compactDelegate {
	return compactDelegate{
		normal:   lipgloss.NewStyle().Foreground(colorSurfaceFg),
		selected: styleSelected(),
		meta:     styleMuted(),
	}
}

func (d compactDelegate) Height() int                             { return 1 }
func (d compactDelegate) Spacing() int                            { return 0 }
func (d compactDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d compactDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	width := m.Width()
	if width < 4 {
		return
	}

	title := fmt.Sprint(item)
	if t, ok := item.(interface{ Title() string }); ok {
		title = t.Title()
	}
	meta := ""
	if mt, ok := item.(interface{ Meta() string }); ok {
		meta = mt.Meta()
	}

	metaW := xansi.StringWidth(meta)
	titleW := width - metaW - 2
	if metaW == 0 || titleW < 10 {
		titleW, meta, metaW = width, "", 0
	}
	padded := fitLine(title, titleW)
	if index == m.Index() {
		line := padded
		if metaW > 0 {
			line += "  " + meta
		}
		fmt.Fprint(w, d.selected.Render(line))
		return
	}
	if metaW > 0 {
		fmt.Fprint(w, d.normal.Render(padded)+"  "+d.meta.Render(meta))
		return
	}
	fmt.Fprint(w, d.normal.Render(padded))
}

func newList(items []list.Item) list.Model {
	l := list.New(items, newCompactDelegate(), 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.DisableQuitKeybindings()
	return l
}
