package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type confirmFocus int

const (
	confirmFocusConfirm confirmFocus = iota
	confirmFocusCancel
)

// modalState is the one modal that can be open at a time: a single-line
// input or a yes/no confirmation. targetID/chapterID say what it acts on.
type modalState struct {
	kind      modalKind
	act       action
	title     string
	body      string
	targetID  string
	chapterID string
	input     textinput.Model
	focus     confirmFocus
}

func newInputModal(act action, title, value, placeholder string) (modalState, tea.Cmd) {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 200
	ti.Placeholder = placeholder
	ti.SetValue(value)
	ti.CursorEnd()
	cmd := ti.Focus()
	return modalState{kind: modalInput, act: act, title: title, input: ti}, cmd
}

func newConfirmModal(act action, title, body string) modalState {
	return modalState{kind: modalConfirm, act: act, title: title, body: body, focus: confirmFocusCancel}
}

// modalResult is what a key press did to a modal.
type modalResult int

const (
	modalOpen modalResult = iota
	modalSubmitted
	modalCancelled
)

func (s modalState) update(msg tea.KeyMsg) (modalState, modalResult, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+g":
		return s, modalCancelled, nil
	}
	if s.kind == modalConfirm {
		switch msg.String() {
		case "tab", "shift+tab", "left", "right", "h", "l":
			if s.focus == confirmFocusConfirm {
				s.focus = confirmFocusCancel
			} else {
				s.focus = confirmFocusConfirm
			}
		case "y":
			return s, modalSubmitted, nil
		case "n":
			return s, modalCancelled, nil
		case "enter":
			if s.focus == confirmFocusConfirm {
				return s, modalSubmitted, nil
			}
			return s, modalCancelled, nil
		}
		return s, modalOpen, nil
	}
	if msg.String() == "enter" {
		return s, modalSubmitted, nil
	}
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, modalOpen, cmd
}

func (s modalState) value() string { return strings.TrimSpace(s.input.Value()) }

func (s modalState) view(width int) string {
	bodyW := modalBodyWidth(width)
	if s.kind == modalInput {
		s.input.Width = bodyW - 3
		help := styleMuted().Width(bodyW).Render("enter: save   esc: cancel")
		return renderModalBox(width, s.title, renderInputLine(bodyW, s.input.View())+"\n\n"+help)
	}
	return renderConfirmModal(width, s.title, s.body, "Delete", "Cancel", s.focus)
}

func renderConfirmModal(width int, title, body, confirmLabel, cancelLabel string, focus confirmFocus) string {
	// No borders on the buttons: nested borders inside a colored modal leave
	// artifacts on some terminals.
	btnBase := lipgloss.NewStyle().
		Padding(0, 1).
		Foreground(colorSurfaceFg).
		Background(colorControlBg)
	btnActive := btnBase.
		Foreground(colorSelectedFg).
		Background(colorSelectedBg).
		Bold(true)

	confirm := btnBase.Render(confirmLabel)
	cancel := btnBase.Render(cancelLabel)
	if focus == confirmFocusConfirm {
		confirm = btnActive.Render(confirmLabel)
	} else {
		cancel = btnActive.Render(cancelLabel)
	}
	controls := lipgloss.JoinHorizontal(lipgloss.Top, confirm, " ", cancel)

	bodyW := modalBodyWidth(width)
	help := styleMuted().Width(bodyW).Render("tab: focus   enter: select   y/n   esc: cancel")
	content := strings.Join([]string{
		lipgloss.NewStyle().Width(bodyW).Render(body),
		"",
		controls,
		"",
		help,
	}, "\n")
	return renderModalBox(width, title, content)
}
