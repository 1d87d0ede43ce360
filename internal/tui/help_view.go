package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"lyra-cli/internal/docs"
)

// openHelp shows a docs topic rendered for the current theme.
func (m appModel) openHelp(topic string) appModel {
	md, ok := docs.Get(topic)
	if !ok {
		m.setInfo("No help for " + topic)
		return m
	}
	m.page.SetContent(docs.Render(md, m.width-2, m.style))
	m.page.GotoTop()
	m.back = m.screen
	m.screen = screenHelp
	return m
}

func (m appModel) updateHelp(msg tea.KeyMsg) (appModel, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "?":
		m.screen = m.back
		return m, nil
	}
	var cmd tea.Cmd
	m.page, cmd = m.page.Update(msg)
	return m, cmd
}
