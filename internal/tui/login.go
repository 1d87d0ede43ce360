package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lyra-cli/internal/auth"
)

const (
	fieldName = iota
	fieldEmail
	fieldPassword
)

type loginForm struct {
	register bool
	fields   [3]textinput.Model
	focus    int
	busy     bool
}

func newLoginForm() loginForm {
	var f loginForm
	for i := range f.fields {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 128
		f.fields[i] = ti
	}
	f.fields[fieldName].Placeholder = "Your name"
	f.fields[fieldEmail].Placeholder = "you@example.com"
	f.fields[fieldPassword].Placeholder = "password"
	f.fields[fieldPassword].EchoMode = textinput.EchoPassword
	f.fields[fieldPassword].EchoCharacter = '•'
	f.focus = fieldEmail
	f.fields[fieldEmail].Focus()
	return f
}

// order lists the visible fields top to bottom.
func (f loginForm) order() []int {
	if f.register {
		return []int{fieldName, fieldEmail, fieldPassword}
	}
	return []int{fieldEmail, fieldPassword}
}

func (f *loginForm) setFocus(field int) tea.Cmd {
	for i := range f.fields {
		f.fields[i].Blur()
	}
	f.focus = field
	return f.fields[field].Focus()
}

func (f *loginForm) cycle(back bool) tea.Cmd {
	order := f.order()
	pos := 0
	for i, fi := range order {
		if fi == f.focus {
			pos = i
		}
	}
	if back {
		pos = (pos + len(order) - 1) % len(order)
	} else {
		pos = (pos + 1) % len(order)
	}
	return f.setFocus(order[pos])
}

func (f loginForm) value(field int) string { return f.fields[field].Value() }

func (m appModel) updateLogin(msg tea.KeyMsg) (appModel, tea.Cmd) {
	k := m.keys.login
	if m.login.busy {
		return m, nil
	}
	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit
	case key.Matches(msg, k.Register):
		m.login.register = !m.login.register
		m.clearStatus()
		if m.login.register {
			return m, m.login.setFocus(fieldName)
		}
		return m, m.login.setFocus(fieldEmail)
	case key.Matches(msg, k.Next):
		back := msg.String() == "shift+tab" || msg.String() == "up"
		return m, m.login.cycle(back)
	case key.Matches(msg, k.Submit):
		order := m.login.order()
		// Enter on a field other than the last moves on.
		if m.login.focus != order[len(order)-1] {
			return m, m.login.cycle(false)
		}
		m.login.busy = true
		m.setInfo("Signing in…")
		return m, m.submitLogin()
	}
	var cmd tea.Cmd
	m.login.fields[m.login.focus], cmd = m.login.fields[m.login.focus].Update(msg)
	return m, cmd
}

func (m appModel) submitLogin() tea.Cmd {
	ctx := m.ctx
	svc := auth.NewService(m.opts.Client, m.opts.Client.Session())
	register := m.login.register
	name := m.login.value(fieldName)
	email := m.login.value(fieldEmail)
	password := m.login.value(fieldPassword)
	return func() tea.Msg {
		if register {
			return authDoneMsg{err: svc.Register(ctx, name, email, password)}
		}
		return authDoneMsg{err: svc.Login(ctx, email, password)}
	}
}

func (m appModel) viewLogin() string {
	title := "Log in to Lyra"
	hint := "ctrl+r: create an account instead"
	if m.login.register {
		title = "Create a Lyra account"
		hint = "ctrl+r: log in instead"
	}
	labels := map[int]string{fieldName: "Name", fieldEmail: "Email", fieldPassword: "Password"}

	bodyW := modalBodyWidth(m.width)
	var b strings.Builder
	for _, fi := range m.login.order() {
		label := styleMuted().Render(labels[fi])
		if fi == m.login.focus {
			label = lipgloss.NewStyle().Bold(true).Render(labels[fi])
		}
		ti := m.login.fields[fi]
		ti.Width = bodyW - 3
		b.WriteString(label + "\n" + renderInputLine(bodyW, ti.View()) + "\n\n")
	}
	b.WriteString(styleMuted().Render(hint) + "\n")
	b.WriteString(styleMuted().Render("Forgot your password? Run `lyra forgot-password`."))

	box := renderModalBox(m.width, title, b.String())
	return lipgloss.Place(m.width, m.bodyHeight(), lipgloss.Center, lipgloss.Center, box)
}
