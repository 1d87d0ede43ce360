// Package tui is the interactive terminal client: login, projects, the
// folder/document browser and the chapter/scene editor.
package tui

import (
	"context"
	"errors"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"lyra-cli/internal/api"
	"lyra-cli/internal/store"
)

type Options struct {
	Client *api.Client
	Store  store.Store
	// Theme is the stored preference: auto, light or dark.
	Theme         string
	AutosaveDelay time.Duration
	AutosaveRetry time.Duration
	Logger        *zap.Logger
}

// sender forwards messages from background goroutines (autosave callbacks,
// forced logout) into the running program. Messages sent before the program
// exists are dropped.
//
// Send never blocks: callbacks can fire from inside Update, where the
// program's Send would wait on the event loop running the caller. Queued
// messages are delivered in order by one goroutine.
type sender struct {
	mu      sync.Mutex
	fn      func(tea.Msg)
	queue   []tea.Msg
	pumping bool
}

func (s *sender) set(fn func(tea.Msg)) {
	s.mu.Lock()
	s.fn = fn
	s.mu.Unlock()
}

func (s *sender) Send(msg tea.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fn == nil {
		return
	}
	s.queue = append(s.queue, msg)
	if !s.pumping {
		s.pumping = true
		go s.pump()
	}
}

func (s *sender) pump() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 || s.fn == nil {
			s.queue = nil
			s.pumping = false
			s.mu.Unlock()
			return
		}
		msg := s.queue[0]
		s.queue = s.queue[1:]
		fn := s.fn
		s.mu.Unlock()
		fn(msg)
	}
}

func Run(ctx context.Context, opts Options) error {
	if opts.Client == nil {
		return errors.New("tui: missing api client")
	}
	applyColorProfile()
	style := applyTheme(opts.Theme)

	m := newAppModel(ctx, opts, style)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	m.send.set(p.Send)

	final, err := p.Run()
	if fm, ok := final.(appModel); ok {
		// Pending edits are saved even when the program was interrupted.
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if cerr := fm.closeEditor(closeCtx); cerr != nil {
			m.log.Warn("Saving pending edits on exit failed", zap.Error(cerr))
			if err == nil {
				err = cerr
			}
		}
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
