// Package autosave debounces buffer edits and pushes them to the server,
// keeping one independent timer per save target.
package autosave

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultDelay is the quiet period between the last edit and its save.
const DefaultDelay = time.Second

// Target identifies what a buffer is saved to. A whole-chapter buffer has an
// empty SceneID.
type Target struct {
	ChapterID string
	SceneID   string
}

func (t Target) IsChapter() bool { return t.SceneID == "" }

// Key is the debounce key: timers for different keys never interact.
func (t Target) Key() string {
	if t.IsChapter() {
		return "chapter:" + t.ChapterID
	}
	return "scene:" + t.ChapterID + "/" + t.SceneID
}

type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusSaving
	StatusSaved
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSaving:
		return "saving"
	case StatusSaved:
		return "saved"
	case StatusFailed:
		return "save failed, retrying"
	default:
		return "idle"
	}
}

// SaveFunc persists content for a target.
type SaveFunc func(ctx context.Context, t Target, content string) error

type Options struct {
	// Delay defaults to DefaultDelay.
	Delay time.Duration
	// RetryDelay re-arms a failed save when > 0. Zero means a failed save is
	// only retried by the next edit.
	RetryDelay time.Duration
	Clock      Clock
	Logger     *zap.Logger
	// OnStatus is called outside the scheduler lock on every status change.
	OnStatus func(t Target, st Status, err error)
}

type entry struct {
	target  Target
	content string
	// dirty: content has not been handed to a save yet.
	dirty bool
	// running: a save for this target is in flight.
	running bool
	// deferred: the timer fired while running; save again right after.
	deferred bool
	timer    Timer
	status   Status
	lastErr  error
}

type statusChange struct {
	target Target
	status Status
	err    error
}

type Scheduler struct {
	save   SaveFunc
	delay  time.Duration
	retry  time.Duration
	clock  Clock
	log    *zap.Logger
	notify func(Target, Status, error)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	entries map[string]*entry
	stopped bool
}

func New(save SaveFunc, opts Options) *Scheduler {
	delay := opts.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}
	clock := opts.Clock
	if clock == nil {
		clock = realClock{}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		save:    save,
		delay:   delay,
		retry:   opts.RetryDelay,
		clock:   clock,
		log:     log.Named("autosave"),
		notify:  opts.OnStatus,
		ctx:     ctx,
		cancel:  cancel,
		entries: map[string]*entry{},
	}
}

// Schedule records content as the latest buffer for t and restarts t's quiet
// period. Pending saves for other targets are left alone.
func (s *Scheduler) Schedule(t Target, content string) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	e := s.entryLocked(t)
	e.content = content
	e.dirty = true
	s.armLocked(e, s.delay)
	changes := s.setStatusLocked(e, StatusPending, nil)
	s.mu.Unlock()
	s.emit(changes)
}

func (s *Scheduler) entryLocked(t Target) *entry {
	key := t.Key()
	e := s.entries[key]
	if e == nil {
		e = &entry{target: t}
		s.entries[key] = e
	}
	return e
}

func (s *Scheduler) armLocked(e *entry, d time.Duration) {
	if e.timer == nil {
		key := e.target.Key()
		e.timer = s.clock.AfterFunc(d, func() { _ = s.fire(key) })
		return
	}
	e.timer.Reset(d)
}

func (s *Scheduler) setStatusLocked(e *entry, st Status, err error) []statusChange {
	if e.status == st && err == nil && e.lastErr == nil {
		return nil
	}
	e.status = st
	e.lastErr = err
	return []statusChange{{e.target, st, err}}
}

func (s *Scheduler) emit(changes []statusChange) {
	if s.notify == nil {
		return
	}
	for _, c := range changes {
		s.notify(c.target, c.status, c.err)
	}
}

// fire saves the latest buffer of the target under key. It returns the save
// error of the last attempt it made, if any.
func (s *Scheduler) fire(key string) error {
	var lastErr error
	holding := false
	defer func() {
		if holding {
			s.wg.Done()
		}
	}()
	for {
		s.mu.Lock()
		e := s.entries[key]
		if e == nil || s.stopped {
			s.mu.Unlock()
			return lastErr
		}
		if e.running {
			// The in-flight save picks this up when it returns.
			e.deferred = true
			s.mu.Unlock()
			return lastErr
		}
		if !e.dirty {
			s.mu.Unlock()
			return lastErr
		}
		content := e.content
		e.dirty = false
		if content == "" {
			// A transient blank buffer must never overwrite saved content.
			changes := s.setStatusLocked(e, StatusIdle, nil)
			s.mu.Unlock()
			s.emit(changes)
			return lastErr
		}
		e.running = true
		if !holding {
			s.wg.Add(1)
			holding = true
		}
		changes := s.setStatusLocked(e, StatusSaving, nil)
		s.mu.Unlock()
		s.emit(changes)

		err := s.save(s.ctx, e.target, content)

		s.mu.Lock()
		e.running = false
		again := false
		if err != nil {
			lastErr = err
			s.log.Warn("Autosave failed",
				zap.String("target", key),
				zap.Int("bytes", len(content)),
				zap.Error(err))
			changes = s.setStatusLocked(e, StatusFailed, err)
			if !e.dirty && !s.stopped && s.retry > 0 {
				e.content = content
				e.dirty = true
				s.armLocked(e, s.retry)
			}
		} else {
			lastErr = nil
			s.log.Debug("Autosaved", zap.String("target", key), zap.Int("bytes", len(content)))
			if e.dirty {
				changes = s.setStatusLocked(e, StatusPending, nil)
			} else {
				changes = s.setStatusLocked(e, StatusSaved, nil)
			}
		}
		if e.deferred && e.dirty {
			e.deferred = false
			again = true
		}
		s.mu.Unlock()
		s.emit(changes)

		if !again {
			return lastErr
		}
	}
}

// Status reports the state of the last activity for t.
func (s *Scheduler) Status(t Target) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[t.Key()]
	if e == nil {
		return StatusIdle, nil
	}
	return e.status, e.lastErr
}

// Pending counts targets with unsaved or in-flight content.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.dirty || e.running {
			n++
		}
	}
	return n
}

// Cancel drops any unsaved content for t without saving it.
func (s *Scheduler) Cancel(t Target) {
	s.mu.Lock()
	e := s.entries[t.Key()]
	if e == nil {
		s.mu.Unlock()
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.dirty = false
	e.deferred = false
	var changes []statusChange
	if !e.running {
		changes = s.setStatusLocked(e, StatusIdle, nil)
	}
	s.mu.Unlock()
	s.emit(changes)
}

// Flush saves every pending buffer now instead of waiting for its timer, then
// waits for in-flight saves to finish.
func (s *Scheduler) Flush(ctx context.Context) error {
	s.mu.Lock()
	var keys []string
	for key, e := range s.entries {
		if !e.dirty {
			continue
		}
		if e.timer != nil {
			e.timer.Stop()
		}
		if e.running {
			e.deferred = true
			continue
		}
		keys = append(keys, key)
	}
	s.mu.Unlock()

	var errs []error
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.fire(key); err != nil {
			errs = append(errs, err)
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, ctx.Err())
	}
	return errors.Join(errs...)
}

// Stop cancels all timers and in-flight saves. Unsaved content is discarded.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for _, e := range s.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
		e.dirty = false
		e.deferred = false
	}
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}
