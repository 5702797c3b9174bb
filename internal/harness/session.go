// Package harness drives a page into a target state and verifies it.
//
// A Session owns one isolated browser page for one scenario. Operations on
// it fall into four groups that mirror how a state is reached and checked:
// injection (Apply, Reach) forces DOM state the harness cannot reach through
// the app, interaction (Click, WaitVisible, Delay) drives the app for real,
// assertions (Check) read the DOM, and capture (Capture) writes screenshots.
// Each session counts what it injected and what it interacted with so a
// result never overstates what the app itself exercised.
package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"uiverify/internal/browser"
	"uiverify/internal/logging"
)

// DefaultPollInterval is how often WaitVisible re-probes the DOM.
const DefaultPollInterval = 100 * time.Millisecond

// SessionConfig describes what to open.
type SessionConfig struct {
	Target       string            // URL or local document path
	BaseDir      string            // resolves relative document paths
	Viewport     *browser.Viewport // nil = browser.DefaultViewport
	PollInterval time.Duration     // 0 = DefaultPollInterval
	Logger       *slog.Logger
}

// Coverage counts what a session did, split by how it reached state.
type Coverage struct {
	Injected   int      `json:"injected"`
	Interacted int      `json:"interacted"`
	Waits      int      `json:"waits"`
	Delays     int      `json:"delays"`
	Assertions int      `json:"assertions"`
	Artifacts  []string `json:"artifacts,omitempty"`
}

// Session is one browser page used by exactly one scenario.
type Session struct {
	ID       string
	Target   string
	Viewport browser.Viewport

	driver   browser.Driver
	poll     time.Duration
	log      *slog.Logger
	coverage Coverage

	closeOnce sync.Once
	closeErr  error
}

// Open launches an isolated page on eng and loads cfg.Target.
// A target that cannot be resolved or loaded yields a *NavigationError; the
// browser is released before Open returns in that case.
func Open(ctx context.Context, eng browser.Engine, cfg SessionConfig) (*Session, error) {
	url, err := browser.ResolveTarget(cfg.Target, cfg.BaseDir)
	if err != nil {
		return nil, &NavigationError{Target: cfg.Target, Err: err}
	}

	vp := browser.DefaultViewport
	if cfg.Viewport != nil {
		vp = *cfg.Viewport
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	log := cfg.Logger
	if log == nil {
		log = logging.New("session")
	}

	id := uuid.NewString()
	log = log.With(slog.String("session", id), slog.String("engine", eng.Name()))

	drv, err := eng.Launch(ctx, vp)
	if err != nil {
		return nil, fmt.Errorf("launch %s: %w", eng.Name(), err)
	}
	if err := drv.Navigate(ctx, url); err != nil {
		_ = drv.Close()
		return nil, &NavigationError{Target: url, Err: err}
	}

	log.Info("session opened", slog.String("target", url), slog.String("viewport", vp.String()))
	return &Session{
		ID:       id,
		Target:   url,
		Viewport: vp,
		driver:   drv,
		poll:     poll,
		log:      log,
	}, nil
}

// Close releases the browser. Only the first call does anything.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.driver.Close()
		s.log.Info("session closed",
			slog.Int("injected", s.coverage.Injected),
			slog.Int("interacted", s.coverage.Interacted))
	})
	return s.closeErr
}

// Coverage returns a copy of what the session has done so far.
func (s *Session) Coverage() Coverage {
	c := s.coverage
	c.Artifacts = append([]string(nil), s.coverage.Artifacts...)
	return c
}

// WithSession opens a session, runs fn and closes the session on every exit
// path, including a panic in fn. A close error is returned only when fn
// succeeded.
func WithSession(ctx context.Context, eng browser.Engine, cfg SessionConfig, fn func(*Session) error) (err error) {
	s, err := Open(ctx, eng, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close session: %w", cerr)
		}
	}()
	return fn(s)
}

// probe resolves selector for op, mapping a zero match to SelectorNotFoundError.
func (s *Session) probe(ctx context.Context, selector, op string) (*browser.ElementState, error) {
	st, err := s.driver.Probe(ctx, selector)
	if errors.Is(err, browser.ErrNoMatch) {
		return nil, &SelectorNotFoundError{Selector: selector, Op: op}
	}
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", op, selector, err)
	}
	if st.Matches > 1 {
		s.log.Debug("selector matched several elements; using the first",
			slog.String("selector", selector), slog.Int("matches", st.Matches))
	}
	return st, nil
}
