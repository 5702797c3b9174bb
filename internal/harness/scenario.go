package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"uiverify/internal/browser"
	"uiverify/internal/logging"
)

// StepKind classifies a step by how it touches the app.
type StepKind string

const (
	KindState   StepKind = "state"
	KindInject  StepKind = "inject"
	KindClick   StepKind = "click"
	KindWait    StepKind = "wait"
	KindDelay   StepKind = "delay"
	KindAssert  StepKind = "assert"
	KindCapture StepKind = "capture"
	KindInvalid StepKind = ""
)

const diagTimeout = 10 * time.Second

// WaitSpec is a condition-based wait.
type WaitSpec struct {
	Selector string        `yaml:"selector"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
}

// ClipRect is a rectangle in viewport coordinates.
type ClipRect struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// CaptureSpec names an artifact and its region. With neither Clip nor
// Element set the full viewport is captured.
type CaptureSpec struct {
	Path    string    `yaml:"path"`
	Clip    *ClipRect `yaml:"clip,omitempty"`
	Element string    `yaml:"element,omitempty"`
}

func (c CaptureSpec) Region() browser.Region {
	switch {
	case c.Element != "":
		return browser.ElementRegion(c.Element)
	case c.Clip != nil:
		return browser.ClipRegion(c.Clip.X, c.Clip.Y, c.Clip.Width, c.Clip.Height)
	default:
		return browser.FullPageRegion()
	}
}

func (c CaptureSpec) Validate() error {
	if c.Path == "" {
		return errors.New("capture: path is required")
	}
	if c.Clip != nil && c.Element != "" {
		return fmt.Errorf("capture %s: clip and element are exclusive", c.Path)
	}
	if c.Clip != nil && (c.Clip.Width <= 0 || c.Clip.Height <= 0) {
		return fmt.Errorf("capture %s: clip needs a positive width and height", c.Path)
	}
	return nil
}

// Step is one action in a scenario; exactly one field other than Note is set.
// Note records why a step is injected rather than driven.
type Step struct {
	State   string            `yaml:"state,omitempty"`
	Inject  *browser.Mutation `yaml:"inject,omitempty"`
	Click   string            `yaml:"click,omitempty"`
	Wait    *WaitSpec         `yaml:"wait,omitempty"`
	Delay   time.Duration     `yaml:"delay,omitempty"`
	Assert  *AssertionSpec    `yaml:"assert,omitempty"`
	Capture *CaptureSpec      `yaml:"capture,omitempty"`
	Note    string            `yaml:"note,omitempty"`

	// Reach is the descriptor named by State, filled in by the loader.
	Reach *StateDescriptor `yaml:"-"`
}

// Kind reports the step's kind, or KindInvalid when zero or several
// actions are set.
func (st Step) Kind() StepKind {
	var kinds []StepKind
	if st.State != "" {
		kinds = append(kinds, KindState)
	}
	if st.Inject != nil {
		kinds = append(kinds, KindInject)
	}
	if st.Click != "" {
		kinds = append(kinds, KindClick)
	}
	if st.Wait != nil {
		kinds = append(kinds, KindWait)
	}
	if st.Delay != 0 {
		kinds = append(kinds, KindDelay)
	}
	if st.Assert != nil {
		kinds = append(kinds, KindAssert)
	}
	if st.Capture != nil {
		kinds = append(kinds, KindCapture)
	}
	if len(kinds) != 1 {
		return KindInvalid
	}
	return kinds[0]
}

func (st Step) Validate() error {
	switch st.Kind() {
	case KindInvalid:
		return errors.New("step must set exactly one of state, inject, click, wait, delay, assert, capture")
	case KindState:
		if st.Reach == nil {
			return fmt.Errorf("state %q is not resolved", st.State)
		}
		return st.Reach.Validate()
	case KindInject:
		return st.Inject.Validate()
	case KindWait:
		if st.Wait.Selector == "" {
			return errors.New("wait: selector is required")
		}
	case KindDelay:
		if st.Delay < 0 {
			return errors.New("delay must be positive")
		}
	case KindAssert:
		return st.Assert.Validate()
	case KindCapture:
		return st.Capture.Validate()
	}
	return nil
}

func (st Step) String() string {
	switch st.Kind() {
	case KindState:
		return "state " + st.State
	case KindInject:
		return "inject " + st.Inject.String()
	case KindClick:
		return "click " + st.Click
	case KindWait:
		return "wait " + st.Wait.Selector
	case KindDelay:
		return "delay " + st.Delay.String()
	case KindAssert:
		return "assert " + st.Assert.String()
	case KindCapture:
		return fmt.Sprintf("capture %s %s", st.Capture.Region().Kind, st.Capture.Path)
	default:
		return "invalid step"
	}
}

// Scenario is one self-contained verification run against one session.
type Scenario struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Target      string            `yaml:"target"`
	Viewport    *browser.Viewport `yaml:"viewport,omitempty"`
	Vars        map[string]string `yaml:"vars,omitempty"`
	Steps       []Step            `yaml:"steps"`
}

func (sc *Scenario) Validate() error {
	if sc.Name == "" {
		return errors.New("scenario: name is required")
	}
	if sc.Target == "" {
		return fmt.Errorf("scenario %s: target is required", sc.Name)
	}
	if sc.Viewport != nil && (sc.Viewport.Width <= 0 || sc.Viewport.Height <= 0) {
		return fmt.Errorf("scenario %s: viewport must be positive, got %s", sc.Name, sc.Viewport)
	}
	if len(sc.Steps) == 0 {
		return fmt.Errorf("scenario %s: no steps", sc.Name)
	}
	for i, st := range sc.Steps {
		if err := st.Validate(); err != nil {
			return fmt.Errorf("scenario %s step %d: %w", sc.Name, i+1, err)
		}
	}
	return nil
}

// Plan counts what the scenario will inject and drive, without running it.
func (sc *Scenario) Plan() Coverage {
	var c Coverage
	for _, st := range sc.Steps {
		switch st.Kind() {
		case KindState:
			c.Injected += len(st.Reach.Mutations)
			for _, in := range st.Reach.Interactions {
				if in.Action == ActionClick {
					c.Interacted++
				} else {
					c.Waits++
				}
			}
		case KindInject:
			c.Injected++
		case KindClick:
			c.Interacted++
		case KindWait:
			c.Waits++
		case KindDelay:
			c.Delays++
		case KindAssert:
			c.Assertions++
		case KindCapture:
			c.Artifacts = append(c.Artifacts, st.Capture.Path)
		}
	}
	return c
}

// RunOptions configure a scenario run.
type RunOptions struct {
	OutDir       string // relative capture paths are written under it
	BaseDir      string // resolves relative document targets
	PollInterval time.Duration
	Logger       *slog.Logger
}

func (o RunOptions) artifactPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(o.OutDir, p)
}

// DiagnosticPath is where a failed scenario's screenshot goes.
func (o RunOptions) DiagnosticPath(scenario string) string {
	return filepath.Join(o.OutDir, scenario+"-failure.png")
}

// Result is the outcome of one scenario.
type Result struct {
	Scenario   string        `json:"scenario"`
	SessionID  string        `json:"session_id,omitempty"`
	Passed     bool          `json:"passed"`
	Error      string        `json:"error,omitempty"`
	FailedStep int           `json:"failed_step,omitempty"`
	Diagnostic string        `json:"diagnostic,omitempty"`
	Coverage   Coverage      `json:"coverage"`
	Started    time.Time     `json:"started"`
	Duration   time.Duration `json:"duration"`

	Err error `json:"-"`
}

func (r *Result) fail(err error) {
	r.Passed = false
	r.Err = err
	r.Error = err.Error()
}

// Run executes sc start to finish in its own session. Steps run strictly in
// order; the first error stops the scenario, a diagnostic screenshot is
// attempted, and the session is closed whatever happened.
func Run(ctx context.Context, eng browser.Engine, sc *Scenario, opts RunOptions) (res Result) {
	log := opts.Logger
	if log == nil {
		log = logging.New("scenario")
	}
	log = log.With(slog.String("scenario", sc.Name))

	res = Result{Scenario: sc.Name, Started: time.Now(), Passed: true}
	defer func() { res.Duration = time.Since(res.Started) }()

	s, err := Open(ctx, eng, SessionConfig{
		Target:       sc.Target,
		BaseDir:      opts.BaseDir,
		Viewport:     sc.Viewport,
		PollInterval: opts.PollInterval,
		Logger:       log,
	})
	if err != nil {
		res.fail(err)
		log.Error("scenario failed", slog.Any("err", err))
		return res
	}
	res.SessionID = s.ID
	defer func() {
		res.Coverage = s.Coverage()
		if cerr := s.Close(); cerr != nil {
			log.Warn("close session", slog.Any("err", cerr))
		}
	}()

	for i, st := range sc.Steps {
		log.Debug("step", slog.Int("n", i+1), slog.String("step", st.String()))
		if err := runStep(ctx, s, st, opts); err != nil {
			res.FailedStep = i + 1
			res.fail(fmt.Errorf("step %d (%s): %w", i+1, st, err))
			res.Diagnostic = captureDiagnostic(ctx, s, opts.DiagnosticPath(sc.Name), log)
			log.Error("scenario failed", slog.Int("step", i+1), slog.Any("err", err))
			return res
		}
	}
	log.Info("scenario passed")
	return res
}

func runStep(ctx context.Context, s *Session, st Step, opts RunOptions) error {
	switch st.Kind() {
	case KindState:
		if st.Reach == nil {
			return fmt.Errorf("state %q is not resolved", st.State)
		}
		return Reach(ctx, s, *st.Reach)
	case KindInject:
		return Apply(ctx, s, []browser.Mutation{*st.Inject})
	case KindClick:
		return Click(ctx, s, st.Click)
	case KindWait:
		return WaitVisible(ctx, s, st.Wait.Selector, st.Wait.Timeout)
	case KindDelay:
		return Delay(ctx, s, st.Delay)
	case KindAssert:
		return Check(ctx, s, *st.Assert)
	case KindCapture:
		return Capture(ctx, s, st.Capture.Region(), opts.artifactPath(st.Capture.Path))
	default:
		return st.Validate()
	}
}

// captureDiagnostic takes a best-effort full-page screenshot after a
// failure. It runs even when ctx is already cancelled.
func captureDiagnostic(ctx context.Context, s *Session, path string, log *slog.Logger) string {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), diagTimeout)
	defer cancel()
	if err := s.writeScreenshot(dctx, browser.FullPageRegion(), path); err != nil {
		log.Warn("diagnostic screenshot", slog.Any("err", err))
		return ""
	}
	return path
}
