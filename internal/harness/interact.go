package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"uiverify/internal/browser"
)

// DefaultWaitTimeout bounds WaitVisible when no timeout is given.
const DefaultWaitTimeout = 5 * time.Second

// Click clicks the first element matching selector. The element must be
// visible and enabled at click time; otherwise Click returns a
// *NotInteractableError and the app's listener never runs.
func Click(ctx context.Context, s *Session, selector string) error {
	st, err := s.probe(ctx, selector, "click")
	if err != nil {
		return err
	}
	if !st.Visible() {
		return &NotInteractableError{Selector: selector, Reason: "hidden: " + describeVisibility(st)}
	}
	if st.Disabled {
		return &NotInteractableError{Selector: selector, Reason: "disabled"}
	}
	if err := s.driver.Click(ctx, selector); err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	s.coverage.Interacted++
	s.log.Debug("clicked", slog.String("selector", selector))
	return nil
}

// WaitVisible polls until selector is visible or timeout elapses. A
// selector that never matches is a timeout, not a SelectorNotFound, since
// the element may be rendered later.
func WaitVisible(ctx context.Context, s *Session, selector string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	start := time.Now()
	deadline := start.Add(timeout)
	last := "no match"

	for {
		st, err := s.driver.Probe(ctx, selector)
		switch {
		case err == nil && st.Visible():
			s.coverage.Waits++
			s.log.Debug("visible", slog.String("selector", selector), slog.Duration("after", time.Since(start)))
			return nil
		case err == nil:
			last = describeVisibility(st)
		case !errors.Is(err, browser.ErrNoMatch):
			return fmt.Errorf("wait for %q: %w", selector, err)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return &TimeoutError{Selector: selector, Elapsed: time.Since(start), Last: last}
		}
		t := time.NewTimer(min(s.poll, remaining))
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("wait for %q: %w", selector, ctx.Err())
		case <-t.C:
		}
	}
}

// Delay pauses for d. It exists only to let animations settle before a
// capture; use WaitVisible whenever there is a condition to wait for.
func Delay(ctx context.Context, s *Session, d time.Duration) error {
	s.coverage.Delays++
	s.log.Debug("fixed delay", slog.Duration("duration", d))
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
