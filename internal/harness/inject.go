package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"uiverify/internal/browser"
)

// Interaction actions usable inside a StateDescriptor.
const (
	ActionClick = "click"
	ActionWait  = "wait"
)

// Interaction is a genuine user action that is part of reaching a state.
type Interaction struct {
	Action   string        `yaml:"action"`
	Selector string        `yaml:"selector"`
	Timeout  time.Duration `yaml:"timeout,omitempty"` // wait only; 0 = DefaultWaitTimeout
}

func (i Interaction) Validate() error {
	if i.Selector == "" {
		return fmt.Errorf("interaction %q: selector is required", i.Action)
	}
	switch i.Action {
	case ActionClick, ActionWait:
		return nil
	default:
		return fmt.Errorf("interaction on %q: unknown action %q", i.Selector, i.Action)
	}
}

// StateDescriptor is a named, reusable recipe for a UI state: mutations
// are injected first, in order, then interactions run, in order.
type StateDescriptor struct {
	Name         string             `yaml:"name"`
	Description  string             `yaml:"description,omitempty"`
	Mutations    []browser.Mutation `yaml:"mutations,omitempty"`
	Interactions []Interaction      `yaml:"interactions,omitempty"`
}

func (d StateDescriptor) Validate() error {
	if len(d.Mutations) == 0 && len(d.Interactions) == 0 {
		return fmt.Errorf("state %q: no mutations or interactions", d.Name)
	}
	for _, m := range d.Mutations {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("state %q: %w", d.Name, err)
		}
	}
	for _, i := range d.Interactions {
		if err := i.Validate(); err != nil {
			return fmt.Errorf("state %q: %w", d.Name, err)
		}
	}
	return nil
}

// Apply injects mutations in order, stopping at the first failure. Class
// operations are idempotent: adding a present class or removing an absent
// one changes nothing.
func Apply(ctx context.Context, s *Session, mutations []browser.Mutation) error {
	for _, m := range mutations {
		if err := m.Validate(); err != nil {
			return err
		}
		err := s.driver.Mutate(ctx, m)
		if errors.Is(err, browser.ErrNoMatch) {
			return &SelectorNotFoundError{Selector: m.Selector, Op: "inject"}
		}
		if err != nil {
			return fmt.Errorf("inject %s: %w", m, err)
		}
		s.coverage.Injected++
		s.log.Debug("injected", slog.String("mutation", m.String()))
	}
	return nil
}

// Reach drives the session into d.
func Reach(ctx context.Context, s *Session, d StateDescriptor) error {
	if err := Apply(ctx, s, d.Mutations); err != nil {
		return fmt.Errorf("state %s: %w", d.Name, err)
	}
	for _, in := range d.Interactions {
		var err error
		switch in.Action {
		case ActionClick:
			err = Click(ctx, s, in.Selector)
		case ActionWait:
			err = WaitVisible(ctx, s, in.Selector, in.Timeout)
		default:
			err = in.Validate()
		}
		if err != nil {
			return fmt.Errorf("state %s: %w", d.Name, err)
		}
	}
	s.log.Debug("state reached", slog.String("state", d.Name))
	return nil
}
