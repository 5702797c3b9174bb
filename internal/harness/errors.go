package harness

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNavigation is returned when a session's target cannot be loaded.
	ErrNavigation = errors.New("harness: navigation failed")

	// ErrSelectorNotFound is returned when a selector resolves to zero elements.
	ErrSelectorNotFound = errors.New("harness: selector not found")

	// ErrNotInteractable is returned when a click targets a hidden or disabled element.
	ErrNotInteractable = errors.New("harness: element not interactable")

	// ErrTimeout is returned when a bounded wait expires.
	ErrTimeout = errors.New("harness: timed out")

	// ErrAssertion is returned when a predicate does not hold.
	ErrAssertion = errors.New("harness: assertion failed")
)

// NavigationError names the target that could not be loaded.
type NavigationError struct {
	Target string
	Err    error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigate to %s: %v", e.Target, e.Err)
}

func (e *NavigationError) Unwrap() []error { return []error{ErrNavigation, e.Err} }

// SelectorNotFoundError names the selector and the operation that needed it.
type SelectorNotFoundError struct {
	Selector string
	Op       string
}

func (e *SelectorNotFoundError) Error() string {
	return fmt.Sprintf("%s: selector %q matched no elements", e.Op, e.Selector)
}

func (e *SelectorNotFoundError) Unwrap() error { return ErrSelectorNotFound }

// NotInteractableError says why a click was refused.
type NotInteractableError struct {
	Selector string
	Reason   string
}

func (e *NotInteractableError) Error() string {
	return fmt.Sprintf("click %q: element not interactable (%s)", e.Selector, e.Reason)
}

func (e *NotInteractableError) Unwrap() error { return ErrNotInteractable }

// TimeoutError records how long a wait ran before giving up.
type TimeoutError struct {
	Selector string
	Elapsed  time.Duration
	Last     string // last observed state, for diagnosis
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("wait for %q to be visible: timed out after %s", e.Selector, e.Elapsed.Round(time.Millisecond))
	if e.Last != "" {
		msg += " (last seen: " + e.Last + ")"
	}
	return msg
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// AssertionFailure carries everything needed to diagnose a failed predicate
// without rerunning: selector, predicate, expected and observed values.
type AssertionFailure struct {
	Selector  string
	Predicate Predicate
	Expected  string
	Actual    string
}

func (e *AssertionFailure) Error() string {
	if e.Expected == "" {
		return fmt.Sprintf("assert %q %s: actual %s", e.Selector, e.Predicate, e.Actual)
	}
	return fmt.Sprintf("assert %q %s %q: actual %s", e.Selector, e.Predicate, e.Expected, e.Actual)
}

func (e *AssertionFailure) Unwrap() error { return ErrAssertion }
