package harness

import (
	"context"
	"fmt"
	"strings"

	"uiverify/internal/browser"
)

// Predicate is a read-only check against one element.
type Predicate string

const (
	Visible      Predicate = "visible"
	Hidden       Predicate = "hidden"
	HasClass     Predicate = "has-class"
	LacksClass   Predicate = "lacks-class"
	ContainsText Predicate = "contains-text"
	ExcludesText Predicate = "excludes-text"
)

// AssertionSpec is a predicate bound to a selector. Value is the class token
// or substring for the class and text predicates.
type AssertionSpec struct {
	Selector  string    `yaml:"selector"`
	Predicate Predicate `yaml:"predicate"`
	Value     string    `yaml:"value,omitempty"`
}

func (a AssertionSpec) Validate() error {
	if a.Selector == "" {
		return fmt.Errorf("assert %s: selector is required", a.Predicate)
	}
	switch a.Predicate {
	case Visible, Hidden:
		return nil
	case HasClass, LacksClass:
		if a.Value == "" || strings.ContainsAny(a.Value, " \t\n") {
			return fmt.Errorf("assert %s on %q: value must be a single class token", a.Predicate, a.Selector)
		}
		return nil
	case ContainsText, ExcludesText:
		if strings.TrimSpace(a.Value) == "" {
			return fmt.Errorf("assert %s on %q: value is required", a.Predicate, a.Selector)
		}
		return nil
	default:
		return fmt.Errorf("assert on %q: unknown predicate %q", a.Selector, a.Predicate)
	}
}

func (a AssertionSpec) String() string {
	if a.Value == "" {
		return fmt.Sprintf("%s %s", a.Selector, a.Predicate)
	}
	return fmt.Sprintf("%s %s %q", a.Selector, a.Predicate, a.Value)
}

// Check evaluates a against the current DOM. It returns nil on pass, a
// *SelectorNotFoundError when the selector matches nothing (for every
// predicate, hidden included) and an *AssertionFailure otherwise.
func Check(ctx context.Context, s *Session, a AssertionSpec) error {
	if err := a.Validate(); err != nil {
		return err
	}
	st, err := s.probe(ctx, a.Selector, "assert")
	if err != nil {
		return err
	}
	s.coverage.Assertions++
	return evaluate(a, st)
}

func evaluate(a AssertionSpec, st *browser.ElementState) error {
	var ok bool
	var actual string

	switch a.Predicate {
	case Visible, Hidden:
		ok = st.Visible() == (a.Predicate == Visible)
		actual = describeVisibility(st)
	case HasClass, LacksClass:
		ok = st.HasClass(a.Value) == (a.Predicate == HasClass)
		actual = fmt.Sprintf("class=%q", strings.Join(st.Classes, " "))
	case ContainsText, ExcludesText:
		text := normalizeSpace(st.Text)
		ok = strings.Contains(text, normalizeSpace(a.Value)) == (a.Predicate == ContainsText)
		actual = fmt.Sprintf("text=%q", truncate(text, 200))
	default:
		return a.Validate()
	}
	if ok {
		return nil
	}
	return &AssertionFailure{Selector: a.Selector, Predicate: a.Predicate, Expected: a.Value, Actual: actual}
}

// normalizeSpace collapses whitespace runs to one space and trims the ends.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func describeVisibility(st *browser.ElementState) string {
	switch {
	case st.Visible():
		return "visible"
	case st.Hidden:
		return "hidden (hidden marker)"
	case st.Display == "none":
		return "hidden (display: none)"
	case st.Visibility == "hidden" || st.Visibility == "collapse":
		return "hidden (visibility: " + st.Visibility + ")"
	default:
		return fmt.Sprintf("hidden (%gx%g box)", st.Width, st.Height)
	}
}
