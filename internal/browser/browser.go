// Package browser is the boundary between the harness and a page.
//
// A Driver owns one browser process (or one parsed document, for the static
// engine) and exposes the handful of primitives the harness needs: navigate,
// probe an element, mutate it, click it, and screenshot a region. Everything
// that decides pass or fail lives above this package.
package browser

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrNoMatch is returned when a selector matches zero elements.
	ErrNoMatch = errors.New("browser: selector matched no elements")

	// ErrUnsupported is returned when an engine cannot perform an operation
	// (the static engine cannot render or run scripts).
	ErrUnsupported = errors.New("browser: operation not supported by engine")
)

// Viewport is the page size in CSS pixels.
type Viewport struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// DefaultViewport is the desktop size used when a scenario does not override it.
var DefaultViewport = Viewport{Width: 1280, Height: 720}

func (v Viewport) String() string { return fmt.Sprintf("%dx%d", v.Width, v.Height) }

// Engine launches isolated drivers. Each Launch starts a fresh browser
// process or context; nothing is shared between the drivers it returns.
type Engine interface {
	Name() string
	Launch(ctx context.Context, vp Viewport) (Driver, error)
}

// Driver is one page in one isolated browser.
type Driver interface {
	// Navigate loads url and waits for the document to be ready.
	Navigate(ctx context.Context, url string) error
	// Probe reads the state of the first element matching selector.
	// It returns ErrNoMatch when nothing matches.
	Probe(ctx context.Context, selector string) (*ElementState, error)
	// Mutate applies m to the first element matching m.Selector.
	// It returns ErrNoMatch when nothing matches.
	Mutate(ctx context.Context, m Mutation) error
	// Click dispatches a real click on the first element matching selector.
	Click(ctx context.Context, selector string) error
	// Screenshot returns PNG bytes for r.
	Screenshot(ctx context.Context, r Region) ([]byte, error)
	// Close releases the browser. It is safe to call more than once.
	Close() error
}

// Op is a DOM mutation operation.
type Op string

const (
	AddClass     Op = "add-class"
	RemoveClass  Op = "remove-class"
	SetText      Op = "set-text"
	SetAttribute Op = "set-attribute"
)

// Mutation is one injected change to one element.
type Mutation struct {
	Selector string   `yaml:"selector" json:"selector"`
	Op       Op       `yaml:"op" json:"op"`
	Classes  []string `yaml:"classes,omitempty" json:"classes,omitempty"`
	Name     string   `yaml:"name,omitempty" json:"name,omitempty"`
	Value    string   `yaml:"value,omitempty" json:"value,omitempty"`
}

// Validate reports whether m carries the fields its Op needs.
func (m Mutation) Validate() error {
	if m.Selector == "" {
		return errors.New("mutation: selector is required")
	}
	switch m.Op {
	case AddClass, RemoveClass:
		if len(m.Classes) == 0 {
			return fmt.Errorf("mutation %s on %q: at least one class is required", m.Op, m.Selector)
		}
	case SetText:
	case SetAttribute:
		if m.Name == "" {
			return fmt.Errorf("mutation %s on %q: attribute name is required", m.Op, m.Selector)
		}
	default:
		return fmt.Errorf("mutation on %q: unknown op %q", m.Selector, m.Op)
	}
	return nil
}

func (m Mutation) String() string {
	switch m.Op {
	case AddClass, RemoveClass:
		return fmt.Sprintf("%s %v on %s", m.Op, m.Classes, m.Selector)
	case SetAttribute:
		return fmt.Sprintf("%s %s=%q on %s", m.Op, m.Name, m.Value, m.Selector)
	default:
		return fmt.Sprintf("%s %q on %s", m.Op, m.Value, m.Selector)
	}
}

// RegionKind selects what a screenshot covers.
type RegionKind int

const (
	FullPage RegionKind = iota // the rendered viewport
	Clip                       // a rectangle in viewport coordinates
	Element                    // the bounding box of one element
)

func (k RegionKind) String() string {
	switch k {
	case Clip:
		return "clip"
	case Element:
		return "element"
	default:
		return "full-page"
	}
}

// Region is a screenshot area.
type Region struct {
	Kind     RegionKind
	X, Y     float64
	Width    float64
	Height   float64
	Selector string
}

func FullPageRegion() Region { return Region{Kind: FullPage} }

func ClipRegion(x, y, width, height float64) Region {
	return Region{Kind: Clip, X: x, Y: y, Width: width, Height: height}
}

func ElementRegion(selector string) Region { return Region{Kind: Element, Selector: selector} }

// ElementState is a read-only snapshot of one element.
type ElementState struct {
	Tag      string   `json:"tag"`
	Matches  int      `json:"matches"`
	Classes  []string `json:"classes"`
	Text     string   `json:"text"`
	Hidden   bool     `json:"hidden"` // hidden attribute or marker on the element or an ancestor
	Disabled bool     `json:"disabled"`

	// Layout is false when the engine does not compute layout; the size
	// and computed style fields are then zero and not consulted.
	Layout     bool    `json:"layout"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Display    string  `json:"display"`
	Visibility string  `json:"visibility"`
}

// Visible reports whether the element renders: no hidden marker, not
// display:none or visibility:hidden, and a non-zero box when layout is known.
func (s *ElementState) Visible() bool {
	if s == nil || s.Hidden {
		return false
	}
	if s.Display == "none" || s.Visibility == "hidden" || s.Visibility == "collapse" {
		return false
	}
	if s.Layout && (s.Width <= 0 || s.Height <= 0) {
		return false
	}
	return true
}

// HasClass reports whether token is one of the element's class tokens.
func (s *ElementState) HasClass(token string) bool {
	return s != nil && slices.Contains(s.Classes, token)
}
