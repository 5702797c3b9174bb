// Package selectors maps logical element names to the CSS selectors of the
// application under verification. Scenarios refer to elements as @name so a
// rename on the application side is a one-line change in selectors.yaml.
package selectors

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"uiverify/internal/browser"
)

//go:embed selectors.yaml
var registryYAML []byte

// Prefix marks a registry reference.
const Prefix = "@"

// Registry is an immutable name to selector table.
type Registry struct {
	entries map[string]string
}

// Parse reads a registry from YAML of the form `name: selector`.
func Parse(data []byte) (*Registry, error) {
	var entries map[string]string
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse selector registry: %w", err)
	}
	for name, sel := range entries {
		if strings.TrimSpace(sel) == "" {
			return nil, fmt.Errorf("selector registry: %q has an empty selector", name)
		}
		if strings.HasPrefix(sel, Prefix) {
			return nil, fmt.Errorf("selector registry: %q refers to %s; entries must be CSS", name, sel)
		}
	}
	return &Registry{entries: entries}, nil
}

var defaultRegistry = sync.OnceValues(func() (*Registry, error) {
	return Parse(registryYAML)
})

// Default returns the embedded registry.
func Default() *Registry {
	r, err := defaultRegistry()
	if err != nil {
		panic(fmt.Sprintf("load selectors.yaml: %v", err))
	}
	return r
}

// Resolve returns the CSS for ref. A ref starting with @ must name a
// registry entry; anything else is returned unchanged.
func (r *Registry) Resolve(ref string) (string, error) {
	name, ok := strings.CutPrefix(ref, Prefix)
	if !ok {
		return ref, nil
	}
	sel, ok := r.entries[name]
	if !ok {
		return "", fmt.Errorf("unknown selector %s (known: %s)", ref, strings.Join(r.Names(), ", "))
	}
	return sel, nil
}

// Lookup returns the selector registered under name.
func (r *Registry) Lookup(name string) (string, bool) {
	sel, ok := r.entries[name]
	return sel, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.entries))
}

// Finding is the lint outcome for one registry entry.
type Finding struct {
	Name     string
	Selector string
	Matches  int
}

// OK reports whether the entry matched at least one element.
func (f Finding) OK() bool { return f.Matches > 0 }

// Lint probes every entry against the page loaded in d, in name order.
// Entries that match nothing are reported with Matches == 0; driver
// failures other than a zero match abort the lint.
func (r *Registry) Lint(ctx context.Context, d browser.Driver) ([]Finding, error) {
	var out []Finding
	for _, name := range r.Names() {
		sel := r.entries[name]
		f := Finding{Name: name, Selector: sel}
		st, err := d.Probe(ctx, sel)
		switch {
		case errors.Is(err, browser.ErrNoMatch):
		case err != nil:
			return out, fmt.Errorf("lint %s (%s): %w", name, sel, err)
		default:
			f.Matches = st.Matches
		}
		out = append(out, f)
	}
	return out, nil
}
