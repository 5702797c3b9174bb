// Package scenarios holds the built-in verification scenarios and the state
// library they share, and turns them into runnable harness scenarios.
package scenarios

import (
	"embed"
	"fmt"
	"maps"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"uiverify/internal/browser"
	"uiverify/internal/harness"
	"uiverify/internal/selectors"
)

//go:embed library/*.yaml
var scenarioFS embed.FS

//go:embed states.yaml
var statesYAML []byte

// stateDef is a state as written in states.yaml.
type stateDef struct {
	harness.StateDescriptor `yaml:",inline"`
	Extends                 string `yaml:"extends,omitempty"`
}

// Loader resolves scenario files against a state library and a selector
// registry.
type Loader struct {
	states   map[string]stateDef
	Registry *selectors.Registry
}

// NewLoader parses a state library. A nil registry means selectors.Default().
func NewLoader(states []byte, reg *selectors.Registry) (*Loader, error) {
	var defs map[string]stateDef
	if err := yaml.Unmarshal(states, &defs); err != nil {
		return nil, fmt.Errorf("parse state library: %w", err)
	}
	for name, d := range defs {
		d.Name = name
		defs[name] = d
	}
	if reg == nil {
		reg = selectors.Default()
	}
	return &Loader{states: defs, Registry: reg}, nil
}

var builtin = sync.OnceValues(func() (*Loader, error) {
	return NewLoader(statesYAML, nil)
})

func defaultLoader() *Loader {
	l, err := builtin()
	if err != nil {
		panic(fmt.Sprintf("load states.yaml: %v", err))
	}
	return l
}

// Load reads a built-in scenario by name. vars override the scenario's own
// variable defaults.
func Load(name string, vars map[string]string) (*harness.Scenario, error) {
	data, err := scenarioFS.ReadFile("library/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("scenario %q not found (available: %s): %w",
			name, strings.Join(List(), ", "), err)
	}
	return defaultLoader().Parse(data, vars)
}

// LoadAll loads every built-in scenario in List order.
func LoadAll(vars map[string]string) ([]*harness.Scenario, error) {
	var out []*harness.Scenario
	for _, name := range List() {
		sc, err := Load(name, vars)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

// List returns the names of all built-in scenarios, sorted.
func List() []string {
	entries, _ := scenarioFS.ReadDir("library")
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
		}
	}
	sort.Strings(names)
	return names
}

// States returns the names in the built-in state library, sorted.
func States() []string {
	l := defaultLoader()
	names := make([]string, 0, len(l.states))
	for name := range l.states {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse decodes one scenario document, expands its variables, resolves
// selector references and states, and validates the result.
func (l *Loader) Parse(data []byte, vars map[string]string) (*harness.Scenario, error) {
	var sc harness.Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("parse scenario: name is required")
	}

	merged := maps.Clone(sc.Vars)
	if merged == nil {
		merged = map[string]string{}
	}
	maps.Copy(merged, vars)
	sc.Vars = merged

	r := &resolver{vars: merged, reg: l.Registry}
	sc.Target = r.expand(sc.Target)
	if r.err != nil {
		return nil, fmt.Errorf("scenario %s target: %w", sc.Name, r.err)
	}
	for i := range sc.Steps {
		st := &sc.Steps[i]
		if st.State != "" {
			d, err := l.state(st.State, nil)
			if err != nil {
				return nil, fmt.Errorf("scenario %s step %d: %w", sc.Name, i+1, err)
			}
			r.descriptor(&d)
			st.Reach = &d
		}
		r.step(st)
		if r.err != nil {
			return nil, fmt.Errorf("scenario %s step %d: %w", sc.Name, i+1, r.err)
		}
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// state flattens name and its extends chain into one descriptor, parents
// first.
func (l *Loader) state(name string, seen []string) (harness.StateDescriptor, error) {
	for _, s := range seen {
		if s == name {
			return harness.StateDescriptor{}, fmt.Errorf("state %s extends itself (%s)", name, strings.Join(append(seen, name), " -> "))
		}
	}
	def, ok := l.states[name]
	if !ok {
		return harness.StateDescriptor{}, fmt.Errorf("unknown state %q", name)
	}
	out := harness.StateDescriptor{Name: name, Description: def.Description}
	if def.Extends != "" {
		parent, err := l.state(def.Extends, append(seen, name))
		if err != nil {
			return harness.StateDescriptor{}, err
		}
		out.Mutations = append(out.Mutations, parent.Mutations...)
		out.Interactions = append(out.Interactions, parent.Interactions...)
	}
	out.Mutations = append(out.Mutations, def.Mutations...)
	out.Interactions = append(out.Interactions, def.Interactions...)
	return out, nil
}

var varRef = regexp.MustCompile(`\$\{([A-Za-z0-9_.-]+)\}`)

// resolver expands variables and selector references in place. The first
// error sticks; later calls are no-ops.
type resolver struct {
	vars map[string]string
	reg  *selectors.Registry
	err  error
}

func (r *resolver) expand(s string) string {
	if r.err != nil {
		return s
	}
	return varRef.ReplaceAllStringFunc(s, func(m string) string {
		name := varRef.FindStringSubmatch(m)[1]
		v, ok := r.vars[name]
		if !ok && r.err == nil {
			r.err = fmt.Errorf("undefined variable ${%s}", name)
		}
		return v
	})
}

func (r *resolver) selector(s string) string {
	s = r.expand(s)
	if r.err != nil || s == "" {
		return s
	}
	css, err := r.reg.Resolve(s)
	if err != nil {
		r.err = err
	}
	return css
}

func (r *resolver) descriptor(d *harness.StateDescriptor) {
	ms := make([]browser.Mutation, len(d.Mutations))
	for i, m := range d.Mutations {
		ms[i] = r.mutation(m)
	}
	d.Mutations = ms
	ins := make([]harness.Interaction, len(d.Interactions))
	for i, in := range d.Interactions {
		in.Selector = r.selector(in.Selector)
		ins[i] = in
	}
	d.Interactions = ins
}

func (r *resolver) mutation(m browser.Mutation) browser.Mutation {
	m.Selector = r.selector(m.Selector)
	m.Value = r.expand(m.Value)
	classes := make([]string, len(m.Classes))
	for i, c := range m.Classes {
		classes[i] = r.expand(c)
	}
	if m.Classes != nil {
		m.Classes = classes
	}
	return m
}

func (r *resolver) step(st *harness.Step) {
	if st.Inject != nil {
		m := r.mutation(*st.Inject)
		st.Inject = &m
	}
	st.Click = r.selector(st.Click)
	if st.Wait != nil {
		w := *st.Wait
		w.Selector = r.selector(w.Selector)
		st.Wait = &w
	}
	if st.Assert != nil {
		a := *st.Assert
		a.Selector = r.selector(a.Selector)
		a.Value = r.expand(a.Value)
		st.Assert = &a
	}
	if st.Capture != nil {
		c := *st.Capture
		c.Path = r.expand(c.Path)
		c.Element = r.selector(c.Element)
		st.Capture = &c
	}
}
