package selectors_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"uiverify/internal/browser"
	"uiverify/internal/selectors"
)

func TestDefault_Resolve(t *testing.T) {
	r := selectors.Default()
	tests := []struct {
		ref, want string
	}{
		{"@app-view", "#app-view"},
		{"@main-container", ".main-container"},
		{"@root", "html"},
		{"#raw-css > span", "#raw-css > span"},
		{"", ""},
	}
	for _, tc := range tests {
		got, err := r.Resolve(tc.ref)
		if err != nil {
			t.Errorf("Resolve(%q): %v", tc.ref, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Resolve(%q) = %q, want %q", tc.ref, got, tc.want)
		}
	}
}

func TestResolve_Unknown(t *testing.T) {
	_, err := selectors.Default().Resolve("@settings-button")
	if err == nil {
		t.Fatal("expected error for unknown reference")
	}
	if !strings.Contains(err.Error(), "@settings-button") {
		t.Errorf("error %q does not name the reference", err)
	}
}

func TestDefault_CoversTheApp(t *testing.T) {
	names := selectors.Default().Names()
	for _, want := range []string{
		"app-view", "clear-all-btn", "login-view", "main-container", "message-display",
		"message-text", "profile-btn", "profile-dropdown", "rename-note-btn", "settings-btn",
		"settings-bubble", "sidebar", "storage-text",
	} {
		if _, ok := selectors.Default().Lookup(want); !ok {
			t.Errorf("registry has no %q (have %v)", want, names)
		}
	}
}

func TestParse_Rejects(t *testing.T) {
	for _, in := range []string{
		"a: ''",
		"a: '@b'\nb: '#b'",
		"- not a map",
	} {
		if _, err := selectors.Parse([]byte(in)); err == nil {
			t.Errorf("Parse(%q) accepted", in)
		}
	}
}

func TestLint(t *testing.T) {
	r, err := selectors.Parse([]byte(`
app-view: "#app-view"
toast: "#toast"
items: li
`))
	if err != nil {
		t.Fatal(err)
	}
	d, err := browser.NewStaticDriver(`<div id="app-view"><ul><li>a</li><li>b</li></ul></div>`)
	if err != nil {
		t.Fatal(err)
	}
	findings, err := r.Lint(context.Background(), d)
	if err != nil {
		t.Fatalf("Lint: %v", err)
	}
	want := []selectors.Finding{
		{Name: "app-view", Selector: "#app-view", Matches: 1},
		{Name: "items", Selector: "li", Matches: 2},
		{Name: "toast", Selector: "#toast", Matches: 0},
	}
	if diff := cmp.Diff(want, findings); diff != "" {
		t.Errorf("Lint mismatch (-want +got):\n%s", diff)
	}
	if findings[2].OK() {
		t.Error("missing entry reported OK")
	}
}
