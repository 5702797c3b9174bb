package browser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const fixture = `<!doctype html>
<html><body>
<div class="main-container">
  <div id="login-view"><button id="guest-btn">Continue as Guest</button></div>
  <div id="app-view" class="hidden opacity-0 scale-95">
    <button id="settings-btn" class="p-2 rounded">Settings</button>
    <div id="settings-bubble" class="hidden"><button id="clear-all-btn">Clear</button></div>
    <button id="save-btn" disabled>Save</button>
    <p id="inline" style="DISPLAY: none">x</p>
  </div>
  <span class="dup">one</span><span class="dup">two</span>
</div>
</body></html>`

func newFixture(t *testing.T) *StaticDriver {
	t.Helper()
	d, err := NewStaticDriver(fixture)
	if err != nil {
		t.Fatalf("NewStaticDriver: %v", err)
	}
	return d
}

func TestStaticProbe_HiddenAncestor(t *testing.T) {
	d := newFixture(t)
	ctx := context.Background()

	st, err := d.Probe(ctx, "#settings-btn")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if st.Visible() {
		t.Error("settings-btn inside hidden #app-view should not be visible")
	}

	st, err = d.Probe(ctx, "#guest-btn")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if !st.Visible() {
		t.Error("guest-btn should be visible")
	}
	if st.Tag != "button" {
		t.Errorf("Tag = %q, want button", st.Tag)
	}
}

func TestStaticProbe_InlineDisplayNoneAndDisabled(t *testing.T) {
	d := newFixture(t)
	ctx := context.Background()

	if err := d.Mutate(ctx, Mutation{Selector: "#app-view", Op: RemoveClass, Classes: []string{"hidden"}}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	st, err := d.Probe(ctx, "#inline")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if st.Visible() {
		t.Error("inline display:none should not be visible")
	}
	st, err = d.Probe(ctx, "#save-btn")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if !st.Disabled {
		t.Error("save-btn should be disabled")
	}
}

func TestStaticProbe_FirstOfMany(t *testing.T) {
	d := newFixture(t)
	st, err := d.Probe(context.Background(), ".dup")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if st.Matches != 2 || st.Text != "one" {
		t.Errorf("got matches=%d text=%q, want 2 and %q", st.Matches, st.Text, "one")
	}
}

func TestStaticProbe_NoMatch(t *testing.T) {
	d := newFixture(t)
	_, err := d.Probe(context.Background(), "#missing")
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("err = %v, want ErrNoMatch", err)
	}
	err = d.Mutate(context.Background(), Mutation{Selector: "#missing", Op: AddClass, Classes: []string{"x"}})
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("Mutate err = %v, want ErrNoMatch", err)
	}
}

func TestStaticMutate_ClassOpsIdempotent(t *testing.T) {
	d := newFixture(t)
	ctx := context.Background()
	add := Mutation{Selector: "#settings-btn", Op: AddClass, Classes: []string{"bg-accent"}}
	remove := Mutation{Selector: "#settings-btn", Op: RemoveClass, Classes: []string{"rounded", "absent"}}

	for i := 0; i < 2; i++ {
		if err := d.Mutate(ctx, add); err != nil {
			t.Fatalf("add #%d: %v", i, err)
		}
		if err := d.Mutate(ctx, remove); err != nil {
			t.Fatalf("remove #%d: %v", i, err)
		}
	}
	st, err := d.Probe(ctx, "#settings-btn")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if diff := cmp.Diff([]string{"p-2", "bg-accent"}, st.Classes); diff != "" {
		t.Errorf("classes mismatch (-want +got):\n%s", diff)
	}
}

func TestStaticMutate_TextAndAttribute(t *testing.T) {
	d := newFixture(t)
	ctx := context.Background()
	if err := d.Mutate(ctx, Mutation{Selector: "#guest-btn", Op: SetText, Value: "Hello"}); err != nil {
		t.Fatal(err)
	}
	if err := d.Mutate(ctx, Mutation{Selector: "#guest-btn", Op: SetAttribute, Name: "class", Value: "a  b"}); err != nil {
		t.Fatal(err)
	}
	st, err := d.Probe(ctx, "#guest-btn")
	if err != nil {
		t.Fatal(err)
	}
	if st.Text != "Hello" {
		t.Errorf("Text = %q", st.Text)
	}
	if diff := cmp.Diff([]string{"a", "b"}, st.Classes); diff != "" {
		t.Errorf("classes mismatch (-want +got):\n%s", diff)
	}
}

func TestStaticClick_Records(t *testing.T) {
	d := newFixture(t)
	ctx := context.Background()
	if err := d.Click(ctx, "#guest-btn"); err != nil {
		t.Fatal(err)
	}
	if err := d.Click(ctx, "#nope"); !errors.Is(err, ErrNoMatch) {
		t.Errorf("Click missing = %v, want ErrNoMatch", err)
	}
	if diff := cmp.Diff([]string{"#guest-btn"}, d.Clicks()); diff != "" {
		t.Errorf("clicks mismatch (-want +got):\n%s", diff)
	}
	if _, err := d.Screenshot(ctx, FullPageRegion()); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Screenshot = %v, want ErrUnsupported", err)
	}
}

func TestStaticNavigate_FileAndHTTP(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.html")
	if err := os.WriteFile(path, []byte(fixture), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	drv, err := StaticEngine{}.Launch(ctx, DefaultViewport)
	if err != nil {
		t.Fatal(err)
	}
	defer drv.Close()

	u, err := ResolveTarget("index.html", dir)
	if err != nil {
		t.Fatalf("ResolveTarget: %v", err)
	}
	if err := drv.Navigate(ctx, u); err != nil {
		t.Fatalf("Navigate file: %v", err)
	}
	if _, err := drv.Probe(ctx, "#app-view"); err != nil {
		t.Errorf("Probe after file load: %v", err)
	}

	srv := httptest.NewServer(http.FileServer(http.Dir(dir)))
	defer srv.Close()
	if err := drv.Navigate(ctx, srv.URL+"/index.html"); err != nil {
		t.Fatalf("Navigate http: %v", err)
	}
	if err := drv.Navigate(ctx, srv.URL+"/missing.html"); err == nil {
		t.Error("expected error for 404")
	}
}
