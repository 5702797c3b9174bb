package harness

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"uiverify/internal/browser"
)

// appMarkup is a cut-down notes app: a login view, a hidden app view with a
// settings bubble, a profile dropdown, a sidebar and a toast.
const appMarkup = `<!doctype html>
<html class="light"><body>
<div id="login-view" class="main-container">
  <button id="guest-btn">Continue as Guest</button>
</div>
<div id="app-view" class="main-container hidden opacity-0 scale-95">
  <button id="settings-btn" class="p-2 rounded-full">Settings</button>
  <div id="settings-bubble" class="hidden">
    <button id="rename-note-btn" class="hidden">Rename</button>
    <button id="clear-all-btn">Clear all notes</button>
  </div>
  <button id="profile-btn">Me</button>
  <div id="profile-dropdown" class="hidden">
    <p class="label">Local   Storage</p>
    <p id="storage-text">12.4 KB / 928 KB</p>
  </div>
  <aside id="sidebar" class="-translate-x-full"></aside>
</div>
<div id="message-display" class="hidden"><span id="message-text"></span></div>
</body></html>`

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// fakeEngine launches static drivers that stand in for a browser: clicks
// can run scripted listeners and screenshots return PNG bytes.
type fakeEngine struct {
	html        string
	listeners   map[string][]browser.Mutation
	navigateErr error

	launches atomic.Int32
	closes   atomic.Int32

	mu      sync.Mutex
	drivers []*fakeDriver
}

func newFakeEngine(t *testing.T) *fakeEngine {
	t.Helper()
	return &fakeEngine{html: appMarkup, listeners: map[string][]browser.Mutation{}}
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Launch(ctx context.Context, vp browser.Viewport) (browser.Driver, error) {
	sd, err := browser.NewStaticDriver(e.html)
	if err != nil {
		return nil, err
	}
	e.launches.Add(1)
	d := &fakeDriver{StaticDriver: sd, eng: e, viewport: vp}
	e.mu.Lock()
	e.drivers = append(e.drivers, d)
	e.mu.Unlock()
	return d, nil
}

func (e *fakeEngine) lastDriver() *fakeDriver {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drivers[len(e.drivers)-1]
}

type fakeDriver struct {
	*browser.StaticDriver
	eng      *fakeEngine
	viewport browser.Viewport

	// reveal is applied once probes reaches revealAfter.
	reveal      *browser.Mutation
	revealAfter int
	probes      int

	shots []browser.Region
}

func (d *fakeDriver) Navigate(ctx context.Context, target string) error {
	return d.eng.navigateErr
}

func (d *fakeDriver) Probe(ctx context.Context, selector string) (*browser.ElementState, error) {
	d.probes++
	if d.reveal != nil && d.probes >= d.revealAfter {
		if err := d.StaticDriver.Mutate(ctx, *d.reveal); err != nil {
			return nil, err
		}
		d.reveal = nil
	}
	return d.StaticDriver.Probe(ctx, selector)
}

func (d *fakeDriver) Click(ctx context.Context, selector string) error {
	if err := d.StaticDriver.Click(ctx, selector); err != nil {
		return err
	}
	for _, m := range d.eng.listeners[selector] {
		if err := d.StaticDriver.Mutate(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (d *fakeDriver) Screenshot(ctx context.Context, r browser.Region) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.shots = append(d.shots, r)
	return append([]byte(nil), pngMagic...), nil
}

func (d *fakeDriver) Close() error {
	d.eng.closes.Add(1)
	return d.StaticDriver.Close()
}

func openFake(t *testing.T, eng *fakeEngine) *Session {
	t.Helper()
	s, err := Open(context.Background(), eng, SessionConfig{Target: "http://app.test/"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func removeClass(sel string, classes ...string) browser.Mutation {
	return browser.Mutation{Selector: sel, Op: browser.RemoveClass, Classes: classes}
}

func addClass(sel string, classes ...string) browser.Mutation {
	return browser.Mutation{Selector: sel, Op: browser.AddClass, Classes: classes}
}

// appViewActive is the injected "logged in" state.
var appViewActive = StateDescriptor{
	Name: "app-view",
	Mutations: []browser.Mutation{
		removeClass("#app-view", "hidden", "opacity-0", "scale-95"),
		addClass("#login-view", "hidden"),
	},
}

func wantErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("err = %v, want %v", err, target)
	}
}
