package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// StaticEngine parses the target's markup without a browser. It runs no
// scripts and computes no layout: probes report hidden markers only, clicks
// are recorded but trigger nothing, and screenshots are unsupported. It is
// used to lint selectors against the app and as an in-process DOM.
type StaticEngine struct {
	Client *http.Client
}

func (e StaticEngine) Name() string { return "static" }

func (e StaticEngine) Launch(ctx context.Context, _ Viewport) (Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &StaticDriver{client: client}, nil
}

// StaticDriver is the Driver returned by StaticEngine.
type StaticDriver struct {
	client *http.Client

	mu     sync.Mutex
	doc    *goquery.Document
	clicks []string
}

// NewStaticDriver returns a driver already holding the given markup.
func NewStaticDriver(html string) (*StaticDriver, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}
	return &StaticDriver{client: http.DefaultClient, doc: doc}, nil
}

func (d *StaticDriver) Navigate(ctx context.Context, target string) error {
	body, err := d.open(ctx, target)
	if err != nil {
		return err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return fmt.Errorf("parse %s: %w", target, err)
	}
	d.mu.Lock()
	d.doc = doc
	d.clicks = nil
	d.mu.Unlock()
	return nil
}

func (d *StaticDriver) open(ctx context.Context, target string) (io.ReadCloser, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "file":
		return os.Open(filepath.FromSlash(u.Path))
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		resp, err := d.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode/100 != 2 {
			resp.Body.Close()
			return nil, fmt.Errorf("GET %s: %s", target, resp.Status)
		}
		return resp.Body, nil
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}

func (d *StaticDriver) first(selector string) (*goquery.Selection, int, error) {
	if d.doc == nil {
		return nil, 0, fmt.Errorf("no document loaded")
	}
	all := d.doc.Find(selector)
	if all.Length() == 0 {
		return nil, 0, ErrNoMatch
	}
	return all.First(), all.Length(), nil
}

func (d *StaticDriver) Probe(ctx context.Context, selector string) (*ElementState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	el, n, err := d.first(selector)
	if err != nil {
		return nil, err
	}
	_, disabled := el.Attr("disabled")
	if v, ok := el.Attr("aria-disabled"); ok && v == "true" {
		disabled = true
	}
	return &ElementState{
		Tag:      goquery.NodeName(el),
		Matches:  n,
		Classes:  classTokens(el),
		Text:     el.Text(),
		Hidden:   hiddenInTree(el),
		Disabled: disabled,
	}, nil
}

func (d *StaticDriver) Mutate(ctx context.Context, m Mutation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	el, _, err := d.first(m.Selector)
	if err != nil {
		return err
	}
	switch m.Op {
	case AddClass:
		el.AddClass(m.Classes...)
	case RemoveClass:
		el.RemoveClass(m.Classes...)
	case SetText:
		el.SetText(m.Value)
	case SetAttribute:
		el.SetAttr(m.Name, m.Value)
	}
	return nil
}

// Click records the click. No listeners run.
func (d *StaticDriver) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, _, err := d.first(selector); err != nil {
		return err
	}
	d.clicks = append(d.clicks, selector)
	return nil
}

// Clicks returns the selectors clicked since the last navigation.
func (d *StaticDriver) Clicks() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.clicks)
}

func (d *StaticDriver) Screenshot(context.Context, Region) ([]byte, error) {
	return nil, ErrUnsupported
}

// HTML renders the current document.
func (d *StaticDriver) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return "", fmt.Errorf("no document loaded")
	}
	return d.doc.Html()
}

func (d *StaticDriver) Close() error {
	d.mu.Lock()
	d.doc = nil
	d.mu.Unlock()
	return nil
}

func classTokens(s *goquery.Selection) []string {
	v, _ := s.Attr("class")
	return strings.Fields(v)
}

// hiddenInTree reports a hidden marker on s or any ancestor: the hidden
// attribute, a "hidden" class token, or an inline display:none.
func hiddenInTree(s *goquery.Selection) bool {
	for cur := s; cur.Length() > 0; cur = cur.Parent() {
		if _, ok := cur.Attr("hidden"); ok {
			return true
		}
		if slices.Contains(classTokens(cur), "hidden") {
			return true
		}
		if style, ok := cur.Attr("style"); ok {
			compact := strings.ReplaceAll(strings.ToLower(style), " ", "")
			if strings.Contains(compact, "display:none") {
				return true
			}
		}
	}
	return false
}
