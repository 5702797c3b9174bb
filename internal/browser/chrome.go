package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ChromeEngine drives headless Chrome over the DevTools protocol.
type ChromeEngine struct {
	Headless bool
	ExecPath string        // empty = let chromedp find Chrome
	Timeout  time.Duration // upper bound for any single driver call (default 30s)
}

func (e ChromeEngine) Name() string { return "chromedp" }

// Launch starts a dedicated Chrome process for one session.
func (e ChromeEngine) Launch(ctx context.Context, vp Viewport) (Driver, error) {
	timeout := e.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", e.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.WindowSize(vp.Width, vp.Height),
	)
	if e.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(e.ExecPath))
	}

	// The browser outlives cancellation of ctx so teardown and the failure
	// screenshot still work; Close is what ends it.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	d := &chromeDriver{
		ctx:     browserCtx,
		timeout: timeout,
		release: func() {
			_ = chromedp.Cancel(browserCtx)
			browserCancel()
			allocCancel()
		},
	}
	if err := d.run(ctx, chromedp.EmulateViewport(int64(vp.Width), int64(vp.Height))); err != nil {
		d.Close()
		return nil, fmt.Errorf("launch chrome: %w", err)
	}
	return d, nil
}

type chromeDriver struct {
	ctx     context.Context
	timeout time.Duration
	release func()
	once    sync.Once
}

// run executes actions on the tab, bounded by the driver timeout and by ctx.
func (d *chromeDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(d.ctx, d.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (d *chromeDriver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (d *chromeDriver) Probe(ctx context.Context, selector string) (*ElementState, error) {
	expr, err := callExpression(probeScript, probeArg{Selector: selector})
	if err != nil {
		return nil, err
	}
	var raw []byte
	if err := d.run(ctx, chromedp.Evaluate(expr, &raw)); err != nil {
		return nil, fmt.Errorf("probe %s: %w", selector, err)
	}
	return decodeState(raw)
}

func (d *chromeDriver) Mutate(ctx context.Context, m Mutation) error {
	expr, err := callExpression(mutateScript, m)
	if err != nil {
		return err
	}
	var applied bool
	if err := d.run(ctx, chromedp.Evaluate(expr, &applied)); err != nil {
		return fmt.Errorf("mutate %s: %w", m.Selector, err)
	}
	if !applied {
		return ErrNoMatch
	}
	return nil
}

func (d *chromeDriver) Click(ctx context.Context, selector string) error {
	return d.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

func (d *chromeDriver) Screenshot(ctx context.Context, r Region) ([]byte, error) {
	var buf []byte
	var err error
	switch r.Kind {
	case FullPage:
		err = d.run(ctx, chromedp.CaptureScreenshot(&buf))
	case Clip:
		err = d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			// Clip rectangles are in document coordinates; callers pass viewport ones.
			expr, err := callExpression(scrollScript, nil)
			if err != nil {
				return err
			}
			var scroll []float64
			if err := chromedp.Evaluate(expr, &scroll).Do(ctx); err != nil {
				return err
			}
			var sx, sy float64
			if len(scroll) == 2 {
				sx, sy = scroll[0], scroll[1]
			}
			buf, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatPng).
				WithClip(&page.Viewport{X: r.X + sx, Y: r.Y + sy, Width: r.Width, Height: r.Height, Scale: 1}).
				Do(ctx)
			return err
		}))
	case Element:
		err = d.run(ctx, chromedp.Screenshot(r.Selector, &buf, chromedp.ByQuery, chromedp.NodeVisible))
	default:
		return nil, fmt.Errorf("unknown region kind %d", r.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("screenshot %s: %w", r.Kind, err)
	}
	return buf, nil
}

func (d *chromeDriver) Close() error {
	d.once.Do(d.release)
	return nil
}
