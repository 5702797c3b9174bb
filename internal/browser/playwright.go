package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightEngine drives Chromium through the Playwright driver. It needs
// the Playwright driver and browsers installed (playwright.Install).
type PlaywrightEngine struct {
	Headless bool
	Timeout  time.Duration
}

func (e PlaywrightEngine) Name() string { return "playwright" }

// Launch starts a Playwright server, a Chromium instance and one context
// with its own page, all owned by the returned driver.
func (e PlaywrightEngine) Launch(ctx context.Context, vp Viewport) (Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timeout := e.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	d := &playwrightDriver{pw: pw}

	d.browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(e.Headless),
	})
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	d.context, err = d.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: vp.Width, Height: vp.Height},
	})
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("new browser context: %w", err)
	}
	d.page, err = d.context.NewPage()
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}
	d.page.SetDefaultTimeout(float64(timeout.Milliseconds()))
	return d, nil
}

type playwrightDriver struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page

	once     sync.Once
	closeErr error
}

func (d *playwrightDriver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := d.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	return err
}

func (d *playwrightDriver) evaluate(ctx context.Context, script string, arg any) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Plain JSON values only; playwright serializes maps and slices, not structs.
	var plain any
	if arg != nil {
		b, err := json.Marshal(arg)
		if err != nil {
			return nil, fmt.Errorf("encode script argument: %w", err)
		}
		if err := json.Unmarshal(b, &plain); err != nil {
			return nil, fmt.Errorf("encode script argument: %w", err)
		}
	}
	res, err := d.page.Evaluate(script, plain)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return json.Marshal(res)
}

func (d *playwrightDriver) Probe(ctx context.Context, selector string) (*ElementState, error) {
	raw, err := d.evaluate(ctx, probeScript, probeArg{Selector: selector})
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", selector, err)
	}
	return decodeState(raw)
}

func (d *playwrightDriver) Mutate(ctx context.Context, m Mutation) error {
	raw, err := d.evaluate(ctx, mutateScript, m)
	if err != nil {
		return fmt.Errorf("mutate %s: %w", m.Selector, err)
	}
	if string(raw) != "true" {
		return ErrNoMatch
	}
	return nil
}

func (d *playwrightDriver) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.page.Locator(selector).First().Click()
}

func (d *playwrightDriver) Screenshot(ctx context.Context, r Region) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf []byte
	var err error
	switch r.Kind {
	case FullPage:
		buf, err = d.page.Screenshot()
	case Clip:
		// Playwright offsets viewport clips by the scroll position itself.
		buf, err = d.page.Screenshot(playwright.PageScreenshotOptions{
			Clip: &playwright.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height},
		})
	case Element:
		buf, err = d.page.Locator(r.Selector).First().Screenshot()
	default:
		return nil, fmt.Errorf("unknown region kind %d", r.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("screenshot %s: %w", r.Kind, err)
	}
	return buf, nil
}

func (d *playwrightDriver) Close() error {
	d.once.Do(func() {
		var errs []error
		if d.context != nil {
			errs = append(errs, d.context.Close())
		}
		if d.browser != nil {
			errs = append(errs, d.browser.Close())
		}
		if d.pw != nil {
			errs = append(errs, d.pw.Stop())
		}
		d.closeErr = errors.Join(errs...)
	})
	return d.closeErr
}
