package browser

import (
	"fmt"
	"strings"
	"time"
)

// EngineNames lists the engines NewEngine accepts, default first.
var EngineNames = []string{"chromedp", "playwright", "static"}

// NewEngine returns the engine called name. headless and timeout apply to
// the browser engines only.
func NewEngine(name string, headless bool, timeout time.Duration) (Engine, error) {
	switch strings.ToLower(name) {
	case "", "chromedp", "chrome":
		return ChromeEngine{Headless: headless, Timeout: timeout}, nil
	case "playwright":
		return PlaywrightEngine{Headless: headless, Timeout: timeout}, nil
	case "static":
		return StaticEngine{}, nil
	default:
		return nil, fmt.Errorf("unknown engine %q (want one of %s)", name, strings.Join(EngineNames, ", "))
	}
}
