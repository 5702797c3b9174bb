package browser

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

// The scripts are arrow functions taking one JSON argument so the same
// source serves chromedp (called inline) and playwright (Evaluate with arg).
var (
	//go:embed probe.js
	probeScript string

	//go:embed mutate.js
	mutateScript string

	//go:embed scroll.js
	scrollScript string
)

type probeArg struct {
	Selector string `json:"selector"`
}

// callExpression renders fn applied to arg as a standalone expression.
func callExpression(fn string, arg any) (string, error) {
	if arg == nil {
		return fmt.Sprintf("(%s)()", fn), nil
	}
	b, err := json.Marshal(arg)
	if err != nil {
		return "", fmt.Errorf("encode script argument: %w", err)
	}
	return fmt.Sprintf("(%s)(%s)", fn, b), nil
}

// decodeState parses a probe result. A JSON null means no element matched.
func decodeState(raw []byte) (*ElementState, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, ErrNoMatch
	}
	var st ElementState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode element state: %w", err)
	}
	return &st, nil
}
