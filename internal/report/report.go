// Package report renders scenario plans and batch results as tables and
// writes the machine-readable run report.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"uiverify/internal/harness"
)

// FileName is the run report written next to the artifacts.
const FileName = "report.json"

// Plan renders what each scenario will do before anything runs: how much
// of it is injected and how much is driven through the app.
func Plan(scenarios []*harness.Scenario, m Mode) string {
	tb := NewTable(m, "Scenario", "Target", "Viewport", "Steps", "Injected", "Interacted", "Delays", "Description")
	for _, sc := range scenarios {
		p := sc.Plan()
		vp := "default"
		if sc.Viewport != nil {
			vp = sc.Viewport.String()
		}
		tb.Row(sc.Name, sc.Target, vp, len(sc.Steps), p.Injected, p.Interacted, p.Delays, sc.Description)
	}
	tb.Wrap("Description", 60)
	return tb.String()
}

// Summary renders one row per result with a totals footer.
func Summary(b *harness.Batch, m Mode) string {
	tb := NewTable(m, "Scenario", "Result", "Injected", "Interacted", "Asserts", "Delays", "Artifacts", "Duration", "Error")
	tb.Title(fmt.Sprintf("run %s (%s)", b.RunID, b.Engine))

	var tot harness.Coverage
	for _, r := range b.Results {
		c := r.Coverage
		tot.Injected += c.Injected
		tot.Interacted += c.Interacted
		tot.Assertions += c.Assertions
		tot.Delays += c.Delays
		tot.Artifacts = append(tot.Artifacts, c.Artifacts...)
		tb.Row(r.Scenario, PassMark(r.Passed), c.Injected, c.Interacted, c.Assertions, c.Delays,
			len(c.Artifacts), FmtDuration(r.Duration), Truncate(oneLine(r.Error), 160))
	}
	passed := len(b.Results) - len(b.Failed())
	tb.Footer(fmt.Sprintf("%d/%d passed", passed, len(b.Results)), "",
		tot.Injected, tot.Interacted, tot.Assertions, tot.Delays, len(tot.Artifacts), FmtDuration(b.Duration), "")
	tb.Wrap("Error", 80)
	return tb.String()
}

// WriteJSON writes b as indented JSON to dir/report.json and returns the path.
func WriteJSON(dir string, b *harness.Batch) (string, error) {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// FmtDuration formats a duration as "Xm Ys", "Ys" or "Nms".
func FmtDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	s := int(d.Seconds())
	if s >= 60 {
		return fmt.Sprintf("%dm %ds", s/60, s%60)
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// Truncate shortens s to maxLen runes, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// PassMark returns "✓" for true and "✗" for false.
func PassMark(v bool) string {
	if v {
		return "✓"
	}
	return "✗"
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
