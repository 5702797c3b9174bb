package report_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"uiverify/internal/browser"
	"uiverify/internal/harness"
	"uiverify/internal/report"
)

func TestTable_ASCII(t *testing.T) {
	tb := report.NewTable(report.ASCII, "Scenario", "Result")
	tb.Title("run 1")
	tb.Row("settings-menu", "✓")
	out := tb.String()

	for _, want := range []string{"settings-menu", "───", "run 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestTable_MarkdownWithFooter(t *testing.T) {
	tb := report.NewTable(report.Markdown, "Scenario", "Asserts")
	tb.Row("rename-ux", 4)
	tb.Footer("TOTAL", 4)
	out := tb.String()

	for _, want := range []string{"| Scenario", "---", "rename-ux", "TOTAL"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	// integer columns are right-aligned
	if !strings.Contains(out, "---:") {
		t.Errorf("expected right-aligned numeric column:\n%s", out)
	}
}

func TestModeFor(t *testing.T) {
	if report.ModeFor(true) != report.Markdown || report.ModeFor(false) != report.ASCII {
		t.Error("ModeFor mapping")
	}
}

func sampleBatch() *harness.Batch {
	return &harness.Batch{
		RunID:    "run-1",
		Engine:   "chromedp",
		Started:  time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
		Duration: 2500 * time.Millisecond,
		Results: []harness.Result{
			{
				Scenario: "settings-menu",
				Passed:   true,
				Coverage: harness.Coverage{Injected: 4, Waits: 1, Assertions: 1, Artifacts: []string{"out/settings_menu.png"}},
				Duration: 900 * time.Millisecond,
			},
			{
				Scenario:   "storage-indicator",
				Passed:     false,
				Error:      "step 9 (assert #storage-text contains-text \"/ 928 KB\"):\nactual text=\"0.0 KB / 1 MB\"",
				Err:        errors.New("boom"),
				FailedStep: 9,
				Diagnostic: "out/storage-indicator-failure.png",
				Coverage:   harness.Coverage{Interacted: 2, Waits: 2, Delays: 1, Assertions: 3},
				Duration:   1600 * time.Millisecond,
			},
		},
	}
}

func TestSummary(t *testing.T) {
	out := report.Summary(sampleBatch(), report.ASCII)
	for _, want := range []string{"settings-menu", "storage-indicator", "✓", "✗", "1/2", "900ms", "contains-text", "run-1"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "):\nactual") {
		t.Errorf("error not flattened to one line:\n%s", out)
	}
}

func TestPlan(t *testing.T) {
	sc := &harness.Scenario{
		Name:     "toast-mobile",
		Target:   "index.html",
		Viewport: &browser.Viewport{Width: 375, Height: 667},
		Steps: []harness.Step{
			{Inject: &browser.Mutation{Selector: "#a", Op: browser.AddClass, Classes: []string{"x"}}},
			{Click: "#clear-all-btn"},
		},
	}
	out := report.Plan([]*harness.Scenario{sc}, report.Markdown)
	for _, want := range []string{"toast-mobile", "375x667", "| Injected"} {
		if !strings.Contains(out, want) {
			t.Errorf("plan missing %q:\n%s", want, out)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := report.WriteJSON(dir, sampleBatch())
	if err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if path != filepath.Join(dir, report.FileName) {
		t.Errorf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		RunID   string `json:"run_id"`
		Results []struct {
			Scenario   string `json:"scenario"`
			Passed     bool   `json:"passed"`
			FailedStep int    `json:"failed_step"`
			Diagnostic string `json:"diagnostic"`
		} `json:"results"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.RunID != "run-1" || len(got.Results) != 2 {
		t.Fatalf("report = %+v", got)
	}
	if diff := cmp.Diff("out/storage-indicator-failure.png", got.Results[1].Diagnostic); diff != "" {
		t.Errorf("diagnostic mismatch:\n%s", diff)
	}
	if strings.Contains(string(data), "boom") {
		t.Error("Err leaked into the report")
	}
}

func TestFmtDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0ms"},
		{450 * time.Millisecond, "450ms"},
		{1500 * time.Millisecond, "1.5s"},
		{59 * time.Second, "59.0s"},
		{90 * time.Second, "1m 30s"},
	}
	for _, tc := range tests {
		if got := report.FmtDuration(tc.in); got != tc.want {
			t.Errorf("FmtDuration(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"abcdef", 3, "abc"},
		{"✓✓✓✓✓", 4, "✓..."},
	}
	for _, tc := range tests {
		if got := report.Truncate(tc.in, tc.maxLen); got != tc.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tc.in, tc.maxLen, got, tc.want)
		}
	}
}
