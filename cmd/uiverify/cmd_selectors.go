package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"uiverify/internal/browser"
	"uiverify/internal/report"
	"uiverify/internal/selectors"
)

var selectorsFlags struct {
	appDir   string
	target   string
	markdown bool
}

var selectorsCmd = &cobra.Command{
	Use:   "selectors",
	Short: "Check every registered selector against the app's markup",
	Long: `Parses the app's page without a browser and reports registry entries that
match nothing. A rename on the application side shows up here as one missing
entry instead of as failures across many scenarios. Elements created by scripts
at runtime cannot be seen this way.`,
	RunE: runSelectors,
}

func init() {
	f := selectorsCmd.Flags()
	f.StringVar(&selectorsFlags.appDir, "app-dir", ".", "Directory holding the app")
	f.StringVar(&selectorsFlags.target, "target", "index.html", "Page to check, relative to --app-dir, or a URL")
	f.BoolVar(&selectorsFlags.markdown, "markdown", false, "Print as a Markdown table")
}

func runSelectors(cmd *cobra.Command, _ []string) error {
	defaultFrom(cmd.Flags(), "app-dir", &selectorsFlags.appDir, cfg.AppDir)
	ctx := cmd.Context()

	url, err := browser.ResolveTarget(selectorsFlags.target, selectorsFlags.appDir)
	if err != nil {
		return err
	}
	d, err := browser.StaticEngine{}.Launch(ctx, browser.DefaultViewport)
	if err != nil {
		return err
	}
	defer d.Close()
	if err := d.Navigate(ctx, url); err != nil {
		return fmt.Errorf("load %s: %w", url, err)
	}

	findings, err := selectors.Default().Lint(ctx, d)
	if err != nil {
		return err
	}

	tb := report.NewTable(report.ModeFor(selectorsFlags.markdown), "Name", "Selector", "Matches", "OK")
	missing := 0
	for _, f := range findings {
		if !f.OK() {
			missing++
		}
		tb.Row("@"+f.Name, f.Selector, f.Matches, report.PassMark(f.OK()))
	}
	fmt.Fprintln(cmd.OutOrStdout(), tb.String())

	if missing > 0 {
		return fmt.Errorf("%d of %d selectors match nothing in %s", missing, len(findings), url)
	}
	return nil
}
