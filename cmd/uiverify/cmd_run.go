package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"uiverify/internal/appserver"
	"uiverify/internal/browser"
	"uiverify/internal/harness"
	"uiverify/internal/logging"
	"uiverify/internal/report"
	"uiverify/internal/scenarios"
	"uiverify/internal/watch"
)

var runFlags struct {
	engine   string
	appDir   string
	outDir   string
	baseURL  string
	headless bool
	parallel int
	timeout  time.Duration
	vars     []string
	serve    bool
	watch    bool
	markdown bool
}

var runCmd = &cobra.Command{
	Use:   "run [scenario...]",
	Short: "Run verification scenarios (all when none are named)",
	Long: `Runs each scenario in its own browser session and writes its screenshots and
report.json to the output directory. Exits non-zero when any scenario fails.

With --serve the app directory is served on a free local port and base_url
points at it, so scenarios that need a real origin run without a separate server.`,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.engine, "engine", "chromedp", "Browser engine: "+strings.Join(browser.EngineNames, ", "))
	f.StringVar(&runFlags.appDir, "app-dir", ".", "Directory holding the app's index.html")
	f.StringVarP(&runFlags.outDir, "out", "o", "verification", "Directory for screenshots and report.json")
	f.StringVar(&runFlags.baseURL, "base-url", "", "Origin for served-app scenarios (sets the base_url variable)")
	f.BoolVar(&runFlags.headless, "headless", true, "Run the browser without a window")
	f.IntVar(&runFlags.parallel, "parallel", 1, "Scenarios to run at once, each in its own browser")
	f.DurationVar(&runFlags.timeout, "timeout", 30*time.Second, "Upper bound for a single browser operation")
	f.StringArrayVar(&runFlags.vars, "var", nil, "Override a scenario variable (key=value, repeatable)")
	f.BoolVar(&runFlags.serve, "serve", false, "Serve --app-dir on a free port and use it as base_url")
	f.BoolVar(&runFlags.watch, "watch", false, "Re-run whenever files under --app-dir change")
	f.BoolVar(&runFlags.markdown, "markdown", false, "Print the summary as a Markdown table")
}

func applyRunConfig(cmd *cobra.Command) {
	f := cmd.Flags()
	defaultFrom(f, "engine", &runFlags.engine, cfg.Engine)
	defaultFrom(f, "app-dir", &runFlags.appDir, cfg.AppDir)
	defaultFrom(f, "out", &runFlags.outDir, cfg.OutDir)
	defaultFrom(f, "base-url", &runFlags.baseURL, cfg.BaseURL)
	defaultFrom(f, "headless", &runFlags.headless, cfg.Headless)
	defaultFrom(f, "parallel", &runFlags.parallel, cfg.Parallel)
	defaultFrom(f, "timeout", &runFlags.timeout, cfg.Timeout)
}

func runRun(cmd *cobra.Command, args []string) error {
	applyRunConfig(cmd)
	log := logging.New("run")

	vars, err := parseVars(runFlags.vars)
	if err != nil {
		return err
	}
	if runFlags.baseURL != "" {
		vars["base_url"] = runFlags.baseURL
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if runFlags.serve {
		srv, err := appserver.Start("127.0.0.1:0", runFlags.appDir, logging.New("appserver"))
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				log.Warn("stop app server", slog.Any("err", err))
			}
		}()
		vars["base_url"] = srv.URL()
	}

	scs, err := loadScenarios(args, vars)
	if err != nil {
		return err
	}
	eng, err := browser.NewEngine(runFlags.engine, runFlags.headless, runFlags.timeout)
	if err != nil {
		return err
	}

	opts := harness.BatchOptions{
		RunOptions: harness.RunOptions{OutDir: runFlags.outDir, BaseDir: runFlags.appDir},
		Parallel:   runFlags.parallel,
	}
	b, err := runBatch(ctx, cmd, eng, scs, opts)
	if err != nil {
		return err
	}
	if !runFlags.watch {
		if !b.Passed() {
			return errFailed
		}
		return nil
	}

	w, err := watch.New(runFlags.appDir, watch.Options{Ignore: []string{runFlags.outDir}})
	if err != nil {
		return err
	}
	defer w.Close()
	log.Info("watching for changes", slog.String("dir", runFlags.appDir))
	return w.Run(ctx, func(ctx context.Context, changed []string) {
		log.Info("change detected; re-running", slog.Int("files", len(changed)), slog.String("first", changed[0]))
		if _, err := runBatch(ctx, cmd, eng, scs, opts); err != nil {
			log.Error("re-run", slog.Any("err", err))
		}
	})
}

// runBatch runs scs once, prints the summary and writes report.json.
func runBatch(ctx context.Context, cmd *cobra.Command, eng browser.Engine, scs []*harness.Scenario, opts harness.BatchOptions) (*harness.Batch, error) {
	b, err := harness.RunAll(ctx, eng, scs, opts)
	if err != nil {
		return nil, err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, report.Summary(b, report.ModeFor(runFlags.markdown)))
	for _, r := range b.Failed() {
		fmt.Fprintf(out, "\nFAIL %s: %s\n", r.Scenario, r.Error)
		if r.Diagnostic != "" {
			fmt.Fprintf(out, "     screenshot: %s\n", r.Diagnostic)
		}
	}
	path, err := report.WriteJSON(opts.OutDir, b)
	if err != nil {
		return b, err
	}
	fmt.Fprintf(out, "\nreport: %s\n", path)
	return b, nil
}

func loadScenarios(names []string, vars map[string]string) ([]*harness.Scenario, error) {
	if len(names) == 0 {
		return scenarios.LoadAll(vars)
	}
	var out []*harness.Scenario
	for _, name := range names {
		sc, err := scenarios.Load(strings.TrimSuffix(filepath.Base(name), ".yaml"), vars)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

func parseVars(kvs []string) (map[string]string, error) {
	vars := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("--var %q: want key=value", kv)
		}
		vars[strings.TrimSpace(k)] = v
	}
	return vars, nil
}
