package harness

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"uiverify/internal/browser"
	"uiverify/internal/logging"
)

// BatchOptions configure RunAll.
type BatchOptions struct {
	RunOptions
	Parallel int // concurrent sessions; <= 0 means 1
}

// Batch is the outcome of a set of scenarios.
type Batch struct {
	RunID    string        `json:"run_id"`
	Engine   string        `json:"engine"`
	Results  []Result      `json:"results"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
}

// Failed returns the results that did not pass.
func (b *Batch) Failed() []Result {
	var out []Result
	for _, r := range b.Results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// Passed reports whether every scenario passed.
func (b *Batch) Passed() bool { return len(b.Failed()) == 0 }

// RunAll runs every scenario in its own session, up to opts.Parallel at a
// time. Results keep the input order. Scenario failures are reported in the
// results; the returned error is only for a batch that could not start, such
// as two scenarios writing the same artifact.
func RunAll(ctx context.Context, eng browser.Engine, scenarios []*Scenario, opts BatchOptions) (*Batch, error) {
	if err := checkBatch(scenarios, opts.RunOptions); err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = logging.New("batch")
	}
	b := &Batch{
		RunID:   uuid.NewString(),
		Engine:  eng.Name(),
		Results: make([]Result, len(scenarios)),
		Started: time.Now(),
	}
	log = log.With(slog.String("run", b.RunID))
	log.Info("batch started", slog.Int("scenarios", len(scenarios)), slog.Int("parallel", max(opts.Parallel, 1)))

	ro := opts.RunOptions
	ro.Logger = log

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Parallel, 1))
	for i, sc := range scenarios {
		g.Go(func() error {
			b.Results[i] = Run(gctx, eng, sc, ro)
			return nil
		})
	}
	_ = g.Wait()

	b.Duration = time.Since(b.Started)
	log.Info("batch finished",
		slog.Int("passed", len(b.Results)-len(b.Failed())),
		slog.Int("failed", len(b.Failed())),
		slog.Duration("duration", b.Duration))
	return b, nil
}

// checkBatch rejects batches whose scenarios would overwrite each other's
// artifacts, since concurrent sessions write them unsynchronised.
func checkBatch(scenarios []*Scenario, opts RunOptions) error {
	names := make(map[string]bool, len(scenarios))
	owner := make(map[string]string)
	for _, sc := range scenarios {
		if err := sc.Validate(); err != nil {
			return err
		}
		if names[sc.Name] {
			return fmt.Errorf("scenario %s listed twice", sc.Name)
		}
		names[sc.Name] = true

		var paths []string
		for _, p := range sc.Plan().Artifacts {
			paths = append(paths, opts.artifactPath(p))
		}
		paths = append(paths, opts.DiagnosticPath(sc.Name))
		for _, p := range paths {
			p = filepath.Clean(p)
			if prev, ok := owner[p]; ok && prev != sc.Name {
				return fmt.Errorf("artifact %s is written by both %s and %s", p, prev, sc.Name)
			}
			owner[p] = sc.Name
		}
	}
	return nil
}
