package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"uiverify/internal/browser"
)

// Capture screenshots r and writes it to path, replacing any existing file
// and creating parent directories. Element regions follow the same
// zero-match rule as injection.
func Capture(ctx context.Context, s *Session, r browser.Region, path string) error {
	if r.Kind == browser.Element {
		if _, err := s.probe(ctx, r.Selector, "capture"); err != nil {
			return err
		}
	}
	if err := s.writeScreenshot(ctx, r, path); err != nil {
		return err
	}
	s.coverage.Artifacts = append(s.coverage.Artifacts, path)
	s.log.Info("captured", slog.String("region", r.Kind.String()), slog.String("path", path))
	return nil
}

func (s *Session) writeScreenshot(ctx context.Context, r browser.Region, path string) error {
	buf, err := s.driver.Screenshot(ctx, r)
	if err != nil {
		return fmt.Errorf("capture %s: %w", r.Kind, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("capture %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("capture %s: %w", path, err)
	}
	return nil
}
