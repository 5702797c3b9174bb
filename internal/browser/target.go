package browser

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// ResolveTarget turns a scenario target into a URL a driver can navigate to.
//
// http(s) and file URLs are used as given; anything without a scheme is a
// document path, relative to baseDir when not absolute. Local documents must
// exist so a missing file fails before a browser is launched.
func ResolveTarget(target, baseDir string) (string, error) {
	if target == "" {
		return "", errors.New("empty target")
	}
	if u, err := url.Parse(target); err == nil && len(u.Scheme) > 1 {
		switch u.Scheme {
		case "http", "https":
			if u.Host == "" {
				return "", fmt.Errorf("origin %q has no host", target)
			}
			return target, nil
		case "file":
			if _, err := os.Stat(filepath.FromSlash(u.Path)); err != nil {
				return "", fmt.Errorf("local document: %w", err)
			}
			return target, nil
		default:
			return "", fmt.Errorf("unsupported target scheme %q", u.Scheme)
		}
	}

	p := target
	if !filepath.IsAbs(p) {
		p = filepath.Join(baseDir, p)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", target, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("local document: %w", err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}
