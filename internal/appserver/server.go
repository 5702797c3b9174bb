// Package appserver serves the application directory over HTTP so scenarios
// that need a real origin (ES modules, auth redirects) can run offline.
package appserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"uiverify/internal/logging"
)

// HealthPath answers 200 once the server is accepting connections.
const HealthPath = "/healthz"

// NewRouter returns a handler serving dir as static files. Responses are
// never cached so every run sees the files as they are on disk.
func NewRouter(dir string, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Use(requestLogger(logger))

	r.Get(HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Handle("/*", http.FileServer(http.Dir(dir)))
	return r
}

// Server is a running static origin.
type Server struct {
	srv *http.Server
	ln  net.Listener
	log *slog.Logger
	err chan error
}

// Start serves dir on addr until Shutdown. An addr with port 0 picks a free
// port; URL reports the one chosen.
func Start(addr, dir string, logger *slog.Logger) (*Server, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("app dir: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("app dir %s is not a directory", dir)
	}
	if logger == nil {
		logger = logging.New("appserver")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	s := &Server{
		srv: &http.Server{
			Handler:           NewRouter(dir, logger),
			ReadHeaderTimeout: 10 * time.Second,
		},
		ln:  ln,
		log: logger,
		err: make(chan error, 1),
	}
	go func() {
		err := s.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.err <- err
	}()
	logger.Info("serving app", slog.String("dir", dir), slog.String("url", s.URL()))
	return s, nil
}

// URL is the server's base URL with a trailing slash.
func (s *Server) URL() string {
	addr := s.ln.Addr().(*net.TCPAddr)
	host := addr.IP.String()
	if addr.IP.IsUnspecified() {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s/", net.JoinHostPort(host, fmt.Sprint(addr.Port)))
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown app server: %w", err)
	}
	return <-s.err
}

// Wait blocks until the server stops on its own or ctx is done, then shuts
// it down.
func (s *Server) Wait(ctx context.Context) error {
	select {
	case err := <-s.err:
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return s.Shutdown(sctx)
	}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()))
		})
	}
}
