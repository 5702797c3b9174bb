package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"uiverify/internal/appserver"
	"uiverify/internal/logging"
)

var serveFlags struct {
	appDir string
	addr   string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the app directory over HTTP for served-origin scenarios",
	Long: `Serves --app-dir as static files with caching disabled until interrupted.
Point base_url at it (--base-url or UIVERIFY_BASE_URL) when running scenarios
from another terminal.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.appDir, "app-dir", ".", "Directory to serve")
	f.StringVar(&serveFlags.addr, "addr", "127.0.0.1:8080", "Listen address")
}

func runServe(cmd *cobra.Command, _ []string) error {
	defaultFrom(cmd.Flags(), "app-dir", &serveFlags.appDir, cfg.AppDir)

	srv, err := appserver.Start(serveFlags.addr, serveFlags.appDir, logging.New("appserver"))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "serving %s at %s\n", serveFlags.appDir, srv.URL())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Wait(ctx)
}
