package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/bbiangul/moldstamp"
)

var (
	serveAddr string
	serveCORS string
)

// serveCmd runs the preview server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve rendered dials over HTTP for previewing geometry changes",
	Long: `Starts an HTTP server rendering dials on demand:

  GET /render?year=2021&month=2[&angle=30]   PNG image
  GET /layout?year=2021&month=2              dial geometry as JSON
  GET /health                                liveness check`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().StringVar(&serveCORS, "cors", "", "Allowed CORS origin (empty disables CORS headers)")
}

// newServer builds the middleware chain around the preview routes.
func newServer(cfg moldstamp.Config, corsOrigins string) (http.Handler, error) {
	r, err := moldstamp.NewRenderer(cfg)
	if err != nil {
		return nil, err
	}
	h := newHandler(r)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /render", h.handleRender)
	mux.HandleFunc("GET /layout", h.handleLayout)
	mux.HandleFunc("GET /health", h.handleHealth)

	// Middleware chain: recovery -> cors -> logging -> mux
	var handler http.Handler = mux
	handler = logMiddleware(handler)
	handler = corsMiddleware(corsOrigins, handler)
	handler = recoveryMiddleware(handler)
	return handler, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	handler, err := newServer(cfg, serveCORS)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         serveAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", serveAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-cmd.Context().Done():
	}
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	slog.Info("server stopped")
	return nil
}
