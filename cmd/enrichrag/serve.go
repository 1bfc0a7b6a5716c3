package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/enrichrag/api"
)

var (
	serveAddr      string
	serveIngest    []string
	serveWatch     bool
	serveRateLimit float64
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serves /search, /rate, /ratings, /enrichment/capabilities, /documents and
/sessions. Paths passed with --ingest are indexed at startup; with --watch they
are re-indexed as files change.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().StringSliceVar(&serveIngest, "ingest", nil, "files or directories to index at startup")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "re-index --ingest paths when files change")
	serveCmd.Flags().Float64Var(&serveRateLimit, "rate-limit", 0, "requests per second per client (0 disables)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := openApplication(ctx)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	if len(serveIngest) > 0 {
		if _, err := ingestPaths(ctx, app.retriever, serveIngest, cmd.ErrOrStderr()); err != nil {
			return err
		}
		if serveWatch {
			go func() {
				if err := watchPaths(ctx, app.retriever, serveIngest, app.logger); err != nil {
					app.logger.Error("file watcher stopped", "error", err)
				}
			}()
		}
	}
	app.runRetention(ctx)

	server, err := api.New(api.Deps{
		Pipeline: app.pipeline,
		Index:    app.retriever,
		Ratings:  app.ratings,
		Sessions: app.sessions,
		Sources:  app.registry,
	},
		api.WithVersion(version),
		api.WithEnrichment(cfg.Enrichment.Enabled),
		api.WithRateLimit(serveRateLimit, int(serveRateLimit)+1),
	)
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	errCh := make(chan error, 1)
	go func() { errCh <- server.Listen(addr) }()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("shutdown: %w", err)
	}
	app.logger.Info("http server stopped")
	return nil
}
