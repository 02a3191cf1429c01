package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/RavensCloud/codolio-gofun/internal/metrics"
	"github.com/RavensCloud/codolio-gofun/internal/server"
)

const readHeaderTimeout = 10 * time.Second

func newServeCommand(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	scraper, err := a.cfg.Scraper.NewScraper()
	if err != nil {
		return fmt.Errorf("build scraper: %w", err)
	}
	scraper = scraper.WithLogger(a.logger.Named("scraper"))

	api := server.New(scraper, server.Options{
		RequestTimeout: a.cfg.Server.RequestTimeout,
		CORSOrigins:    a.cfg.Server.CORSOrigins,
		Logger:         a.logger.Named("http"),
		Metrics:        metrics.New(),
	})
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		a.logger.Info("listening",
			zap.String("addr", srv.Addr),
			zap.String("render_mode", a.cfg.Scraper.RenderMode),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return group.Wait()
}
