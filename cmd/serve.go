package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/contact-crawler/internal/api"
	"github.com/JakeFAU/contact-crawler/internal/clock/system"
	"github.com/JakeFAU/contact-crawler/internal/id/uuid"
	"github.com/JakeFAU/contact-crawler/internal/storage/memory"
)

const shutdownTimeout = 10 * time.Second

// newServeCmd creates the 'serve' subcommand, which exposes the crawler over HTTP.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Runs the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), appInstance)
		},
	}
}

func runServer(ctx context.Context, appInstance *App) error {
	cfg := appInstance.Config
	logger := appInstance.Logger

	apiServer := api.NewServer(
		appInstance.Scraper,
		appInstance.Scheduler,
		appInstance.Discoverer,
		memory.NewBatchStore(),
		uuid.New(),
		system.New(),
		cfg,
		logger,
	)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	apiServer.Wait()
	logger.Info("shutdown complete")
	return nil
}
