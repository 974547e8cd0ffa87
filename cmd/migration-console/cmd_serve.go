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

	"github.com/battlewithbytes/migration-console/internal/lifecycle"
	"github.com/battlewithbytes/migration-console/internal/notify"
	"github.com/battlewithbytes/migration-console/internal/server"
)

const pruneInterval = 6 * time.Hour

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the migration console HTTP service",
	RunE: func(cmd *cobra.Command, args []string) error {
		hub := notify.NewHub()
		e, err := openEnv(lifecycle.WithNotifier(hub.Outcome))
		if err != nil {
			return err
		}
		defer e.Close()
		cfg := e.cfg

		fmt.Printf("Migration Console starting...\n")
		fmt.Printf("  backend:  %s\n", cfg.Backend.BaseURL)
		fmt.Printf("  listen:   %s:%d\n", cfg.Service.BindAddress, cfg.Service.Port)
		fmt.Printf("  per page: %d\n", cfg.Tables.DefaultPerPage)
		fmt.Printf("  debounce: %s\n", cfg.Filter.Debounce())

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opts := []server.Option{server.WithHub(hub), server.WithLogger(logger)}
		if e.store != nil {
			opts = append(opts, server.WithActivity(e.store))
			fmt.Printf("  activity: %s (retention %s)\n", cfg.ActivityDBPath(), cfg.Activity.Retention())
			if cfg.Activity.RetentionDays > 0 {
				go pruneLoop(ctx, e, cfg.Activity.Retention())
			}
		} else {
			fmt.Printf("  activity: disabled (data dir %s not writable)\n", cfg.DataDir)
		}

		srv := server.New(cfg, e.console, opts...)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.ListenAndServe()
		}()
		fmt.Printf("  ready:    http://%s\n", srv.Addr())

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		fmt.Println("\nShutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

// pruneLoop drops activity older than retention now and then periodically.
func pruneLoop(ctx context.Context, e *env, retention time.Duration) {
	prune := func() {
		n, err := e.store.Prune(ctx, time.Now().Add(-retention))
		if err != nil {
			logger.Warn("activity prune failed", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("activity pruned", zap.Int64("rows", n))
		}
	}
	prune()
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			prune()
		case <-ctx.Done():
			return
		}
	}
}
