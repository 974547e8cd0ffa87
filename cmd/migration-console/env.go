package main

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/battlewithbytes/migration-console/internal/config"
	"github.com/battlewithbytes/migration-console/internal/console"
	"github.com/battlewithbytes/migration-console/internal/lifecycle"
	"github.com/battlewithbytes/migration-console/internal/migrator"
	"github.com/battlewithbytes/migration-console/internal/store"
)

// defaultConfigPath honours MIGRATION_CONSOLE_CONFIG before the system path.
func defaultConfigPath() string {
	if p := os.Getenv("MIGRATION_CONSOLE_CONFIG"); p != "" {
		return p
	}
	return config.DefaultConfigPath
}

// env is the wiring shared by every command that talks to the backend.
type env struct {
	cfg     *config.Config
	client  *migrator.Client
	store   *store.Store
	console *console.Console
}

func newClient(cfg *config.Config) (*migrator.Client, error) {
	return migrator.NewClient(migrator.ClientConfig{
		BaseURL:       cfg.Backend.BaseURL,
		Token:         cfg.Backend.Token,
		TLSSkipVerify: cfg.Backend.TLSSkipVerify,
		TLSCACertPath: cfg.Backend.TLSCACertPath,
		Timeout:       cfg.Backend.Timeout(),
	})
}

// openEnv loads the config and builds the backend client, the activity store
// and the console. The store is optional: a CLI run without write access to
// the data dir still works, it just records nothing.
func openEnv(opts ...lifecycle.Option) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	client, err := newClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating backend client: %w", err)
	}

	e := &env{cfg: cfg, client: client}
	if err := os.MkdirAll(cfg.DataDir, 0750); err == nil {
		if st, err := store.NewStore(cfg.ActivityDBPath()); err == nil {
			e.store = st
			opts = append(opts, lifecycle.WithRecorder(st.Record))
		} else {
			logger.Debug("activity store unavailable", zap.Error(err))
		}
	}

	e.console = console.New(client,
		console.WithLogger(logger),
		console.WithTTL(5*time.Second),
		console.WithDispatchOptions(opts...),
	)
	return e, nil
}

func (e *env) Close() {
	e.console.Wait()
	if e.store != nil {
		e.store.Close()
	}
}

func secondsDuration(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
