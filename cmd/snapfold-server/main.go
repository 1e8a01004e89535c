package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/snapfold-go/internal/core/service"
	"github.com/yndnr/snapfold-go/internal/filestore"
	"github.com/yndnr/snapfold-go/internal/infra/buildinfo"
	"github.com/yndnr/snapfold-go/internal/infra/confloader"
	"github.com/yndnr/snapfold-go/internal/infra/shutdown"
	"github.com/yndnr/snapfold-go/internal/registry"
	"github.com/yndnr/snapfold-go/internal/server/config"
	"github.com/yndnr/snapfold-go/internal/server/httpserver"
	"github.com/yndnr/snapfold-go/internal/storage"
	"github.com/yndnr/snapfold-go/internal/sweep"
	"github.com/yndnr/snapfold-go/internal/telemetry/logger"
	"github.com/yndnr/snapfold-go/internal/telemetry/metric"
)

func main() {
	app := &cli.App{
		Name:    "snapfold-server",
		Usage:   "ephemeral passcode-protected shared folder service",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				EnvVars: []string{"SNAPFOLD_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address override (host:port)",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Database directory override",
			},
			&cli.StringFlag{
				Name:  "upload-dir",
				Usage: "Upload root override",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level override (debug, info, warn, error)",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, loader, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})

	log.Info("starting snapfold-server",
		"version", buildinfo.Version,
		"commit", buildinfo.Commit,
		"addr", cfg.Server.Addr)

	metrics := metric.New()

	// Storage
	storeCfg := storage.DefaultBadgerConfig(cfg.Storage.DataDir)
	storeCfg.SyncWrites = cfg.Storage.SyncWrites
	store, err := storage.NewBadgerStore(storeCfg, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	store.RegisterMetrics(metrics.Registry())

	files, err := filestore.NewStore(filestore.Config{
		Root:    cfg.Storage.UploadDir,
		Workers: cfg.Storage.DeleteWorkers,
	}, log)
	if err != nil {
		store.Close()
		return fmt.Errorf("open filestore: %w", err)
	}

	// Core service and live state
	svc := service.NewFolderService(store, service.Config{
		DefaultAge:    cfg.Folder.Age,
		StorageLimit:  cfg.Folder.StorageLimit,
		KDFIterations: cfg.Folder.KDFIterations,
		EncryptData:   cfg.Folder.Encrypt,
	})
	reg := registry.NewRegistry(store, log)

	// Expiry sweep
	sweeper := sweep.New(store, reg, files, metrics, cfg.Sweep.Interval, log)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go sweeper.Run(sweepCtx)

	// HTTP surface
	signer := httpserver.NewCookieSigner(cfg.Auth.CookieSecret, cfg.Auth.CookieSecure)
	handler := httpserver.NewHandler(httpserver.HandlerConfig{
		Service:        svc,
		Registry:       reg,
		Files:          files,
		Signer:         signer,
		Metrics:        metrics,
		Heartbeat:      cfg.WS.Heartbeat,
		ReceiveTimeout: cfg.WS.ReceiveTimeout,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})
	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Handler:    handler,
		Signer:     signer,
		Registry:   reg,
		Metrics:    metrics,
		Logger:     log,
		LoginRate:  cfg.Auth.LoginRate,
		LoginBurst: cfg.Auth.LoginBurst,
	})
	httpServer := httpserver.New(cfg.Server.Addr, router)

	// Reload log level when the config file changes
	watcher := watchLogLevel(c.String("config"), loader, log)
	if watcher != nil {
		defer watcher.Stop()
	}

	// Graceful shutdown, hooks in reverse order of startup
	handlerStop := shutdown.NewHandler(cfg.Server.ShutdownTimeout)
	handlerStop.OnShutdown(func(ctx context.Context) error {
		log.Info("closing store")
		return store.Close()
	})
	handlerStop.OnShutdown(func(ctx context.Context) error {
		log.Info("closing filestore")
		return files.Close()
	})
	handlerStop.OnShutdown(func(ctx context.Context) error {
		log.Info("stopping sweep loop")
		stopSweep()
		return nil
	})
	handlerStop.OnShutdown(func(ctx context.Context) error {
		log.Info("closing live connections")
		reg.Shutdown()
		return nil
	})
	handlerStop.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return httpServer.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
			handlerStop.Trigger()
		}
	}()

	if err := handlerStop.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig loads configuration from defaults, file, environment, and
// CLI flag overrides, in that order.
func loadConfig(c *cli.Context) (*config.ServerConfig, *confloader.Loader, error) {
	cfg := config.Default()

	opts := []confloader.Option{}
	if path := c.String("config"); path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	loader := confloader.NewLoader(opts...)

	overrides := map[string]any{}
	if v := c.String("addr"); v != "" {
		overrides["server.addr"] = v
	}
	if v := c.String("data-dir"); v != "" {
		overrides["storage.data_dir"] = v
	}
	if v := c.String("upload-dir"); v != "" {
		overrides["storage.upload_dir"] = v
	}
	if v := c.String("log-level"); v != "" {
		overrides["log.level"] = v
	}

	if err := loader.Load(cfg); err != nil {
		return nil, nil, err
	}
	if len(overrides) > 0 {
		if err := loader.LoadMap(overrides); err != nil {
			return nil, nil, err
		}
		if err := loader.Unmarshal(cfg); err != nil {
			return nil, nil, err
		}
	}

	if err := config.Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, loader, nil
}

// watchLogLevel reloads the log level from the config file on change.
// Returns nil when no config file is in use.
func watchLogLevel(path string, loader *confloader.Loader, log *slog.Logger) *confloader.Watcher {
	if path == "" {
		return nil
	}

	watcher, err := confloader.NewWatcher()
	if err != nil {
		log.Warn("config watcher unavailable", "error", err)
		return nil
	}
	if err := watcher.Watch(path); err != nil {
		watcher.Stop()
		return nil
	}

	watcher.OnChange(func(string) {
		if err := loader.LoadFile(path); err != nil {
			log.Warn("config reload failed", "error", err)
			return
		}
		level := loader.GetString("log.level")
		if level != "" && level != logger.GetLevel() {
			logger.SetLevel(level)
			log.Info("log level changed", "level", level)
		}
	})
	watcher.StartAsync()
	return watcher
}
