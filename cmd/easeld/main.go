// Command easeld is the local support daemon for the desktop
// image-generation tool: it downloads generated artifacts and persists batch
// task records, exposing both over a loopback HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pixeleasel/easeld/internal/config"
	"github.com/pixeleasel/easeld/internal/downloader"
	"github.com/pixeleasel/easeld/internal/httpclient"
	"github.com/pixeleasel/easeld/internal/logging"
	"github.com/pixeleasel/easeld/internal/progress"
	"github.com/pixeleasel/easeld/internal/server"
	"github.com/pixeleasel/easeld/internal/store"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitInvalidArgs  = 2
	ExitConfigError  = 3
	ExitStorageError = 4
)

// databaseFile is the SQLite file kept inside the data directory.
const databaseFile = "batch_tasks.db"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("easeld", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to YAML config file")
	listenAddr := fs.String("listen", "", "listen address (overrides config)")
	dataDir := fs.String("data-dir", "", "data directory (overrides config)")
	downloadDir := fs.String("download-dir", "", "default download directory (overrides config)")
	logPath := fs.String("log", "", "log file path (overrides config; empty logs to stderr)")
	logLevel := fs.String("level", "", "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "easeld: %v\n", err)
		return ExitConfigError
	}

	cfg = cfg.Merge(config.Config{
		ListenAddr:  *listenAddr,
		DataDir:     *dataDir,
		DownloadDir: *downloadDir,
		Log:         config.LogConfig{Path: *logPath, Level: *logLevel},
	})

	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "easeld: %v\n", err)
		return ExitConfigError
	}

	logger, err := logging.New(cfg.Log.Path, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "easeld: %v\n", err)
		return ExitConfigError
	}
	defer logger.Sync()

	st, err := store.Open(filepath.Join(cfg.DataDir, databaseFile), logger)
	if err != nil {
		logger.Error("open task store", zap.Error(err))
		return ExitStorageError
	}
	defer st.Close()

	gin.SetMode(gin.ReleaseMode)
	hub := progress.NewBroadcaster()
	srv := server.New(st, hub, server.Options{
		DownloadDir: cfg.DownloadDir,
		ChunkSize:   cfg.ChunkSize,
		Policy: downloader.Policy{
			MaxAttempts: cfg.Download.Attempts,
			Backoff:     cfg.Download.Backoff,
		},
		ClientOptions: httpclient.Options{Timeout: cfg.Download.Timeout},
		Logger:        logger,
	})

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("easeld listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("data_dir", cfg.DataDir),
		)
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("shutdown", zap.Error(err))
			return ExitGeneralError
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve", zap.Error(err))
			return ExitGeneralError
		}
	}

	return ExitSuccess
}

// loadConfig reads the config file when given, otherwise starts from
// defaults; environment overrides apply in both cases.
func loadConfig(path string) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// defaultDataDir is the per-user application data directory.
func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "easeld")
	}
	return "."
}
