package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"unionwatch/internal/api"
	"unionwatch/internal/config"
	"unionwatch/internal/logging"
	"unionwatch/internal/metrics"
	"unionwatch/internal/model"
	"unionwatch/internal/mount"
	"unionwatch/internal/store"
	"unionwatch/internal/version"
)

func main() {
	configPath := flag.String("config", envOr("UNIONWATCH_CONFIG", "unionwatch.yaml"), "path to the mount manifest")
	listenFlag := flag.String("listen", "", "listen address override")
	levelFlag := flag.String("log-level", "", "log level override")
	versionFlag := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.Get().String())
		return
	}

	manifest, err := config.Load(*configPath)
	if err != nil {
		fallback := logging.NewLogger(nil, logging.LevelInfo)
		fallback.Error("load config failed", map[string]string{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	level := resolveLevel(manifest.LogLevel, *levelFlag)
	logBuffer := logging.NewLogBuffer(logging.DefaultBufferSize)
	logger := logging.NewLogger(logBuffer, level)
	registry := metrics.Default

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tree := store.New[model.Tree](ctx)
	driver := store.NewDriver(tree, model.Tree{}, model.ApplyChange, logger, registry)

	engine, err := mount.New(mount.Options{
		Sources:  manifest.MountSources(),
		Rules:    manifest.MountRules(),
		Ignore:   manifest.Ignore,
		Logger:   logger,
		Registry: registry,
		Deliver:  driver.Deliver,
	})
	if err != nil {
		logger.Error("mount setup failed", map[string]string{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	listen := manifest.Listen
	if *listenFlag != "" {
		listen = *listenFlag
	}

	mux := http.NewServeMux()
	api.RegisterRoutes(mux, api.Options{
		Store:     tree,
		Logger:    logger,
		Registry:  registry,
		AuthToken: os.Getenv("UNIONWATCH_TOKEN"),
	})
	server := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("unionwatch listening", map[string]string{
			"addr":    server.Addr,
			"sources": strconv.Itoa(len(manifest.Sources)),
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", map[string]string{
				"error": err.Error(),
			})
		}
	}()

	runErr := engine.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("mount stopped", map[string]string{
			"error": runErr.Error(),
		})
		os.Exit(1)
	}
	logger.Info("unionwatch stopped", nil)
}

func resolveLevel(configured, override string) logging.Level {
	if override != "" {
		if level, ok := logging.ParseLevel(override); ok {
			return level
		}
	}
	if configured != "" {
		if level, ok := logging.ParseLevel(configured); ok {
			return level
		}
	}
	return logging.LevelInfo
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
