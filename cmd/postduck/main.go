package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fanvanzh/postduck"
	"github.com/fanvanzh/postduck/config"
	"github.com/fanvanzh/postduck/engine/duckdb"
	"github.com/fanvanzh/postduck/metrics"
)

// serverVersion is the version string advertised to connecting clients.
const serverVersion = "15.0 (postduck)"

func main() {
	var (
		port       int
		logLevel   string
		configPath string
		datadir    string
	)

	flag.IntVar(&port, "port", 0, "server listen port, default is 5432")
	flag.IntVar(&port, "p", 0, "server listen port (shorthand)")
	flag.StringVar(&logLevel, "log", "INFO", "server log level: {TRACE, DEBUG, INFO, WARNING, ERROR, FATAL}")
	flag.StringVar(&logLevel, "l", "", "server log level (shorthand)")
	flag.StringVar(&configPath, "config", "", "path to configuration file")
	flag.StringVar(&datadir, "datadir", "", "directory holding the database files")
	flag.Parse()

	if logLevel == "" {
		logLevel = "INFO"
	}

	level, err := parseLevel(logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "Must be one of: TRACE, DEBUG, INFO, WARNING, ERROR, FATAL")
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	if port != 0 {
		cfg.Server.Listen = fmt.Sprintf(":%d", port)
	}
	if datadir != "" {
		cfg.Server.Datadir = strings.TrimRight(datadir, "/")
	}

	metrics.Init()

	if cfg.Ops.Listen != "" {
		go serveOps(logger, cfg.Ops.Listen)
	}

	db, err := duckdb.Open("", logger)
	if err != nil {
		logger.Error("failed to open embedded database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	server, err := postduck.NewServer(db,
		postduck.Logger(logger),
		postduck.Datadir(cfg.Server.Datadir),
		postduck.EngineConcurrency(cfg.Server.Workers),
		postduck.MessageBufferSize(cfg.Server.MaxMessageSize),
		postduck.Version(serverVersion),
	)
	if err != nil {
		logger.Error("failed to construct server", "err", err)
		os.Exit(1)
	}

	errs := make(chan error, 1)
	go func() {
		errs <- server.ListenAndServe(cfg.Server.Listen)
	}()

	logger.Info("start serving", slog.String("addr", cfg.Server.Listen), slog.String("datadir", cfg.Server.Datadir))

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errs:
		if err != nil {
			logger.Error("server failure", "err", err)
			os.Exit(1)
		}
	case sig := <-sigs:
		logger.Info("shutting down", slog.String("signal", sig.String()))
		if err := server.Close(); err != nil {
			logger.Error("shutdown failure", "err", err)
			os.Exit(1)
		}
	}
}

// serveOps exposes the metrics and health endpoints on the given address.
func serveOps(logger *slog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	logger.Info("ops endpoint listening", slog.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("ops endpoint failure", "err", err)
	}
}

// parseLevel maps the CLI log level names onto slog levels. TRACE maps below
// DEBUG and FATAL above ERROR.
func parseLevel(name string) (slog.Level, error) {
	switch strings.ToUpper(name) {
	case "TRACE":
		return slog.LevelDebug - 4, nil
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	case "FATAL":
		return slog.LevelError + 4, nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", name)
	}
}
