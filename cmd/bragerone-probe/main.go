// Command bragerone-probe is a minimal demo client: it logs into the
// cloud API, opens the realtime channel for a set of modules, and
// prints every parameter update it observes. Grounded on cmd/agent's
// flag/env/signal bootstrap shape, adapted from "connect to hub as a
// monitored agent" to "connect to the heating-system cloud platform as
// a read-only observer."
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bragerone/bragerone-go/bus"
	"github.com/bragerone/bragerone-go/gateway"
	"github.com/bragerone/bragerone-go/httpapi"
	"github.com/bragerone/bragerone-go/internal/config"
	"github.com/bragerone/bragerone-go/internal/telemetry"
	"github.com/bragerone/bragerone-go/internal/telemetry/metrics"
	"github.com/bragerone/bragerone-go/paramstore"
	"github.com/bragerone/bragerone-go/realtime"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	modulesFlag := flag.String("modules", os.Getenv("BRAGERONE_MODULES"), "comma-separated device ids to subscribe to")
	groupIDFlag := flag.Int("group-id", 0, "optional group id for module binding (0 = none)")
	versionFlag := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("bragerone-probe %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	modules := splitModules(*modulesFlag)
	if len(modules) == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one module id required via -modules or BRAGERONE_MODULES")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telProvider, err := telemetry.Bootstrap(ctx, cfg.Telemetry)
	if err != nil {
		logger.Error("telemetry bootstrap failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer telProvider.Shutdown(context.Background())

	var collectors *metrics.Collectors
	if cfg.Telemetry.Enabled {
		reg := prometheus.NewRegistry()
		collectors = metrics.New(reg)
		go serveMetrics(reg, logger)
	}

	api := httpapi.New(cfg.API.BaseURL, cfg.API.Email, cfg.API.Password, cfg.API.RefreshLeeway, cfg.API.MaxConcurrency,
		httpapi.WithLogger(logger))

	channel := realtime.New(realtime.Options{
		BaseURL:          cfg.Realtime.URL,
		Namespace:        cfg.Realtime.Namespace,
		TokenSource:      func(ctx context.Context) (string, error) { tok, err := api.EnsureAuth(ctx); return tok.AccessToken, err },
		Origin:           cfg.Realtime.Origin,
		Referer:          cfg.Realtime.Referer,
		AppVersion:       cfg.API.AppVersion,
		InitialBackoff:   cfg.Realtime.InitialBackoff,
		MaxBackoff:       cfg.Realtime.MaxBackoff,
		HandshakeTimeout: cfg.Realtime.HandshakeTimeout,
		Logger:           logger,
		Metrics:          collectors,
	})

	b := bus.New()
	store := paramstore.New()
	gw := gateway.New(api, channel, b, store, gateway.Options{Logger: logger, Metrics: collectors})

	sub := b.Subscribe(ctx)
	defer sub.Unsubscribe()
	go printUpdates(ctx, sub)

	var groupID *int
	if *groupIDFlag != 0 {
		g := *groupIDFlag
		groupID = &g
	}

	if err := gw.Start(ctx, modules, groupID); err != nil {
		logger.Error("gateway start failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("bragerone-probe running", slog.Any("modules", modules))

	<-ctx.Done()

	logger.Info("shutting down")
	if err := gw.Stop(context.Background()); err != nil {
		logger.Warn("gateway stop failed", slog.String("error", err.Error()))
	}
}

func serveMetrics(reg *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(":9090", mux); err != nil {
		logger.Warn("metrics server stopped", slog.String("error", err.Error()))
	}
}

func printUpdates(ctx context.Context, sub *bus.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-sub.C():
			if !ok {
				return
			}
			fmt.Printf("%s %s = %v\n", upd.DevID, upd.Key(), upd.Value)
		}
	}
}

func splitModules(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
