package main

import (
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pure-golang/mailrelay/api"
	"github.com/pure-golang/mailrelay/config"
	"github.com/pure-golang/mailrelay/httpserver/std"
	"github.com/pure-golang/mailrelay/logger"
	"github.com/pure-golang/mailrelay/metrics"
	"github.com/pure-golang/mailrelay/tracing"
	"github.com/pure-golang/mailrelay/tracing/jaeger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.InitDefault(cfg.Logger)
	log := slog.Default()

	if !cfg.SMTP.Credentials.Configured() {
		log.Warn("EMAIL or PASSWORD not set, every relay attempt will fail until they are")
	}

	metricsCloser, err := metrics.InitDefault(cfg.Metrics)
	if err != nil {
		log.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}

	tracer, err := tracing.Init(jaeger.NewProviderBuilder(cfg.Tracing))
	if err != nil {
		log.Warn("tracing disabled", "error", err)
	}

	relay, err := cfg.NewRelay()
	if err != nil {
		log.Error("failed to create relay", "error", err)
		os.Exit(1)
	}

	server := std.NewDefault(cfg.Server, api.NewRouter(relay))
	server.Run()
	log.Info("mailrelay started",
		"addr", server.Addr(),
		"relay", cfg.RelayProvider,
		"smtp_host", cfg.SMTP.Host,
		"smtp_port", cfg.SMTP.Port,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig.String())

	// Server first so in-flight relays finish before the relay is closed.
	for _, c := range []struct {
		name   string
		closer io.Closer
	}{
		{"server", server},
		{"relay", relay},
		{"tracing", tracer},
		{"metrics", metricsCloser},
	} {
		if err := c.closer.Close(); err != nil {
			log.Error("failed to close "+c.name, "error", err)
		}
	}
}
