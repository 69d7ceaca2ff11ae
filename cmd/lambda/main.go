package main

import (
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"

	"github.com/pure-golang/mailrelay/api"
	"github.com/pure-golang/mailrelay/config"
	"github.com/pure-golang/mailrelay/logger"
)

// main serves the same router behind API Gateway. Metrics and tracing
// exporters are not started: the function has no long-lived process to
// scrape or flush from.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.InitDefault(cfg.Logger)

	relay, err := cfg.NewRelay()
	if err != nil {
		slog.Error("failed to create relay", "error", err)
		os.Exit(1)
	}

	lambda.Start(httpadapter.New(api.NewRouter(relay)).ProxyWithContext)
}
