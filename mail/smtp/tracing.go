package smtp

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("github.com/pure-golang/mailrelay/mail/smtp")
	meter  = otel.GetMeterProvider().Meter("github.com/pure-golang/mailrelay/mail/smtp")
	// nolint:errcheck // Sync OpenTelemetry instruments never return errors
	relayCount, _    = meter.Int64Counter("smtp.relay.count")
	relayTimeHist, _ = meter.Int64Histogram("smtp.relay.time", metric.WithUnit("ms"))
)
