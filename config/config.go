package config

import (
	"github.com/pkg/errors"

	"github.com/pure-golang/mailrelay/env"
	"github.com/pure-golang/mailrelay/httpserver/std"
	"github.com/pure-golang/mailrelay/logger"
	"github.com/pure-golang/mailrelay/mail"
	"github.com/pure-golang/mailrelay/mail/noop"
	"github.com/pure-golang/mailrelay/mail/smtp"
	"github.com/pure-golang/mailrelay/metrics"
	"github.com/pure-golang/mailrelay/tracing/jaeger"
)

type RelayProvider string

const (
	RelaySMTP RelayProvider = "smtp"
	RelayNoop RelayProvider = "noop"
)

// Config is everything the service reads from the environment.
type Config struct {
	RelayProvider RelayProvider `envconfig:"RELAY_PROVIDER" default:"smtp"`
	SMTP          smtp.Config
	Server        std.Config
	Logger        logger.Config
	Metrics       metrics.Config
	Tracing       jaeger.Config
}

// Load reads Config from the env file and the process environment.
func Load() (Config, error) {
	var c Config
	if err := env.InitConfig(&c); err != nil {
		return Config{}, errors.Wrap(err, "failed to load config")
	}
	return c, nil
}

// NewRelay builds the relay selected by RelayProvider.
func (c Config) NewRelay() (mail.Relay, error) {
	switch c.RelayProvider {
	case RelaySMTP, "":
		return smtp.NewRelay(c.SMTP, nil), nil
	case RelayNoop:
		return noop.NewRelay(), nil
	default:
		return nil, errors.Errorf("unknown relay provider %q", c.RelayProvider)
	}
}
