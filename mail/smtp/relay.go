package smtp

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/pure-golang/mailrelay/logger"
	"github.com/pure-golang/mailrelay/mail"
)

var _ mail.Relay = (*Relay)(nil)

// DialFunc opens the TCP connection to the SMTP server.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Relay implements mail.Relay using net/smtp. Every call opens, upgrades and
// closes its own connection; nothing is shared between calls.
type Relay struct {
	cfg    Config
	dial   DialFunc
	now    func() time.Time
	closed atomic.Bool
}

// RelayOptions contains options for creating a Relay.
type RelayOptions struct {
	// Dial replaces the default net.Dialer. Used by tests.
	Dial DialFunc
}

// NewRelay creates a new SMTP Relay.
func NewRelay(cfg Config, options *RelayOptions) *Relay {
	cfg = cfg.withDefaults()
	r := &Relay{
		cfg: cfg,
		now: time.Now,
	}

	if options != nil && options.Dial != nil {
		r.dial = options.Dial
	} else {
		d := &net.Dialer{Timeout: cfg.Timeout}
		r.dial = d.DialContext
	}

	return r
}

// Addr returns host:port of the SMTP server.
func (r *Relay) Addr() string {
	return net.JoinHostPort(r.cfg.Host, strconv.Itoa(r.cfg.Port))
}

// Relay sends msg in a single SMTP session. It returns a *mail.RelayError
// describing the failed step.
func (r *Relay) Relay(ctx context.Context, msg mail.Message) (err error) {
	ctx, span := tracer.Start(ctx, "SMTP.Relay", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("smtp.host", r.cfg.Host),
		attribute.Int("smtp.port", r.cfg.Port),
		attribute.String("smtp.to", msg.To.Address),
		attribute.String("smtp.subject", msg.Subject),
	)

	start := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = mail.KindOf(err).String()
			span.RecordError(err)
			span.SetStatus(codes.Error, result)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		labels := metric.WithAttributes(attribute.String("result", result))
		relayCount.Add(ctx, 1, labels)
		relayTimeHist.Record(ctx, time.Since(start).Milliseconds(), labels)
	}()

	if r.closed.Load() {
		return mail.NewError(mail.KindUnexpected, "relay is closed", nil)
	}

	s := &session{
		relay: r,
		span:  span,
		log:   logger.FromContext(ctx).With("smtp_addr", r.Addr()),
		stage: mail.StageIdle,
	}

	return s.run(ctx, msg)
}

// Close marks the relay closed. Sessions already running finish normally.
func (r *Relay) Close() error {
	r.closed.Store(true)
	return nil
}

// session is the state of one relay attempt.
type session struct {
	relay *Relay
	span  trace.Span
	log   *slog.Logger
	stage mail.Stage
}

func (s *session) enter(stage mail.Stage) {
	s.stage = stage
	s.span.AddEvent(string(stage))
	s.log.Debug("smtp stage", "stage", stage)
}

// fail closes the attempt with the given kind. Timeouts are connection
// failures whatever step they hit.
func (s *session) fail(kind mail.Kind, op string, err error) error {
	if err != nil && isTimeout(err) {
		kind = mail.KindConnection
	}
	re := mail.NewError(kind, op, err)
	s.log.Error("relay failed", "stage", s.stage, "kind", kind.String(), "error", re.Error())
	s.stage = mail.StageClosed
	return re
}

func (s *session) run(ctx context.Context, msg mail.Message) error {
	cfg := s.relay.cfg

	s.enter(mail.StageValidatingConfig)
	if !cfg.Credentials.Configured() {
		return s.fail(mail.KindConfiguration, "", nil)
	}
	s.log.Info("credentials resolved",
		"sender", cfg.Credentials.Email,
		"password", logger.Secret(cfg.Credentials.Password),
	)

	from := msg.From
	if from.Address == "" {
		from.Address = cfg.Credentials.Email
	}
	if msg.To.Address == "" {
		return s.fail(mail.KindProtocol, "no recipient specified", nil)
	}

	s.enter(mail.StageConnecting)
	s.log.Info("connecting to SMTP server")
	conn, err := s.relay.dial(ctx, "tcp", s.relay.Addr())
	if err != nil {
		return s.fail(mail.KindConnection, "failed to connect to SMTP server", err)
	}
	conn = newTimeoutConn(conn, cfg.Timeout)

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		_ = conn.Close()
		return s.fail(mail.KindConnection, "failed to read server greeting", err)
	}
	defer func() {
		// Close is a no-op error after a successful QUIT.
		_ = client.Close()
	}()

	if err := client.Hello(cfg.HeloName); err != nil {
		return s.fail(mail.KindProtocol, "failed to greet server", err)
	}
	s.log.Info("connected to SMTP server, starting TLS")

	s.enter(mail.StageNegotiatingTLS)
	if ok, _ := client.Extension("STARTTLS"); !ok {
		return s.fail(mail.KindTLSNegotiation, "server does not support STARTTLS", nil)
	}
	tlsConfig := &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.Insecure, // #nosec G402 -- controlled by config
		MinVersion:         tls.VersionTLS12,
	}
	if err := client.StartTLS(tlsConfig); err != nil {
		return s.fail(mail.KindTLSNegotiation, "failed to start TLS", err)
	}
	s.span.SetAttributes(attribute.Bool("smtp.starttls", true))
	s.log.Info("TLS started, attempting to log in")

	s.enter(mail.StageAuthenticating)
	auth := smtp.PlainAuth("", cfg.Credentials.Email, cfg.Credentials.Password, cfg.Host)
	if err := client.Auth(auth); err != nil {
		return s.fail(mail.KindAuthentication, "failed to authenticate", err)
	}
	s.log.Info("login successful, sending message")

	s.enter(mail.StageSending)
	data, err := buildMessage(from, msg, s.relay.now())
	if err != nil {
		return s.fail(mail.KindUnexpected, "failed to build message", err)
	}
	if err := client.Mail(from.Address); err != nil {
		return s.fail(mail.KindProtocol, "failed to set sender", err)
	}
	if err := client.Rcpt(msg.To.Address); err != nil {
		return s.fail(mail.KindProtocol, "failed to set recipient "+msg.To.Address, err)
	}
	w, err := client.Data()
	if err != nil {
		return s.fail(mail.KindProtocol, "failed to get data writer", err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return s.fail(mail.KindProtocol, "failed to write message", err)
	}
	if err := w.Close(); err != nil {
		return s.fail(mail.KindProtocol, "message rejected", err)
	}

	// The message is accepted at this point; a failed QUIT only loses the goodbye.
	if err := client.Quit(); err != nil {
		s.log.Warn("smtp quit failed", "error", errors.Wrap(err, "quit").Error())
	}

	s.enter(mail.StageClosed)
	s.log.Info("message sent successfully", "to", msg.To.Address)

	return nil
}
