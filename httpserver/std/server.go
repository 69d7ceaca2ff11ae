package std

import (
	"context"
	stdErr "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/pure-golang/mailrelay/httpserver"
)

const ShutdownTimeout = 15 * time.Second

var _ httpserver.RunableProvider = (*Server)(nil)

type Config struct {
	Host        string        `envconfig:"WEBSERVER_HOST" default:"0.0.0.0"`
	Port        int           `envconfig:"WEBSERVER_PORT" default:"8000"`
	TLSCertPath string        `envconfig:"WEBSERVER_TLS_CERT_PATH"`
	TLSKeyPath  string        `envconfig:"WEBSERVER_TLS_KEY_PATH"`
	ReadTimeout time.Duration `envconfig:"WEBSERVER_READ_TIMEOUT" default:"30s"`
}

type Server struct {
	logger *slog.Logger
	server *http.Server
	config Config
}

// NewDefault creates a Server whose internal errors go to the default logger.
func NewDefault(c Config, h http.Handler) *Server {
	s := New(c, h)

	s.server.ErrorLog = slog.NewLogLogger(s.logger.Handler(), slog.LevelError)

	return s
}

func New(c Config, h http.Handler) *Server {
	return &Server{
		server: &http.Server{
			Addr:              net.JoinHostPort(c.Host, fmt.Sprint(c.Port)),
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second, // Prevent Slowloris attacks
			ReadTimeout:       c.ReadTimeout,
			// No WriteTimeout: a response waits for the whole SMTP session.
		},
		logger: slog.Default().WithGroup("webserver"),
		config: c,
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

func (s *Server) Start() error {
	s.logger.Info("server starting", slog.String("addr", s.server.Addr))

	var err error
	if s.config.TLSCertPath == "" {
		err = s.server.ListenAndServe()
	} else {
		err = s.server.ListenAndServeTLS(s.config.TLSCertPath, s.config.TLSKeyPath)
	}

	return serveErr(err)
}

// Serve accepts connections on l instead of listening on the configured address.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("server starting", slog.String("addr", l.Addr().String()))

	return serveErr(s.server.Serve(l))
}

func serveErr(err error) error {
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return errors.Wrap(err, "serve failed")
}

// Close waits up to ShutdownTimeout for in-flight requests, then drops them.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	err := s.server.Shutdown(ctx)
	if err != nil {
		err = stdErr.Join(err, errors.Wrap(s.server.Close(), "failed to close server"))
	}

	s.logger.Info("server closed")

	return errors.Wrap(err, "server shutdown failed")
}

func (s *Server) Run() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("webserver crashed", "error", err)
		}
	}()
}
