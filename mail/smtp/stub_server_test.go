package smtp

import (
	"bufio"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"math/big"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// generateTestCert generates a self-signed certificate for testing
func generateTestCert() (tls.Certificate, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			Organization: []string{"Test SMTP"},
			CommonName:   "localhost",
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return tls.Certificate{}, err
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: derBytes})

	privBytes, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		return tls.Certificate{}, err
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: privBytes})

	return tls.X509KeyPair(certPEM, keyPEM)
}

type stubOptions struct {
	noSTARTTLS bool // do not advertise STARTTLS
	rejectAuth bool // answer AUTH with 535
	rejectRcpt bool // answer RCPT with 550
	silent     bool // accept connections but never greet
}

// stubSMTPServer is a minimal SMTP server with STARTTLS that records what
// the client did.
type stubSMTPServer struct {
	listener net.Listener
	cert     tls.Certificate
	opts     stubOptions

	mx       sync.Mutex
	conns    int
	starttls int
	logins   []string
	rcpts    []string
	messages []string
	wg       sync.WaitGroup
}

func startStubServer(t *testing.T, opts stubOptions) *stubSMTPServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "failed to listen")

	cert, err := generateTestCert()
	require.NoError(t, err, "failed to generate cert")

	s := &stubSMTPServer{
		listener: listener,
		cert:     cert,
		opts:     opts,
	}

	go s.run(t)
	t.Cleanup(s.close)

	return s
}

func (s *stubSMTPServer) port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

func (s *stubSMTPServer) run(t *testing.T) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.mx.Lock()
		s.conns++
		s.mx.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(t, conn)
		}()
	}
}

func (s *stubSMTPServer) handleConn(t *testing.T, conn net.Conn) {
	defer conn.Close()

	if s.opts.silent {
		// Hold the connection until the client gives up.
		_, _ = bufio.NewReader(conn).ReadString('\n')
		return
	}

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)
	reply := func(lines ...string) {
		for _, l := range lines {
			writer.WriteString(l + "\r\n")
		}
		writer.Flush()
	}

	reply("220 localhost ESMTP Test Server")

	secure := false
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		upper := strings.ToUpper(line)

		switch {
		case strings.HasPrefix(upper, "EHLO") || strings.HasPrefix(upper, "HELO"):
			lines := []string{"250-localhost"}
			if !secure && !s.opts.noSTARTTLS {
				lines = append(lines, "250-STARTTLS")
			}
			if secure {
				lines = append(lines, "250-AUTH PLAIN LOGIN")
			}
			reply(append(lines, "250 HELP")...)

		case upper == "STARTTLS":
			reply("220 Ready to start TLS")

			tlsConn := tls.Server(conn, &tls.Config{
				Certificates: []tls.Certificate{s.cert},
				MinVersion:   tls.VersionTLS12,
			})
			if err := tlsConn.Handshake(); err != nil {
				t.Logf("TLS handshake failed: %v", err)
				return
			}
			s.mx.Lock()
			s.starttls++
			s.mx.Unlock()

			secure = true
			conn = tlsConn
			reader = bufio.NewReader(tlsConn)
			writer = bufio.NewWriter(tlsConn)

		case strings.HasPrefix(upper, "AUTH PLAIN"):
			user := ""
			if fields := strings.Fields(line); len(fields) == 3 {
				if raw, err := base64.StdEncoding.DecodeString(fields[2]); err == nil {
					if parts := strings.Split(string(raw), "\x00"); len(parts) == 3 {
						user = parts[1]
					}
				}
			}
			s.mx.Lock()
			s.logins = append(s.logins, user)
			s.mx.Unlock()

			if s.opts.rejectAuth {
				reply("535 5.7.8 Authentication credentials invalid")
			} else {
				reply("235 2.7.0 Authentication successful")
			}

		case line == "*":
			reply("501 5.0.0 Authentication cancelled")

		case strings.HasPrefix(upper, "MAIL FROM:"):
			reply("250 OK")

		case strings.HasPrefix(upper, "RCPT TO:"):
			if s.opts.rejectRcpt {
				reply("550 5.1.1 Mailbox unavailable")
				continue
			}
			s.mx.Lock()
			s.rcpts = append(s.rcpts, strings.Trim(line[len("RCPT TO:"):], "<> "))
			s.mx.Unlock()
			reply("250 OK")

		case upper == "DATA":
			reply("354 End data with <CR><LF>.<CR><LF>")

			var data strings.Builder
			for {
				l, err := reader.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				if strings.HasPrefix(l, "..") {
					l = l[1:]
				}
				data.WriteString(l)
			}
			s.mx.Lock()
			s.messages = append(s.messages, data.String())
			s.mx.Unlock()

			reply("250 OK: queued")

		case upper == "QUIT":
			reply("221 Bye")
			return

		default:
			reply("500 Syntax error")
		}
	}
}

type stubRecord struct {
	conns    int
	starttls int
	logins   []string
	rcpts    []string
	messages []string
}

// record waits for open sessions to finish and returns what was observed.
func (s *stubSMTPServer) record() stubRecord {
	s.wg.Wait()

	s.mx.Lock()
	defer s.mx.Unlock()

	return stubRecord{
		conns:    s.conns,
		starttls: s.starttls,
		logins:   append([]string(nil), s.logins...),
		rcpts:    append([]string(nil), s.rcpts...),
		messages: append([]string(nil), s.messages...),
	}
}

func (s *stubSMTPServer) close() {
	if s.listener != nil {
		s.listener.Close()
	}
}
