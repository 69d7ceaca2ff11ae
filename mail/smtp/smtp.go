package smtp

import "time"

const (
	DefaultHost     = "smtp.ethereal.email"
	DefaultPort     = 587
	DefaultTimeout  = 10 * time.Second
	DefaultHeloName = "localhost"
)

// Credentials authenticate the relay against the SMTP server.
// Both fields must be set before any connection is attempted.
type Credentials struct {
	Email    string `envconfig:"EMAIL"`    // login and From address
	Password string `envconfig:"PASSWORD"` // password or app password
}

// Configured reports whether both credential fields are present.
func (c Credentials) Configured() bool {
	return c.Email != "" && c.Password != ""
}

// Config contains SMTP connection parameters.
type Config struct {
	Host        string        `envconfig:"SMTP_HOST" default:"smtp.ethereal.email"`
	Port        int           `envconfig:"SMTP_PORT" default:"587"`         // STARTTLS submission port
	Timeout     time.Duration `envconfig:"SMTP_TIMEOUT" default:"10s"`      // dial and per read/write
	HeloName    string        `envconfig:"SMTP_HELO_NAME" default:"localhost"`
	Insecure    bool          `envconfig:"SMTP_INSECURE" default:"false"` // skip certificate verification
	Credentials Credentials
}

func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.HeloName == "" {
		c.HeloName = DefaultHeloName
	}
	return c
}
