package mail

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestRelayError_Error(t *testing.T) {
	cause := errors.New("535 Authentication failed")

	tests := []struct {
		name string
		err  *RelayError
		want string
	}{
		{
			name: "configuration",
			err:  NotConfigured(),
			want: NotConfiguredMessage,
		},
		{
			name: "authentication",
			err:  NewError(KindAuthentication, "failed to authenticate", cause),
			want: "SMTP Error: failed to authenticate: 535 Authentication failed",
		},
		{
			name: "unexpected",
			err:  NewError(KindUnexpected, "", errors.New("boom")),
			want: "Unexpected error: boom",
		},
		{
			name: "op only",
			err:  NewError(KindProtocol, "no recipient specified", nil),
			want: "SMTP Error: no recipient specified",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestRelayError_NotConfiguredMentionsConfiguration(t *testing.T) {
	assert.Contains(t, NotConfigured().Error(), "not configured")
}

func TestRelayError_Is(t *testing.T) {
	err := errors.Wrap(NewError(KindConnection, "failed to connect", errors.New("i/o timeout")), "relay")

	assert.True(t, errors.Is(err, ErrConnection))
	assert.False(t, errors.Is(err, ErrAuthentication))
	assert.False(t, errors.Is(err, ErrUnexpected))
}

func TestRelayError_Unwrap(t *testing.T) {
	cause := errors.New("cause")
	err := NewError(KindProtocol, "failed to set recipient", cause)

	assert.True(t, errors.Is(err, cause))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindTLSNegotiation, KindOf(NewError(KindTLSNegotiation, "", nil)))
	assert.Equal(t, KindConfiguration, KindOf(errors.Wrap(NotConfigured(), "wrapped")))
	assert.Equal(t, KindUnexpected, KindOf(errors.New("plain")))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "authentication", KindAuthentication.String())
	assert.Equal(t, "tls_negotiation", KindTLSNegotiation.String())
	assert.Equal(t, "unexpected", Kind(42).String())
}

func TestAddress_String(t *testing.T) {
	assert.Equal(t, "a@b.com", Address{Address: "a@b.com"}.String())
	assert.Equal(t, `"John Doe" <john@example.com>`, Address{Name: "John Doe", Address: "john@example.com"}.String())
}
