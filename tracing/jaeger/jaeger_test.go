package jaeger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pure-golang/mailrelay/tracing"
)

func TestNewProviderBuilder_EmptyEndpointDisables(t *testing.T) {
	provider, err := NewProviderBuilder(Config{ServiceName: "mailrelay"})()

	assert.Nil(t, provider)
	assert.ErrorIs(t, err, tracing.ErrDisabled)
}

func TestNewProviderBuilder_EmptyServiceName(t *testing.T) {
	provider, err := NewProviderBuilder(Config{EndPoint: "http://localhost:4318"})()

	assert.Nil(t, provider)
	assert.EqualError(t, err, "service name is empty")
}

func TestNewProviderBuilder_Success(t *testing.T) {
	provider, err := NewProviderBuilder(Config{
		EndPoint:    "http://localhost:4318/v1/traces",
		ServiceName: "mailrelay",
		AppVersion:  "test",
	})()

	require.NoError(t, err)
	require.NotNil(t, provider)

	_, span := provider.Tracer("test").Start(t.Context(), "op")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
}
