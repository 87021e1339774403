package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bragerone/bragerone-go/internal/config"
)

func TestBootstrapDisabledReturnsUsableNoopProvider(t *testing.T) {
	p, err := Bootstrap(context.Background(), config.TelemetryConfig{Enabled: false})
	require.NoError(t, err)

	tracer := p.Tracer("test")
	assert.NotNil(t, tracer)

	_, span := tracer.Start(context.Background(), "op")
	span.End()

	assert.NotNil(t, p.Logger("test"))
	assert.NoError(t, p.Shutdown(context.Background()))
}
