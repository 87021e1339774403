// Package external declares the boundary interfaces for collaborators
// that sit outside the core client library: credential persistence,
// CLI/argument parsing, example scripts, documentation generation, a
// benchmarking harness, Home Assistant integration bindings, and
// plotting/telemetry exporters. None of these are implemented here —
// the core only consumes them through these interfaces.
package external

import (
	"context"

	"github.com/bragerone/bragerone-go/domain"
)

// TokenPersister loads, saves, and clears a Token in whatever storage a
// concrete collaborator chooses (OS keyring, a file, a secrets manager).
// The core calls Load once during ensure_auth and Save after a
// successful login or refresh; Clear is called from revoke regardless
// of whether the server-side revoke succeeded.
type TokenPersister interface {
	Load(ctx context.Context) (*domain.Token, error)
	Save(ctx context.Context, token domain.Token) error
	Clear(ctx context.Context) error
}

// TelemetryExporter receives resolved parameter values and connection
// lifecycle events for export to an external time-series store or
// plotting tool. A no-op implementation is used when telemetry export
// is not configured.
type TelemetryExporter interface {
	ExportValue(ctx context.Context, symbol string, value any)
	ExportEvent(ctx context.Context, name string, attrs map[string]string)
}

// HomeAssistantBridge is the shape a Home Assistant custom-component
// integration would implement on top of the gateway's public surface to
// publish entities and accept commands. Specified as an interface only;
// the bridge itself is an external collaborator.
type HomeAssistantBridge interface {
	PublishEntity(ctx context.Context, symbol string, desc domain.SymbolDescriptor) error
	HandleCommand(ctx context.Context, symbol string, value any) error
}

// DocGenerator produces documentation (e.g. a symbol/register reference)
// from a resolved catalog. Specified as an interface only.
type DocGenerator interface {
	Generate(ctx context.Context, symbols []string) ([]byte, error)
}

// BenchmarkHarness drives load against a Gateway for performance
// measurement. Specified as an interface only.
type BenchmarkHarness interface {
	Run(ctx context.Context, concurrency int, duration string) error
}
