package event

import (
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// IDSource produces globally unique event identifiers.
// Implementations must be safe for concurrent use.
type IDSource interface {
	NewID() string
}

// UUIDSource generates random (v4) UUIDs in the 36-character hyphenated form.
type UUIDSource struct{}

func (UUIDSource) NewID() string { return uuid.NewString() }

// Source is the capability event constructors draw identifiers and time from.
type Source interface {
	NewID() string
	Now() time.Time
}

// Factory is the standard Source: an IDSource paired with a clock.
// It is safe for concurrent use when its IDSource and clock are.
type Factory struct {
	ids   IDSource
	clock clockwork.Clock
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithIDSource replaces the identifier generator.
func WithIDSource(ids IDSource) FactoryOption {
	return func(f *Factory) {
		if ids != nil {
			f.ids = ids
		}
	}
}

// WithClock replaces the clock, typically with clockwork.NewFakeClock in tests.
func WithClock(c clockwork.Clock) FactoryOption {
	return func(f *Factory) {
		if c != nil {
			f.clock = c
		}
	}
}

// NewFactory builds a Factory defaulting to UUIDSource and the real clock.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{ids: UUIDSource{}, clock: clockwork.NewRealClock()}
	for _, o := range opts {
		o(f)
	}

	return f
}

// System returns the production Source.
func System() *Factory { return NewFactory() }

func (f *Factory) NewID() string { return f.ids.NewID() }

// Now returns the current time in UTC with the monotonic reading stripped,
// so timestamps survive an encode/decode cycle unchanged.
func (f *Factory) Now() time.Time { return f.clock.Now().UTC() }

func orSystem(src Source) Source {
	if src == nil {
		return System()
	}

	return src
}
