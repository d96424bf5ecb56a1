package memory

import (
	"github.com/next-trace/scg-contracts/adapters/inmemory"
	cbus "github.com/next-trace/scg-contracts/contract/bus"
	"github.com/next-trace/scg-contracts/servicebus"
)

// New constructs a service bus publishing as sourceService through the in-memory adapter.
// It returns the bus as a contract.Bus, the recording publisher for assertions, and a
// cleanup function that closes the bus.
func New(sourceService string, opts ...servicebus.BusOption) (cbus.Bus, *inmemory.Publisher, func()) { //nolint:ireturn
	pub := inmemory.New()
	sb := servicebus.New(pub, sourceService, nil, opts...)
	cleanup := func() { _ = sb.Close() }

	return sb, pub, cleanup
}
