/*
Package event defines the two-layer event model shared by every service in the fleet.

A DomainEvent is an immutable fact raised inside one service's boundary. Concrete
events embed Base and are built with NewBase, NewVersionedBase or Rehydrate.

An IntegrationEvent is the wire envelope published to the message bus. It is built
from a DomainEvent with From, or from raw data with Create and CreateWithTTL, and
carries the publishing metadata consumers rely on: partition key for ordering,
retry count for redelivery, and an optional absolute expiry.

Identifiers and timestamps come from an injected Source, so construction is
deterministic under test. System returns the production source.
*/
package event
