package event

import (
	"reflect"
	"time"
)

// DomainEvent is an immutable fact that occurred inside a single service.
// AggregateID and AggregateType return "" when the event is not tied to an aggregate.
type DomainEvent interface {
	EventID() string
	EventType() string
	OccurredAt() time.Time
	Version() int
	AggregateID() string
	AggregateType() string
}

// Base carries the identity every DomainEvent shares. Embed it in concrete events
// and override AggregateID/AggregateType to link the event to its aggregate:
//
//	type AccountOpened struct {
//		event.Base
//		AccountID string `json:"accountId"`
//	}
//
//	func (e AccountOpened) AggregateID() string   { return e.AccountID }
//	func (e AccountOpened) AggregateType() string { return "Account" }
//
// Fields are write-once: only the constructors in this package set them.
type Base struct {
	id         string
	typ        string
	occurredAt time.Time
	version    int
}

// NewBase stamps a fresh id and the current time for event type T at version 1.
func NewBase[T any](src Source) Base { return NewVersionedBase[T](src, 1) }

// NewVersionedBase is NewBase with an explicit schema version.
func NewVersionedBase[T any](src Source, version int) Base {
	src = orSystem(src)

	return Base{
		id:         src.NewID(),
		typ:        TypeName[T](),
		occurredAt: src.Now(),
		version:    version,
	}
}

// Rehydrate rebuilds the Base of a stored event of type T for event-sourcing replay.
// No id is generated: the caller guarantees id is the original one.
func Rehydrate[T any](id string, occurredAt time.Time) Base {
	return Base{
		id:         id,
		typ:        TypeName[T](),
		occurredAt: occurredAt.UTC(),
		version:    1,
	}
}

func (b Base) EventID() string       { return b.id }
func (b Base) EventType() string     { return b.typ }
func (b Base) OccurredAt() time.Time { return b.occurredAt }
func (b Base) Version() int          { return b.version }
func (b Base) AggregateID() string   { return "" }
func (b Base) AggregateType() string { return "" }

// restorer is satisfied by any pointer to a type embedding Base.
type restorer interface {
	restore(h domainHeader)
}

func (b *Base) restore(h domainHeader) {
	b.id = h.EventID
	b.typ = h.EventType
	b.occurredAt = h.OccurredAt.UTC()
	b.version = h.Version
}

// TypeName is the event type discriminator derived from T: its Go type name
// with any pointer indirection removed.
func TypeName[T any]() string {
	return typeName(reflect.TypeFor[T]())
}

func typeName(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	name := t.Name()
	if name == "" { // unnamed (e.g., struct literal)
		name = t.String()
	}

	return name
}
