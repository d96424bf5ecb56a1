/*
Package servicebus provides a thin facade over domain event fan-out and integration event publishing.
A service raises a DomainEvent; in-process handlers run first, then the event is wrapped into an
IntegrationEvent and handed to the configured publisher keyed by its partition key.
*/
package servicebus
