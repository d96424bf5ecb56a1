/*
Package redelivery implements the consumer side of integration event delivery.

A Dispatcher takes one message as received from a broker and runs it through
decode, expiry check, idempotency check, handling and, on a retriable failure,
republishing a Retry copy of the event to the same topic with the same key.
Scheduling, delays and persistence of seen event ids belong to the caller.
*/
package redelivery
