package bus

import (
	"strconv"

	"github.com/next-trace/scg-contracts/contract/event"
)

// Standard transport headers. They duplicate envelope fields so brokers and
// consumers can route, deduplicate and drop without decoding the body.
const (
	HeaderEventID       = "x-event-id"
	HeaderEventType     = "x-event-type"
	HeaderSourceService = "x-source-service"
	HeaderPartitionKey  = "x-partition-key"
	HeaderRetryCount    = "x-retry-count"
	HeaderTraceID       = "x-trace-id"
	HeaderContentType   = "content-type"

	ContentTypeJSON = "application/json"
)

// EventHeaders builds the transport headers for e merged with extra.
// Standard headers win over same-named entries in extra.
func EventHeaders(e event.IntegrationEvent, extra map[string]string) map[string]string {
	h := make(map[string]string, len(extra)+7)
	for k, v := range extra {
		h[k] = v
	}

	h[HeaderEventID] = e.EventID()
	h[HeaderEventType] = e.EventType()
	h[HeaderSourceService] = e.SourceService()
	h[HeaderRetryCount] = strconv.Itoa(e.RetryCount())
	h[HeaderContentType] = ContentTypeJSON

	if e.PartitionKey() != "" {
		h[HeaderPartitionKey] = e.PartitionKey()
	}

	if e.TraceID() != "" {
		h[HeaderTraceID] = e.TraceID()
	}

	return h
}
