package event_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	berr "github.com/next-trace/scg-contracts/contract/errors"
	"github.com/next-trace/scg-contracts/contract/event"
)

func wireFields(t *testing.T, ie event.IntegrationEvent) map[string]json.RawMessage {
	t.Helper()

	b, err := event.Marshal(ie)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	return m
}

func TestMarshal_OmitsAbsentOptionals(t *testing.T) {
	src, _ := fixedSource()
	m := wireFields(t, event.Create(src, "Ping", "svc", nil))

	for _, k := range []string{"traceId", "spanId", "payload", "metadata", "aggregateId",
		"aggregateType", "partitionKey", "sequenceNumber", "expiresAt"} {
		if _, ok := m[k]; ok {
			t.Fatalf("absent field %s was serialized", k)
		}
	}

	for _, k := range []string{"eventId", "eventType", "occurredAt", "sourceService", "version", "retryCount"} {
		if _, ok := m[k]; !ok {
			t.Fatalf("field %s missing", k)
		}
	}

	if string(m["occurredAt"]) != `"2025-01-15T10:30:00Z"` {
		t.Fatalf("occurredAt not ISO-8601 UTC: %s", m["occurredAt"])
	}
}

func TestMarshal_DomainPayloadCarriesIdentity(t *testing.T) {
	src, _ := fixedSource()
	d := openAccount(src, "ACC-1")
	m := wireFields(t, event.From(src, d, "account-service"))

	var p map[string]any
	if err := json.Unmarshal(m["payload"], &p); err != nil {
		t.Fatalf("payload: %v", err)
	}

	if p["eventId"] != d.EventID() || p["eventType"] != "AccountOpened" || p["accountId"] != "ACC-1" {
		t.Fatalf("payload: %+v", p)
	}

	if p["occurredAt"] != "2025-01-15T10:30:00Z" {
		t.Fatalf("payload occurredAt: %v", p["occurredAt"])
	}
}

func TestRetry_OnlyRetryCountChangesOnTheWire(t *testing.T) {
	src, _ := fixedSource()
	ie := event.From(src, openAccount(src, "ACC-1"), "svc",
		event.WithTraceID("t"), event.WithSequenceNumber(1), event.WithExpiresAt(epoch.Add(time.Hour)))

	a := wireFields(t, ie)
	b := wireFields(t, ie.Retry())

	if string(a["retryCount"]) != "0" || string(b["retryCount"]) != "1" {
		t.Fatalf("retryCount: %s -> %s", a["retryCount"], b["retryCount"])
	}

	delete(a, "retryCount")
	delete(b, "retryCount")

	if len(a) != len(b) {
		t.Fatalf("field sets differ: %d vs %d", len(a), len(b))
	}

	for k, v := range a {
		if string(b[k]) != string(v) {
			t.Fatalf("field %s changed across retry: %s -> %s", k, v, b[k])
		}
	}
}

func TestRoundTrip_RegisteredDomainEvent(t *testing.T) {
	src, _ := fixedSource()
	reg := event.NewRegistry()

	if err := event.Register[AccountOpened](reg); err != nil {
		t.Fatalf("register: %v", err)
	}

	ie := event.From(src, openAccount(src, "ACC-1"), "account-service",
		event.WithTraceID("t"),
		event.WithSpanID("s"),
		event.WithMetadata(map[string]string{"tenant": "kr"}),
		event.WithSequenceNumber(9),
		event.WithExpiresAt(epoch.Add(time.Hour)),
	).Retry()

	b, err := event.Marshal(ie)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := reg.Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !got.Equal(ie) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, ie)
	}

	d, ok := got.DomainEvent()
	if !ok {
		t.Fatalf("payload not rebuilt as a domain event: %T", got.Payload())
	}

	acc, ok := d.(AccountOpened)
	if !ok || acc.AccountID != "ACC-1" || acc.EventID() != "id-1" {
		t.Fatalf("payload: %#v", d)
	}
}

func TestRoundTrip_PointerDomainEvent(t *testing.T) {
	src, _ := fixedSource()
	reg := event.NewRegistry()

	if err := event.Register[*TransferSettled](reg); err != nil {
		t.Fatalf("register: %v", err)
	}

	d := &TransferSettled{Base: event.NewBase[TransferSettled](src), TransferID: "TRF-1", Amount: 500}
	ie := event.From(src, d, "transfer-service")

	if ie.PartitionKey() != "TRF-1" {
		t.Fatalf("key: %s", ie.PartitionKey())
	}

	b, err := event.Marshal(ie)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := reg.Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !got.Equal(ie) {
		t.Fatalf("round trip mismatch")
	}
}

func TestRoundTrip_UnregisteredPayloadStaysRaw(t *testing.T) {
	src, _ := fixedSource()
	ie := event.CreateWithTTL(src, "RateTableRefreshed", "fx-service",
		json.RawMessage(`{"pairs":12}`), time.Minute)

	b, err := json.Marshal(ie)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got event.IntegrationEvent
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !got.Equal(ie) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, ie)
	}

	if raw, ok := got.Payload().(json.RawMessage); !ok || string(raw) != `{"pairs":12}` {
		t.Fatalf("payload: %#v", got.Payload())
	}
}

type rateTable struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

func TestRoundTrip_DecodedPayloadEqualsEncodedValue(t *testing.T) {
	src, _ := fixedSource()
	cases := map[string]event.IntegrationEvent{
		"map": event.Create(src, "RateTableRefreshed", "fx-service",
			map[string]any{"pairs": 12, "base": "KRW"}),
		"struct": event.CreateWithTTL(src, "RateTableRefreshed", "fx-service",
			rateTable{Base: "KRW", Rates: map[string]float64{"USD": 0.00072, "EUR": 0.00066}}, time.Minute),
		"string": event.Create(src, "RateTableRefreshed", "fx-service", "refreshed"),
		"spaced_raw": event.Create(src, "RateTableRefreshed", "fx-service",
			json.RawMessage(`{ "pairs" : 12 }`)),
		"unregistered_domain": event.From(src,
			AuditLogged{Base: event.NewBase[AuditLogged](src), Note: "limit raised"}, "audit-service",
			event.WithTraceID("t-1")),
	}

	for name, ie := range cases {
		t.Run(name, func(t *testing.T) {
			b, err := event.Marshal(ie)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}

			got, err := event.Unmarshal(b)
			if err != nil {
				t.Fatalf("unmarshal: %v", err)
			}

			if _, ok := got.Payload().(json.RawMessage); !ok {
				t.Fatalf("decoded payload should stay raw, got %T", got.Payload())
			}

			if !got.Equal(ie) || !ie.Equal(got) {
				t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, ie)
			}
		})
	}
}

func TestEqual_DifferentPayloadsDiffer(t *testing.T) {
	src, _ := fixedSource()
	a := event.Create(src, "RateTableRefreshed", "fx-service", map[string]any{"pairs": 12})

	b, err := event.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	b = []byte(strings.Replace(string(b), `"pairs":12`, `"pairs":13`, 1))

	got, err := event.Unmarshal(b)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got.Equal(a) {
		t.Fatalf("events with different payloads compared equal")
	}
}

func TestUnmarshal_RejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"not_json":       `{`,
		"no_id":          `{"eventType":"X","sourceService":"s","occurredAt":"2025-01-15T10:30:00Z"}`,
		"no_type":        `{"eventId":"1","sourceService":"s","occurredAt":"2025-01-15T10:30:00Z"}`,
		"no_source":      `{"eventId":"1","eventType":"X","occurredAt":"2025-01-15T10:30:00Z"}`,
		"negative_retry": `{"eventId":"1","eventType":"X","sourceService":"s","occurredAt":"2025-01-15T10:30:00Z","retryCount":-1}`,
	}

	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := event.Unmarshal([]byte(in))
			if !errors.Is(err, berr.ErrSerializationFailed) {
				t.Fatalf("want ErrSerializationFailed, got %v", err)
			}
		})
	}
}

func TestMarshal_UnencodablePayload(t *testing.T) {
	src, _ := fixedSource()
	ie := event.Create(src, "Broken", "svc", map[string]any{"ch": make(chan int)})

	_, err := event.Marshal(ie)
	if !errors.Is(err, berr.ErrSerializationFailed) {
		t.Fatalf("want ErrSerializationFailed, got %v", err)
	}
}

func TestDecode_BadRegisteredPayload(t *testing.T) {
	reg := event.NewRegistry()
	_ = event.Register[AccountOpened](reg)

	in := `{"eventId":"1","eventType":"AccountOpened","sourceService":"s",` +
		`"occurredAt":"2025-01-15T10:30:00Z","payload":{"accountId":"ACC-1"}}`

	_, err := reg.Decode([]byte(in))
	if !errors.Is(err, berr.ErrSerializationFailed) {
		t.Fatalf("payload without identity should fail, got %v", err)
	}

	if !strings.Contains(err.Error(), "AccountOpened") {
		t.Fatalf("error should name the event type: %v", err)
	}
}
