package event_test

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/next-trace/scg-contracts/contract/event"
)

type AccountOpened struct {
	event.Base
	AccountID string `json:"accountId"`
	Owner     string `json:"owner"`
}

func (e AccountOpened) AggregateID() string   { return e.AccountID }
func (e AccountOpened) AggregateType() string { return "Account" }

// AuditLogged is not tied to an aggregate.
type AuditLogged struct {
	event.Base
	Note string `json:"note"`
}

type TransferSettled struct {
	event.Base
	TransferID string `json:"transferId"`
	Amount     int64  `json:"amount"`
}

func (e *TransferSettled) AggregateID() string { return e.TransferID }

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.n++

	return fmt.Sprintf("id-%d", s.n)
}

var epoch = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func fixedSource() (*event.Factory, *clockwork.FakeClock) {
	clk := clockwork.NewFakeClockAt(epoch)
	return event.NewFactory(event.WithIDSource(&seqIDs{}), event.WithClock(clk)), clk
}

func openAccount(src event.Source, id string) AccountOpened {
	return AccountOpened{Base: event.NewBase[AccountOpened](src), AccountID: id, Owner: "kim"}
}
