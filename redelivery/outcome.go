package redelivery

// Outcome reports what a Dispatcher did with one message.
type Outcome int

const (
	// Failed means infrastructure failed (seen store or republish); the caller should nack.
	Failed Outcome = iota
	Processed
	Duplicate
	Expired
	Rejected
	Exhausted
	Retried
)

func (o Outcome) String() string {
	switch o {
	case Processed:
		return "processed"
	case Duplicate:
		return "duplicate"
	case Expired:
		return "expired"
	case Rejected:
		return "rejected"
	case Exhausted:
		return "exhausted"
	case Retried:
		return "retried"
	default:
		return "failed"
	}
}

// Settled reports whether the message can be acknowledged on the source broker.
func (o Outcome) Settled() bool { return o != Failed }
