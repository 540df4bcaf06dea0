package chat

import "github.com/brimoraa/plpchat/internal/models"

type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeReplaced
	OutcomeAppended
	OutcomeDuplicate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReplaced:
		return "replaced"
	case OutcomeAppended:
		return "appended"
	case OutcomeDuplicate:
		return "duplicate"
	default:
		return "ignored"
	}
}

// Reconcile applies an inbound message to seq. A message whose correlation id
// matches a pending entry replaces it in place; a message with an unseen
// server id is appended; anything else is discarded. Applying the same
// message twice leaves seq unchanged the second time.
func Reconcile(seq []models.Message, msg models.Message) ([]models.Message, Outcome) {
	if msg.TempID != "" {
		for i := range seq {
			if seq[i].IsPending() && seq[i].TempID == msg.TempID {
				// The broadcast copy may already be in seq.
				if msg.ID != "" && indexOf(seq, msg.ID) >= 0 {
					out := make([]models.Message, 0, len(seq)-1)
					out = append(out, seq[:i]...)
					return append(out, seq[i+1:]...), OutcomeReplaced
				}
				out := make([]models.Message, len(seq))
				copy(out, seq)
				out[i] = msg
				return out, OutcomeReplaced
			}
		}
	}

	// Without a server id there is nothing to deduplicate against.
	if msg.ID == "" {
		return seq, OutcomeIgnored
	}

	if indexOf(seq, msg.ID) >= 0 {
		return seq, OutcomeDuplicate
	}
	return append(seq, msg), OutcomeAppended
}

func indexOf(seq []models.Message, id string) int {
	for i := range seq {
		if seq[i].ID == id {
			return i
		}
	}
	return -1
}
