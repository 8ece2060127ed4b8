package quoteform

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nexo-studio/agency-api/internal/domain"
)

// Snapshot is the serializable form of a Session, used to carry a previewed form
// between the preview and the confirmation requests.
type Snapshot struct {
	State     State                      `json:"state"`
	ServiceID uuid.UUID                  `json:"serviceId"`
	Questions []domain.Question          `json:"questions"`
	Answers   map[string]json.RawMessage `json:"answers"`
	Client    ClientInfo                 `json:"client"`
	// ExpiresAt is set by the preview store owner; Restore ignores it
	ExpiresAt time.Time `json:"expiresAt"`
}

// Snapshot captures the session
func (s *Session) Snapshot() (Snapshot, error) {
	answers := make(map[string]json.RawMessage, len(s.answers))
	for id, a := range s.answers {
		raw, err := json.Marshal(a)
		if err != nil {
			return Snapshot{}, fmt.Errorf("failed to encode answer %s: %w", id, err)
		}
		answers[id.String()] = raw
	}
	return Snapshot{
		State:     s.state,
		ServiceID: s.serviceID,
		Questions: s.Questions(),
		Answers:   answers,
		Client:    s.client,
	}, nil
}

// Restore rebuilds a session from a snapshot, decoding answers against the captured catalog
func Restore(snap Snapshot) (*Session, error) {
	switch snap.State {
	case StateEditing, StatePreviewed, StateSubmitted:
	default:
		return nil, fmt.Errorf("%w: unknown state %q", ErrInvalidTransition, snap.State)
	}

	answers, err := domain.DecodeAnswerSet(snap.Questions, snap.Answers)
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot answers: %w", err)
	}

	return &Session{
		state:     snap.State,
		serviceID: snap.ServiceID,
		questions: snap.Questions,
		answers:   answers,
		client:    snap.Client,
	}, nil
}
