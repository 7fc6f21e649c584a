package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventEnvelope is the shared envelope for v1 contracts on the events exchange.
type EventEnvelope struct {
	EventName     string          `json:"eventName"`
	EventVersion  int             `json:"eventVersion"`
	EventID       string          `json:"eventId"`
	CorrelationID string          `json:"correlationId,omitempty"`
	CausationID   string          `json:"causationId,omitempty"`
	Producer      string          `json:"producer"`
	PartitionKey  string          `json:"partitionKey"`
	Sequence      int64           `json:"sequence,omitempty"`
	OccurredAt    time.Time       `json:"occurredAt"`
	Schema        string          `json:"schema"`
	Payload       json.RawMessage `json:"payload"`
}

func (e EventEnvelope) Validate(expectedName string, expectedVersion int) error {
	if e.EventName != expectedName {
		return fmt.Errorf("unexpected eventName %q", e.EventName)
	}
	if e.EventVersion != expectedVersion {
		return fmt.Errorf("unexpected eventVersion %d", e.EventVersion)
	}
	if e.PartitionKey == "" {
		return fmt.Errorf("missing partitionKey")
	}
	if e.EventID == "" {
		return fmt.Errorf("missing eventId")
	}
	return nil
}
