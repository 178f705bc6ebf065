package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMissingEntityID is returned when a state message names no entity in
// either its body or its key.
var ErrMissingEntityID = errors.New("state message has no entity_id")

// RawState is an unprocessed entity state message from the source topic.
type RawState struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputMessage is the serialized form destined for the sink topic.
type OutputMessage struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// ParseStateMessage decodes a raw message into an entity state. The entity
// id falls back to the message key and the update time to the message
// timestamp when the body omits them.
func ParseStateMessage(raw RawState) (EntityState, error) {
	var st EntityState
	if err := json.Unmarshal(raw.Value, &st); err != nil {
		return EntityState{}, fmt.Errorf("decode state message: %w", err)
	}
	if st.EntityID == "" {
		st.EntityID = string(raw.Key)
	}
	if st.EntityID == "" {
		return EntityState{}, ErrMissingEntityID
	}
	if st.LastUpdated.IsZero() {
		st.LastUpdated = raw.Timestamp
	}
	return st, nil
}

// SerializeState encodes an entity state as a source-topic message keyed by
// entity id.
func SerializeState(st EntityState) (OutputMessage, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return OutputMessage{}, fmt.Errorf("serialize entity state: %w", err)
	}
	return OutputMessage{
		Key:   []byte(st.EntityID),
		Value: data,
		Headers: map[string]string{
			"entity_id": st.EntityID,
			"state":     st.State,
		},
	}, nil
}
