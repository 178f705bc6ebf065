package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/couchcryptid/anm-alert-map/internal/domain"
)

// ErrUnwatchedEntity marks a state for an entity no card renders. Such
// messages are committed and dropped without counting as errors.
var ErrUnwatchedEntity = errors.New("entity not watched")

// StateTransformer implements Transformer by decoding host state messages.
type StateTransformer struct {
	watched map[string]bool
	logger  *slog.Logger
}

// NewTransformer creates a StateTransformer. With no watched entities every
// entity is kept; otherwise states for other entities are dropped.
func NewTransformer(logger *slog.Logger, watched ...string) *StateTransformer {
	t := &StateTransformer{logger: logger}
	if len(watched) > 0 {
		t.watched = make(map[string]bool, len(watched))
		for _, id := range watched {
			t.watched[id] = true
		}
	}
	return t
}

func (t *StateTransformer) Transform(_ context.Context, raw domain.RawState) (domain.EntityState, error) {
	st, err := domain.ParseStateMessage(raw)
	if err != nil {
		return domain.EntityState{}, err
	}
	if t.watched != nil && !t.watched[st.EntityID] {
		t.logger.Debug("ignoring unwatched entity", "entity", st.EntityID)
		return domain.EntityState{}, ErrUnwatchedEntity
	}
	return st, nil
}
