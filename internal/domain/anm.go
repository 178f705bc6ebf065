package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// StateActive and StateInactive are the entity states produced from the ANM feed.
	StateActive   = "active"
	StateInactive = "inactive"

	noWarningsText = "Nu exista avertizari"
)

// anmWarning is one entry of the "avertizari-generale" payload.
type anmWarning struct {
	Attributes map[string]json.RawMessage `json:"@attributes"`
	Judet      json.RawMessage            `json:"judet"`
}

type anmCounty struct {
	Attributes map[string]json.RawMessage `json:"@attributes"`
}

// ParseANMWarnings converts an "avertizari-generale" payload into map entries,
// one per warning. Counties become shapes keyed by their code; the warning's
// phenomena, message and validity window become the map metadata.
// An empty or textual payload (the API answers with a string when nothing is
// active) yields no entries.
func ParseANMWarnings(payload []byte) ([]MapEntry, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || payload[0] != '{' {
		return nil, nil
	}

	var doc struct {
		Avertizare json.RawMessage `json:"avertizare"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode anm payload: %w", err)
	}

	var warnings []anmWarning
	if err := decodeOneOrMany(doc.Avertizare, &warnings); err != nil {
		return nil, fmt.Errorf("decode anm warnings: %w", err)
	}

	entries := make([]MapEntry, 0, len(warnings))
	for _, w := range warnings {
		var counties []anmCounty
		if err := decodeOneOrMany(w.Judet, &counties); err != nil {
			return nil, fmt.Errorf("decode anm counties: %w", err)
		}
		shapes := make([]AlertShape, 0, len(counties))
		for _, c := range counties {
			code := attr(c.Attributes, "cod")
			if code == "" {
				continue
			}
			shapes = append(shapes, AlertShape{ID: code, Culoare: attr(c.Attributes, "culoare")})
		}
		entries = append(entries, MapEntry{
			Shapes: shapes,
			Meta: &Metadata{
				TipMesaj:      firstNonEmpty(attr(w.Attributes, "numeTipMesaj"), attr(w.Attributes, "tipMesaj"), attr(w.Attributes, "fenomeneVizate")),
				Mesaj:         attr(w.Attributes, "mesaj"),
				DataAparitiei: attr(w.Attributes, "dataAparitiei"),
				DataExpirarii: attr(w.Attributes, "dataExpirarii"),
			},
		})
	}
	return entries, nil
}

// BuildANMState wraps ANM map entries into an entity state for the host
// state table. With no entries the entity is inactive and carries no maps.
func BuildANMState(entityID string, entries []MapEntry) (EntityState, error) {
	state := EntityState{
		EntityID:    entityID,
		State:       StateActive,
		LastUpdated: clock.Now().UTC(),
	}

	var attrs any
	if len(entries) == 0 {
		state.State = StateInactive
		attrs = map[string]any{"avertizari": noWarningsText}
	} else {
		attrs = map[string]any{"maps": entries, "avertizari_count": len(entries)}
	}

	data, err := json.Marshal(attrs)
	if err != nil {
		return EntityState{}, fmt.Errorf("encode anm attributes: %w", err)
	}
	state.Attributes = data
	return state, nil
}

// decodeOneOrMany decodes a value that the ANM API sends either as a single
// object or as an array of objects.
func decodeOneOrMany[T any](raw json.RawMessage, out *[]T) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '{' {
		var one T
		if err := json.Unmarshal(raw, &one); err != nil {
			return err
		}
		*out = []T{one}
		return nil
	}
	return json.Unmarshal(raw, out)
}

func attr(attrs map[string]json.RawMessage, key string) string {
	s, err := scalarString(attrs[key])
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
