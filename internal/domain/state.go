package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// ErrNoAlertData is returned by ParseSnapshot when the attributes carry
// neither a maps sequence nor a non-empty flat shapes list.
var ErrNoAlertData = errors.New("no alert data in entity attributes")

// Metadata describes the warning shown next to a map. Values are displayed
// verbatim and never interpreted.
type Metadata struct {
	TipMesaj      string `json:"tip_mesaj,omitempty"`
	Mesaj         string `json:"mesaj,omitempty"`
	DataAparitiei string `json:"data_aparitiei,omitempty"`
	DataExpirarii string `json:"data_expirarii,omitempty"`
}

// MapEntry is one map of a multi-map entity: the shapes to paint and the
// optional warning metadata.
type MapEntry struct {
	Shapes []AlertShape `json:"shapes"`
	Meta   *Metadata    `json:"meta,omitempty"`
}

// EntityState is a single entity as published by the dashboard host.
type EntityState struct {
	EntityID    string          `json:"entity_id"`
	State       string          `json:"state"`
	Attributes  json.RawMessage `json:"attributes,omitempty"`
	LastUpdated time.Time       `json:"last_updated"`
}

// StateTable is the host's view of all entities, keyed by entity id.
type StateTable map[string]EntityState

// Lookup returns the state of an entity and whether it is present.
func (t StateTable) Lookup(entityID string) (EntityState, bool) {
	s, ok := t[entityID]
	return s, ok
}

// Snapshot is the alert content of one entity update, already decoded.
type Snapshot struct {
	Maps           []MapEntry
	ShapesFallback []AlertShape
	MetaFallback   *Metadata

	// Skipped counts shape records that could not be decoded and were dropped.
	Skipped int
}

// MapCount returns the number of maps in the maps sequence.
func (s Snapshot) MapCount() int {
	return len(s.Maps)
}

// Select returns the shapes and metadata to render for the given map index.
// With no maps sequence the flat fallback is returned regardless of index.
func (s Snapshot) Select(index int) ([]AlertShape, *Metadata) {
	if len(s.Maps) == 0 {
		return s.ShapesFallback, s.MetaFallback
	}
	if index < 0 || index >= len(s.Maps) {
		index = 0
	}
	m := s.Maps[index]
	return m.Shapes, m.Meta
}

// ParseSnapshot decodes entity attributes into a Snapshot. Malformed shape
// records are skipped and counted rather than failing the whole update.
// It returns ErrNoAlertData when there is nothing to render.
func ParseSnapshot(attributes json.RawMessage) (Snapshot, error) {
	var snap Snapshot
	if isNullJSON(attributes) {
		return snap, ErrNoAlertData
	}

	var raw struct {
		Maps   json.RawMessage `json:"maps"`
		Shapes json.RawMessage `json:"shapes"`
		Meta   json.RawMessage `json:"meta"`
	}
	if err := json.Unmarshal(attributes, &raw); err != nil {
		return snap, fmt.Errorf("decode attributes: %w", err)
	}

	entries, err := decodeMapsValue(raw.Maps)
	if err != nil {
		return snap, fmt.Errorf("decode maps: %w", err)
	}
	for _, e := range entries {
		entry, skipped := decodeMapEntry(e)
		snap.Maps = append(snap.Maps, entry)
		snap.Skipped += skipped
	}

	shapes, skipped, present := decodeShapes(raw.Shapes)
	snap.ShapesFallback = shapes
	snap.Skipped += skipped
	snap.MetaFallback = decodeMeta(raw.Meta)

	if len(snap.Maps) == 0 && (!present || len(shapes) == 0) {
		return snap, ErrNoAlertData
	}
	return snap, nil
}

// decodeMapsValue returns the raw map entries of a "maps" attribute, which
// may be an array or a keyed object. Anything else counts as absent.
func decodeMapsValue(raw json.RawMessage) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	switch raw[0] {
	case '[':
		var entries []json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, err
		}
		return entries, nil
	case '{':
		return orderedObjectValues(raw)
	default:
		return nil, nil
	}
}

// orderedObjectValues returns the values of a JSON object in JavaScript
// property order: array-index keys ascending, then string keys in insertion
// order. A repeated key keeps its first position and its last value.
func orderedObjectValues(raw json.RawMessage) ([]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	type prop struct {
		key   string
		value json.RawMessage
	}
	var props []prop
	pos := make(map[string]int)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		if i, seen := pos[key]; seen {
			props[i].value = value
			continue
		}
		pos[key] = len(props)
		props = append(props, prop{key: key, value: value})
	}

	var indexed, named []prop
	for _, p := range props {
		if _, ok := arrayIndex(p.key); ok {
			indexed = append(indexed, p)
		} else {
			named = append(named, p)
		}
	}
	sort.SliceStable(indexed, func(i, j int) bool {
		a, _ := arrayIndex(indexed[i].key)
		b, _ := arrayIndex(indexed[j].key)
		return a < b
	})

	values := make([]json.RawMessage, 0, len(props))
	for _, p := range indexed {
		values = append(values, p.value)
	}
	for _, p := range named {
		values = append(values, p.value)
	}
	return values, nil
}

// arrayIndex reports whether key is a canonical array index ("0", "17", but
// not "01" or "-1").
func arrayIndex(key string) (uint64, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(key, 10, 32)
	if err != nil || n == 1<<32-1 {
		return 0, false
	}
	return n, true
}

// decodeMapEntry decodes one map of the maps sequence. Entries that are not
// objects become empty maps so that pagination still counts them.
func decodeMapEntry(raw json.RawMessage) (MapEntry, int) {
	var fields struct {
		Shapes json.RawMessage `json:"shapes"`
		Meta   json.RawMessage `json:"meta"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return MapEntry{}, 0
	}
	shapes, skipped, _ := decodeShapes(fields.Shapes)
	return MapEntry{Shapes: shapes, Meta: decodeMeta(fields.Meta)}, skipped
}

// decodeShapes decodes a shapes array record by record. present reports
// whether a shapes array was supplied at all.
func decodeShapes(raw json.RawMessage) (shapes []AlertShape, skipped int, present bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, 0, false
	}
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, 0, false
	}
	shapes = make([]AlertShape, 0, len(records))
	for _, rec := range records {
		var s AlertShape
		if err := json.Unmarshal(rec, &s); err != nil {
			skipped++
			continue
		}
		shapes = append(shapes, s)
	}
	return shapes, skipped, true
}

// decodeMeta decodes warning metadata. Non-object values yield nil; fields
// that are not scalars are left empty.
func decodeMeta(raw json.RawMessage) *Metadata {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	text := func(key string) string {
		s, err := scalarString(fields[key])
		if err != nil {
			return ""
		}
		return s
	}
	return &Metadata{
		TipMesaj:      text("tip_mesaj"),
		Mesaj:         text("mesaj"),
		DataAparitiei: text("data_aparitiei"),
		DataExpirarii: text("data_expirarii"),
	}
}

func isNullJSON(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
