// Command genstate converts a saved ANM "avertizari-generale" payload into a
// host entity state fixture, the same document the feed poller applies and
// the source topic carries. A fixed clock keeps last_updated reproducible.
//
// Usage:
//
//	go run ./cmd/genstate \
//	  -payload internal/adapter/anm/testdata/avertizari-generale.json \
//	  -out testdata/state_anm.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/couchcryptid/anm-alert-map/internal/card"
	"github.com/couchcryptid/anm-alert-map/internal/domain"
	"github.com/jonboulle/clockwork"
)

var defaultAt = time.Date(2024, time.July, 1, 9, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	payload := flag.String("payload", "", "path to a saved avertizari-generale JSON payload")
	out := flag.String("out", "", "output path for the entity state fixture")
	entity := flag.String("entity", card.StubEntity, "entity id of the generated state")
	at := flag.String("at", defaultAt.Format(time.RFC3339), "last_updated timestamp (RFC3339)")
	flag.Parse()

	if *payload == "" || *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -payload, -out")
	}

	ts, err := time.Parse(time.RFC3339, *at)
	if err != nil {
		return fmt.Errorf("parse -at: %w", err)
	}

	data, err := os.ReadFile(*payload)
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	st, entries, err := buildFixture(data, *entity, ts)
	if err != nil {
		return err
	}

	if err := writeJSON(*out, st); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote %s state for %s: %s", st.State, st.EntityID, *out)

	printStats(entries)
	return nil
}

// buildFixture parses an ANM payload and wraps it as the state of entity at
// the given time.
func buildFixture(payload []byte, entity string, at time.Time) (domain.EntityState, []domain.MapEntry, error) {
	domain.SetClock(clockwork.NewFakeClockAt(at))
	defer domain.SetClock(nil)

	entries, err := domain.ParseANMWarnings(payload)
	if err != nil {
		return domain.EntityState{}, nil, fmt.Errorf("parse payload: %w", err)
	}
	st, err := domain.BuildANMState(entity, entries)
	if err != nil {
		return domain.EntityState{}, nil, err
	}
	return st, entries, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func printStats(entries []domain.MapEntry) {
	log.Printf("warnings: %d", len(entries))
	counts := map[domain.SeverityClass]int{}
	for _, e := range entries {
		for _, s := range e.Shapes {
			counts[s.Severity()]++
		}
	}
	classes := make([]string, 0, len(counts))
	for c := range counts {
		classes = append(classes, string(c))
	}
	sort.Strings(classes)
	for _, c := range classes {
		log.Printf("  %s: %d regions", c, counts[domain.SeverityClass(c)])
	}
}
