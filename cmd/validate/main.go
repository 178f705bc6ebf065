// Command validate checks a map document against an entity state fixture:
// that the map parses and has region containers, that the state decodes,
// that every alert shape reaches at least one region, and that rendering
// each map leaves exactly one severity class on every region.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -map /config/www/anm-harta.svg \
//	  -state testdata/state_anm.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/couchcryptid/anm-alert-map/internal/classify"
	"github.com/couchcryptid/anm-alert-map/internal/domain"
	"github.com/couchcryptid/anm-alert-map/internal/matcher"
	"github.com/couchcryptid/anm-alert-map/internal/svgdoc"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	mapPath := flag.String("map", "", "path to the SVG map document")
	statePath := flag.String("state", "", "path to an entity state JSON fixture")
	flag.Parse()

	if *mapPath == "" || *statePath == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(os.Stdout, *mapPath, *statePath))
}

func run(out io.Writer, mapPath, statePath string) int {
	fmt.Fprintln(out, "=== ANM Map Validation ===")
	fmt.Fprintln(out)

	doc, err := loadMap(mapPath)
	if err != nil {
		fmt.Fprintf(out, "FATAL: load map: %v\n", err)
		return 1
	}

	st, err := loadState(statePath)
	if err != nil {
		fmt.Fprintf(out, "FATAL: load state: %v\n", err)
		return 1
	}

	snap, snapErr := domain.ParseSnapshot(st.Attributes)
	template := doc.String()
	passes := render(doc, snap)

	phases := []*phase{
		validateMap(doc),
		validateState(snap, snapErr),
	}
	if snapErr == nil {
		phases = append(phases,
			validateMatches(passes),
			validateRender(doc, template, passes),
		)
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Entity: %s (%s), %d maps, %d region containers\n",
		st.EntityID, st.State, snap.MapCount(), countRegions(doc))
	if idle := idleRegions(doc, passes); len(idle) > 0 && snapErr == nil {
		fmt.Fprintf(out, "Regions without alerts: %d\n", len(idle))
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadMap(path string) (*svgdoc.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return svgdoc.Parse(f)
}

func loadState(path string) (domain.EntityState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.EntityState{}, err
	}
	var st domain.EntityState
	if err := json.Unmarshal(data, &st); err != nil {
		return domain.EntityState{}, fmt.Errorf("decode: %w", err)
	}
	return st, nil
}

// renderPass is one map the card would show, a maps entry or the
// fallback, rendered the way the card renders it.
type renderPass struct {
	label   string
	painted *svgdoc.Document
	result  classify.Result
}

func render(doc *svgdoc.Document, snap domain.Snapshot) []renderPass {
	paint := func(label string, shapes []domain.AlertShape) renderPass {
		painted, res := classify.Apply(doc, shapes)
		return renderPass{label: label, painted: painted, result: res}
	}
	if snap.MapCount() == 0 {
		return []renderPass{paint("fallback", snap.ShapesFallback)}
	}
	passes := make([]renderPass, 0, snap.MapCount())
	for i := range snap.Maps {
		shapes, _ := snap.Select(i)
		passes = append(passes, paint(fmt.Sprintf("map %d", i+1), shapes))
	}
	return passes
}

// ── Phases ──

func validateMap(doc *svgdoc.Document) *phase {
	p := &phase{name: "Map has region containers"}
	if countRegions(doc) == 0 {
		p.errorf("no element carries data-judet or data-munte, or is a path/polygon with class judet/munte")
	}
	return p
}

func validateState(snap domain.Snapshot, err error) *phase {
	p := &phase{name: "State carries alert data"}
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	if snap.Skipped > 0 {
		p.errorf("%d malformed shape records", snap.Skipped)
	}
	return p
}

func validateMatches(passes []renderPass) *phase {
	p := &phase{name: "Every shape matches a region"}
	for _, pass := range passes {
		for _, s := range pass.result.Unmatched {
			p.errorf("%s: shape %q (culoare %q) matched no element", pass.label, s.ID, s.Culoare)
		}
	}
	return p
}

func validateRender(doc *svgdoc.Document, template string, passes []renderPass) *phase {
	p := &phase{name: "Render leaves one severity per region"}
	for _, pass := range passes {
		for _, n := range pass.painted.Descendants() {
			if !classify.IsRegionContainer(n) {
				continue
			}
			if got := severityCount(n); got != 1 {
				p.errorf("%s: region %s carries %d severity classes", pass.label, describe(n), got)
			}
		}
	}
	if doc.String() != template {
		p.errorf("template was modified by rendering")
	}
	return p
}

// ── Helpers ──

func countRegions(doc *svgdoc.Document) int {
	n := 0
	for _, el := range doc.Descendants() {
		if classify.IsRegionContainer(el) {
			n++
		}
	}
	return n
}

// idleRegions lists region containers left at the baseline by every pass.
// A painted copy has the template's shape, so descendants line up by position.
func idleRegions(doc *svgdoc.Document, passes []renderPass) []string {
	template := doc.Descendants()
	reached := make([]bool, len(template))
	for _, pass := range passes {
		for i, n := range pass.painted.Descendants() {
			if c, ok := classify.SeverityOf(n); ok && c != domain.Cod0 {
				reached[i] = true
			}
		}
	}
	var idle []string
	for i, n := range template {
		if classify.IsRegionContainer(n) && !reached[i] {
			idle = append(idle, describe(n))
		}
	}
	sort.Strings(idle)
	return idle
}

func severityCount(n *svgdoc.Node) int {
	count := 0
	for _, c := range n.Classes() {
		if domain.IsSeverityClass(c) {
			count++
		}
	}
	return count
}

func describe(n *svgdoc.Node) string {
	for _, attr := range []string{matcher.AttrJudet, matcher.AttrMunte, matcher.AttrID} {
		if v, ok := n.Attr(attr); ok && v != "" {
			return fmt.Sprintf("<%s %s=%q>", n.Name(), attr, v)
		}
	}
	return "<" + n.Name() + ">"
}
