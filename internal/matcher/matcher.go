// Package matcher resolves alert shapes to the map elements that represent
// their region.
//
// An element is a region candidate when it carries data-judet, data-munte, an
// id or a class attribute. Its identifiers are the values of those attributes
// (each class token separately), uppercased. A shape matches an element when
// any identifier ends with the shape id, compared case-insensitively. The
// suffix rule tolerates prefixed codes in map data ("RO_AB" matches "AB")
// while a longer shape id never matches a shorter identifier.
package matcher

import (
	"strings"

	"github.com/couchcryptid/anm-alert-map/internal/domain"
	"github.com/couchcryptid/anm-alert-map/internal/svgdoc"
)

// Region attributes read by RegionIdentifiers.
const (
	AttrJudet = "data-judet"
	AttrMunte = "data-munte"
	AttrID    = "id"
	AttrClass = "class"
)

// IdentifierSource yields the identifying strings of an element, already
// uppercased and without empty values. It returns nil for elements that are
// not region candidates.
type IdentifierSource func(n *svgdoc.Node) []string

// RegionIdentifiers is the default IdentifierSource.
func RegionIdentifiers(n *svgdoc.Node) []string {
	if !isCandidate(n) {
		return nil
	}
	var ids []string
	add := func(v string) {
		if v == "" {
			return
		}
		ids = append(ids, strings.ToUpper(v))
	}
	if v, ok := n.Attr(AttrJudet); ok {
		add(v)
	}
	if v, ok := n.Attr(AttrMunte); ok {
		add(v)
	}
	if v, ok := n.Attr(AttrID); ok {
		add(v)
	}
	for _, c := range n.Classes() {
		add(c)
	}
	return ids
}

func isCandidate(n *svgdoc.Node) bool {
	for _, name := range []string{AttrJudet, AttrMunte, AttrID, AttrClass} {
		if _, ok := n.Attr(name); ok {
			return true
		}
	}
	return false
}

// Candidates returns the identifiers a shape id is matched by: the id
// uppercased and lowercased. Both compare equal once uppercased; the pair is
// kept so a custom IdentifierSource that preserves case still matches.
// An empty id has no candidates.
func Candidates(shapeID string) []string {
	raw := strings.ToUpper(shapeID)
	if raw == "" {
		return nil
	}
	return []string{raw, strings.ToLower(raw)}
}

// Matches reports whether any identifier ends with any candidate,
// case-insensitively.
func Matches(identifiers, candidates []string) bool {
	for _, id := range identifiers {
		upper := strings.ToUpper(id)
		for _, c := range candidates {
			if strings.HasSuffix(upper, strings.ToUpper(c)) {
				return true
			}
		}
	}
	return false
}

// Index caches the identifiers of every region candidate in a document so a
// paint pass over many shapes reads each element's attributes once.
// An Index is bound to the document it was built from.
type Index struct {
	source  IdentifierSource
	entries []entry
	pos     map[*svgdoc.Node]int
}

type entry struct {
	node *svgdoc.Node
	ids  []string
}

// NewIndex builds an index over the descendants of doc using source. A nil
// source selects RegionIdentifiers.
func NewIndex(doc *svgdoc.Document, source IdentifierSource) *Index {
	if source == nil {
		source = RegionIdentifiers
	}
	idx := &Index{source: source, pos: make(map[*svgdoc.Node]int)}
	for _, n := range doc.Descendants() {
		ids := source(n)
		if len(ids) == 0 {
			continue
		}
		idx.pos[n] = len(idx.entries)
		idx.entries = append(idx.entries, entry{node: n, ids: ids})
	}
	return idx
}

// Refresh re-reads the identifiers of an indexed element after its
// attributes changed. Elements that were not candidates when the index was
// built stay out of it.
func (idx *Index) Refresh(n *svgdoc.Node) {
	if i, ok := idx.pos[n]; ok {
		idx.entries[i].ids = idx.source(n)
	}
}

// Len returns the number of indexed region candidates.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Match returns the elements the shape refers to, in document order.
func (idx *Index) Match(shape domain.AlertShape) []*svgdoc.Node {
	candidates := Candidates(shape.ID)
	if len(candidates) == 0 {
		return nil
	}
	var out []*svgdoc.Node
	for _, e := range idx.entries {
		if Matches(e.ids, candidates) {
			out = append(out, e.node)
		}
	}
	return out
}

// Match resolves a single shape against doc with the default identifiers.
func Match(doc *svgdoc.Document, shape domain.AlertShape) []*svgdoc.Node {
	return NewIndex(doc, nil).Match(shape)
}
