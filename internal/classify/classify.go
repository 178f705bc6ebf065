// Package classify paints severity classes onto a copy of the map template.
package classify

import (
	"github.com/couchcryptid/anm-alert-map/internal/domain"
	"github.com/couchcryptid/anm-alert-map/internal/matcher"
	"github.com/couchcryptid/anm-alert-map/internal/svgdoc"
)

// regionShapeTypes and regionClasses identify region containers that carry
// no data attribute, e.g. <path class="judet">.
var (
	regionShapeTypes = map[string]bool{"path": true, "polygon": true}
	regionClasses    = []string{"judet", "munte"}
)

// Result summarises one Apply call.
type Result struct {
	Reset     int                 // region containers reset to the baseline
	Painted   int                 // element paints, counting repaints
	Unmatched []domain.AlertShape // shapes that matched no element
	Classes   map[domain.SeverityClass]int
}

// Apply clones template, resets every region container to cod0 and paints
// each shape's severity onto its matching elements in input order. When two
// shapes match the same element the later one wins. The template is never
// modified.
func Apply(template *svgdoc.Document, shapes []domain.AlertShape) (*svgdoc.Document, Result) {
	doc := template.Clone()
	res := Result{Classes: make(map[domain.SeverityClass]int)}

	for _, n := range doc.Descendants() {
		if IsRegionContainer(n) {
			setSeverity(n, domain.Cod0)
			res.Reset++
		}
	}

	// Matching runs against the clone as painted so far, so severity tokens
	// written by earlier shapes take part like any other class.
	idx := matcher.NewIndex(doc, matcher.RegionIdentifiers)
	for _, shape := range shapes {
		matches := idx.Match(shape)
		if len(matches) == 0 {
			res.Unmatched = append(res.Unmatched, shape)
			continue
		}
		class := shape.Severity()
		for _, n := range matches {
			setSeverity(n, class)
			idx.Refresh(n)
			res.Painted++
		}
	}

	for _, n := range doc.Descendants() {
		if c, ok := SeverityOf(n); ok {
			res.Classes[c]++
		}
	}
	return doc, res
}

// IsRegionContainer reports whether the element is reset to the baseline on
// every render: it carries data-judet or data-munte, or it is a path or
// polygon with class judet or munte.
func IsRegionContainer(n *svgdoc.Node) bool {
	if _, ok := n.Attr(matcher.AttrJudet); ok {
		return true
	}
	if _, ok := n.Attr(matcher.AttrMunte); ok {
		return true
	}
	if !regionShapeTypes[n.LocalName()] {
		return false
	}
	for _, c := range regionClasses {
		if n.HasClass(c) {
			return true
		}
	}
	return false
}

// SeverityOf returns the severity class an element carries. ok is false when
// it carries none. Elements painted by Apply carry exactly one.
func SeverityOf(n *svgdoc.Node) (domain.SeverityClass, bool) {
	for _, c := range n.Classes() {
		if domain.IsSeverityClass(c) {
			return domain.SeverityClass(c), true
		}
	}
	return "", false
}

func setSeverity(n *svgdoc.Node, class domain.SeverityClass) {
	n.ReplaceClasses(domain.IsSeverityClass, string(class))
}
