package svgdoc

import "strings"

// Classes returns the element's class tokens, split on whitespace.
func (n *Node) Classes() []string {
	v, _ := n.Attr("class")
	return strings.Fields(v)
}

// HasClass reports whether the element carries the class token.
func (n *Node) HasClass(token string) bool {
	for _, c := range n.Classes() {
		if c == token {
			return true
		}
	}
	return false
}

// ReplaceClasses removes every token for which drop returns true and then
// appends add unless it is already present. Remaining tokens keep their order.
func (n *Node) ReplaceClasses(drop func(string) bool, add string) {
	tokens := n.Classes()
	kept := tokens[:0]
	for _, t := range tokens {
		if drop(t) {
			continue
		}
		kept = append(kept, t)
	}
	present := false
	for _, t := range kept {
		if t == add {
			present = true
			break
		}
	}
	if !present && add != "" {
		kept = append(kept, add)
	}
	n.SetAttr("class", strings.Join(kept, " "))
}
