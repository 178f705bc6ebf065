// Package pagination tracks which of several maps is on display.
package pagination

import "fmt"

// Pager is a circular cursor over count maps. The zero value is ready to use.
// Index stays in [0, count) whenever count > 0.
type Pager struct {
	index int
	count int
}

// Index returns the current map index.
func (p *Pager) Index() int { return p.index }

// Count returns the number of maps.
func (p *Pager) Count() int { return p.count }

// SetMaps records a new map count. The index snaps back to 0 when the list
// shrank below it.
func (p *Pager) SetMaps(count int) {
	if count < 0 {
		count = 0
	}
	p.count = count
	if count > 0 && p.index >= count {
		p.index = 0
	}
}

// Next advances to the following map, wrapping at the end. It reports
// whether the index changed; with one map or none it is a no-op.
func (p *Pager) Next() bool {
	return p.step(1)
}

// Prev moves to the previous map, wrapping at the start.
func (p *Pager) Prev() bool {
	return p.step(-1)
}

func (p *Pager) step(delta int) bool {
	if p.count <= 1 {
		return false
	}
	p.index = (p.index + delta + p.count) % p.count
	return true
}

// Reset returns to the first map and forgets the count.
func (p *Pager) Reset() {
	p.index = 0
	p.count = 0
}

// Navigable reports whether next/prev controls should be enabled.
func (p *Pager) Navigable() bool {
	return p.count > 1
}

// Label renders the page indicator, e.g. "Harta 2 / 3". It is empty when
// there are no maps.
func (p *Pager) Label() string {
	if p.count == 0 {
		return ""
	}
	return fmt.Sprintf("Harta %d / %d", p.index+1, p.count)
}
