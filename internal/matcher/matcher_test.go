package matcher

import (
	"strings"
	"testing"

	"github.com/couchcryptid/anm-alert-map/internal/domain"
	"github.com/couchcryptid/anm-alert-map/internal/svgdoc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMap = `<svg xmlns="http://www.w3.org/2000/svg">
  <g id="romania">
    <path data-judet="RO_AB" d="M0 0"/>
    <path data-judet="ab" d="M0 0"/>
    <path id="judet-CJ" d="M0 0"/>
    <path class="judet region-TM" d="M0 0"/>
    <polygon data-munte="CARPATII_MERIDIONALI" points="0,0"/>
    <path data-judet="XAB" d="M0 0"/>
    <path data-judet="" class="" d="M0 0"/>
    <path d="M0 0"/>
  </g>
</svg>`

func parseMap(t *testing.T, src string) *svgdoc.Document {
	t.Helper()
	doc, err := svgdoc.Parse(strings.NewReader(src))
	require.NoError(t, err)
	return doc
}

func attrsOf(nodes []*svgdoc.Node) []string {
	var out []string
	for _, n := range nodes {
		for _, name := range []string{AttrJudet, AttrMunte, AttrID, AttrClass} {
			if v, ok := n.Attr(name); ok && v != "" {
				out = append(out, v)
				break
			}
		}
	}
	return out
}

func TestCandidates(t *testing.T) {
	assert.Equal(t, []string{"AB", "ab"}, Candidates("aB"))
	assert.Nil(t, Candidates(""))
}

func TestMatches_Direction(t *testing.T) {
	assert.True(t, Matches([]string{"RO_AB"}, Candidates("ab")))
	assert.True(t, Matches([]string{"RO_AB"}, Candidates("AB")))
	assert.False(t, Matches([]string{"AB"}, Candidates("XAB")), "identifier must end with the candidate, not the reverse")
	assert.False(t, Matches([]string{"ABX"}, Candidates("AB")), "prefix is not a suffix")
	assert.False(t, Matches(nil, Candidates("AB")))
	assert.False(t, Matches([]string{"AB"}, nil))
}

func TestRegionIdentifiers(t *testing.T) {
	n := svgdoc.NewElement("path",
		svgdoc.Attr{Name: "data-judet", Value: "ro_ab"},
		svgdoc.Attr{Name: "data-munte", Value: ""},
		svgdoc.Attr{Name: "id", Value: "p1"},
		svgdoc.Attr{Name: "class", Value: " judet  cod0 "},
	)
	assert.Equal(t, []string{"RO_AB", "P1", "JUDET", "COD0"}, RegionIdentifiers(n))

	plain := svgdoc.NewElement("path", svgdoc.Attr{Name: "d", Value: "M0 0"})
	assert.Nil(t, RegionIdentifiers(plain))
}

func TestMatch(t *testing.T) {
	doc := parseMap(t, testMap)

	cases := []struct {
		name  string
		shape domain.AlertShape
		want  []string
	}{
		{"prefixed and bare codes, any case", domain.AlertShape{ID: "ab"}, []string{"RO_AB", "ab", "XAB"}},
		{"id attribute suffix", domain.AlertShape{ID: "CJ"}, []string{"judet-CJ"}},
		{"class token suffix", domain.AlertShape{ID: "tm"}, []string{"judet region-TM"}},
		{"mountain attribute", domain.AlertShape{ID: "meridionali"}, []string{"CARPATII_MERIDIONALI"}},
		{"longer id does not match", domain.AlertShape{ID: "XXAB"}, nil},
		{"empty id matches nothing", domain.AlertShape{ID: ""}, nil},
		{"unknown region", domain.AlertShape{ID: "VS"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, attrsOf(Match(doc, tc.shape)))
		})
	}
}

func TestMatch_RootIsNeverMatched(t *testing.T) {
	doc := parseMap(t, `<svg id="AB"><path id="AB"/></svg>`)

	matches := Match(doc, domain.AlertShape{ID: "AB"})
	require.Len(t, matches, 1)
	assert.Equal(t, "path", matches[0].Name())
}

func TestMatch_GroupAndChildBothMatch(t *testing.T) {
	doc := parseMap(t, `<svg><g id="AB"><path data-judet="AB"/></g></svg>`)

	matches := Match(doc, domain.AlertShape{ID: "AB"})
	require.Len(t, matches, 2)
	assert.Equal(t, "g", matches[0].Name())
	assert.Equal(t, "path", matches[1].Name())
}

func TestIndex_CustomSource(t *testing.T) {
	doc := parseMap(t, testMap)

	onlyJudet := func(n *svgdoc.Node) []string {
		v, ok := n.Attr(AttrJudet)
		if !ok || v == "" {
			return nil
		}
		return []string{strings.ToUpper(v)}
	}
	idx := NewIndex(doc, onlyJudet)

	assert.Equal(t, 3, idx.Len())
	assert.Empty(t, idx.Match(domain.AlertShape{ID: "CJ"}))
	assert.Len(t, idx.Match(domain.AlertShape{ID: "AB"}), 3)
}

func TestIndex_DefaultSourceCountsCandidates(t *testing.T) {
	doc := parseMap(t, testMap)

	// g#romania plus six identified paths/polygons; the element with only
	// empty attributes and the bare path carry no identifiers.
	assert.Equal(t, 7, NewIndex(doc, nil).Len())
}

func TestIndex_Refresh(t *testing.T) {
	doc := parseMap(t, `<svg><path id="RO_AB" class="judet cod0"/><path d="M0 0"/></svg>`)
	idx := NewIndex(doc, nil)
	ab := doc.Find("id", "RO_AB")

	ab.SetAttr("class", "judet cod3")
	assert.Empty(t, idx.Match(domain.AlertShape{ID: "D3"}), "stale until refreshed")

	idx.Refresh(ab)
	assert.Equal(t, []*svgdoc.Node{ab}, idx.Match(domain.AlertShape{ID: "D3"}))
	assert.Empty(t, idx.Match(domain.AlertShape{ID: "D0"}))

	bare := doc.Descendants()[1]
	bare.SetAttr("id", "AB")
	idx.Refresh(bare)
	assert.Equal(t, 1, idx.Len(), "elements outside the index stay out")
}
