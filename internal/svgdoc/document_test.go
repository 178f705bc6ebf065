package svgdoc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSVG = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 100 100">
  <!-- judete -->
  <g id="judete">
    <path id="AB" data-judet="RO_AB" class="judet cod2" d="M0 0L1 1"/>
    <polygon class="munte" data-munte="CARPATI" points="0,0 1,1"/>
    <text x="1" y="2">Alba &amp; Cluj</text>
    <use xlink:href="#AB"/>
  </g>
</svg>`

func parseTest(t *testing.T) *Document {
	t.Helper()
	doc, err := Parse(strings.NewReader(testSVG))
	require.NoError(t, err)
	return doc
}

func TestParse(t *testing.T) {
	doc := parseTest(t)

	assert.Equal(t, "svg", doc.Root().Name())
	viewBox, ok := doc.Root().Attr("viewBox")
	assert.True(t, ok)
	assert.Equal(t, "0 0 100 100", viewBox)

	xlink, ok := doc.Root().Attr("xmlns:xlink")
	assert.True(t, ok)
	assert.Equal(t, "http://www.w3.org/1999/xlink", xlink)

	ab := doc.Find("id", "AB")
	require.NotNil(t, ab)
	assert.Equal(t, "path", ab.Name())
	assert.Equal(t, []string{"judet", "cod2"}, ab.Classes())

	use := doc.Find("xlink:href", "#AB")
	require.NotNil(t, use)
	assert.Equal(t, "use", use.LocalName())
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"empty":       ``,
		"not xml":     `<html><body>`,
		"mismatched":  `<svg><g></svg>`,
		"two roots":   `<svg/><svg/>`,
		"text only":   `hello`,
		"bad entity":  `<svg>&nbsp;</svg>`,
		"unclosed":    `<svg><g>`,
		"stray close": `</svg>`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}

// illustratorSVG mirrors the header Adobe Illustrator writes on SVG export,
// binding namespaces through internal-subset entities.
const illustratorSVG = `<?xml version="1.0" encoding="utf-8"?>
<!-- Generator: Adobe Illustrator 24.0.0, SVG Export Plug-In . SVG Version: 6.00 Build 0)  -->
<!DOCTYPE svg PUBLIC "-//W3C//DTD SVG 1.1//EN" "http://www.w3.org/Graphics/SVG/1.1/DTD/svg11.dtd" [
	<!ENTITY ns_extend "http://ns.adobe.com/Extensibility/1.0/">
	<!ENTITY ns_svg "http://www.w3.org/2000/svg">
	<!ENTITY ns_xlink 'http://www.w3.org/1999/xlink'>
	<!ENTITY % local SYSTEM "local.ent">
]>
<svg version="1.1" xmlns:x="&ns_extend;" xmlns="&ns_svg;" xmlns:xlink="&ns_xlink;" viewBox="0 0 10 10">
<path id="RO-TM" class="judet cod0" data-judet="TM" d="M0 0h5v5H0z"/>
</svg>`

func TestParse_DoctypeEntities(t *testing.T) {
	doc, err := Parse(strings.NewReader(illustratorSVG))
	require.NoError(t, err)

	ns, ok := doc.Root().Attr("xmlns")
	require.True(t, ok)
	assert.Equal(t, "http://www.w3.org/2000/svg", ns)
	ext, _ := doc.Root().Attr("xmlns:x")
	assert.Equal(t, "http://ns.adobe.com/Extensibility/1.0/", ext)
	xlink, _ := doc.Root().Attr("xmlns:xlink")
	assert.Equal(t, "http://www.w3.org/1999/xlink", xlink)
	assert.NotNil(t, doc.Find("data-judet", "TM"))

	out := doc.String()
	assert.True(t, strings.HasPrefix(out, `<svg version="1.1" xmlns:x="http://ns.adobe.com/Extensibility/1.0/" xmlns="http://www.w3.org/2000/svg"`))
	assert.NotContains(t, out, "DOCTYPE")
	assert.NotContains(t, out, "&ns_")
}

func TestDeclaredEntities(t *testing.T) {
	assert.Equal(t, map[string]string{
		"ns_extend": "http://ns.adobe.com/Extensibility/1.0/",
		"ns_svg":    "http://www.w3.org/2000/svg",
		"ns_xlink":  "http://www.w3.org/1999/xlink",
	}, declaredEntities([]byte(illustratorSVG)))

	assert.Nil(t, declaredEntities([]byte(testSVG)), "no doctype")
	assert.Equal(t, map[string]string{"a": "first"},
		declaredEntities([]byte(`<!DOCTYPE svg [<!ENTITY a "first"><!ENTITY a "second">]><svg/>`)),
		"first declaration wins")
}

func TestAttr_PrefixIsExact(t *testing.T) {
	doc, err := Parse(strings.NewReader(`<svg xmlns:inkscape="urn:x"><path inkscape:label="TM"/></svg>`))
	require.NoError(t, err)

	p := doc.Descendants()[0]
	_, ok := p.Attr("label")
	assert.False(t, ok)
	v, ok := p.Attr("inkscape:label")
	assert.True(t, ok)
	assert.Equal(t, "TM", v)

	p.SetAttr("label", "x")
	assert.Equal(t, []Attr{{Name: "inkscape:label", Value: "TM"}, {Name: "label", Value: "x"}}, p.Attrs())
}

func TestDescendants_ExcludesRoot(t *testing.T) {
	doc := parseTest(t)

	var names []string
	for _, n := range doc.Descendants() {
		names = append(names, n.Name())
	}
	assert.Equal(t, []string{"g", "path", "polygon", "text", "use"}, names)
}

func TestClone_IsIndependent(t *testing.T) {
	doc := parseTest(t)
	clone := doc.Clone()

	clone.Find("id", "AB").SetAttr("class", "judet cod3")
	clone.Find("data-munte", "CARPATI").RemoveAttr("data-munte")

	assert.Equal(t, []string{"judet", "cod2"}, doc.Find("id", "AB").Classes())
	assert.NotNil(t, doc.Find("data-munte", "CARPATI"))
	assert.Nil(t, clone.Find("data-munte", "CARPATI"))
}

func TestWriteTo_RoundTrip(t *testing.T) {
	doc := parseTest(t)
	out := doc.String()

	assert.True(t, strings.HasPrefix(out, `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 100 100">`))
	assert.Contains(t, out, `<!-- judete -->`)
	assert.Contains(t, out, `<path id="AB" data-judet="RO_AB" class="judet cod2" d="M0 0L1 1"/>`)
	assert.Contains(t, out, `Alba &amp; Cluj`)
	assert.Contains(t, out, `<use xlink:href="#AB"/>`)

	reparsed, err := Parse(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, out, reparsed.String())
}

func TestSetAttr_EscapesOnWrite(t *testing.T) {
	doc, err := Parse(strings.NewReader(`<svg><g/></svg>`))
	require.NoError(t, err)

	g := doc.Descendants()[0]
	g.SetAttr("data-label", `a "quoted" <b> & c`)
	assert.Equal(t, `<svg><g data-label="a &quot;quoted&quot; &lt;b&gt; &amp; c"/></svg>`, doc.String())
}

func TestReplaceClasses(t *testing.T) {
	isCod := func(s string) bool { return strings.HasPrefix(s, "cod") }

	t.Run("swaps severity and keeps order", func(t *testing.T) {
		n := NewElement("path", Attr{Name: "class", Value: "judet  cod2 highlight"})
		n.ReplaceClasses(isCod, "cod0")
		v, _ := n.Attr("class")
		assert.Equal(t, "judet highlight cod0", v)
	})

	t.Run("adds class attribute when missing", func(t *testing.T) {
		n := NewElement("path")
		n.ReplaceClasses(isCod, "cod3")
		assert.True(t, n.HasClass("cod3"))
	})

	t.Run("no duplicate tokens", func(t *testing.T) {
		n := NewElement("path", Attr{Name: "class", Value: "judet"})
		n.ReplaceClasses(isCod, "judet")
		assert.Equal(t, []string{"judet"}, n.Classes())
	})
}
