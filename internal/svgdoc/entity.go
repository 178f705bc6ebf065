package svgdoc

import (
	"bytes"
	"encoding/xml"
	"regexp"
	"strings"
)

// entityDecl matches an internal general entity declaration. Parameter and
// external entities are not matched.
var entityDecl = regexp.MustCompile(`<!ENTITY\s+([A-Za-z_][-\w.]*)\s+(?:"([^"]*)"|'([^']*)')\s*>`)

// declaredEntities returns the general entities declared in the doctype's
// internal subset, or nil when the document has none. Scanning stops at the
// document element.
func declaredEntities(data []byte) map[string]string {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.RawToken()
		if err != nil {
			return nil
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return nil
		case xml.Directive:
			if !strings.HasPrefix(string(t), "DOCTYPE") {
				continue
			}
			var entities map[string]string
			for _, m := range entityDecl.FindAllSubmatch(t, -1) {
				if entities == nil {
					entities = make(map[string]string)
				}
				name := string(m[1])
				if _, seen := entities[name]; seen {
					continue
				}
				entities[name] = string(m[2]) + string(m[3])
			}
			return entities
		}
	}
}
