package card

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/couchcryptid/anm-alert-map/internal/domain"
	"github.com/couchcryptid/anm-alert-map/internal/pagination"
)

// Frame is one complete rendering of the card. Frames are immutable once
// published; every render builds a new one.
type Frame struct {
	ID        string                       `json:"id"`
	Entity    string                       `json:"entity"`
	Index     int                          `json:"index"`
	Count     int                          `json:"count"`
	Label     string                       `json:"label,omitempty"`
	Navigable bool                         `json:"navigable"`
	Meta      *domain.Metadata             `json:"meta,omitempty"`
	Classes   map[domain.SeverityClass]int `json:"classes"`
	Unmatched []string                     `json:"unmatched,omitempty"`

	SVG        string    `json:"svg"`
	Panel      string    `json:"panel,omitempty"`
	HTML       string    `json:"html"`
	RenderedAt time.Time `json:"rendered_at"`
}

var cardTemplates = template.Must(template.New("card").Parse(`
{{- define "panel" -}}
{{- if .Show -}}
<div class="meta">
{{- with .Meta}}<div><strong>{{.TipMesaj}}</strong></div><div>{{.Mesaj}}</div><div>{{.DataAparitiei}} - {{.DataExpirarii}}</div>{{end -}}
{{- if .Count}}<div class="nav"><button type="button" data-nav="prev"{{if not .Navigable}} disabled{{end}}>&lt;</button><span>{{.Label}}</span><button type="button" data-nav="next"{{if not .Navigable}} disabled{{end}}>&gt;</button></div>{{end -}}
</div>
{{- end -}}
{{- end -}}
{{- define "card" -}}
<div class="holder">{{.SVG}}{{template "panel" .}}</div>
{{- end -}}
`))

type panelData struct {
	Show      bool
	Meta      *domain.Metadata
	Count     int
	Label     string
	Navigable bool
	SVG       template.HTML
}

func newPanelData(meta *domain.Metadata, pager *pagination.Pager) panelData {
	return panelData{
		Show:      meta != nil || pager.Count() > 0,
		Meta:      meta,
		Count:     pager.Count(),
		Label:     pager.Label(),
		Navigable: pager.Navigable(),
	}
}

// renderPanel returns the metadata and pagination panel, or "" when there is
// neither metadata nor a maps sequence.
func renderPanel(data panelData) (string, error) {
	var buf bytes.Buffer
	if err := cardTemplates.ExecuteTemplate(&buf, "panel", data); err != nil {
		return "", fmt.Errorf("render panel: %w", err)
	}
	return buf.String(), nil
}

// renderCard wraps the painted map and its panel. svg is markup we
// serialised ourselves and is inserted verbatim.
func renderCard(svg string, data panelData) (string, error) {
	data.SVG = template.HTML(svg)
	var buf bytes.Buffer
	if err := cardTemplates.ExecuteTemplate(&buf, "card", data); err != nil {
		return "", fmt.Errorf("render card: %w", err)
	}
	return buf.String(), nil
}
