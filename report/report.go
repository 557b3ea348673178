// Package report renders audit results as result cards: HTML for the
// browser UI, Markdown for terminals and chat clients. JSON is the API's
// native shape and needs no renderer.
package report

import (
	"bytes"
	"html/template"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/pagelint/pagelint/models"
)

// Renderer renders AuditResponses into result cards. The template and the
// Markdown converter are built once and reused across requests
// (goroutine-safe).
type Renderer struct {
	cards       *template.Template
	mdConverter *converter.Converter
}

// New creates a Renderer with the built-in card template and a Markdown
// converter configured with the commonmark and table plugins.
func New() *Renderer {
	return &Renderer{
		cards: template.Must(template.New("cards").Parse(cardsTemplate)),
		mdConverter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
	}
}

// HTML renders the result cards as an HTML fragment.
func (r *Renderer) HTML(resp *models.AuditResponse) (string, error) {
	var buf bytes.Buffer
	if err := r.cards.Execute(&buf, resp); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Markdown renders the result cards as Markdown by converting the HTML
// fragment. One template drives both formats, so they cannot drift.
func (r *Renderer) Markdown(resp *models.AuditResponse) (string, error) {
	htmlStr, err := r.HTML(resp)
	if err != nil {
		return "", err
	}
	return r.mdConverter.ConvertString(htmlStr)
}

// cardsTemplate is the result-card fragment. It is embedded in the full UI
// page by the api package and converted to Markdown as-is; it therefore
// carries no <html>/<head> wrapper.
const cardsTemplate = `<section class="audit-result">
<h2>Overall: {{.Score}}/100 (grade {{.Grade}})</h2>
<p class="page-url"><a href="{{.FinalURL}}">{{.FinalURL}}</a></p>
{{range .Categories}}
<article class="card card-{{.Category}}">
<h3>{{.Category}}: {{.Score}}/100 (grade {{.Grade}})</h3>
<p>{{.Passed}} checks passed, {{.Failed}} failed.</p>
{{if .Issues}}
<table>
<thead><tr><th>Severity</th><th>Finding</th><th>Penalty</th></tr></thead>
<tbody>
{{range .Issues}}<tr class="issue-{{.Severity}}"><td>{{.Severity}}</td><td>{{.Message}}</td><td>-{{.Penalty}}</td></tr>
{{end}}</tbody>
</table>
{{else}}
<p>No issues found.</p>
{{end}}
</article>
{{end}}
<footer class="page-facts">
<p>{{.Page.WordCount}} words, {{.Page.HeadingCount}} headings, {{.Page.ImageCount}} images,
{{.Page.InternalLinks}} internal / {{.Page.ExternalLinks}} external links,
{{.Page.DOMNodes}} DOM nodes, {{.Page.HTMLBytes}} bytes of HTML.</p>
</footer>
</section>
`
