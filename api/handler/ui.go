package handler

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pagelint/pagelint/audit"
	"github.com/pagelint/pagelint/models"
	"github.com/pagelint/pagelint/report"
)

// uiPage is the server-rendered browser UI: a URL form plus, after
// submission, the result cards fragment produced by the report package.
var uiPage = template.Must(template.New("ui").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>pagelint · SEO audit</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 56rem; margin: 2rem auto; padding: 0 1rem; color: #1a1a1a; }
form { display: flex; gap: .5rem; margin-bottom: 2rem; }
input[type=url] { flex: 1; padding: .5rem; font-size: 1rem; }
button { padding: .5rem 1.25rem; font-size: 1rem; cursor: pointer; }
.card { border: 1px solid #ddd; border-radius: .5rem; padding: 1rem; margin: 1rem 0; }
.card table { width: 100%; border-collapse: collapse; }
.card td, .card th { text-align: left; padding: .25rem .5rem; border-top: 1px solid #eee; }
.issue-error td:first-child { color: #b3261e; font-weight: 600; }
.issue-warning td:first-child { color: #9a6700; font-weight: 600; }
.issue-notice td:first-child { color: #555; }
.page-facts { color: #555; font-size: .875rem; }
.error-banner { background: #fdecea; border: 1px solid #b3261e; border-radius: .5rem; padding: 1rem; }
</style>
</head>
<body>
<h1>pagelint</h1>
<form action="/audit" method="get">
<input type="url" name="url" placeholder="https://example.com" value="{{.URL}}" required>
<button type="submit">Audit</button>
</form>
{{if .ErrorMessage}}<div class="error-banner">{{.ErrorMessage}}</div>{{end}}
{{.Cards}}
</body>
</html>
`))

// uiData feeds the uiPage template.
type uiData struct {
	URL          string
	ErrorMessage string
	Cards        template.HTML
}

// Home returns a handler for GET /: the empty audit form.
func Home() gin.HandlerFunc {
	return func(c *gin.Context) {
		renderUI(c, uiData{})
	}
}

// AuditUI returns a handler for GET /audit?url=…: it runs an audit with
// default settings and renders the result cards.
func AuditUI(pf PageFetcher, au *audit.Auditor, rn *report.Renderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		target := c.Query("url")
		if target == "" {
			c.Redirect(http.StatusFound, "/")
			return
		}

		req := &models.AuditRequest{
			URL:          target,
			FetchMode:    c.DefaultQuery("fetch_mode", "auto"),
			OutputFormat: "html",
		}
		req.Defaults()

		resp, _ := executeAudit(c.Request.Context(), pf, au, rn, req)

		data := uiData{URL: target}
		if !resp.Success {
			data.ErrorMessage = resp.Error.Code + ": " + resp.Error.Message
		} else {
			// The fragment comes from our own template over structured
			// data, never from page HTML; safe to inline.
			data.Cards = template.HTML(resp.Report)
		}
		renderUI(c, data)
	}
}

func renderUI(c *gin.Context, data uiData) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := uiPage.Execute(c.Writer, data); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}
