package models

// AuditRequest is the payload for POST /api/v1/audit.
type AuditRequest struct {
	// URL is the page to audit. Required.
	URL string `json:"url" binding:"required,url"`

	// Timeout is the maximum duration in seconds for the entire
	// audit operation (fetch + parse + scoring).
	// Default: 30. Max: 120.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=120"`

	// FetchMode controls the fetching strategy.
	// "auto" (default): direct HTTP first, then public read-through
	// proxies, escalating to a headless browser for JS-rendered pages.
	// "direct": direct HTTP only.
	// "proxy": skip direct, walk the proxy list only.
	// "browser": force headless Chrome.
	FetchMode string `json:"fetch_mode,omitempty" binding:"omitempty,oneof=auto direct proxy browser"`

	// OutputFormat controls the rendered report attached to the response.
	// "json" (default): no rendered report, structured fields only.
	// "html": result cards as an HTML fragment in Report.
	// "markdown": result cards converted to Markdown in Report.
	OutputFormat string `json:"output_format,omitempty" binding:"omitempty,oneof=json html markdown"`

	// MaxAge enables the response cache. When > 0, a cached audit for the
	// same URL and fetch mode younger than MaxAge milliseconds is returned.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`
}

// Defaults applies default values to unset fields.
func (r *AuditRequest) Defaults() {
	if r.Timeout == 0 {
		r.Timeout = 30
	}
	if r.FetchMode == "" {
		r.FetchMode = "auto"
	}
	if r.OutputFormat == "" {
		r.OutputFormat = "json"
	}
}
