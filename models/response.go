package models

// AuditResponse is the response for POST /api/v1/audit.
type AuditResponse struct {
	// Success indicates whether the audit completed without errors.
	Success bool `json:"success"`

	// StatusCode is the HTTP status code from the audited page.
	StatusCode int `json:"status_code"`

	// FinalURL is the URL after following all redirects.
	FinalURL string `json:"final_url"`

	// Score is the overall score: the rounded mean of the category scores.
	Score int `json:"score"`

	// Grade is the letter grade for the overall score.
	Grade string `json:"grade"`

	// Categories holds the scored result card for each audit dimension,
	// in fixed order: metadata, content, performance.
	Categories []CategoryResult `json:"categories"`

	// Page summarises what the parser saw, for display next to the cards.
	Page PageSummary `json:"page"`

	// Report is the rendered result cards when output_format is
	// "html" or "markdown". Empty for "json".
	Report string `json:"report,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// CacheStatus indicates whether the response was served from cache.
	// Values: "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	// EngineUsed indicates which fetch engine produced the page
	// (e.g. "direct", "proxy:api.allorigins.win", "browser").
	EngineUsed string `json:"engine_used,omitempty"`

	// DuplicateOf is set on batch results whose main content is a
	// near-duplicate of an earlier URL in the same batch.
	DuplicateOf string `json:"duplicate_of,omitempty"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// CategoryResult is one scored result card.
type CategoryResult struct {
	// Category is the dimension identifier: "metadata", "content",
	// or "performance".
	Category string `json:"category"`

	// Score is 100 minus the sum of triggered rule penalties, clamped
	// to [0, 100].
	Score int `json:"score"`

	// Grade is the letter grade for Score.
	Grade string `json:"grade"`

	// Passed and Failed count the rules evaluated for this category.
	Passed int `json:"passed"`
	Failed int `json:"failed"`

	// Issues lists every triggered rule, in rule-set order.
	Issues []Issue `json:"issues"`
}

// Issue is a single triggered audit rule.
type Issue struct {
	// ID is the stable rule identifier (e.g. "title-missing").
	ID string `json:"id"`

	// Severity is "error", "warning", or "notice".
	Severity string `json:"severity"`

	// Message is the human-readable finding.
	Message string `json:"message"`

	// Penalty is the fixed score deduction for this rule.
	Penalty int `json:"penalty"`
}

// Issue severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityNotice  = "notice"
)

// PageSummary holds headline facts about the audited page.
type PageSummary struct {
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	Canonical     string `json:"canonical,omitempty"`
	Language      string `json:"language,omitempty"`
	WordCount     int    `json:"word_count"`
	HeadingCount  int    `json:"heading_count"`
	ImageCount    int    `json:"image_count"`
	InternalLinks int    `json:"internal_links"`
	ExternalLinks int    `json:"external_links"`
	HTMLBytes     int    `json:"html_bytes"`
	DOMNodes      int    `json:"dom_nodes"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// FetchMs is the time spent fetching the page HTML.
	FetchMs int64 `json:"fetch_ms"`

	// AuditMs is the time spent parsing and scoring.
	AuditMs int64 `json:"audit_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string       `json:"status"` // "healthy" or "degraded"
	Uptime  string       `json:"uptime"`
	Fetcher FetcherStats `json:"fetcher"`
	Version string       `json:"version"`
}

// FetcherStats reports the state of the fetch layer.
type FetcherStats struct {
	// Engines is the number of configured fetch tiers.
	Engines int `json:"engines"`

	// InFlight is the number of fetches currently running.
	InFlight int `json:"in_flight"`

	// BrowserActive reports whether the headless browser has been launched.
	BrowserActive bool `json:"browser_active"`
}
