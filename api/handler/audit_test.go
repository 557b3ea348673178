package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pagelint/pagelint/audit"
	"github.com/pagelint/pagelint/cache"
	"github.com/pagelint/pagelint/fetcher"
	"github.com/pagelint/pagelint/models"
	"github.com/pagelint/pagelint/report"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const stubHTML = `<!DOCTYPE html>
<html lang="en"><head>
<meta charset="utf-8"><meta name="viewport" content="width=device-width">
<meta name="description" content="A stub page description long enough to clear the minimum length check easily.">
<link rel="canonical" href="https://example.com/">
<title>Stub Page Title For Handler Tests</title>
</head><body>
<h1>Stub</h1><h2>Section</h2>
<p>` + "body copy repeated; body copy repeated; body copy repeated; body copy repeated;" + `</p>
<a href="/other">Other page</a>
</body></html>`

// stubFetcher satisfies PageFetcher without any network traffic.
type stubFetcher struct {
	result *fetcher.Result
	err    error
	calls  atomic.Int32
	stats  models.FetcherStats
}

func (s *stubFetcher) Fetch(ctx context.Context, mode string, req *fetcher.Request) (*fetcher.Result, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	r := *s.result
	if r.FinalURL == "" {
		r.FinalURL = req.URL
	}
	return &r, nil
}

func (s *stubFetcher) Stats() models.FetcherStats { return s.stats }

func okFetcher() *stubFetcher {
	return &stubFetcher{result: &fetcher.Result{
		HTML:       stubHTML,
		Title:      "Stub Page Title For Handler Tests",
		StatusCode: http.StatusOK,
		EngineName: "direct",
	}}
}

func auditRouter(pf PageFetcher, cc *cache.Cache) *gin.Engine {
	r := gin.New()
	r.POST("/audit", Audit(pf, audit.New(), report.New(), cc))
	return r
}

func postAudit(t *testing.T, r *gin.Engine, body string) (*httptest.ResponseRecorder, *models.AuditResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/audit", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	var resp models.AuditResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v\n%s", err, w.Body.String())
	}
	return w, &resp
}

func TestAudit_Success(t *testing.T) {
	r := auditRouter(okFetcher(), nil)

	w, resp := postAudit(t, r, `{"url":"https://example.com/"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\n%s", w.Code, w.Body.String())
	}
	if !resp.Success {
		t.Fatalf("Success = false: %+v", resp.Error)
	}
	if resp.Score <= 0 || resp.Score > 100 {
		t.Errorf("Score = %d, want within (0,100]", resp.Score)
	}
	if len(resp.Categories) != 3 {
		t.Errorf("got %d categories, want 3", len(resp.Categories))
	}
	if resp.EngineUsed != "direct" {
		t.Errorf("EngineUsed = %q, want direct", resp.EngineUsed)
	}
	if resp.Page.Title != "Stub Page Title For Handler Tests" {
		t.Errorf("Page.Title = %q", resp.Page.Title)
	}
	if resp.Report != "" {
		t.Error("json output format should not attach a rendered report")
	}
}

func TestAudit_HTMLReport(t *testing.T) {
	r := auditRouter(okFetcher(), nil)

	w, resp := postAudit(t, r, `{"url":"https://example.com/","output_format":"html"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d\n%s", w.Code, w.Body.String())
	}
	if !strings.Contains(resp.Report, `<section class="audit-result">`) {
		t.Errorf("Report does not look like the card fragment: %q", resp.Report)
	}
}

func TestAudit_InvalidRequests(t *testing.T) {
	r := auditRouter(okFetcher(), nil)

	tests := []struct {
		name string
		body string
	}{
		{"missing url", `{}`},
		{"bad url", `{"url":"not a url"}`},
		{"bad fetch mode", `{"url":"https://example.com/","fetch_mode":"teleport"}`},
		{"bad output format", `{"url":"https://example.com/","output_format":"xml"}`},
		{"timeout too large", `{"url":"https://example.com/","timeout":600}`},
		{"not json", `url=https://example.com/`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := postAudit(t, r, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			if resp.Success {
				t.Error("Success should be false")
			}
			if resp.Error == nil || resp.Error.Code != models.ErrCodeInvalidInput {
				t.Errorf("error = %+v, want %s", resp.Error, models.ErrCodeInvalidInput)
			}
		})
	}
}

func TestAudit_FetchFailureMapsTo502(t *testing.T) {
	pf := &stubFetcher{err: models.NewAuditError(models.ErrCodeFetch, "all fetch tiers failed", nil)}
	r := auditRouter(pf, nil)

	w, resp := postAudit(t, r, `{"url":"https://example.com/"}`)

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
	if resp.Error == nil || resp.Error.Code != models.ErrCodeFetch {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestAudit_TimeoutMapsTo504(t *testing.T) {
	pf := &stubFetcher{err: models.NewAuditError(models.ErrCodeTimeout, "fetch deadline exceeded", context.DeadlineExceeded)}
	r := auditRouter(pf, nil)

	w, resp := postAudit(t, r, `{"url":"https://example.com/"}`)

	if w.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", w.Code)
	}
	if resp.Error == nil || resp.Error.Code != models.ErrCodeTimeout {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestAudit_CacheRoundTrip(t *testing.T) {
	pf := okFetcher()
	r := auditRouter(pf, cache.New(10))

	_, first := postAudit(t, r, `{"url":"https://example.com/","max_age":60000}`)
	if first.CacheStatus != "miss" {
		t.Errorf("first CacheStatus = %q, want miss", first.CacheStatus)
	}

	_, second := postAudit(t, r, `{"url":"https://example.com/","max_age":60000}`)
	if second.CacheStatus != "hit" {
		t.Errorf("second CacheStatus = %q, want hit", second.CacheStatus)
	}
	if pf.calls.Load() != 1 {
		t.Errorf("fetcher called %d times, want 1", pf.calls.Load())
	}
	if second.Score != first.Score {
		t.Errorf("cached Score = %d, want %d", second.Score, first.Score)
	}
}

func TestAudit_NoCacheWithoutMaxAge(t *testing.T) {
	pf := okFetcher()
	r := auditRouter(pf, cache.New(10))

	postAudit(t, r, `{"url":"https://example.com/"}`)
	_, second := postAudit(t, r, `{"url":"https://example.com/"}`)

	if second.CacheStatus != "" {
		t.Errorf("CacheStatus = %q, want empty without max_age", second.CacheStatus)
	}
	if pf.calls.Load() != 2 {
		t.Errorf("fetcher called %d times, want 2", pf.calls.Load())
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{models.ErrCodeTimeout, http.StatusGatewayTimeout},
		{models.ErrCodeFetch, http.StatusBadGateway},
		{models.ErrCodeInvalidInput, http.StatusBadRequest},
		{models.ErrCodeRateLimited, http.StatusTooManyRequests},
		{models.ErrCodeUnauthorized, http.StatusUnauthorized},
		{models.ErrCodeParse, http.StatusInternalServerError},
		{models.ErrCodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		resp := &models.AuditResponse{Error: &models.ErrorDetail{Code: tt.code}}
		if got := statusFor(resp); got != tt.want {
			t.Errorf("statusFor(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}

	if got := statusFor(&models.AuditResponse{Success: true}); got != http.StatusOK {
		t.Errorf("statusFor(success) = %d, want 200", got)
	}
}

func TestHealth(t *testing.T) {
	pf := okFetcher()
	pf.stats = models.FetcherStats{Engines: 4, InFlight: 2}

	r := gin.New()
	r.GET("/health", Health(pf, time.Now().Add(-3*time.Second)))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp models.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", resp.Status)
	}
	if resp.Fetcher.Engines != 4 {
		t.Errorf("Fetcher.Engines = %d, want 4", resp.Fetcher.Engines)
	}

	pf.stats.InFlight = degradedInFlight + 1
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if resp.Status != "degraded" {
		t.Errorf("Status = %q, want degraded under load", resp.Status)
	}
}
