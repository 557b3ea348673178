package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pagelint/pagelint/audit"
	"github.com/pagelint/pagelint/cache"
	"github.com/pagelint/pagelint/contentsim"
	"github.com/pagelint/pagelint/fetcher"
	"github.com/pagelint/pagelint/models"
	"github.com/pagelint/pagelint/page"
	"github.com/pagelint/pagelint/report"
)

// PageFetcher is the fetch capability the handlers need. *fetcher.Fetcher
// satisfies it; tests substitute a stub.
type PageFetcher interface {
	Fetch(ctx context.Context, mode string, req *fetcher.Request) (*fetcher.Result, error)
	Stats() models.FetcherStats
}

// Audit returns a handler for POST /api/v1/audit.
//
// Orchestration flow:
//  1. Parse & validate request, apply defaults.
//  2. Cache lookup (when max_age > 0).
//  3. Fetch → raw HTML                        (records fetch_ms)
//  4. Parse + readability + rule sets        (records audit_ms)
//  5. Render report (html/markdown formats), cache, respond.
func Audit(pf PageFetcher, au *audit.Auditor, rn *report.Renderer, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		var req models.AuditRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.AuditResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		if cc != nil && req.MaxAge > 0 {
			cacheKey := cache.Key(req.URL, req.FetchMode)
			if cached, hit := cc.Get(cacheKey, req.MaxAge); hit {
				cached.CacheStatus = "hit"
				cached.Timing = models.TimingInfo{
					TotalMs: time.Since(totalStart).Milliseconds(),
				}
				c.JSON(http.StatusOK, cached)
				return
			}
		}

		resp, _ := executeAudit(c.Request.Context(), pf, au, rn, &req)

		if resp.Success && cc != nil && req.MaxAge > 0 {
			cc.Set(cache.Key(req.URL, req.FetchMode), resp)
			resp.CacheStatus = "miss"
		}

		c.JSON(statusFor(resp), resp)
	}
}

// executeAudit runs the full audit pipeline for one URL. Failures are
// returned as a response with Success=false and Error set, so batch jobs can
// store them uniformly. The second return value is the content fingerprint
// used for duplicate detection across a batch (0 on failure).
func executeAudit(ctx context.Context, pf PageFetcher, au *audit.Auditor, rn *report.Renderer, req *models.AuditRequest) (*models.AuditResponse, uint64) {
	totalStart := time.Now()
	timeout := time.Duration(req.Timeout) * time.Second

	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fetchStart := time.Now()
	result, err := pf.Fetch(fetchCtx, req.FetchMode, &fetcher.Request{
		URL:     req.URL,
		Timeout: timeout,
	})
	fetchMs := time.Since(fetchStart).Milliseconds()

	if err != nil {
		return errorResponse(err, models.TimingInfo{
			TotalMs: time.Since(totalStart).Milliseconds(),
			FetchMs: fetchMs,
		}), 0
	}

	auditStart := time.Now()
	doc, err := page.Parse(result.HTML, result.FinalURL)
	if err != nil {
		return errorResponse(models.NewAuditError(models.ErrCodeParse, "failed to parse page HTML", err), models.TimingInfo{
			TotalMs: time.Since(totalStart).Milliseconds(),
			FetchMs: fetchMs,
		}), 0
	}
	doc.Analyze(result.HTML)

	// Title fallback: pages that deliver the title only via JS still have a
	// usable document.title when the browser tier produced the result.
	if doc.Title == "" {
		doc.Title = result.Title
	}

	overall, grade, categories := au.Run(doc)
	auditMs := time.Since(auditStart).Milliseconds()

	resp := &models.AuditResponse{
		Success:    true,
		StatusCode: result.StatusCode,
		FinalURL:   result.FinalURL,
		Score:      overall,
		Grade:      grade,
		Categories: categories,
		Page:       summarize(doc),
		EngineUsed: result.EngineName,
		Timing: models.TimingInfo{
			TotalMs: time.Since(totalStart).Milliseconds(),
			FetchMs: fetchMs,
			AuditMs: auditMs,
		},
	}

	switch req.OutputFormat {
	case "html":
		resp.Report, err = rn.HTML(resp)
	case "markdown":
		resp.Report, err = rn.Markdown(resp)
	}
	if err != nil {
		return errorResponse(models.NewAuditError(models.ErrCodeInternal, "failed to render report", err), resp.Timing), 0
	}

	return resp, contentFingerprint(doc)
}

// contentFingerprint hashes the main content when readability found one,
// otherwise the whole visible text.
func contentFingerprint(d *page.Document) uint64 {
	if d.MainContentFound {
		return contentsim.Fingerprint(d.MainText)
	}
	return contentsim.Fingerprint(d.VisibleText)
}

// summarize condenses the parsed document into the response's page facts.
func summarize(d *page.Document) models.PageSummary {
	return models.PageSummary{
		Title:         d.Title,
		Description:   d.MetaDescription,
		Canonical:     d.Canonical,
		Language:      d.Lang,
		WordCount:     d.WordCount,
		HeadingCount:  len(d.Headings),
		ImageCount:    len(d.Images),
		InternalLinks: len(d.InternalLinks),
		ExternalLinks: len(d.ExternalLinks),
		HTMLBytes:     d.HTMLBytes,
		DOMNodes:      d.DOMNodes,
	}
}

// errorResponse wraps an internal error into a failed AuditResponse.
func errorResponse(err error, timing models.TimingInfo) *models.AuditResponse {
	var auditErr *models.AuditError
	if !errors.As(err, &auditErr) {
		auditErr = models.NewAuditError(models.ErrCodeInternal, err.Error(), err)
	}
	return &models.AuditResponse{
		Success: false,
		Error:   auditErr.ToDetail(),
		Timing:  timing,
	}
}

// statusFor translates a response's error code to an HTTP status code.
func statusFor(resp *models.AuditResponse) int {
	if resp.Success {
		return http.StatusOK
	}
	switch resp.Error.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeFetch:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
