package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pagelint/pagelint/audit"
	"github.com/pagelint/pagelint/contentsim"
	"github.com/pagelint/pagelint/models"
	"github.com/pagelint/pagelint/report"
)

// maxBatchURLs bounds a single batch job.
const maxBatchURLs = 100

// batchConcurrency bounds how many URLs are audited at once per job.
const batchConcurrency = 5

// batchStore holds all in-flight and completed batch jobs.
var batchStore sync.Map

func init() {
	// Background goroutine to expire batch jobs older than 1 hour.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-1 * time.Hour).Unix()
			batchStore.Range(func(key, value any) bool {
				job := value.(*batchJob)
				if job.inner.CreatedAt < cutoff {
					batchStore.Delete(key)
				}
				return true
			})
		}
	}()
}

// batchJob wraps the API-facing job state with a mutex for progress updates.
type batchJob struct {
	mu    sync.Mutex
	inner models.BatchJob
}

// PostBatch returns a handler for POST /api/v1/batch/audit.
// It validates the request, creates a batch job, and audits the URLs in the
// background with bounded concurrency.
func PostBatch(pf PageFetcher, au *audit.Auditor, rn *report.Renderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		if len(req.URLs) > maxBatchURLs {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "maximum 100 URLs per batch",
				},
			})
			return
		}

		jobID := "batch-" + randomID()
		job := &batchJob{
			inner: models.BatchJob{
				ID:        jobID,
				Status:    "processing",
				Total:     len(req.URLs),
				Results:   make([]*models.AuditResponse, len(req.URLs)),
				CreatedAt: time.Now().Unix(),
			},
		}
		batchStore.Store(jobID, job)

		go runBatch(pf, au, rn, job, req)

		c.JSON(http.StatusOK, models.BatchResponse{
			ID:     jobID,
			Status: "processing",
			Total:  len(req.URLs),
		})
	}
}

// GetBatch returns a handler for GET /api/v1/batch/:id.
func GetBatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("id")
		val, ok := batchStore.Load(jobID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "batch job not found",
				},
			})
			return
		}

		job := val.(*batchJob)
		job.mu.Lock()
		// Copy the results while holding the lock: workers keep assigning
		// slots and the duplicate pass rewrites DuplicateOf, while gin
		// marshals the response only after we return.
		results := make([]*models.AuditResponse, len(job.inner.Results))
		for i, r := range job.inner.Results {
			if r != nil {
				cp := *r
				results[i] = &cp
			}
		}
		resp := models.BatchStatusResponse{
			ID:        job.inner.ID,
			Status:    job.inner.Status,
			Completed: job.inner.Completed,
			Total:     job.inner.Total,
			Results:   results,
		}
		job.mu.Unlock()

		c.JSON(http.StatusOK, resp)
	}
}

// runBatch audits every URL with bounded concurrency, then flags
// near-duplicate content across the batch.
func runBatch(pf PageFetcher, au *audit.Auditor, rn *report.Renderer, job *batchJob, req models.BatchRequest) {
	sem := make(chan struct{}, batchConcurrency)
	fingerprints := make([]uint64, len(req.URLs))

	var wg sync.WaitGroup
	for i, u := range req.URLs {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, target string) {
			defer wg.Done()
			defer func() { <-sem }()

			auditReq := &models.AuditRequest{
				URL:       target,
				FetchMode: req.FetchMode,
				Timeout:   req.Timeout,
			}
			auditReq.Defaults()

			// Batch jobs outlive the submitting request, so they run on a
			// fresh context rather than the request's.
			resp, fp := executeAudit(context.Background(), pf, au, rn, auditReq)
			fingerprints[idx] = fp

			job.mu.Lock()
			job.inner.Results[idx] = resp
			job.inner.Completed++
			job.mu.Unlock()
		}(i, u)
	}
	wg.Wait()

	// Duplicate-content pass: the first URL with a given content
	// fingerprint wins; later near-duplicates point back to it.
	job.mu.Lock()
	for i := range job.inner.Results {
		if fingerprints[i] == 0 || job.inner.Results[i] == nil || !job.inner.Results[i].Success {
			continue
		}
		for j := 0; j < i; j++ {
			if fingerprints[j] == 0 || job.inner.Results[j] == nil || !job.inner.Results[j].Success {
				continue
			}
			if contentsim.Similar(fingerprints[i], fingerprints[j], contentsim.DuplicateThreshold) {
				job.inner.Results[i].DuplicateOf = req.URLs[j]
				break
			}
		}
	}
	job.inner.Status = "completed"
	job.mu.Unlock()
}

// randomID generates a short hex job identifier.
func randomID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return hex.EncodeToString([]byte(time.Now().String()))[:16]
	}
	return hex.EncodeToString(b)
}
