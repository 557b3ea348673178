package models

// BatchRequest is the payload for POST /api/v1/batch/audit.
type BatchRequest struct {
	// URLs are the pages to audit. Required, max 100.
	URLs []string `json:"urls" binding:"required,min=1,dive,url"`

	// FetchMode applies to every URL in the batch. Same values as
	// AuditRequest.FetchMode.
	FetchMode string `json:"fetch_mode,omitempty" binding:"omitempty,oneof=auto direct proxy browser"`

	// Timeout is the per-URL timeout in seconds. Default: 30. Max: 120.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=120"`
}

// BatchResponse acknowledges an accepted batch job.
type BatchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// BatchStatusResponse is the response for GET /api/v1/batch/:id.
type BatchStatusResponse struct {
	ID        string           `json:"id"`
	Status    string           `json:"status"` // "processing" or "completed"
	Completed int              `json:"completed"`
	Total     int              `json:"total"`
	Results   []*AuditResponse `json:"results"`
}

// BatchJob is the in-memory state of a batch audit.
type BatchJob struct {
	ID        string
	Status    string
	Total     int
	Completed int
	Results   []*AuditResponse
	CreatedAt int64
}
