package fetcher

import (
	"context"
	"time"
)

// Engine is the interface implemented by every fetch tier.
type Engine interface {
	// Name returns the engine identifier (e.g. "direct",
	// "proxy:api.allorigins.win", "browser").
	Name() string

	// Fetch retrieves the page HTML for the given request.
	Fetch(ctx context.Context, req *Request) (*Result, error)
}

// Request contains everything an engine needs to fetch a page.
type Request struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
}

// Result is the output of a successful engine fetch.
type Result struct {
	HTML       string
	Title      string
	StatusCode int
	FinalURL   string
	EngineName string
}
