package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pagelint/pagelint/config"
	"github.com/pagelint/pagelint/models"
)

const testPageHTML = `<html><head><title>Origin Page</title></head><body><p>` +
	`This body carries enough readable text that the render heuristic leaves it alone. ` +
	`It repeats a little to be safe. It repeats a little to be safe. It repeats a little to be safe. ` +
	`It repeats a little to be safe. It repeats a little to be safe. It repeats a little to be safe.` +
	`</p></body></html>`

func testFetchConfig(proxyTemplates []string) config.FetchConfig {
	return config.FetchConfig{
		DefaultTimeout: 10 * time.Second,
		MaxTimeout:     30 * time.Second,
		DirectTimeout:  5 * time.Second,
		ProxyTemplates: proxyTemplates,
		HostRPS:        1000,
		HostBurst:      1000,
		MemoryTTL:      time.Hour,
	}
}

func newTestFetcher(t *testing.T, proxyTemplates []string) *Fetcher {
	t.Helper()
	f := New(testFetchConfig(proxyTemplates), config.BrowserConfig{Enabled: false})
	t.Cleanup(f.Close)
	return f
}

func TestFetch_DirectSuccess(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(testPageHTML))
	}))
	defer origin.Close()

	f := newTestFetcher(t, nil)

	result, err := f.Fetch(context.Background(), ModeAuto, &Request{URL: origin.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if result.EngineName != "direct" {
		t.Errorf("EngineName = %q, want direct", result.EngineName)
	}
	if result.Title != "Origin Page" {
		t.Errorf("Title = %q, want Origin Page", result.Title)
	}
	if result.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", result.StatusCode)
	}
	if !strings.Contains(result.HTML, "readable text") {
		t.Error("HTML body missing")
	}
}

func TestFetch_FallsBackToProxy(t *testing.T) {
	var originHits atomic.Int32
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		originHits.Add(1)
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer origin.Close()

	var proxyHits atomic.Int32
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxyHits.Add(1)
		if r.URL.Query().Get("url") == "" {
			http.Error(w, "missing url param", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(testPageHTML))
	}))
	defer proxy.Close()

	f := newTestFetcher(t, []string{proxy.URL + "/?url=%s"})

	result, err := f.Fetch(context.Background(), ModeAuto, &Request{URL: origin.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if !strings.HasPrefix(result.EngineName, "proxy:") {
		t.Errorf("EngineName = %q, want a proxy tier", result.EngineName)
	}
	if result.FinalURL != origin.URL {
		t.Errorf("FinalURL = %q, want the original target %q", result.FinalURL, origin.URL)
	}
	if originHits.Load() != 1 || proxyHits.Load() != 1 {
		t.Errorf("hits: origin=%d proxy=%d, want 1 each", originHits.Load(), proxyHits.Load())
	}

	// Second fetch of the same domain goes straight to the remembered proxy
	// tier without touching the origin again.
	if _, err := f.Fetch(context.Background(), ModeAuto, &Request{URL: origin.URL, Timeout: 5 * time.Second}); err != nil {
		t.Fatalf("second Fetch returned error: %v", err)
	}
	if originHits.Load() != 1 {
		t.Errorf("origin hit %d times after memory was set, want 1", originHits.Load())
	}
	if proxyHits.Load() != 2 {
		t.Errorf("proxy hit %d times, want 2", proxyHits.Load())
	}
}

func TestFetch_StaleMemoryDoesNotRetryFailedEngine(t *testing.T) {
	var originHits atomic.Int32
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		originHits.Add(1)
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer origin.Close()

	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(testPageHTML))
	}))
	defer proxy.Close()

	f := newTestFetcher(t, []string{proxy.URL + "/?url=%s"})

	// A stale preference for the direct engine: the origin now blocks, so the
	// remembered attempt fails once and the walk must not hit it again.
	f.memory.Set(extractDomain(origin.URL), "direct")

	result, err := f.Fetch(context.Background(), ModeAuto, &Request{URL: origin.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if !strings.HasPrefix(result.EngineName, "proxy:") {
		t.Errorf("EngineName = %q, want a proxy tier", result.EngineName)
	}
	if originHits.Load() != 1 {
		t.Errorf("origin hit %d times, want exactly 1 (no retry of the failed engine)", originHits.Load())
	}
	if got := f.memory.Get(extractDomain(origin.URL)); !strings.HasPrefix(got, "proxy:") {
		t.Errorf("memory after fallback = %q, want the proxy engine", got)
	}
}

func TestFetcher_CloseStopsBackgroundWork(t *testing.T) {
	f := New(testFetchConfig(nil), config.BrowserConfig{Enabled: false})

	f.Close()

	select {
	case <-f.done:
	default:
		t.Error("Close did not signal the limiter eviction goroutine")
	}

	// Close is idempotent.
	f.Close()
}

func TestFetch_AllTiersFail(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer origin.Close()

	f := newTestFetcher(t, []string{origin.URL + "/?url=%s"})

	_, err := f.Fetch(context.Background(), ModeAuto, &Request{URL: origin.URL, Timeout: 5 * time.Second})
	if err == nil {
		t.Fatal("expected an error when every tier fails")
	}

	var ae *models.AuditError
	if !errors.As(err, &ae) {
		t.Fatalf("error is not an AuditError: %v", err)
	}
	if ae.Code != models.ErrCodeFetch {
		t.Errorf("error code = %q, want %q", ae.Code, models.ErrCodeFetch)
	}
}

func TestFetch_DirectModeSkipsProxies(t *testing.T) {
	var proxyHits atomic.Int32
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxyHits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(testPageHTML))
	}))
	defer proxy.Close()

	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer origin.Close()

	f := newTestFetcher(t, []string{proxy.URL + "/?url=%s"})

	if _, err := f.Fetch(context.Background(), ModeDirect, &Request{URL: origin.URL, Timeout: 5 * time.Second}); err == nil {
		t.Fatal("direct mode should fail when the origin blocks")
	}
	if proxyHits.Load() != 0 {
		t.Errorf("direct mode touched the proxy %d times", proxyHits.Load())
	}
}

func TestFetch_BrowserModeDisabled(t *testing.T) {
	f := newTestFetcher(t, nil)

	_, err := f.Fetch(context.Background(), ModeBrowser, &Request{URL: "https://example.com/", Timeout: time.Second})
	var ae *models.AuditError
	if !errors.As(err, &ae) || ae.Code != models.ErrCodeInvalidInput {
		t.Errorf("browser mode with browser disabled: err = %v, want %s", err, models.ErrCodeInvalidInput)
	}
}

func TestFetch_UnknownMode(t *testing.T) {
	f := newTestFetcher(t, nil)

	_, err := f.Fetch(context.Background(), "teleport", &Request{URL: "https://example.com/", Timeout: time.Second})
	var ae *models.AuditError
	if !errors.As(err, &ae) || ae.Code != models.ErrCodeInvalidInput {
		t.Errorf("unknown mode: err = %v, want %s", err, models.ErrCodeInvalidInput)
	}
}

func TestFetcher_Stats(t *testing.T) {
	f := newTestFetcher(t, []string{"https://api.allorigins.win/raw?url=%s"})

	s := f.Stats()
	if s.Engines != 2 { // direct + one proxy, browser disabled
		t.Errorf("Engines = %d, want 2", s.Engines)
	}
	if s.InFlight != 0 {
		t.Errorf("InFlight = %d, want 0", s.InFlight)
	}
	if s.BrowserActive {
		t.Error("BrowserActive should be false with the browser disabled")
	}
}

func TestDomainMemory(t *testing.T) {
	dm := NewDomainMemory(50 * time.Millisecond)
	defer dm.Stop()

	if got := dm.Get("example.com"); got != "" {
		t.Errorf("empty memory returned %q", got)
	}

	dm.Set("example.com", "proxy:corsproxy.io")
	if got := dm.Get("example.com"); got != "proxy:corsproxy.io" {
		t.Errorf("Get = %q, want proxy:corsproxy.io", got)
	}

	dm.Delete("example.com")
	if got := dm.Get("example.com"); got != "" {
		t.Errorf("Get after Delete = %q, want empty", got)
	}

	dm.Set("example.com", "direct")
	time.Sleep(80 * time.Millisecond)
	if got := dm.Get("example.com"); got != "" {
		t.Errorf("Get after TTL = %q, want empty", got)
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://example.com/page", "example.com"},
		{"http://sub.example.com:8080/", "sub.example.com"},
		{"https://127.0.0.1:9999/x", "127.0.0.1"},
	}
	for _, tt := range tests {
		if got := extractDomain(tt.in); got != tt.want {
			t.Errorf("extractDomain(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
