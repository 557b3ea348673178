package fetcher

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/pagelint/pagelint/config"
	"github.com/pagelint/pagelint/models"
)

// Fetch modes accepted by Fetch.
const (
	ModeAuto    = "auto"
	ModeDirect  = "direct"
	ModeProxy   = "proxy"
	ModeBrowser = "browser"
)

// Fetcher walks the fetch tiers sequentially until one returns usable HTML.
//
// Tier order in auto mode: direct → each configured read-through proxy, in
// list order → headless browser (only when the static HTML looks like a JS
// shell, or every static tier failed). There is no retry within a tier and
// no backoff between tiers; a tier either delivers or the next one is tried.
//
// Safe for concurrent use.
type Fetcher struct {
	cfg     config.FetchConfig
	direct  *DirectEngine
	proxies []*ProxyEngine
	browser *BrowserEngine // nil when the browser tier is disabled
	memory  *DomainMemory

	mu       sync.Mutex
	limiters map[string]*hostLimiter

	inFlight  atomic.Int32
	done      chan struct{}
	closeOnce sync.Once
}

// hostLimiter is a per-target-host token bucket with an eviction timestamp.
type hostLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a Fetcher with all tiers built from configuration.
func New(fetchCfg config.FetchConfig, browserCfg config.BrowserConfig) *Fetcher {
	f := &Fetcher{
		cfg:      fetchCfg,
		direct:   NewDirectEngine(),
		proxies:  NewProxyEngines(fetchCfg.ProxyTemplates),
		memory:   NewDomainMemory(fetchCfg.MemoryTTL),
		limiters: make(map[string]*hostLimiter),
		done:     make(chan struct{}),
	}
	if browserCfg.Enabled {
		f.browser = NewBrowserEngine(browserCfg)
	}
	go f.evictLimiters()
	return f
}

// Stats returns a snapshot of the fetch layer's state.
func (f *Fetcher) Stats() models.FetcherStats {
	s := models.FetcherStats{
		Engines:  1 + len(f.proxies),
		InFlight: int(f.inFlight.Load()),
	}
	if f.browser != nil {
		s.Engines++
		s.BrowserActive = f.browser.Active()
	}
	return s
}

// Close releases background resources (limiter eviction, domain memory
// sweeper, browser). Safe to call more than once.
func (f *Fetcher) Close() {
	f.closeOnce.Do(func() {
		close(f.done)
		f.memory.Stop()
		if f.browser != nil {
			f.browser.Close()
		}
	})
}

// Fetch retrieves the page for req using the given mode.
func (f *Fetcher) Fetch(ctx context.Context, mode string, req *Request) (*Result, error) {
	f.inFlight.Add(1)
	defer f.inFlight.Add(-1)

	domain := extractDomain(req.URL)

	// Per-host politeness: audits of the same site queue behind a token
	// bucket instead of hammering the origin.
	if err := f.waitHost(ctx, domain); err != nil {
		return nil, models.NewAuditError(models.ErrCodeTimeout, "timed out waiting for per-host rate limit", err)
	}

	tiers, err := f.tiersFor(mode)
	if err != nil {
		return nil, err
	}

	// Domain memory: try the engine that last worked for this domain first.
	// When it fails it is forgotten and skipped in the fallback walk below,
	// so an endpoint that just failed is not attempted twice.
	var lastErr error
	failedEngine := ""
	if remembered := f.memory.Get(domain); remembered != "" {
		for _, eng := range tiers {
			if eng.Name() != remembered {
				continue
			}
			slog.Debug("domain memory hit", "domain", domain, "engine", remembered)
			result, ferr := f.tryTier(ctx, eng, req)
			if ferr == nil {
				return f.finish(ctx, mode, domain, eng, result, req)
			}
			slog.Info("domain memory miss (engine failed), walking remaining tiers",
				"domain", domain, "engine", remembered)
			lastErr = ferr
			failedEngine = remembered
			f.memory.Delete(domain)
			break
		}
	}

	for _, eng := range tiers {
		if eng.Name() == failedEngine {
			continue
		}
		result, ferr := f.tryTier(ctx, eng, req)
		if ferr != nil {
			slog.Debug("tier failed", "engine", eng.Name(), "url", req.URL, "error", ferr)
			lastErr = ferr
			if ctx.Err() != nil {
				return nil, models.NewAuditError(models.ErrCodeTimeout, "fetch deadline exceeded", ctx.Err())
			}
			continue
		}
		return f.finish(ctx, mode, domain, eng, result, req)
	}

	return nil, models.NewAuditError(models.ErrCodeFetch, "all fetch tiers failed for "+req.URL, lastErr)
}

// finish records the winning engine and, in auto mode, escalates static
// results that look like unrendered JS shells to the browser tier.
func (f *Fetcher) finish(ctx context.Context, mode, domain string, eng Engine, result *Result, req *Request) (*Result, error) {
	if mode == ModeAuto && eng.Name() != "browser" && f.browser != nil && needsRender(result.HTML) {
		slog.Info("static HTML looks unrendered, escalating to browser", "url", req.URL, "engine", eng.Name())
		if rendered, err := f.browser.Fetch(ctx, req); err == nil {
			f.memory.Set(domain, rendered.EngineName)
			return rendered, nil
		} else {
			slog.Warn("browser escalation failed, keeping static result", "url", req.URL, "error", err)
		}
	}

	f.memory.Set(domain, result.EngineName)
	return result, nil
}

// tryTier runs one engine with its tier-appropriate deadline.
func (f *Fetcher) tryTier(ctx context.Context, eng Engine, req *Request) (*Result, error) {
	timeout := req.Timeout
	switch eng.(type) {
	case *DirectEngine:
		if f.cfg.DirectTimeout > 0 && f.cfg.DirectTimeout < timeout {
			timeout = f.cfg.DirectTimeout
		}
	case *ProxyEngine:
		if proxyTierTimeout < timeout {
			timeout = proxyTierTimeout
		}
	}

	tierCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		tierCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return eng.Fetch(tierCtx, req)
}

// tiersFor resolves the engine walk order for a fetch mode.
func (f *Fetcher) tiersFor(mode string) ([]Engine, error) {
	switch mode {
	case ModeDirect:
		return []Engine{f.direct}, nil
	case ModeProxy:
		tiers := make([]Engine, 0, len(f.proxies))
		for _, p := range f.proxies {
			tiers = append(tiers, p)
		}
		return tiers, nil
	case ModeBrowser:
		if f.browser == nil {
			return nil, models.NewAuditError(models.ErrCodeInvalidInput, "browser fetch mode is disabled on this server", nil)
		}
		return []Engine{f.browser}, nil
	case ModeAuto, "":
		tiers := make([]Engine, 0, 2+len(f.proxies))
		tiers = append(tiers, f.direct)
		for _, p := range f.proxies {
			tiers = append(tiers, p)
		}
		if f.browser != nil {
			tiers = append(tiers, f.browser)
		}
		return tiers, nil
	default:
		return nil, models.NewAuditError(models.ErrCodeInvalidInput, "unknown fetch mode: "+mode, nil)
	}
}

// waitHost blocks on the per-host token bucket.
func (f *Fetcher) waitHost(ctx context.Context, host string) error {
	f.mu.Lock()
	hl, ok := f.limiters[host]
	if !ok {
		hl = &hostLimiter{
			limiter: rate.NewLimiter(rate.Limit(f.cfg.HostRPS), f.cfg.HostBurst),
		}
		f.limiters[host] = hl
	}
	hl.lastSeen = time.Now()
	f.mu.Unlock()

	return hl.limiter.Wait(ctx)
}

// evictLimiters drops per-host limiters unused for an hour, every 5 minutes,
// until Close.
func (f *Fetcher) evictLimiters() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-1 * time.Hour)
			f.mu.Lock()
			for host, hl := range f.limiters {
				if hl.lastSeen.Before(cutoff) {
					delete(f.limiters, host)
				}
			}
			f.mu.Unlock()
		}
	}
}

// extractDomain parses the hostname from a URL string.
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
