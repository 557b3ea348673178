package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/pagelint/pagelint/config"
	"github.com/pagelint/pagelint/models"
)

// BrowserEngine is the last-tier engine: headless Chrome via rod, for pages
// whose static HTML is just a JS shell. The browser is launched lazily on
// the first fetch so audits of static sites never pay the Chrome startup
// cost.
type BrowserEngine struct {
	cfg config.BrowserConfig

	mu       sync.Mutex
	browser  *rod.Browser
	launched bool
}

// NewBrowserEngine creates a BrowserEngine. No browser process is started
// until the first Fetch.
func NewBrowserEngine(cfg config.BrowserConfig) *BrowserEngine {
	return &BrowserEngine{cfg: cfg}
}

func (e *BrowserEngine) Name() string { return "browser" }

// Active reports whether the browser process has been launched.
func (e *BrowserEngine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.launched
}

// ensureBrowser launches and connects the browser on first use.
func (e *BrowserEngine) ensureBrowser() (*rod.Browser, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.launched {
		return e.browser, nil
	}

	l := launcher.New().
		Headless(e.cfg.Headless).
		NoSandbox(e.cfg.NoSandbox)

	if e.cfg.Bin != "" {
		l = l.Bin(e.cfg.Bin)
	}

	// Flags that keep headless Chrome quiet and deterministic in containers.
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewAuditError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewAuditError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	slog.Info("browser launched", "controlURL", controlURL)
	e.browser = browser
	e.launched = true
	return browser, nil
}

func (e *BrowserEngine) Fetch(ctx context.Context, req *Request) (*Result, error) {
	browser, err := e.ensureBrowser()
	if err != nil {
		return nil, err
	}

	// Stealth page: masks navigator.webdriver and friends before navigation.
	page, err := stealth.Page(browser)
	if err != nil {
		return nil, models.NewAuditError(
			models.ErrCodeBrowserCrash,
			"failed to open page",
			err,
		)
	}
	defer page.Close()

	navTimeout := e.cfg.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 15 * time.Second
	}
	p := page.Context(ctx).Timeout(navTimeout)

	if err := p.Navigate(req.URL); err != nil {
		return nil, fmt.Errorf("browser: navigate: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return nil, fmt.Errorf("browser: wait load: %w", err)
	}
	// Give SPAs a short, bounded window to settle after load.
	_ = p.WaitDOMStable(300*time.Millisecond, 0)

	htmlStr, err := p.HTML()
	if err != nil {
		return nil, fmt.Errorf("browser: extract html: %w", err)
	}

	title := evalString(p, `() => document.title`)

	finalURL := req.URL
	if info, infoErr := p.Info(); infoErr == nil && info.URL != "" {
		finalURL = info.URL
	}

	return &Result{
		HTML:  htmlStr,
		Title: title,
		// CDP does not surface the main-document status once the page has
		// rendered; a completed navigation is reported as 200.
		StatusCode: http.StatusOK,
		FinalURL:   finalURL,
		EngineName: e.Name(),
	}, nil
}

// Close kills the browser process if it was ever launched.
func (e *BrowserEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.launched {
		return
	}
	slog.Info("browser shutting down")
	if err := e.browser.Close(); err != nil {
		slog.Warn("browser close failed", "error", err)
	}
	e.launched = false
}

// evalString evaluates js in the page and returns the result as a string.
func evalString(p *rod.Page, js string) string {
	res, err := p.Eval(js)
	if err != nil {
		return ""
	}
	return jsonString(res.Value)
}

func jsonString(v gson.JSON) string {
	return v.Str()
}
