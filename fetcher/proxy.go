package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ProxyEngine fetches the target through a public read-through proxy.
// One engine is built per URL template; the sequencer walks them in the
// configured order when the direct tier fails.
type ProxyEngine struct {
	template string
	name     string
	client   *http.Client
}

// NewProxyEngines builds one ProxyEngine per template, preserving order.
// Templates with a "%s" placeholder get the query-escaped target URL
// substituted; templates without one get it appended.
func NewProxyEngines(templates []string) []*ProxyEngine {
	// The proxy tiers share one plain client: the proxy terminates TLS to
	// the origin, so there is nothing to gain from a utls fingerprint here.
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	engines := make([]*ProxyEngine, 0, len(templates))
	for _, tpl := range templates {
		engines = append(engines, &ProxyEngine{
			template: tpl,
			name:     "proxy:" + templateHost(tpl),
			client:   client,
		})
	}
	return engines
}

func (e *ProxyEngine) Name() string { return e.name }

// BuildURL substitutes the query-escaped target into the proxy template.
func (e *ProxyEngine) BuildURL(target string) string {
	escaped := url.QueryEscape(target)
	if strings.Contains(e.template, "%s") {
		return fmt.Sprintf(e.template, escaped)
	}
	return e.template + escaped
}

func (e *ProxyEngine) Fetch(ctx context.Context, req *Request) (*Result, error) {
	proxyURL := e.BuildURL(req.URL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, proxyURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", e.name, err)
	}
	applyBrowserHeaders(httpReq, req.Headers)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: do request: %w", e.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", e.name, err)
	}

	ct := resp.Header.Get("Content-Type")
	if resp.StatusCode >= 400 || !isHTMLContentType(ct) {
		return nil, fmt.Errorf("%s: non-html or error status %d (content-type: %s)", e.name, resp.StatusCode, ct)
	}

	htmlStr := string(body)
	if strings.TrimSpace(htmlStr) == "" {
		return nil, fmt.Errorf("%s: empty body", e.name)
	}

	return &Result{
		HTML:  htmlStr,
		Title: extractTitle(htmlStr),
		// The proxy's own status tells us nothing about the origin beyond
		// "it answered"; report 200 and the original target as final URL.
		StatusCode: http.StatusOK,
		FinalURL:   req.URL,
		EngineName: e.name,
	}, nil
}

// templateHost extracts the proxy's hostname from a URL template for the
// engine name. Falls back to the raw template when parsing fails.
func templateHost(tpl string) string {
	trimmed := tpl
	if i := strings.IndexAny(tpl, "%?"); i > 0 {
		trimmed = tpl[:i]
	}
	u, err := url.Parse(trimmed)
	if err != nil || u.Hostname() == "" {
		return tpl
	}
	return u.Hostname()
}

// proxyTierTimeout bounds any single proxy attempt so a slow proxy cannot
// starve the tiers behind it.
const proxyTierTimeout = 10 * time.Second
