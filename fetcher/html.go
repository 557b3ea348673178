package fetcher

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// isHTMLContentType returns true if the content-type header looks like HTML.
// An empty content type is accepted: some read-through proxies strip the
// header even though the body is the origin's HTML.
func isHTMLContentType(ct string) bool {
	if ct == "" {
		return true
	}
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}

// extractTitle uses the Go HTML tokenizer to find the first <title> element.
func extractTitle(htmlStr string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(htmlStr))
	inTitle := false
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "title" {
				inTitle = true
			}
		case html.TextToken:
			if inTitle {
				return strings.TrimSpace(string(tokenizer.Text()))
			}
		case html.EndTagToken:
			if inTitle {
				return ""
			}
		}
	}
}

// visibleBodyText extracts the visible text from within <body>, stripping
// all tags and <script>/<style>/<noscript> content. Used by the render
// heuristic only; the audit layer does its own, richer extraction.
func visibleBodyText(htmlStr string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(htmlStr))
	var buf strings.Builder
	inBody := false
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return buf.String()
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			tag := string(tn)
			if tag == "body" {
				inBody = true
			}
			if tag == "script" || tag == "style" || tag == "noscript" {
				skipDepth++
			}
		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			tag := string(tn)
			if tag == "script" || tag == "style" || tag == "noscript" {
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if inBody && skipDepth == 0 {
				text := strings.TrimSpace(string(tokenizer.Text()))
				if text != "" {
					buf.WriteString(text)
					buf.WriteByte(' ')
				}
			}
		}
	}
}

var reNoscript = regexp.MustCompile(`<noscript[^>]*>[^<]*(enable|activate|turn on|requires?)\s+javascript`)

// emptyRootIDs are container ids that SPA frameworks mount into. An empty
// element with one of these ids means the static HTML is just a shell.
var emptyRootIDs = []string{
	`<div id="root"></div>`,
	`<div id="app"></div>`,
	`<div id="__next"></div>`,
}

// needsRender decides whether the statically fetched HTML likely requires
// JavaScript rendering before it can be audited meaningfully (SPA shell,
// noscript warning, script-heavy page with almost no body text).
func needsRender(htmlStr string) bool {
	bodyText := visibleBodyText(htmlStr)

	// Very little visible text in <body>, likely an SPA shell.
	if len(bodyText) < 200 {
		return true
	}

	lower := strings.ToLower(htmlStr)

	for _, root := range emptyRootIDs {
		if strings.Contains(lower, root) {
			return true
		}
	}

	if reNoscript.MatchString(lower) {
		return true
	}

	// Many <script> tags plus little body text means a JS-heavy page.
	scriptCount := strings.Count(lower, "<script")
	if scriptCount > 10 && len(bodyText) < 500 {
		return true
	}

	return false
}
