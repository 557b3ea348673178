package page

import (
	"log/slog"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// minMainContentLength is the minimum extracted text length (in characters)
// for the readability output to count as a located main content block.
const minMainContentLength = 50

// Analyze runs the Mozilla Readability algorithm on the raw HTML and fills
// the Document's main-content fields. The content rule set uses these to
// judge thin content independently of boilerplate (nav, footer, sidebars).
//
// Failure is not an error for the caller: a page where readability cannot
// isolate a main block is itself an audit finding, so the method only
// records MainContentFound=false and logs.
func (d *Document) Analyze(rawHTML string) {
	parsedURL, err := nurl.Parse(d.URL)
	if err != nil {
		slog.Warn("readability: invalid page URL", "url", d.URL, "error", err)
		return
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Debug("readability: extraction failed", "url", d.URL, "error", err)
		return
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) < minMainContentLength {
		slog.Debug("readability: extracted content too short", "url", d.URL, "length", len(text))
		return
	}

	d.MainText = collapseWhitespace(text)
	d.MainWordCount = len(strings.Fields(d.MainText))
	d.MainContentFound = true
}
