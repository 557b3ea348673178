package audit

import (
	"fmt"
	"strings"

	"github.com/pagelint/pagelint/models"
	"github.com/pagelint/pagelint/page"
)

const (
	// thinContentWords is the minimum word count below which a page is
	// considered thin content.
	thinContentWords = 300

	// minTextRatio is the minimum visible-text-to-HTML byte ratio.
	minTextRatio = 0.10
)

// genericAnchors are anchor texts that tell crawlers nothing about the target.
var genericAnchors = map[string]struct{}{
	"click here": {},
	"here":       {},
	"read more":  {},
	"more":       {},
	"learn more": {},
	"this":       {},
	"link":       {},
}

// contentRules is the fixed content-structure rule set, evaluated in order.
var contentRules = []rule{
	{
		id: "h1-missing", severity: models.SeverityError, penalty: 20,
		check: func(d *page.Document) (bool, string) {
			return countHeadings(d, 1) == 0, "page has no <h1> heading"
		},
	},
	{
		id: "h1-multiple", severity: models.SeverityWarning, penalty: 10,
		check: func(d *page.Document) (bool, string) {
			n := countHeadings(d, 1)
			return n > 1, fmt.Sprintf("page has %d <h1> headings; use exactly one", n)
		},
	},
	{
		id: "heading-skip", severity: models.SeverityWarning, penalty: 8,
		check: func(d *page.Document) (bool, string) {
			from, to, skipped := firstHeadingSkip(d)
			return skipped, fmt.Sprintf("heading hierarchy skips from h%d to h%d", from, to)
		},
	},
	{
		id: "content-thin", severity: models.SeverityError, penalty: 15,
		check: func(d *page.Document) (bool, string) {
			words := contentWords(d)
			return words < thinContentWords,
				fmt.Sprintf("page has only %d words of content; aim for at least %d", words, thinContentWords)
		},
	},
	{
		id: "img-alt-missing", severity: models.SeverityWarning, penalty: 10,
		check: func(d *page.Document) (bool, string) {
			missing := 0
			for _, img := range d.Images {
				if !img.HasAlt || img.Alt == "" {
					missing++
				}
			}
			return missing > 0,
				fmt.Sprintf("%d of %d images have no alt text", missing, len(d.Images))
		},
	},
	{
		id: "links-internal-none", severity: models.SeverityWarning, penalty: 8,
		check: func(d *page.Document) (bool, string) {
			return len(d.InternalLinks) == 0, "page has no internal links"
		},
	},
	{
		id: "anchor-generic", severity: models.SeverityNotice, penalty: 5,
		check: func(d *page.Document) (bool, string) {
			n := 0
			for _, links := range [][]page.Link{d.InternalLinks, d.ExternalLinks} {
				for _, l := range links {
					if _, ok := genericAnchors[strings.ToLower(l.Text)]; ok {
						n++
					}
				}
			}
			return n > 0, fmt.Sprintf("%d links use generic anchor text such as \"click here\"", n)
		},
	},
	{
		id: "structured-data-missing", severity: models.SeverityNotice, penalty: 6,
		check: func(d *page.Document) (bool, string) {
			return !d.HasJSONLD && !d.HasMicrodata,
				"page has no structured data (JSON-LD or microdata)"
		},
	},
	{
		id: "text-ratio-low", severity: models.SeverityWarning, penalty: 10,
		check: func(d *page.Document) (bool, string) {
			if d.HTMLBytes == 0 {
				return false, ""
			}
			ratio := float64(len(d.VisibleText)) / float64(d.HTMLBytes)
			return ratio < minTextRatio,
				fmt.Sprintf("visible text is only %.0f%% of the HTML; the page is mostly markup", ratio*100)
		},
	},
	{
		id: "main-content-missing", severity: models.SeverityWarning, penalty: 12,
		check: func(d *page.Document) (bool, string) {
			return !d.MainContentFound,
				"no main content block could be isolated; content may be buried in boilerplate"
		},
	},
}

// contentWords prefers the readability main-content word count (boilerplate
// excluded) and falls back to the whole-page count when extraction failed.
func contentWords(d *page.Document) int {
	if d.MainContentFound {
		return d.MainWordCount
	}
	return d.WordCount
}

func countHeadings(d *page.Document, level int) int {
	n := 0
	for _, h := range d.Headings {
		if h.Level == level {
			n++
		}
	}
	return n
}

// firstHeadingSkip returns the first place the heading hierarchy jumps more
// than one level down (e.g. h1 → h3).
func firstHeadingSkip(d *page.Document) (from, to int, skipped bool) {
	prev := 0
	for _, h := range d.Headings {
		if prev > 0 && h.Level > prev+1 {
			return prev, h.Level, true
		}
		prev = h.Level
	}
	return 0, 0, false
}
