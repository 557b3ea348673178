package audit

import (
	"fmt"

	"github.com/pagelint/pagelint/models"
	"github.com/pagelint/pagelint/page"
)

// Performance-hint thresholds. These are static-HTML heuristics, not
// measured timings.
const (
	maxScripts        = 15
	maxStylesheets    = 8
	maxInlineCSSBytes = 50 * 1024
	maxHTMLBytes      = 3 << 19 // 1.5 MB
	maxDOMNodes       = 2500
	maxIframes        = 3
	lazyLoadImageMin  = 10
)

// performanceRules is the fixed performance-hint rule set, evaluated in order.
var performanceRules = []rule{
	{
		id: "scripts-blocking", severity: models.SeverityWarning, penalty: 10,
		check: func(d *page.Document) (bool, string) {
			blocking := 0
			for _, s := range d.HeadScripts {
				if !s.Async && !s.Defer {
					blocking++
				}
			}
			return blocking > 0,
				fmt.Sprintf("%d scripts in <head> block rendering; add async or defer", blocking)
		},
	},
	{
		id: "scripts-many", severity: models.SeverityWarning, penalty: 10,
		check: func(d *page.Document) (bool, string) {
			return d.ScriptCount > maxScripts,
				fmt.Sprintf("page loads %d scripts (threshold %d)", d.ScriptCount, maxScripts)
		},
	},
	{
		id: "stylesheets-many", severity: models.SeverityNotice, penalty: 8,
		check: func(d *page.Document) (bool, string) {
			return d.StylesheetCount > maxStylesheets,
				fmt.Sprintf("page links %d stylesheets (threshold %d); consider bundling", d.StylesheetCount, maxStylesheets)
		},
	},
	{
		id: "inline-css-heavy", severity: models.SeverityNotice, penalty: 6,
		check: func(d *page.Document) (bool, string) {
			return d.InlineStyleBytes > maxInlineCSSBytes,
				fmt.Sprintf("page embeds %d KB of inline CSS; move it to cacheable stylesheets", d.InlineStyleBytes/1024)
		},
	},
	{
		id: "img-dimensions-missing", severity: models.SeverityWarning, penalty: 8,
		check: func(d *page.Document) (bool, string) {
			missing := 0
			for _, img := range d.Images {
				if !img.HasWidth || !img.HasHeight {
					missing++
				}
			}
			return missing > 0,
				fmt.Sprintf("%d of %d images have no width/height attributes (causes layout shift)", missing, len(d.Images))
		},
	},
	{
		id: "img-lazy-none", severity: models.SeverityNotice, penalty: 6,
		check: func(d *page.Document) (bool, string) {
			if len(d.Images) <= lazyLoadImageMin {
				return false, ""
			}
			for _, img := range d.Images {
				if img.Loading == "lazy" {
					return false, ""
				}
			}
			return true, fmt.Sprintf("none of the %d images use loading=\"lazy\"", len(d.Images))
		},
	},
	{
		id: "html-oversized", severity: models.SeverityWarning, penalty: 10,
		check: func(d *page.Document) (bool, string) {
			return d.HTMLBytes > maxHTMLBytes,
				fmt.Sprintf("HTML document is %d KB (threshold %d KB)", d.HTMLBytes/1024, maxHTMLBytes/1024)
		},
	},
	{
		id: "dom-excessive", severity: models.SeverityWarning, penalty: 8,
		check: func(d *page.Document) (bool, string) {
			return d.DOMNodes > maxDOMNodes,
				fmt.Sprintf("page has %d DOM elements (threshold %d)", d.DOMNodes, maxDOMNodes)
		},
	},
	{
		id: "iframes-many", severity: models.SeverityNotice, penalty: 6,
		check: func(d *page.Document) (bool, string) {
			return d.IframeCount > maxIframes,
				fmt.Sprintf("page embeds %d iframes (threshold %d)", d.IframeCount, maxIframes)
		},
	},
}
