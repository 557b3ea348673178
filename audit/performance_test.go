package audit

import (
	"fmt"
	"testing"

	"github.com/pagelint/pagelint/page"
)

func manyImages(n int, loading string) []page.Image {
	imgs := make([]page.Image, n)
	for i := range imgs {
		imgs[i] = page.Image{
			Src:       fmt.Sprintf("https://example.com/%d.png", i),
			Alt:       "alt",
			HasAlt:    true,
			HasWidth:  true,
			HasHeight: true,
			Loading:   loading,
		}
	}
	return imgs
}

func TestPerformanceRules(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		mutate func(d *page.Document)
		want   bool
	}{
		{"blocking head script fires", "scripts-blocking", func(d *page.Document) {
			d.HeadScripts = []page.Script{{Src: "/app.js"}}
		}, true},
		{"deferred head script passes", "scripts-blocking", func(d *page.Document) {
			d.HeadScripts = []page.Script{{Src: "/app.js", Defer: true}}
		}, false},
		{"async head script passes", "scripts-blocking", func(d *page.Document) {
			d.HeadScripts = []page.Script{{Src: "/app.js", Async: true}}
		}, false},
		{"too many scripts fires", "scripts-many", func(d *page.Document) { d.ScriptCount = maxScripts + 1 }, true},
		{"at threshold passes", "scripts-many", func(d *page.Document) { d.ScriptCount = maxScripts }, false},
		{"too many stylesheets fires", "stylesheets-many", func(d *page.Document) { d.StylesheetCount = maxStylesheets + 1 }, true},
		{"heavy inline css fires", "inline-css-heavy", func(d *page.Document) { d.InlineStyleBytes = maxInlineCSSBytes + 1 }, true},
		{"missing dimensions fires", "img-dimensions-missing", func(d *page.Document) {
			d.Images = append(d.Images, page.Image{Src: "x.png", HasAlt: true, Alt: "x"})
		}, true},
		{"all dimensions pass", "img-dimensions-missing", func(d *page.Document) {}, false},
		{"many eager images fire", "img-lazy-none", func(d *page.Document) {
			d.Images = manyImages(lazyLoadImageMin+1, "")
		}, true},
		{"one lazy image passes", "img-lazy-none", func(d *page.Document) {
			d.Images = manyImages(lazyLoadImageMin+1, "")
			d.Images[3].Loading = "lazy"
		}, false},
		{"few images pass regardless", "img-lazy-none", func(d *page.Document) {
			d.Images = manyImages(lazyLoadImageMin, "")
		}, false},
		{"oversized html fires", "html-oversized", func(d *page.Document) { d.HTMLBytes = maxHTMLBytes + 1 }, true},
		{"excessive dom fires", "dom-excessive", func(d *page.Document) { d.DOMNodes = maxDOMNodes + 1 }, true},
		{"many iframes fire", "iframes-many", func(d *page.Document) { d.IframeCount = maxIframes + 1 }, true},
		{"few iframes pass", "iframes-many", func(d *page.Document) { d.IframeCount = maxIframes }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := goodDocument()
			tt.mutate(d)
			if got := triggered(t, performanceRules, tt.id, d); got != tt.want {
				t.Errorf("rule %q triggered = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}
