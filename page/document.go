// Package page parses fetched HTML into a flat snapshot of every fact the
// audit rules inspect, so the rule sets stay simple boolean/threshold checks.
package page

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Document is the parsed snapshot of an audited page.
type Document struct {
	// URL is the final URL the HTML was fetched from.
	URL string

	// HTMLBytes is the size of the raw HTML.
	HTMLBytes int

	Title           string
	MetaDescription string
	MetaKeywords    string
	Robots          string
	Charset         string
	Viewport        string
	Canonical       string
	Lang            string
	Favicon         string

	// Headings lists h1–h6 in document order.
	Headings []Heading

	Images        []Image
	InternalLinks []Link
	ExternalLinks []Link

	OpenGraph   map[string]string
	TwitterCard map[string]string
	Hreflang    []Hreflang

	HasJSONLD    bool
	HasMicrodata bool

	// HeadScripts are <script src> elements inside <head>; the ones with
	// neither async nor defer block first paint.
	HeadScripts      []Script
	ScriptCount      int
	StylesheetCount  int
	InlineStyleBytes int
	IframeCount      int
	DOMNodes         int

	// VisibleText is the page's rendered text with scripts/styles stripped.
	VisibleText string
	WordCount   int

	// Main-content fields come from the readability pass; see Analyze.
	MainText         string
	MainWordCount    int
	MainContentFound bool
}

// Heading is one h1–h6 element.
type Heading struct {
	Level int
	Text  string
}

// Image is one <img> element with the attributes the rules care about.
type Image struct {
	Src       string
	Alt       string
	HasAlt    bool
	HasWidth  bool
	HasHeight bool
	Loading   string
}

// Link is one resolved hyperlink.
type Link struct {
	Href string
	Text string
}

// Hreflang is one <link rel="alternate" hreflang> entry.
type Hreflang struct {
	Lang string
	Href string
}

// Script is one external script reference.
type Script struct {
	Src   string
	Async bool
	Defer bool
}

// Precompiled selectors for the queries run on every audit.
var (
	selMetaDescription = cascadia.MustCompile(`meta[name="description"]`)
	selMetaKeywords    = cascadia.MustCompile(`meta[name="keywords"]`)
	selMetaRobots      = cascadia.MustCompile(`meta[name="robots"]`)
	selMetaViewport    = cascadia.MustCompile(`meta[name="viewport"]`)
	selMetaCharset     = cascadia.MustCompile(`meta[charset]`)
	selCanonical       = cascadia.MustCompile(`link[rel="canonical"]`)
	selFavicon         = cascadia.MustCompile(`link[rel="icon"], link[rel="shortcut icon"], link[rel="apple-touch-icon"]`)
	selHreflang        = cascadia.MustCompile(`link[rel="alternate"][hreflang]`)
	selHeadings        = cascadia.MustCompile(`h1, h2, h3, h4, h5, h6`)
	selImages          = cascadia.MustCompile(`img`)
	selAnchors         = cascadia.MustCompile(`a[href]`)
	selMetaProperty    = cascadia.MustCompile(`meta[property]`)
	selMetaTwitter     = cascadia.MustCompile(`meta[name^="twitter:"]`)
	selJSONLD          = cascadia.MustCompile(`script[type="application/ld+json"]`)
	selMicrodata       = cascadia.MustCompile(`[itemscope]`)
	selHeadScripts     = cascadia.MustCompile(`head script[src]`)
	selScripts         = cascadia.MustCompile(`script`)
	selStylesheets     = cascadia.MustCompile(`link[rel="stylesheet"]`)
	selInlineStyles    = cascadia.MustCompile(`style`)
	selIframes         = cascadia.MustCompile(`iframe`)
	selAll             = cascadia.MustCompile(`*`)
	selNonContent      = cascadia.MustCompile(`script, style, noscript`)
)

// Parse builds a Document from raw HTML. finalURL anchors relative link and
// image resolution and the internal/external split.
//
// Parse never runs the readability pass; callers that need main-content
// facts call Analyze on the returned Document (it is comparatively costly).
func Parse(rawHTML string, finalURL string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}

	d := &Document{
		URL:         finalURL,
		HTMLBytes:   len(rawHTML),
		OpenGraph:   map[string]string{},
		TwitterCard: map[string]string{},
	}

	d.Title = strings.TrimSpace(doc.Find("title").First().Text())
	d.MetaDescription = metaContent(doc, selMetaDescription)
	d.MetaKeywords = metaContent(doc, selMetaKeywords)
	d.Robots = metaContent(doc, selMetaRobots)
	d.Viewport = metaContent(doc, selMetaViewport)
	d.Charset = findCharset(doc)
	d.Canonical, _ = doc.FindMatcher(selCanonical).First().Attr("href")
	d.Favicon, _ = doc.FindMatcher(selFavicon).First().Attr("href")
	d.Lang, _ = doc.Find("html").First().Attr("lang")
	d.Lang = strings.TrimSpace(d.Lang)

	doc.FindMatcher(selHeadings).Each(func(_ int, s *goquery.Selection) {
		name := goquery.NodeName(s)
		if len(name) == 2 && name[0] == 'h' {
			d.Headings = append(d.Headings, Heading{
				Level: int(name[1] - '0'),
				Text:  strings.TrimSpace(s.Text()),
			})
		}
	})

	collectImages(doc, d)
	collectLinks(doc, d)
	collectSocialMeta(doc, d)
	collectHreflang(doc, d)

	d.HasJSONLD = doc.FindMatcher(selJSONLD).Length() > 0
	d.HasMicrodata = doc.FindMatcher(selMicrodata).Length() > 0

	doc.FindMatcher(selHeadScripts).Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		_, async := s.Attr("async")
		_, deferred := s.Attr("defer")
		d.HeadScripts = append(d.HeadScripts, Script{Src: src, Async: async, Defer: deferred})
	})
	d.ScriptCount = doc.FindMatcher(selScripts).Length()
	d.StylesheetCount = doc.FindMatcher(selStylesheets).Length()
	doc.FindMatcher(selInlineStyles).Each(func(_ int, s *goquery.Selection) {
		d.InlineStyleBytes += len(s.Text())
	})
	d.IframeCount = doc.FindMatcher(selIframes).Length()
	d.DOMNodes = doc.FindMatcher(selAll).Length()

	// Text extraction mutates the tree (script/style removal), so it runs
	// after every structural query.
	doc.FindMatcher(selNonContent).Remove()
	body := doc.Find("body")
	if body.Length() > 0 {
		d.VisibleText = collapseWhitespace(body.Text())
	} else {
		d.VisibleText = collapseWhitespace(doc.Text())
	}
	d.WordCount = len(strings.Fields(d.VisibleText))

	return d, nil
}

// metaContent returns the trimmed content attribute of the first match.
func metaContent(doc *goquery.Document, sel cascadia.Selector) string {
	content, _ := doc.FindMatcher(sel).First().Attr("content")
	return strings.TrimSpace(content)
}

// findCharset looks for <meta charset> first, then the legacy http-equiv form.
func findCharset(doc *goquery.Document) string {
	if cs, ok := doc.FindMatcher(selMetaCharset).First().Attr("charset"); ok {
		return strings.TrimSpace(cs)
	}
	var charset string
	doc.Find(`meta[http-equiv]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if eq, _ := s.Attr("http-equiv"); strings.EqualFold(eq, "content-type") {
			content, _ := s.Attr("content")
			if i := strings.Index(strings.ToLower(content), "charset="); i >= 0 {
				charset = strings.TrimSpace(content[i+len("charset="):])
				return false
			}
		}
		return true
	})
	return charset
}

// collapseWhitespace normalises runs of whitespace to single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
