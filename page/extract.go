package page

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// collectLinks resolves every <a href> against the page URL and splits the
// results into internal and external by host, deduplicating by absolute URL.
func collectLinks(doc *goquery.Document, d *Document) {
	d.InternalLinks = []Link{}
	d.ExternalLinks = []Link{}

	base, err := url.Parse(d.URL)
	if err != nil {
		return
	}

	seen := make(map[string]struct{})
	doc.FindMatcher(selAnchors).Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" {
			return
		}

		resolved, err := base.Parse(href)
		if err != nil {
			return
		}

		// Skip fragments, javascript:, mailto:, tel: etc.
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}

		absURL := resolved.String()
		if _, ok := seen[absURL]; ok {
			return
		}
		seen[absURL] = struct{}{}

		link := Link{Href: absURL, Text: strings.TrimSpace(s.Text())}
		if strings.EqualFold(resolved.Host, base.Host) {
			d.InternalLinks = append(d.InternalLinks, link)
		} else {
			d.ExternalLinks = append(d.ExternalLinks, link)
		}
	})
}

// collectImages records every <img> with the attributes the rules check.
func collectImages(doc *goquery.Document, d *Document) {
	d.Images = []Image{}

	base, _ := url.Parse(d.URL)

	doc.FindMatcher(selImages).Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if base != nil && src != "" {
			if resolved, err := base.Parse(src); err == nil && resolved.Scheme != "data" {
				src = resolved.String()
			}
		}

		alt, hasAlt := s.Attr("alt")
		_, hasWidth := s.Attr("width")
		_, hasHeight := s.Attr("height")
		loading, _ := s.Attr("loading")

		d.Images = append(d.Images, Image{
			Src:       src,
			Alt:       strings.TrimSpace(alt),
			HasAlt:    hasAlt,
			HasWidth:  hasWidth,
			HasHeight: hasHeight,
			Loading:   strings.ToLower(strings.TrimSpace(loading)),
		})
	})
}

// collectSocialMeta gathers Open Graph (meta[property="og:*"]) and Twitter
// card (meta[name="twitter:*"]) tags.
func collectSocialMeta(doc *goquery.Document, d *Document) {
	doc.FindMatcher(selMetaProperty).Each(func(_ int, s *goquery.Selection) {
		prop, _ := s.Attr("property")
		content, _ := s.Attr("content")
		if content == "" || !strings.HasPrefix(prop, "og:") {
			return
		}
		d.OpenGraph[strings.TrimPrefix(prop, "og:")] = content
	})

	doc.FindMatcher(selMetaTwitter).Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		content, _ := s.Attr("content")
		if content == "" {
			return
		}
		d.TwitterCard[strings.TrimPrefix(name, "twitter:")] = content
	})
}

// collectHreflang gathers language alternate links.
func collectHreflang(doc *goquery.Document, d *Document) {
	doc.FindMatcher(selHreflang).Each(func(_ int, s *goquery.Selection) {
		lang, _ := s.Attr("hreflang")
		href, _ := s.Attr("href")
		if lang == "" || href == "" {
			return
		}
		d.Hreflang = append(d.Hreflang, Hreflang{Lang: lang, Href: href})
	})
}
