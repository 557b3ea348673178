package audit

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pagelint/pagelint/models"
	"github.com/pagelint/pagelint/page"
)

// Title and description length bands follow the usual SERP display limits.
const (
	titleMinLen = 30
	titleMaxLen = 60
	descMinLen  = 70
	descMaxLen  = 160
)

// metadataRules is the fixed metadata rule set, evaluated in order.
var metadataRules = []rule{
	{
		id: "title-missing", severity: models.SeverityError, penalty: 20,
		check: func(d *page.Document) (bool, string) {
			return d.Title == "", "page has no <title> element"
		},
	},
	{
		id: "title-short", severity: models.SeverityWarning, penalty: 10,
		check: func(d *page.Document) (bool, string) {
			n := utf8.RuneCountInString(d.Title)
			return d.Title != "" && n < titleMinLen,
				fmt.Sprintf("title is %d characters; aim for %d–%d", n, titleMinLen, titleMaxLen)
		},
	},
	{
		id: "title-long", severity: models.SeverityWarning, penalty: 10,
		check: func(d *page.Document) (bool, string) {
			n := utf8.RuneCountInString(d.Title)
			return n > titleMaxLen,
				fmt.Sprintf("title is %d characters and will be truncated in results; aim for %d–%d", n, titleMinLen, titleMaxLen)
		},
	},
	{
		id: "description-missing", severity: models.SeverityError, penalty: 15,
		check: func(d *page.Document) (bool, string) {
			return d.MetaDescription == "", "page has no meta description"
		},
	},
	{
		id: "description-short", severity: models.SeverityWarning, penalty: 8,
		check: func(d *page.Document) (bool, string) {
			n := utf8.RuneCountInString(d.MetaDescription)
			return d.MetaDescription != "" && n < descMinLen,
				fmt.Sprintf("meta description is %d characters; aim for %d–%d", n, descMinLen, descMaxLen)
		},
	},
	{
		id: "description-long", severity: models.SeverityWarning, penalty: 8,
		check: func(d *page.Document) (bool, string) {
			n := utf8.RuneCountInString(d.MetaDescription)
			return n > descMaxLen,
				fmt.Sprintf("meta description is %d characters and will be truncated; aim for %d–%d", n, descMinLen, descMaxLen)
		},
	},
	{
		id: "canonical-missing", severity: models.SeverityWarning, penalty: 8,
		check: func(d *page.Document) (bool, string) {
			return d.Canonical == "", "page has no canonical link"
		},
	},
	{
		id: "viewport-missing", severity: models.SeverityWarning, penalty: 10,
		check: func(d *page.Document) (bool, string) {
			return d.Viewport == "", "page has no viewport meta tag (hurts mobile ranking)"
		},
	},
	{
		id: "lang-missing", severity: models.SeverityWarning, penalty: 8,
		check: func(d *page.Document) (bool, string) {
			return d.Lang == "", "<html> element has no lang attribute"
		},
	},
	{
		id: "charset-missing", severity: models.SeverityNotice, penalty: 5,
		check: func(d *page.Document) (bool, string) {
			return d.Charset == "", "page declares no character encoding"
		},
	},
	{
		id: "robots-noindex", severity: models.SeverityWarning, penalty: 10,
		check: func(d *page.Document) (bool, string) {
			return strings.Contains(strings.ToLower(d.Robots), "noindex"),
				"robots meta tag contains noindex; the page is excluded from search results"
		},
	},
	{
		id: "og-incomplete", severity: models.SeverityNotice, penalty: 6,
		check: func(d *page.Document) (bool, string) {
			var missing []string
			for _, key := range []string{"title", "description", "image"} {
				if d.OpenGraph[key] == "" {
					missing = append(missing, "og:"+key)
				}
			}
			return len(missing) > 0,
				"Open Graph tags missing: " + strings.Join(missing, ", ")
		},
	},
	{
		id: "twitter-card-missing", severity: models.SeverityNotice, penalty: 4,
		check: func(d *page.Document) (bool, string) {
			return d.TwitterCard["card"] == "", "page has no twitter:card meta tag"
		},
	},
}
