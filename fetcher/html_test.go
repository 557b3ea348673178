package fetcher

import (
	"strings"
	"testing"
)

func TestIsHTMLContentType(t *testing.T) {
	tests := []struct {
		ct   string
		want bool
	}{
		{"text/html", true},
		{"text/html; charset=utf-8", true},
		{"TEXT/HTML", true},
		{"application/xhtml+xml", true},
		{"", true}, // some proxies strip the header
		{"application/json", false},
		{"image/png", false},
		{"text/plain", false},
	}

	for _, tt := range tests {
		if got := isHTMLContentType(tt.ct); got != tt.want {
			t.Errorf("isHTMLContentType(%q) = %v, want %v", tt.ct, got, tt.want)
		}
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"simple", `<html><head><title>Hello</title></head></html>`, "Hello"},
		{"whitespace trimmed", `<title>  Padded  </title>`, "Padded"},
		{"no title", `<html><head></head><body>text</body></html>`, ""},
		{"empty title", `<title></title>`, ""},
		{"first title wins", `<title>First</title><title>Second</title>`, "First"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractTitle(tt.html); got != tt.want {
				t.Errorf("extractTitle = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNeedsRender(t *testing.T) {
	longText := strings.Repeat("plenty of readable words here ", 20)

	tests := []struct {
		name string
		html string
		want bool
	}{
		{
			"content page",
			`<html><body><p>` + longText + `</p></body></html>`,
			false,
		},
		{
			"near-empty body",
			`<html><body><div>loading</div></body></html>`,
			true,
		},
		{
			"spa shell root div",
			`<html><body><div id="root"></div><footer>` + longText + `</footer></body></html>`,
			true,
		},
		{
			"noscript warning",
			`<html><body><noscript>Please enable JavaScript to continue.</noscript><p>` + longText + `</p></body></html>`,
			true,
		},
		{
			"script heavy with thin body",
			`<html><head>` + strings.Repeat(`<script src="/x.js"></script>`, 12) +
				`</head><body><p>` + strings.Repeat("word ", 50) + `</p></body></html>`,
			true,
		},
		{
			"script heavy with rich body",
			`<html><head>` + strings.Repeat(`<script src="/x.js"></script>`, 12) +
				`</head><body><p>` + longText + `</p></body></html>`,
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := needsRender(tt.html); got != tt.want {
				t.Errorf("needsRender = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVisibleBodyText(t *testing.T) {
	html := `<html><head><title>t</title><style>body{}</style></head>
<body><script>var x = 1;</script><p>visible copy</p><noscript>hidden</noscript></body></html>`

	text := visibleBodyText(html)
	if !strings.Contains(text, "visible copy") {
		t.Errorf("body text missing visible copy: %q", text)
	}
	if strings.Contains(text, "var x") {
		t.Error("body text should not contain script content")
	}
	if strings.Contains(text, "hidden") {
		t.Error("body text should not contain noscript content")
	}
}
