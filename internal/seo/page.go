// Package seo scores a fetched web page against a fixed on-page SEO rubric and
// ranks scored targets by improvement opportunity.
package seo

import (
	"bytes"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is the raw outcome of a successful page fetch.
type Document struct {
	// RequestURL is the URL that was asked for.
	RequestURL string
	// FinalURL is the URL the response was served from after redirects.
	FinalURL string
	// Scheme is the scheme of FinalURL ("https" or "http").
	Scheme string
	// Body holds the raw response bytes.
	Body []byte
}

// Page is a parsed Document. It is built once per evaluation and shared by
// every check, which must treat it as read-only.
type Page struct {
	RequestURL string
	FinalURL   string
	Scheme     string
	Size       int

	doc    *goquery.Document
	markup string
}

// ParsePage parses the document body. Malformed markup never fails: the HTML5
// parser recovers what it can and missing elements simply read as absent.
func ParsePage(d Document) *Page {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(d.Body))
	if err != nil {
		doc = goquery.NewDocumentFromNode(&html.Node{Type: html.DocumentNode})
	}
	scheme := d.Scheme
	if scheme == "" {
		if u, perr := url.Parse(d.FinalURL); perr == nil {
			scheme = u.Scheme
		}
	}
	return &Page{
		RequestURL: d.RequestURL,
		FinalURL:   d.FinalURL,
		Scheme:     strings.ToLower(scheme),
		Size:       len(d.Body),
		doc:        doc,
		markup:     strings.ToLower(string(d.Body)),
	}
}

// Secure reports whether the page was served over HTTPS.
func (p *Page) Secure() bool {
	return p.Scheme == "https"
}

// Title returns the trimmed text of the first <title> element. A title made of
// whitespace only is reported as absent.
func (p *Page) Title() (string, bool) {
	sel := p.doc.Find("title").First()
	if sel.Length() == 0 {
		return "", false
	}
	text := strings.TrimSpace(sel.Text())
	return text, text != ""
}

// MetaContent returns the trimmed content of the first <meta name=...> whose
// name matches case-insensitively.
func (p *Page) MetaContent(name string) (string, bool) {
	var (
		content string
		found   bool
	)
	p.doc.Find("meta[name]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		n, _ := s.Attr("name")
		if !strings.EqualFold(strings.TrimSpace(n), name) {
			return true
		}
		c, _ := s.Attr("content")
		content = strings.TrimSpace(c)
		found = content != ""
		return false
	})
	return content, found
}

// HasMeta reports whether a <meta name=...> element with the given name exists.
func (p *Page) HasMeta(name string) bool {
	found := false
	p.doc.Find("meta[name]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		n, _ := s.Attr("name")
		found = strings.EqualFold(strings.TrimSpace(n), name)
		return !found
	})
	return found
}

// Headings returns the trimmed text of every element with the given tag.
func (p *Page) Headings(tag string) []string {
	sel := p.doc.Find(tag)
	out := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, strings.TrimSpace(s.Text()))
	})
	return out
}

// Images returns the number of <img> elements and how many of them carry a
// non-empty alt attribute.
func (p *Page) Images() (total, withAlt int) {
	p.doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		total++
		if alt, ok := s.Attr("alt"); ok && alt != "" {
			withAlt++
		}
	})
	return total, withAlt
}

// OpenGraphCount counts <meta property="og:..."> elements.
func (p *Page) OpenGraphCount() int {
	count := 0
	p.doc.Find("meta[property]").Each(func(_ int, s *goquery.Selection) {
		prop, _ := s.Attr("property")
		if strings.HasPrefix(strings.TrimSpace(prop), "og:") {
			count++
		}
	})
	return count
}

// ContainsMarkup reports whether the lowercased raw markup contains any needle.
func (p *Page) ContainsMarkup(needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(p.markup, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// HasLinkRel reports whether any <link> declares the rel token.
func (p *Page) HasLinkRel(rel string) bool {
	found := false
	p.doc.Find("link[rel]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		value, _ := s.Attr("rel")
		for _, token := range strings.Fields(value) {
			if strings.EqualFold(token, rel) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func truncateRunes(s string, limit int) (string, bool) {
	if utf8.RuneCountInString(s) <= limit {
		return s, false
	}
	runes := []rune(s)
	return string(runes[:limit]), true
}
