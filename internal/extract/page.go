// Package extract turns search hits into program records by fetching the
// page and interpreting its content.
package extract

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxHeadings  = 10
	maxListItems = 40
)

// nonContentSelectors are stripped before the main text is collected.
const nonContentSelectors = "script, style, noscript, nav, header, footer, form"

// Page is the parsed content of a fetched program page.
type Page struct {
	URL         string
	Host        string
	Title       string
	OGTitle     string
	SiteName    string
	Description string
	Headings    []string
	ListItems   []string
	Text        string
}

// ParsePage parses HTML from r. pageURL is used for the host fallback.
func ParsePage(pageURL string, r io.Reader) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	page := &Page{URL: pageURL}
	if u, parseErr := url.Parse(pageURL); parseErr == nil {
		page.Host = strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	}

	page.Title = collapse(doc.Find("title").First().Text())
	page.OGTitle = metaContent(doc, "meta[property='og:title']")
	page.SiteName = metaContent(doc, "meta[property='og:site_name']")
	page.Description = metaContent(doc, "meta[name='description']")
	if page.Description == "" {
		page.Description = metaContent(doc, "meta[property='og:description']")
	}

	doc.Find("h1, h2, h3").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if h := collapse(s.Text()); h != "" {
			page.Headings = append(page.Headings, h)
		}
		return len(page.Headings) < maxHeadings
	})

	root := mainContent(doc)
	root.Find(nonContentSelectors).Remove()
	root.Find("li").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if li := collapse(s.Text()); li != "" {
			page.ListItems = append(page.ListItems, li)
		}
		return len(page.ListItems) < maxListItems
	})
	page.Text = collapse(root.Text())

	return page, nil
}

func mainContent(doc *goquery.Document) *goquery.Selection {
	for _, sel := range []string{"main", "article", "body"} {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return s
		}
	}
	return doc.Selection
}

func metaContent(doc *goquery.Document, selector string) string {
	if v, ok := doc.Find(selector).Attr("content"); ok {
		return collapse(v)
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
