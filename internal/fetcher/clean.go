package fetcher

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// nonContentTags never carry page content and are always removed.
var nonContentTags = []string{"script", "style", "noscript", "template", "svg", "canvas", "iframe", "object", "embed"}

// overlaySelectors match popups, modals and consent banners.
var overlaySelectors = []string{
	"dialog",
	"[role=dialog]",
	"[role=alertdialog]",
	"[aria-modal=true]",
	".modal",
	".popup",
	".overlay",
	".lightbox",
	"[class*=cookie]",
	"[id*=cookie]",
	"[class*=consent]",
	"[id*=consent]",
	"[class*=newsletter-popup]",
}

// cleanDocument removes everything that is not page content.
// The document is modified in place.
func cleanDocument(doc *goquery.Document, excludedTags []string, removeOverlays bool) {
	doc.Find(strings.Join(nonContentTags, ",")).Remove()

	for _, tag := range excludedTags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		doc.Find(tag).Remove()
	}

	if removeOverlays {
		removeOverlayElements(doc)
	}
}

// removeOverlayElements drops overlay elements matched by selector and
// elements pinned over the page with an inline fixed position.
func removeOverlayElements(doc *goquery.Document) {
	doc.Find(strings.Join(overlaySelectors, ",")).Each(func(_ int, s *goquery.Selection) {
		// Never remove the page itself when a site puts "modal" on <body>.
		if goquery.NodeName(s) == "body" || goquery.NodeName(s) == "html" {
			return
		}
		s.Remove()
	})

	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		style = strings.ToLower(strings.ReplaceAll(style, " ", ""))
		if strings.Contains(style, "position:fixed") || strings.Contains(style, "position:sticky") {
			if goquery.NodeName(s) != "body" {
				s.Remove()
			}
		}
	})
}

// documentTitle returns the page title, preferring <title> then og:title.
func documentTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if ogTitle, exists := doc.Find("meta[property='og:title']").Attr("content"); exists {
		return strings.TrimSpace(ogTitle)
	}
	return ""
}
