package fetcher

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/webxtract/internal/model"
)

// socialDomains maps known social media domains to their platform name.
// Subdomains (www., m., mobile.) match their parent domain.
var socialDomains = map[string]string{
	"facebook.com":    "facebook",
	"fb.com":          "facebook",
	"twitter.com":     "twitter",
	"x.com":           "twitter",
	"t.co":            "twitter",
	"instagram.com":   "instagram",
	"linkedin.com":    "linkedin",
	"lnkd.in":         "linkedin",
	"youtube.com":     "youtube",
	"youtu.be":        "youtube",
	"tiktok.com":      "tiktok",
	"pinterest.com":   "pinterest",
	"reddit.com":      "reddit",
	"tumblr.com":      "tumblr",
	"snapchat.com":    "snapchat",
	"whatsapp.com":    "whatsapp",
	"wa.me":           "whatsapp",
	"t.me":            "telegram",
	"telegram.org":    "telegram",
	"discord.com":     "discord",
	"discord.gg":      "discord",
	"threads.net":     "threads",
	"mastodon.social": "mastodon",
	"bsky.app":        "bluesky",
	"github.com":      "github",
}

// SocialPlatform returns the social platform a link points to, if any.
func SocialPlatform(href string) (string, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	for host != "" {
		if platform, ok := socialDomains[host]; ok {
			return platform, true
		}
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			break
		}
		host = host[idx+1:]
	}
	return "", false
}

// resolveURL resolves a relative URL against the page URL.
// Non-navigable links (javascript:, mailto:, tel:, data:, bare fragments)
// resolve to the empty string. The fragment of the result is dropped.
//
// Design decision: We resolve URLs rather than storing them as-is because:
//  1. Makes deduplication easier
//  2. Allows proper link classification
//  3. The export format carries absolute hrefs
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	lower := strings.ToLower(href)
	for _, scheme := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, scheme) {
			return ""
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	resolved.RawFragment = ""
	return resolved.String()
}

// isInternal reports whether link points to the same host as the page.
func isInternal(base *url.URL, link *url.URL) bool {
	return strings.EqualFold(link.Host, base.Host) || strings.EqualFold(link.Hostname(), base.Hostname())
}

// linkText returns the anchor text with collapsed whitespace.
// Anchors without text fall back to their title, image alt text, and
// finally the href itself.
func linkText(s *goquery.Selection, href string) string {
	text := strings.Join(strings.Fields(s.Text()), " ")
	if text != "" {
		return text
	}
	if title, ok := s.Attr("title"); ok && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title)
	}
	if alt, ok := s.Find("img[alt]").First().Attr("alt"); ok && strings.TrimSpace(alt) != "" {
		return strings.TrimSpace(alt)
	}
	return href
}

// extractLinks collects the anchors of the document in document order.
// Each href is reported once per page.
func extractLinks(doc *goquery.Document, base *url.URL, cfg model.FetchConfig) model.LinkSet {
	links := model.LinkSet{
		Internal: make([]model.Link, 0),
		External: make([]model.Link, 0),
	}
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		raw, _ := s.Attr("href")
		href := resolveURL(base, raw)
		if href == "" || seen[href] {
			return
		}
		seen[href] = true

		u, err := url.Parse(href)
		if err != nil {
			return
		}
		if cfg.ExcludeSocialMediaLinks {
			if _, social := SocialPlatform(href); social {
				return
			}
		}

		link := model.Link{Text: linkText(s, href), Href: href}
		if isInternal(base, u) {
			links.Internal = append(links.Internal, link)
			return
		}
		if !cfg.ExcludeExternalLinks {
			links.External = append(links.External, link)
		}
	})

	return links
}
