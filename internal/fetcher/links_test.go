package fetcher

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/webxtract/internal/model"
)

// TestResolveURL tests link resolution and skipped schemes.
func TestResolveURL(t *testing.T) {
	t.Parallel()

	base, _ := url.Parse("https://site.test/docs/page")

	tests := []struct {
		name string
		href string
		want string
	}{
		{"relative", "other", "https://site.test/docs/other"},
		{"absolute path", "/root", "https://site.test/root"},
		{"absolute URL", "https://other.test/x", "https://other.test/x"},
		{"fragment stripped", "/a#b", "https://site.test/a"},
		{"bare fragment", "#top", ""},
		{"javascript", "javascript:void(0)", ""},
		{"uppercase javascript", "JavaScript:alert(1)", ""},
		{"mailto", "mailto:a@b.test", ""},
		{"tel", "tel:+123", ""},
		{"data", "data:text/plain,hi", ""},
		{"ftp", "ftp://site.test/file", ""},
		{"empty", "  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := resolveURL(base, tt.href); got != tt.want {
				t.Errorf("resolveURL(%q) = %q, want %q", tt.href, got, tt.want)
			}
		})
	}
}

// TestSocialPlatform tests social media detection.
func TestSocialPlatform(t *testing.T) {
	t.Parallel()

	tests := []struct {
		href     string
		platform string
		ok       bool
	}{
		{"https://www.facebook.com/page", "facebook", true},
		{"https://x.com/user", "twitter", true},
		{"https://m.youtube.com/watch", "youtube", true},
		{"https://t.me/channel", "telegram", true},
		{"https://example.com/", "", false},
		{"https://notfacebook.com/", "", false},
	}

	for _, tt := range tests {
		platform, ok := SocialPlatform(tt.href)
		if platform != tt.platform || ok != tt.ok {
			t.Errorf("SocialPlatform(%q) = %q, %v; want %q, %v", tt.href, platform, ok, tt.platform, tt.ok)
		}
	}
}

// TestExtractLinks tests classification, text fallback and deduplication.
func TestExtractLinks(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body>
		<a href="/a">  First
		 link </a>
		<a href="/a#again">Duplicate</a>
		<a href="/b"></a>
		<a href="/c" title="Titled"></a>
		<a href="/d"><img src="d.png" alt="Picture"></a>
		<a href="https://SITE.test:443/e">Port</a>
		<a href="https://other.test/">Other</a>
		<a href="https://instagram.com/site">Insta</a>
	</body></html>`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	base, _ := url.Parse("https://site.test/")

	links := extractLinks(doc, base, model.FetchConfig{ExcludeSocialMediaLinks: true})

	wantInternal := []model.Link{
		{Text: "First link", Href: "https://site.test/a"},
		{Text: "https://site.test/b", Href: "https://site.test/b"},
		{Text: "Titled", Href: "https://site.test/c"},
		{Text: "Picture", Href: "https://site.test/d"},
		{Text: "Port", Href: "https://SITE.test:443/e"},
	}
	if len(links.Internal) != len(wantInternal) {
		t.Fatalf("expected %d internal links, got %v", len(wantInternal), links.Internal)
	}
	for i, want := range wantInternal {
		if links.Internal[i] != want {
			t.Errorf("internal[%d] = %+v, want %+v", i, links.Internal[i], want)
		}
	}

	if len(links.External) != 1 || links.External[0].Href != "https://other.test/" {
		t.Errorf("expected only the non-social external link, got %v", links.External)
	}
}
