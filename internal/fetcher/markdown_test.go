package fetcher

import (
	"net/url"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func mustConvert(t *testing.T, src string) []block {
	t.Helper()

	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("failed to parse HTML: %v", err)
	}
	base, _ := url.Parse("https://site.test/docs/")
	return convertHTML(root, base)
}

func mustRender(t *testing.T, blocks []block) string {
	t.Helper()

	out, err := renderMarkdown(blocks)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	return out
}

// TestConvertHTMLBlocks tests block detection.
func TestConvertHTMLBlocks(t *testing.T) {
	t.Parallel()

	blocks := mustConvert(t, `<html><body>
		<h2>Install</h2>
		<p>Run the   installer
		now.</p>
		<ul><li>one</li><li>two<ul><li>nested</li></ul></li></ul>
		<ol><li>first</li></ol>
		<pre><code class="language-go">fmt.Println("hi")</code></pre>
		<blockquote>quoted text</blockquote>
		<hr>
		<table><tr><th>Name</th><th>Value</th></tr><tr><td>a|b</td></tr></table>
	</body></html>`)

	kinds := make([]blockKind, 0, len(blocks))
	for _, b := range blocks {
		kinds = append(kinds, b.kind)
	}
	want := []blockKind{blockHeading, blockParagraph, blockList, blockList, blockCode, blockQuote, blockRule, blockTable}
	if len(kinds) != len(want) {
		t.Fatalf("expected %d blocks, got %d: %+v", len(want), len(kinds), blocks)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("block %d: expected kind %d, got %d", i, want[i], kinds[i])
		}
	}

	if blocks[0].level != 2 || blocks[0].text != "Install" {
		t.Errorf("unexpected heading %+v", blocks[0])
	}
	if blocks[1].text != "Run the installer now." {
		t.Errorf("expected collapsed whitespace, got %q", blocks[1].text)
	}
	if got := strings.Join(blocks[2].items, ","); got != "one,two,nested" {
		t.Errorf("expected flattened list, got %q", got)
	}
	if !blocks[3].ordered {
		t.Error("expected ordered list")
	}
	if blocks[4].lang != "go" || blocks[4].text != `fmt.Println("hi")` {
		t.Errorf("unexpected code block %+v", blocks[4])
	}
	table := blocks[7]
	if len(table.header) != 2 || len(table.rows) != 1 || len(table.rows[0]) != 2 {
		t.Fatalf("expected padded 2 column table, got %+v", table)
	}
	if table.rows[0][0] != `a\|b` {
		t.Errorf("expected escaped pipe, got %q", table.rows[0][0])
	}
}

// TestConvertHTMLInline tests inline formatting and link statistics.
func TestConvertHTMLInline(t *testing.T) {
	t.Parallel()

	blocks := mustConvert(t, `<p>See <a href="guide#intro">the guide</a>, <em>really</em> <code>go run</code>
		<a href="javascript:void(0)">menu</a><img src="x.png" alt="ignored"></p>`)
	if len(blocks) != 1 {
		t.Fatalf("expected one paragraph, got %+v", blocks)
	}

	b := blocks[0]
	for _, want := range []string{"[the guide](https://site.test/docs/guide)", "*really*", "`go run`", "menu"} {
		if !strings.Contains(b.text, want) {
			t.Errorf("expected %q in %q", want, b.text)
		}
	}
	if strings.Contains(b.text, "ignored") {
		t.Errorf("expected images to be skipped, got %q", b.text)
	}
	if b.linkLen != len("the guide") {
		t.Errorf("expected link length %d, got %d", len("the guide"), b.linkLen)
	}
	if b.linkDensity() <= 0 || b.linkDensity() >= 1 {
		t.Errorf("unexpected link density %f", b.linkDensity())
	}
}

// TestConvertHTMLMixedContainers tests text beside nested blocks.
func TestConvertHTMLMixedContainers(t *testing.T) {
	t.Parallel()

	blocks := mustConvert(t, `<div>Intro text here<p>Inner paragraph text</p>Trailing words</div>`)

	texts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		texts = append(texts, b.text)
	}
	want := []string{"Intro text here", "Inner paragraph text", "Trailing words"}
	if strings.Join(texts, "|") != strings.Join(want, "|") {
		t.Errorf("expected %v, got %v", want, texts)
	}
}

// TestRenderMarkdown tests rendering with the markdown builder.
func TestRenderMarkdown(t *testing.T) {
	t.Parallel()

	out := mustRender(t, mustConvert(t, `<h1>Title</h1><p>Body text for the page.</p><ul><li>item</li></ul>
		<pre class="lang-sh">echo hi</pre>`))

	for _, want := range []string{"# Title", "Body text for the page.", "- item", "```sh", "echo hi"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
	if strings.HasSuffix(out, "\n") || strings.HasPrefix(out, "\n") {
		t.Error("expected trimmed output")
	}
}

// TestRenderMarkdownEmpty tests that an empty page renders to nothing.
func TestRenderMarkdownEmpty(t *testing.T) {
	t.Parallel()

	if out := mustRender(t, mustConvert(t, `<html><body>  </body></html>`)); out != "" {
		t.Errorf("expected empty markdown, got %q", out)
	}
}

// TestCollapseSpace tests whitespace handling for inline text.
func TestCollapseSpace(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", " "},
		{"a  b", "a b"},
		{" a\n\tb ", " a b "},
	}

	for _, tt := range tests {
		if got := collapseSpace(tt.in); got != tt.want {
			t.Errorf("collapseSpace(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
