package fetcher

import (
	"net/url"
	"strings"
	"testing"

	"github.com/nao1215/webxtract/internal/model"
)

const articlePage = `<html><head><title>Release notes</title></head><body>
<div class="sidebar"><ul><li><a href="/a">A</a></li><li><a href="/b">B</a></li><li><a href="/c">C</a></li></ul></div>
<article>
<h1>Version 2.0 released</h1>
<p>The new version brings a faster crawler, a smaller memory footprint and many fixes for long standing issues.</p>
<p>Upgrading is straightforward: replace the binary and restart the service. Configuration files remain compatible.</p>
<p>We thank every contributor who reported bugs, wrote patches or improved the documentation during this cycle.</p>
<p>Large sites are now crawled level by level, so the same pages are reached no matter how many workers are configured for the run.</p>
<p>The markdown output keeps headings, lists, tables and code blocks, and the export file format has not changed since the previous release.</p>
<h2>Empty section</h2>
<h2>Details</h2>
<p>Ok.</p>
<p>Workers now share a single frontier and respect the configured page budget exactly.</p>
</article>
</body></html>`

// TestPruneBlocks tests boilerplate removal.
func TestPruneBlocks(t *testing.T) {
	t.Parallel()

	pruned := pruneBlocks(mustConvert(t, articlePage))
	out := mustRender(t, pruned)

	if strings.Contains(out, "[A]") {
		t.Errorf("expected link list to be pruned:\n%s", out)
	}
	if strings.Contains(out, "Ok.") {
		t.Errorf("expected short fragment to be pruned:\n%s", out)
	}
	if strings.Contains(out, "Empty section") {
		t.Errorf("expected empty section heading to be pruned:\n%s", out)
	}
	for _, want := range []string{"# Version 2.0 released", "## Details", "page budget exactly"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

// TestDropEmptySections tests heading and rule cleanup.
func TestDropEmptySections(t *testing.T) {
	t.Parallel()

	blocks := []block{
		{kind: blockHeading, level: 1, text: "Top"},
		{kind: blockHeading, level: 2, text: "Sub"},
		{kind: blockParagraph, text: "content"},
		{kind: blockHeading, level: 2, text: "Dangling"},
		{kind: blockRule},
	}

	got := dropEmptySections(blocks)
	texts := make([]string, 0, len(got))
	for _, b := range got {
		texts = append(texts, b.text)
	}
	if strings.Join(texts, ",") != "Top,Sub,content" {
		t.Errorf("unexpected blocks %v", texts)
	}
}

// TestFitBlocks tests content filter selection.
func TestFitBlocks(t *testing.T) {
	t.Parallel()

	base, _ := url.Parse("https://site.test/notes")
	blocks := mustConvert(t, articlePage)

	t.Run("none keeps everything", func(t *testing.T) {
		t.Parallel()

		got, err := fitBlocks(model.ContentFilterNone, blocks, "", base)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != len(blocks) {
			t.Errorf("expected %d blocks, got %d", len(blocks), len(got))
		}
	})

	t.Run("readability keeps the article", func(t *testing.T) {
		t.Parallel()

		got, err := fitBlocks(model.ContentFilterReadability, blocks, articlePage, base)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := mustRender(t, got)
		if !strings.Contains(out, "faster crawler") {
			t.Errorf("expected article text in:\n%s", out)
		}
		if strings.Contains(out, "[A]") {
			t.Errorf("expected sidebar to be dropped:\n%s", out)
		}
	})

	t.Run("readability falls back on empty input", func(t *testing.T) {
		t.Parallel()

		got, err := fitBlocks(model.ContentFilterReadability, blocks, "", base)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != len(pruneBlocks(blocks)) {
			t.Error("expected pruning fallback")
		}
	})

	t.Run("unknown filter", func(t *testing.T) {
		t.Parallel()

		if _, err := fitBlocks(model.ContentFilter("bm25"), blocks, "", base); err == nil {
			t.Error("expected error for unknown filter")
		}
	})
}
