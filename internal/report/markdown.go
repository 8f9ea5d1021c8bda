package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/webxtract/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
//  1. Type-safe markdown generation
//  2. Support for tables, lists, and code blocks
//  3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)
	s := newSummary(report)

	w.writeHeader(md, s)
	w.writeAlert(md, s)
	w.writeDepths(md, s)
	w.writePages(md, s)
	w.writeFailures(md, s)
	w.writeExternalLinks(md, s)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with crawl information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s summary) {
	r := s.report

	md.H1("Crawl Report")
	md.PlainText("")

	rows := [][]string{
		{"Seed", inlineCode(r.Seed)},
	}
	if r.RunID != "" {
		rows = append(rows, []string{"Run ID", inlineCode(r.RunID)})
	}
	if !r.StartedAt.IsZero() {
		rows = append(rows, []string{"Started", r.StartedAt.Format("2006-01-02 15:04:05 MST")})
	}
	rows = append(rows,
		[]string{"Duration", r.Duration().Round(time.Millisecond).String()},
		[]string{"Budget", fmt.Sprintf("depth %d, %d pages, %d workers",
			r.Budget.MaxDepth, r.Budget.MaxPages, r.Budget.Concurrency)},
		[]string{"Pages Crawled", strconv.Itoa(r.PagesCrawled)},
		[]string{"Failed", strconv.Itoa(len(s.failed))},
		[]string{"Status", status(r)},
	)

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeAlert writes an alert describing how the crawl ended.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s summary) {
	r := s.report
	switch {
	case r.ErrorMessage != "":
		md.Cautionf("The crawl failed: %s", r.ErrorMessage)
	case r.Cancelled:
		md.Warningf("The crawl was cancelled. %d page(s) were crawled before it stopped.", r.PagesCrawled)
	case len(s.failed) > 0:
		md.Importantf("%d page(s) could not be fetched.", len(s.failed))
	case r.BudgetExhausted:
		md.Note("The page budget was reached. Raise --max-pages to crawl more of the site.")
	default:
		md.Tip("Every reachable page within the depth limit was crawled.")
	}
	md.PlainText("")

	if s.warnings > 0 {
		md.Warningf("Markdown extraction failed on %d page(s); their content is empty.", s.warnings)
		md.PlainText("")
	}
}

// writeDepths writes a mermaid pie chart of pages per depth.
func (w *MarkdownWriter) writeDepths(md *markdown.Markdown, s summary) {
	if len(s.depths) < 2 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Pages by Depth"),
		piechart.WithShowData(true),
	)
	for _, d := range s.depths {
		chart.LabelAndIntValue("Depth "+strconv.Itoa(d.depth), uint64(d.pages))
	}

	md.H2("Pages by Depth")
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writePages writes a table of the successful pages.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, s summary) {
	md.H2("Pages")
	md.PlainText("")

	if len(s.successful) == 0 {
		md.PlainText("No pages crawled.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(s.successful))
	for i, page := range s.successful {
		rows[i] = []string{
			mdLink(truncateString(page.URL, 60), page.URL),
			strconv.Itoa(page.Depth),
			truncateString(pageTitle(page), 40),
			strconv.Itoa(len(page.Links)),
			strconv.Itoa(len(page.Content)),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Depth", "Title", "Links", "Markdown"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFailures writes a table of the failed pages.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, s summary) {
	if len(s.failed) == 0 {
		return
	}

	md.H2("Failures")
	md.PlainText("")

	rows := make([][]string, len(s.failed))
	for i, page := range s.failed {
		rows[i] = []string{
			inlineCode(page.URL),
			strconv.Itoa(page.Depth),
			truncateString(page.Error, 80),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Depth", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeExternalLinks writes external links grouped by platform.
func (w *MarkdownWriter) writeExternalLinks(md *markdown.Markdown, s summary) {
	if len(s.external) == 0 {
		return
	}

	md.H2("External Links")
	md.PlainText("")

	for _, group := range s.external {
		md.H3(fmt.Sprintf("%s (%d)", group.label, len(group.links)))
		md.PlainText("")

		items := make([]string, len(group.links))
		for i, link := range group.links {
			items[i] = mdLink(link.Text, link.Href)
		}
		md.BulletList(items...)
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by [webxtract](https://github.com/nao1215/webxtract)*")
}

func inlineCode(s string) string {
	return "`" + s + "`"
}

func mdLink(text, href string) string {
	if text == "" {
		text = href
	}
	return "[" + text + "](" + href + ")"
}
