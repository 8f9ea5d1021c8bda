package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/webxtract/internal/model"
)

// SimpleWriter outputs human-readable text reports.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because:
//  1. It works in all terminals without compatibility issues
//  2. It's easier to pipe to files or other tools
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether empty sections are shown.
	showEmpty bool

	// verbose lists every page instead of only the counts.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.CrawlReport) (int, error) {
	var sb strings.Builder
	s := newSummary(report)

	w.writeHeader(&sb, s)
	w.writePages(&sb, s)
	w.writeFailures(&sb, s)
	w.writeExternalLinks(&sb, s)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeHeader writes the report header with crawl information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, s summary) {
	r := s.report

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         WEBXTRACT CRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Seed:           %s\n", r.Seed)
	if r.RunID != "" {
		fmt.Fprintf(sb, "Run ID:         %s\n", r.RunID)
	}
	if !r.StartedAt.IsZero() {
		fmt.Fprintf(sb, "Started:        %s\n", r.StartedAt.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(sb, "Duration:       %s\n", r.Duration().Round(time.Millisecond))
	fmt.Fprintf(sb, "Budget:         depth %d, %d pages, %d workers\n",
		r.Budget.MaxDepth, r.Budget.MaxPages, r.Budget.Concurrency)
	fmt.Fprintf(sb, "Pages Crawled:  %d\n", r.PagesCrawled)
	fmt.Fprintf(sb, "Failed:         %d\n", len(s.failed))
	if s.warnings > 0 {
		fmt.Fprintf(sb, "Warnings:       %d (markdown extraction failed)\n", s.warnings)
	}
	fmt.Fprintf(sb, "Status:         %s\n", status(r))
	sb.WriteString("\n")

	if len(s.depths) > 0 {
		sb.WriteString("Pages by depth:\n")
		for _, d := range s.depths {
			fmt.Fprintf(sb, "  depth %d: %d\n", d.depth, d.pages)
		}
		sb.WriteString("\n")
	}
}

// writePages lists the successful pages in completion order.
func (w *SimpleWriter) writePages(sb *strings.Builder, s summary) {
	if !w.verbose || (len(s.successful) == 0 && !w.showEmpty) {
		return
	}

	section(sb, "PAGES")
	if len(s.successful) == 0 {
		sb.WriteString("  No pages crawled\n\n")
		return
	}

	for _, page := range s.successful {
		fmt.Fprintf(sb, "  [+] %s\n", page.URL)
		fmt.Fprintf(sb, "      depth %d, %d links, %d chars of markdown, title: %s\n",
			page.Depth, len(page.Links), len(page.Content), pageTitle(page))
		if page.Warning != "" {
			fmt.Fprintf(sb, "      warning: %s\n", page.Warning)
		}
	}
	sb.WriteString("\n")
}

// writeFailures lists the pages that could not be fetched.
func (w *SimpleWriter) writeFailures(sb *strings.Builder, s summary) {
	if len(s.failed) == 0 && !w.showEmpty {
		return
	}

	section(sb, "FAILURES")
	if len(s.failed) == 0 {
		sb.WriteString("  No failures\n\n")
		return
	}

	for _, page := range s.failed {
		fmt.Fprintf(sb, "  [!] %s\n", page.URL)
		fmt.Fprintf(sb, "      %s\n", page.Error)
	}
	sb.WriteString("\n")
}

// writeExternalLinks lists external links grouped by platform.
func (w *SimpleWriter) writeExternalLinks(sb *strings.Builder, s summary) {
	if len(s.external) == 0 && !w.showEmpty {
		return
	}

	section(sb, "EXTERNAL LINKS")
	if len(s.external) == 0 {
		sb.WriteString("  No external links recorded\n\n")
		return
	}

	for _, group := range s.external {
		fmt.Fprintf(sb, "[%s] %d link(s)\n", group.label, len(group.links))
		for _, link := range group.links {
			fmt.Fprintf(sb, "  * %s\n", link.Href)
		}
		sb.WriteString("\n")
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by webxtract\n")
	sb.WriteString("https://github.com/nao1215/webxtract\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
