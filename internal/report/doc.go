// Package report provides report generation and output functionality.
//
// This package contains writers for different output formats:
//   - SiteContent: the site content JSON sink, keyed by page URL
//   - SimpleWriter: Human-readable text summary for terminal display
//   - MarkdownWriter: GitHub Flavored Markdown summary
//   - JSONWriter: the full crawl report as JSON for tool integration
//
// Design decision: We separate report writing from report data structures
// (which are in the model package). This allows adding new output formats
// without modifying the core data structures.
//
// Summary writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
