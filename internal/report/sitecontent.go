package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nao1215/webxtract/internal/model"
)

// SiteContentEntry is the value stored for one page in the site content file.
type SiteContentEntry struct {
	// URLText lists the internal links of the page in document order.
	URLText []model.Link `json:"url_text"`

	// FitMarkdown is the filtered markdown of the page.
	FitMarkdown string `json:"fit_markdown"`
}

// SiteContent is the site content JSON object:
//
//	{"<url>": {"url_text": [{"text": ..., "href": ...}], "fit_markdown": ...}}
//
// Only successful pages are included. Keys keep the order in which pages
// completed, which a map cannot do, so SiteContent writes the object itself.
type SiteContent struct {
	keys    []string
	entries map[string]SiteContentEntry
}

// NewSiteContent collects the successful pages of the given reports.
// When several reports contain the same URL, the first one wins.
func NewSiteContent(reports ...*model.CrawlReport) *SiteContent {
	s := &SiteContent{entries: make(map[string]SiteContentEntry)}
	for _, r := range reports {
		s.Add(r)
	}
	return s
}

// Add appends the successful pages of report.
func (s *SiteContent) Add(report *model.CrawlReport) {
	if report == nil {
		return
	}
	for _, page := range report.Successful() {
		if _, exists := s.entries[page.URL]; exists {
			continue
		}
		links := make([]model.Link, len(page.Links))
		copy(links, page.Links)
		s.keys = append(s.keys, page.URL)
		s.entries[page.URL] = SiteContentEntry{URLText: links, FitMarkdown: page.Content}
	}
}

// Len returns the number of pages.
func (s *SiteContent) Len() int {
	return len(s.keys)
}

// Keys returns the page URLs in completion order.
func (s *SiteContent) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Entry returns the entry of a page URL.
func (s *SiteContent) Entry(pageURL string) (SiteContentEntry, bool) {
	e, ok := s.entries[pageURL]
	return e, ok
}

// WriteTo writes the object with two-space indentation. Non-ASCII text
// and HTML characters in markdown are written as-is.
func (s *SiteContent) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	if len(s.keys) == 0 {
		buf.WriteString("{}\n")
	} else {
		buf.WriteString("{\n")
		for i, key := range s.keys {
			k, err := encodeJSON(key, "")
			if err != nil {
				return 0, err
			}
			v, err := encodeJSON(s.entries[key], "  ")
			if err != nil {
				return 0, fmt.Errorf("failed to encode %s: %w", key, err)
			}
			buf.WriteString("  ")
			buf.Write(k)
			buf.WriteString(": ")
			buf.Write(v)
			if i < len(s.keys)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		buf.WriteString("}\n")
	}
	return buf.WriteTo(w)
}

// encodeJSON encodes v without HTML escaping, indented with prefix.
func encodeJSON(v any, prefix string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent(prefix, "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// SaveSiteContent writes content to path. Parent directories are created,
// and the file is replaced atomically so an interrupted write never leaves
// a truncated file behind.
func SaveSiteContent(path string, content *SiteContent) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success

	if _, err := content.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write site content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// SiteContentWriter writes the site content of each report it is given.
type SiteContentWriter struct {
	baseWriter
}

// NewSiteContentWriter creates a SiteContentWriter that outputs to the given writer.
func NewSiteContentWriter(output io.Writer) *SiteContentWriter {
	return &SiteContentWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the site content of report.
func (w *SiteContentWriter) Write(report *model.CrawlReport) (int, error) {
	n, err := NewSiteContent(report).WriteTo(w.output)
	return int(n), err
}
