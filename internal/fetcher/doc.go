// Package fetcher implements the HTTP page fetcher used by the crawler.
//
// For each page the fetcher:
//
//   - downloads the document, sending per-site cookies and headers
//   - removes excluded tags, scripts and overlay elements (goquery)
//   - resolves and classifies anchors as internal, external or social
//   - converts the cleaned document to markdown (raw markdown)
//   - reduces it with the configured content filter (fit markdown)
//
// A markdown conversion failure does not fail the fetch. The outcome keeps
// its links and reports the failure in MarkdownError.
//
// Requests can be routed through Tor by passing a tor.Client. The proxy is
// then checked once in Start, before the crawl begins.
package fetcher
