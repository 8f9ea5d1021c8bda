// Package main provides the entry point for the webxtract CLI.
//
// webxtract crawls a website breadth-first within a depth and page budget
// and extracts every page as markdown together with its internal links.
//
// Usage:
//
//	webxtract crawl <url>
//	webxtract crawl --depth 2 --max-pages 50 <url> <url>
//
// See --help for all available options.
package main

// main is the entry point for webxtract.
func main() {
	Execute()
}
