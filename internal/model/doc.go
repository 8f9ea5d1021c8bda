// Package model defines the core data structures used throughout webxtract.
//
// This package contains the following main types:
//   - CrawlBudget: The depth, page and concurrency limits of a crawl
//   - FetchConfig: Options handed to the page fetcher for every URL
//   - PageFetchOutcome: What the page fetcher returns for one URL
//   - PageResult: The per-URL record aggregated by the crawler
//   - CrawlReport: The final result of one crawl run
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawler, fetcher, database and report packages all need
// these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
