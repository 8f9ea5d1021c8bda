// Package crawler implements bounded, polite, breadth-first crawling of a
// website's internal link graph.
//
// # Architecture
//
// The Orchestrator owns one run's shared state and a fixed pool of workers:
//
//   - Frontier: FIFO queue of (URL, depth) entries with drain detection
//   - VisitedSet: atomic check-and-set deduplication of URLs
//   - page budget: reservation based cap on successfully fetched pages
//   - workers: pop, fetch through the PageFetcher, record, enqueue children
//
// Fetching, markdown extraction and link classification are delegated to a
// PageFetcher. The crawler only sees the internal links it returns.
//
// # Ordering
//
// The frontier hands out entries level by level. An entry at depth d is
// not popped while an entry shallower than d is still in flight, so
// workers can sit idle at a level boundary until the slowest fetch of the
// previous level returns. Within a level entries are handed out in FIFO
// order.
//
// # Lifecycle
//
// A run moves through Seeding, Running, Draining, Cancelling and Done. It
// leaves Running when the frontier drains, when MaxPages pages succeeded or
// when the context is cancelled. Draining lets in-flight fetches finish,
// Cancelling stops idle workers and waits for all of them to exit.
//
// Exactly one of Drained, BudgetExhausted and Cancelled is set on the final
// report. The commit that uses the last page closes the frontier, and an
// entry dropped unvisited (budget closed, crawl cancelled) keeps the
// frontier from ever reporting drained.
//
// # Politeness
//
//   - Fetch concurrency can be lower than the worker count
//   - A minimum delay between fetch starts (rate limiter)
//   - Only the seed's host is crawled
//   - Ignore and follow path patterns
//
// # Usage
//
//	o := crawler.NewOrchestrator(fetcher, crawler.WithMaxDepth(2), crawler.WithMaxPages(50))
//	report, err := o.Run(ctx, "https://example.com")
package crawler
