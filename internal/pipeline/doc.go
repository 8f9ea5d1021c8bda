// Package pipeline runs the per-seed stages of a crawl in sequence.
//
// Each seed becomes a Job that passes through the pipeline's steps:
// crawling the site, then persisting the report. Each step receives the
// job and may fill in or annotate its report.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
//  1. It allows easy addition/removal of steps without modifying core logic
//  2. It provides consistent error handling and logging across steps
//  3. It supports cancellation via context for long-running crawls
//
// The pipeline supports both individual seeds and batch processing with
// concurrency control using errgroup.
package pipeline
