// Package database provides SQLite-based storage for crawl runs.
//
// This package implements the CrawlDB, which stores:
//   - One row per crawl run (seed, budget, termination reason)
//   - One row per fetched URL of a run, in completion order
//
// Stored runs back the history and export commands: a run can be listed
// later and its JSON site content re-emitted without crawling again.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
//  1. No external dependencies - the database is a single file
//  2. CGO-free implementation allows easy cross-compilation
//  3. Sufficient performance for our use case
//  4. WAL mode provides good concurrent read performance
package database
