package model

import "errors"

// Budget validation errors.
var (
	// ErrNegativeDepth is returned when MaxDepth is below zero.
	ErrNegativeDepth = errors.New("invalid budget: max depth must be non-negative")

	// ErrNonPositivePages is returned when MaxPages is zero or negative.
	ErrNonPositivePages = errors.New("invalid budget: max pages must be positive")

	// ErrNonPositiveConcurrency is returned when Concurrency is zero or negative.
	ErrNonPositiveConcurrency = errors.New("invalid budget: concurrency must be positive")
)

// CrawlBudget bounds a single crawl run.
// It is read-only once the crawl starts and shared by every worker.
type CrawlBudget struct {
	// MaxDepth is the maximum link distance from the seed.
	// 0 means only the seed page is fetched.
	MaxDepth int `json:"max_depth"`

	// MaxPages is the maximum number of successfully fetched pages.
	MaxPages int `json:"max_pages"`

	// Concurrency is the number of workers polling the frontier.
	Concurrency int `json:"concurrency"`
}

// Validate reports the first invalid field of the budget.
func (b CrawlBudget) Validate() error {
	if b.MaxDepth < 0 {
		return ErrNegativeDepth
	}
	if b.MaxPages <= 0 {
		return ErrNonPositivePages
	}
	if b.Concurrency <= 0 {
		return ErrNonPositiveConcurrency
	}
	return nil
}
