package crawler

import (
	"context"
	"errors"

	"github.com/nao1215/webxtract/internal/model"
)

// worker pulls entries from the frontier until it is stopped or the
// frontier has nothing more to give.
func (o *Orchestrator) worker(ctx context.Context, st *crawlState, id int) {
	logger := o.logger.With("worker", id)
	logger.Debug("worker started")
	defer logger.Debug("worker stopped")

	for {
		if st.stopping.Load() {
			return
		}

		entry, ok := st.frontier.Pop()
		if !ok {
			return
		}

		if o.visit(ctx, st, entry) {
			st.frontier.Done(entry)
		} else {
			st.frontier.Discard(entry)
		}
	}
}

// visit fetches one entry, records its result and enqueues its children.
// It returns false when the entry was dropped unvisited because the crawl
// is stopping, was cancelled or ran out of page budget.
func (o *Orchestrator) visit(ctx context.Context, st *crawlState, entry Entry) bool {
	if st.stopping.Load() || ctx.Err() != nil {
		return false
	}
	if entry.Depth > o.budget.MaxDepth {
		o.logger.Debug("skipping entry beyond max depth", "url", entry.URL, "depth", entry.Depth)
		return true
	}

	// Admission is reserved before the fetch so that the number of
	// successful pages never passes MaxPages.
	if !st.budget.acquire() {
		return false
	}

	outcome, err := o.fetch(ctx, st, entry.URL)
	if errors.Is(err, errNotStarted) {
		st.budget.release()
		return false
	}

	var result *model.PageResult
	if err != nil {
		result = model.NewFailedPageResult(entry.URL, entry.Depth, &FetchError{URL: entry.URL, Err: err})
	} else {
		result = model.NewPageResult(entry.URL, entry.Depth, outcome)
	}

	if !result.Success {
		st.budget.release()
		o.record(st, result, st.budget.count())
		o.logger.Warn("failed to crawl page", "url", entry.URL, "error", result.Error)
		return true
	}

	crawled := st.budget.commit()
	o.record(st, result, crawled)
	if result.Warning != "" {
		o.logger.Warn("markdown extraction failed", "url", entry.URL, "error", result.Warning)
	}
	o.logger.Info("crawled page",
		"url", entry.URL,
		"depth", entry.Depth,
		"links", len(result.Links),
		"raw_markdown_length", len(result.RawMarkdown),
		"fit_markdown_length", len(result.Content),
	)

	o.enqueueChildren(st, entry, result.Links)
	return true
}

// errNotStarted means the crawl was cancelled while waiting to fetch.
var errNotStarted = errors.New("fetch not started")

// fetch waits for the politeness limiter and a fetch slot, then calls the
// fetcher. The fetch itself ignores cancellation of ctx so that a started
// fetch always completes.
func (o *Orchestrator) fetch(ctx context.Context, st *crawlState, pageURL string) (*model.PageFetchOutcome, error) {
	if st.limiter != nil {
		if err := st.limiter.Wait(ctx); err != nil {
			return nil, errNotStarted
		}
	}
	if err := st.fetchSem.Acquire(ctx, 1); err != nil {
		return nil, errNotStarted
	}
	defer st.fetchSem.Release(1)

	if st.stopping.Load() {
		return nil, errNotStarted
	}

	o.logger.Debug("fetching page", "url", pageURL)
	return o.fetcher.Fetch(context.WithoutCancel(ctx), pageURL, o.fetchConfig)
}

func (o *Orchestrator) record(st *crawlState, result *model.PageResult, crawled int) {
	if !st.report.AddResult(result) {
		o.logger.Warn("duplicate page result ignored", "url", result.URL)
		return
	}
	if o.callback != nil {
		o.callback(result, crawled)
	}
}

// enqueueChildren pushes the unvisited internal links of a page.
// Nothing is pushed once the page budget is exhausted or the child would
// exceed the depth budget.
func (o *Orchestrator) enqueueChildren(st *crawlState, parent Entry, links []model.Link) {
	depth := parent.Depth + 1
	if depth > o.budget.MaxDepth {
		return
	}

	pushed := 0
	for _, link := range links {
		if st.budget.isExhausted() {
			break
		}

		child := NormalizeURL(link.Href)
		if !st.filter.allows(child) {
			continue
		}
		if !st.visited.TryMark(child) {
			continue
		}
		if st.frontier.Push(Entry{URL: child, Depth: depth}) {
			pushed++
		}
	}

	if pushed > 0 {
		o.logger.Debug("enqueued links", "parent", parent.URL, "count", pushed, "depth", depth)
	}
}
