package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/webxtract/internal/model"
)

// reportingStep creates a report for the job's seed.
func reportingStep(do func(ctx context.Context, job *Job) error) *mockStep {
	return &mockStep{name: "crawl", doFunc: func(ctx context.Context, job *Job) error {
		job.Report = model.NewCrawlReport(job.Seed, model.CrawlBudget{})
		if do != nil {
			return do(ctx, job)
		}
		return nil
	}}
}

// TestBatchProcessorNew tests the BatchProcessor constructor.
func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	t.Run("defaults to sequential crawling", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() })
		if bp.concurrency != DefaultBatchConcurrency {
			t.Errorf("expected concurrency %d, got %d", DefaultBatchConcurrency, bp.concurrency)
		}
		if bp.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() }, WithConcurrency(0), WithConcurrency(-3))
		if bp.concurrency != DefaultBatchConcurrency {
			t.Errorf("expected default concurrency, got %d", bp.concurrency)
		}
	})

	t.Run("applies options", func(t *testing.T) {
		t.Parallel()

		logger := discardLogger()
		bp := NewBatchProcessor(func() *Pipeline { return New() }, WithConcurrency(4), WithBatchLogger(logger))
		if bp.concurrency != 4 {
			t.Errorf("expected concurrency 4, got %d", bp.concurrency)
		}
		if bp.logger != logger {
			t.Error("expected custom logger")
		}
	})
}

// TestBatchProcessorProcessBatch tests batch crawling.
func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("returns jobs in seed order", func(t *testing.T) {
		t.Parallel()

		factory := func() *Pipeline {
			p := New(WithLogger(discardLogger()))
			p.AddStep(reportingStep(nil))
			return p
		}
		bp := NewBatchProcessor(factory, WithConcurrency(3), WithBatchLogger(discardLogger()))

		seeds := []string{"https://a.test/", "https://b.test/", "https://c.test/", "https://d.test/"}
		jobs, err := bp.ProcessBatch(t.Context(), seeds)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(jobs) != len(seeds) {
			t.Fatalf("expected %d jobs, got %d", len(seeds), len(jobs))
		}
		for i, job := range jobs {
			if job.Seed != seeds[i] || job.Index != i {
				t.Errorf("job %d: got seed %q index %d", i, job.Seed, job.Index)
			}
			if job.Report == nil || job.Report.Seed != seeds[i] {
				t.Errorf("job %d: expected its own report", i)
			}
		}
	})

	t.Run("one failing seed does not stop the others", func(t *testing.T) {
		t.Parallel()

		errBroken := errors.New("broken seed")
		factory := func() *Pipeline {
			p := New(WithLogger(discardLogger()))
			p.AddStep(&mockStep{name: "crawl", doFunc: func(_ context.Context, job *Job) error {
				if job.Seed == "https://broken.test/" {
					return errBroken
				}
				job.Report = model.NewCrawlReport(job.Seed, model.CrawlBudget{})
				return nil
			}})
			return p
		}
		bp := NewBatchProcessor(factory, WithConcurrency(2), WithBatchLogger(discardLogger()))

		jobs, err := bp.ProcessBatch(t.Context(), []string{"https://ok.test/", "https://broken.test/", "https://fine.test/"})
		if err != nil {
			t.Fatalf("unexpected batch error: %v", err)
		}
		if !errors.Is(jobs[1].Err, errBroken) || jobs[1].Report != nil {
			t.Errorf("expected failed job without report, got %+v", jobs[1])
		}
		if jobs[0].Report == nil || jobs[2].Report == nil {
			t.Error("expected other seeds to complete")
		}
	})

	t.Run("respects the concurrency limit", func(t *testing.T) {
		t.Parallel()

		var active, peak atomic.Int32
		factory := func() *Pipeline {
			p := New(WithLogger(discardLogger()))
			p.AddStep(reportingStep(func(context.Context, *Job) error {
				n := active.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				active.Add(-1)
				return nil
			}))
			return p
		}
		bp := NewBatchProcessor(factory, WithConcurrency(2), WithBatchLogger(discardLogger()))

		seeds := []string{"https://1.test/", "https://2.test/", "https://3.test/", "https://4.test/", "https://5.test/"}
		if _, err := bp.ProcessBatch(t.Context(), seeds); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak.Load() > 2 {
			t.Errorf("expected at most 2 concurrent crawls, saw %d", peak.Load())
		}
	})

	t.Run("cancelled context marks unstarted seeds", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		var started atomic.Int32
		factory := func() *Pipeline {
			p := New(WithLogger(discardLogger()))
			p.AddStep(reportingStep(func(context.Context, *Job) error {
				started.Add(1)
				cancel()
				return nil
			}))
			return p
		}
		bp := NewBatchProcessor(factory, WithBatchLogger(discardLogger()))

		jobs, err := bp.ProcessBatch(ctx, []string{"https://a.test/", "https://b.test/", "https://c.test/"})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if started.Load() != 1 {
			t.Errorf("expected only the first seed to start, got %d", started.Load())
		}
		if jobs[0].Report == nil {
			t.Error("expected first seed to keep its report")
		}
		for _, job := range jobs[1:] {
			if job == nil || !errors.Is(job.Err, context.Canceled) || job.Report != nil {
				t.Errorf("expected unstarted job with cancellation error, got %+v", job)
			}
		}
	})
}

// TestBatchProcessorProcessBatchWithCallback tests streaming results.
func TestBatchProcessorProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	factory := func() *Pipeline {
		p := New(WithLogger(discardLogger()))
		p.AddStep(reportingStep(nil))
		return p
	}
	bp := NewBatchProcessor(factory, WithConcurrency(2), WithBatchLogger(discardLogger()))

	var (
		mu   sync.Mutex
		seen = make(map[int]string)
	)
	err := bp.ProcessBatchWithCallback(t.Context(), []string{"https://a.test/", "https://b.test/"}, func(job *Job) {
		mu.Lock()
		defer mu.Unlock()
		seen[job.Index] = job.Seed
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) != 2 || seen[0] != "https://a.test/" || seen[1] != "https://b.test/" {
		t.Errorf("unexpected callbacks %v", seen)
	}
}
