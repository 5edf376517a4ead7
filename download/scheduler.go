package download

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/agnosto/redditrip/logger"
	"github.com/agnosto/redditrip/posts"
	"github.com/agnosto/redditrip/sites"
	"github.com/agnosto/redditrip/title"
	"github.com/agnosto/redditrip/web"
)

// Config fixes the run-wide scheduler parameters.
type Config struct {
	// OutputDir receives the downloads. Each community gets a
	// subdirectory unless NoParent is set.
	OutputDir string
	NoParent  bool

	// Update stops a community at the first already existing file:
	// with newest-first enumeration everything older is already
	// downloaded.
	Update bool

	// BatchSize bounds the number of simultaneously running jobs.
	BatchSize int

	// MaxFileNameLength is the file name budget in bytes.
	MaxFileNameLength int

	// ShowProgress renders a progress bar on stderr.
	ShowProgress bool

	// OnEvent, when set, receives every per-job terminal event. It
	// may be called from multiple goroutines.
	OnEvent func(Event)
}

// Scheduler converts enumerated posts into download jobs and runs
// them on a bounded worker pool.
//
// A single driver goroutine advances the enumerator and submits jobs;
// submission blocks on the pool semaphore when BatchSize jobs are in
// flight, which is what bounds open connections and descriptors. Jobs
// are independent: one failure never cancels another.
type Scheduler struct {
	index   posts.SearchIndex
	fetcher *web.Fetcher
	titles  *title.Title
	filters posts.Filters
	opts    sites.Options
	cfg     Config
	limiter *rate.Limiter
}

func NewScheduler(index posts.SearchIndex, fetcher *web.Fetcher, titles *title.Title, filters posts.Filters, opts sites.Options, cfg Config, limiter *rate.Limiter) *Scheduler {
	return &Scheduler{
		index:   index,
		fetcher: fetcher,
		titles:  titles,
		filters: filters,
		opts:    opts,
		cfg:     cfg,
		limiter: limiter,
	}
}

// Run rips one community to disk and reports the aggregate result.
// Router rejections and existing files count as skips; job failures
// are recorded and the run continues. Only enumeration errors are
// fatal, and even then jobs already in flight finish and are counted.
func (s *Scheduler) Run(ctx context.Context, community posts.Community) (Summary, error) {
	dir := s.cfg.OutputDir
	if !s.cfg.NoParent {
		dir = filepath.Join(dir, community.Name)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Summary{}, err
	}

	logger.Logger.Infof("Started ripping %s to %s", community, dir)

	var bar *progressbar.ProgressBar
	if s.cfg.ShowProgress {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Downloading "+community.String()),
			progressbar.OptionSetWidth(15),
			progressbar.OptionShowCount(),
			progressbar.OptionSpinnerType(14),
		)
	}

	agg := &aggregator{onEvent: s.cfg.OnEvent, bar: bar}
	sem := semaphore.NewWeighted(int64(s.cfg.BatchSize))
	var wg sync.WaitGroup

	enum := posts.NewEnumerator(s.index, community, s.filters, s.limiter)
	var enumErr error

drive:
	for !enum.Done() {
		if ctx.Err() != nil {
			break
		}
		page, err := enum.Next(ctx)
		if err != nil {
			enumErr = err
			break
		}

		for i := range page {
			post := page[i]

			handler, rejection := sites.Route(&post, s.opts)
			if rejection != nil {
				logger.Logger.Debugf("Skipping post %s: %s", post.ID, rejection)
				agg.record(Event{PostID: post.ID, Outcome: OutcomeSkipped})
				continue
			}

			ext := handler.Extension(&post, s.opts)
			stem := s.titles.Format(&post, s.cfg.MaxFileNameLength-len(ext))
			dest := filepath.Join(dir, stem+ext)

			if _, err := os.Stat(dest); err == nil {
				if s.cfg.Update {
					// Everything older than this post is already on
					// disk; stop scheduling for this community.
					logger.Logger.Infof("File already exists: %s", filepath.Base(dest))
					break drive
				}
				logger.Logger.Debugf("Skipping existing file %s", filepath.Base(dest))
				agg.record(Event{PostID: post.ID, Path: dest, Outcome: OutcomeSkipped})
				continue
			}

			// Backpressure: blocks while BatchSize jobs are running.
			if err := sem.Acquire(ctx, 1); err != nil {
				break drive
			}
			wg.Add(1)
			go func(j job) {
				defer wg.Done()
				defer sem.Release(1)
				s.runJob(ctx, j, agg)
			}(job{post: post, handler: handler, dest: dest})
		}
	}

	wg.Wait()
	if bar != nil {
		bar.Finish()
		bar.Clear()
	}

	return agg.summary, enumErr
}

func (s *Scheduler) runJob(ctx context.Context, j job, agg *aggregator) {
	finalPath, n, err := j.handler.Fetch(ctx, s.fetcher, &j.post, j.dest, s.opts)
	if err != nil {
		logger.Logger.Warnf("Failed to retrieve %s: %v", j.post.URL, err)
		agg.recordFailure(Event{PostID: j.post.ID, Path: finalPath, Outcome: OutcomeFailed, Err: err}, FailureDetail{
			PostID: j.post.ID,
			URL:    j.post.URL,
			Stage:  j.handler.Name(),
			Err:    err,
		})
		return
	}
	logger.Logger.Infof("Saved %s", filepath.Base(finalPath))
	agg.recordBytes(Event{PostID: j.post.ID, Path: finalPath, Outcome: OutcomeCompleted}, n)
}

// aggregator is the only state shared between workers. It supports
// append and final read.
type aggregator struct {
	mu      sync.Mutex
	summary Summary
	onEvent func(Event)
	bar     *progressbar.ProgressBar
}

func (a *aggregator) record(ev Event) {
	a.mu.Lock()
	a.apply(ev)
	a.mu.Unlock()
	a.emit(ev)
}

func (a *aggregator) recordBytes(ev Event, n int64) {
	a.mu.Lock()
	a.apply(ev)
	a.summary.Bytes += n
	a.mu.Unlock()
	a.emit(ev)
}

func (a *aggregator) recordFailure(ev Event, detail FailureDetail) {
	a.mu.Lock()
	a.apply(ev)
	a.summary.Failures = append(a.summary.Failures, detail)
	a.mu.Unlock()
	a.emit(ev)
}

func (a *aggregator) apply(ev Event) {
	switch ev.Outcome {
	case OutcomeCompleted:
		a.summary.Completed++
	case OutcomeSkipped:
		a.summary.Skipped++
	case OutcomeFailed:
		a.summary.Failed++
	}
}

func (a *aggregator) emit(ev Event) {
	if a.bar != nil && ev.Outcome != OutcomeSkipped {
		a.bar.Add(1)
	}
	if a.onEvent != nil {
		a.onEvent(ev)
	}
}
