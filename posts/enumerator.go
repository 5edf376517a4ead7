package posts

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/agnosto/redditrip/logger"
)

const pageRetries = 3

// Filters is the immutable date and size configuration of one run.
type Filters struct {
	After     int64
	Before    int64
	Selfposts bool
	BatchSize int
}

// An EnumerationError is fatal to the enumeration of one community.
// Jobs already scheduled are unaffected by it.
type EnumerationError struct {
	Community Community
	Err       error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("enumeration of %s failed: %v", e.Community, e.Err)
}

func (e *EnumerationError) Unwrap() error { return e.Err }

// Enumerator walks the search index newest-first in cursor-bounded
// pages. Repeated bounded queries walk arbitrarily far back in time,
// past the total-result cap the index imposes on single queries.
//
// The cursor is the oldest created_utc seen so far. The next page is
// requested with an upper bound of cursor+1 so that posts sharing the
// boundary timestamp are not silently dropped; the overlap this
// produces is removed by a rolling per-page id set.
type Enumerator struct {
	index     SearchIndex
	community Community
	filters   Filters
	limiter   *rate.Limiter

	cursor  int64
	started bool
	done    bool
	seen    map[string]struct{}
}

func NewEnumerator(index SearchIndex, community Community, filters Filters, limiter *rate.Limiter) *Enumerator {
	return &Enumerator{
		index:     index,
		community: community,
		filters:   filters,
		limiter:   limiter,
	}
}

// Done reports whether the enumeration has terminated.
func (e *Enumerator) Done() bool { return e.done }

// Next returns the next filtered page, newest-first. It returns an
// empty page with a nil error once the index is exhausted; callers
// should check Done. Page requests are retried with backoff; once the
// retries are exhausted the enumeration terminates with an
// EnumerationError.
func (e *Enumerator) Next(ctx context.Context) ([]Post, error) {
	if e.done {
		return nil, nil
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			e.done = true
			return nil, &EnumerationError{Community: e.community, Err: err}
		}
	}

	page, err := e.fetchPage(ctx)
	if err != nil {
		e.done = true
		return nil, &EnumerationError{Community: e.community, Err: err}
	}
	if len(page) == 0 {
		e.done = true
		return nil, nil
	}

	out := make([]Post, 0, len(page))
	minCreated := page[0].CreatedUTC
	for _, p := range page {
		if p.CreatedUTC < minCreated {
			minCreated = p.CreatedUTC
		}
		if e.started && p.CreatedUTC > e.cursor {
			// Boundary overlap from the previous page.
			continue
		}
		if _, dup := e.seen[p.ID]; dup {
			continue
		}
		if e.filters.After > 0 && p.CreatedUTC < e.filters.After {
			// Pages are newest-first: every remaining post is older.
			e.done = true
			return out, nil
		}
		out = append(out, p)
	}

	if e.started && minCreated >= e.cursor {
		// The cursor failed to decrease. Either the index is
		// exhausted or it is misbehaving; looping here would never
		// terminate.
		logger.Logger.Debugf("Cursor for %s did not decrease (%d), stopping", e.community, minCreated)
		e.done = true
		return out, nil
	}
	e.cursor = minCreated
	e.started = true

	if len(page) < e.filters.BatchSize {
		// A short page signals exhaustion.
		e.done = true
	}

	e.seen = make(map[string]struct{}, len(page))
	for _, p := range page {
		e.seen[p.ID] = struct{}{}
	}

	return out, nil
}

func (e *Enumerator) fetchPage(ctx context.Context) ([]Post, error) {
	before := e.filters.Before
	if e.started {
		before = e.cursor + 1
	}
	q := Query{
		Before:    before,
		After:     e.filters.After,
		Limit:     e.filters.BatchSize,
		Selfposts: e.filters.Selfposts,
	}

	var lastErr error
	for attempt := 0; attempt < pageRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Second << (attempt - 1)
			logger.Logger.Warnf("Retrying page request for %s in %s: %v", e.community, backoff, lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		page, err := e.index.Search(ctx, e.community, q)
		if err == nil {
			return page, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
