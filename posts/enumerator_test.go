package posts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeIndex serves a fixed newest-first post list, honoring the
// Before bound and the page size the way the real index does.
type fakeIndex struct {
	posts []Post
	calls int
	err   error
}

func (f *fakeIndex) Search(_ context.Context, _ Community, q Query) ([]Post, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []Post
	for _, p := range f.posts {
		if q.Before > 0 && p.CreatedUTC >= q.Before {
			continue
		}
		if q.After > 0 && p.CreatedUTC < q.After {
			continue
		}
		if len(out) == q.Limit {
			break
		}
		out = append(out, p)
	}
	return out, nil
}

func makePosts(timestamps ...int64) []Post {
	out := make([]Post, len(timestamps))
	for i, ts := range timestamps {
		out[i] = Post{ID: "t3_" + string(rune('a'+i)), CreatedUTC: ts}
	}
	return out
}

func collect(t *testing.T, e *Enumerator) []Post {
	t.Helper()
	var all []Post
	for !e.Done() {
		page, err := e.Next(context.Background())
		require.NoError(t, err)
		all = append(all, page...)
	}
	return all
}

func TestEnumeratorWalksPastSinglePageLimit(t *testing.T) {
	timestamps := make([]int64, 25)
	for i := range timestamps {
		timestamps[i] = int64(1000 - i)
	}
	index := &fakeIndex{posts: makePosts(timestamps...)}

	e := NewEnumerator(index, Community{Name: "pics"}, Filters{BatchSize: 10}, nil)
	all := collect(t, e)

	require.Len(t, all, 25)
	seen := make(map[string]struct{})
	for i, p := range all {
		_, dup := seen[p.ID]
		assert.False(t, dup, "duplicate post %s", p.ID)
		seen[p.ID] = struct{}{}
		if i > 0 {
			assert.LessOrEqual(t, p.CreatedUTC, all[i-1].CreatedUTC, "pages must stay newest-first")
		}
	}
}

func TestEnumeratorKeepsTiedTimestampsAcrossPages(t *testing.T) {
	// Two posts share the timestamp at a page boundary. Requesting the
	// next page bounded just above the cursor re-serves the boundary
	// posts, and the id set removes the overlap.
	index := &fakeIndex{posts: makePosts(5, 4, 4, 3, 2, 1)}

	e := NewEnumerator(index, Community{Name: "pics"}, Filters{BatchSize: 3}, nil)
	all := collect(t, e)

	require.Len(t, all, 6)
	ids := make(map[string]struct{})
	for _, p := range all {
		ids[p.ID] = struct{}{}
	}
	assert.Len(t, ids, 6)
}

func TestEnumeratorStopsAtAfterBound(t *testing.T) {
	index := &fakeIndex{posts: makePosts(300, 200, 100)}

	e := NewEnumerator(index, Community{Name: "pics"}, Filters{BatchSize: 10, After: 150}, nil)
	all := collect(t, e)

	require.Len(t, all, 2)
	assert.Equal(t, int64(300), all[0].CreatedUTC)
	assert.Equal(t, int64(200), all[1].CreatedUTC)
	assert.True(t, e.Done())
}

func TestEnumeratorEmptyIndex(t *testing.T) {
	index := &fakeIndex{}

	e := NewEnumerator(index, Community{Name: "pics"}, Filters{BatchSize: 10}, nil)
	page, err := e.Next(context.Background())

	require.NoError(t, err)
	assert.Empty(t, page)
	assert.True(t, e.Done())
	assert.Equal(t, 1, index.calls)
}

func TestEnumeratorTerminatesOnStuckCursor(t *testing.T) {
	// More posts share one timestamp than fit in a page. The cursor can
	// never decrease; enumeration must stop instead of looping.
	index := &fakeIndex{posts: makePosts(7, 7, 7, 7, 7)}

	e := NewEnumerator(index, Community{Name: "pics"}, Filters{BatchSize: 2}, nil)
	all := collect(t, e)

	assert.NotEmpty(t, all)
	assert.True(t, e.Done())
	assert.Less(t, index.calls, 10, "enumeration must terminate")
}

func TestEnumeratorReportsErrorAfterRetries(t *testing.T) {
	index := &fakeIndex{err: errors.New("boom")}

	e := NewEnumerator(index, Community{Name: "pics"}, Filters{BatchSize: 10}, nil)
	_, err := e.Next(context.Background())

	var enumErr *EnumerationError
	require.ErrorAs(t, err, &enumErr)
	assert.Equal(t, "pics", enumErr.Community.Name)
	assert.Equal(t, pageRetries, index.calls)
	assert.True(t, e.Done())
}
