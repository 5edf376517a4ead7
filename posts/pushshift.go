package posts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/agnosto/redditrip/logger"
	"github.com/agnosto/redditrip/web"
)

// DefaultIndexURL is the public Pushshift endpoint.
const DefaultIndexURL = "https://api.pushshift.io"

// SearchIndex is the search capability the enumerator paginates over.
// Pages are returned newest-first; the page size is capped by the
// index itself, independent of any total-result limit.
type SearchIndex interface {
	Search(ctx context.Context, c Community, q Query) ([]Post, error)
}

// Query is one page request against the search index.
type Query struct {
	// Before is the exclusive upper bound on created_utc; 0 means now.
	Before int64

	// After is the inclusive lower bound on created_utc; 0 means none.
	After int64

	// Limit is the requested page size.
	Limit int

	// Selfposts includes self posts in the result.
	Selfposts bool
}

// Pushshift queries the Pushshift submission search API.
type Pushshift struct {
	fetcher *web.Fetcher
	baseURL string
}

func NewPushshift(fetcher *web.Fetcher, baseURL string) *Pushshift {
	if baseURL == "" {
		baseURL = DefaultIndexURL
	}
	return &Pushshift{fetcher: fetcher, baseURL: baseURL}
}

type searchResponse struct {
	Data []json.RawMessage `json:"data"`
}

func (ps *Pushshift) Search(ctx context.Context, c Community, q Query) ([]Post, error) {
	values := url.Values{}
	values.Set("sort_type", "created_utc")
	values.Set("sort", "desc")
	values.Set("size", strconv.Itoa(q.Limit))
	if c.Kind == KindProfile {
		values.Set("author", c.Name)
	} else {
		values.Set("subreddit", c.Name)
	}
	if !q.Selfposts {
		values.Set("is_self", "false")
	}
	if q.Before > 0 {
		values.Set("before", strconv.FormatInt(q.Before, 10))
	}
	if q.After > 0 {
		values.Set("after", strconv.FormatInt(q.After, 10))
	}

	requestURL := ps.baseURL + "/reddit/search/submission?" + values.Encode()

	var response searchResponse
	if err := ps.fetcher.JSON(ctx, requestURL, &response); err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}

	logger.Logger.Debugf("Read %d posts from %s", len(response.Data), c)

	page := make([]Post, 0, len(response.Data))
	for _, raw := range response.Data {
		post, err := decodePost(raw)
		if err != nil {
			return nil, err
		}
		page = append(page, post)
	}
	return page, nil
}
