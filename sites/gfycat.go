package sites

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/agnosto/redditrip/logger"
	"github.com/agnosto/redditrip/posts"
	"github.com/agnosto/redditrip/web"
)

// gfycatHandler downloads gfycat.com videos. Well-formed ids can be
// fetched straight from the CDN; everything else goes through the
// lookup API first.
type gfycatHandler struct{}

func (gfycatHandler) Name() string { return "gfycat.com" }

func (gfycatHandler) Extension(_ *posts.Post, opts Options) string {
	return "." + opts.GfycatType
}

func (gfycatHandler) Fetch(ctx context.Context, f *web.Fetcher, p *posts.Post, dest string, opts Options) (string, int64, error) {
	id, wellFormed := extractGfyID(urlPath(p.URL))
	if wellFormed {
		logger.Logger.Debugf("Trying to download directly from gfycat %s", id)
		direct := fmt.Sprintf("https://giant.gfycat.com/%s.%s", id, opts.GfycatType)
		if n, _, err := f.SaveToFile(ctx, direct, dest); err == nil {
			return dest, n, nil
		}
	}
	n, err := gfyAPI(ctx, f, "https://api.gfycat.com/v1/gfycats/"+id, dest, opts.GfycatType)
	return dest, n, err
}

// redgifsHandler is the redgifs.com twin of gfycatHandler.
type redgifsHandler struct{}

func (redgifsHandler) Name() string { return "redgifs.com" }

func (redgifsHandler) Extension(_ *posts.Post, opts Options) string {
	return "." + opts.GfycatType
}

func (redgifsHandler) Fetch(ctx context.Context, f *web.Fetcher, p *posts.Post, dest string, opts Options) (string, int64, error) {
	path := urlPath(p.URL)
	path = strings.TrimPrefix(path, "/watch")
	if path == "" {
		return dest, 0, fmt.Errorf("malformed URL %q", p.URL)
	}
	id, wellFormed := extractGfyID(path)
	if wellFormed {
		logger.Logger.Debugf("Trying to download directly from redgifs %s", id)
		direct := fmt.Sprintf("https://thumbs1.redgifs.com/%s.%s", id, opts.GfycatType)
		if n, _, err := f.SaveToFile(ctx, direct, dest); err == nil {
			return dest, n, nil
		}
	}
	n, err := gfyAPI(ctx, f, "https://api.redgifs.com/v1/gfycats/"+id, dest, opts.GfycatType)
	return dest, n, err
}

func urlPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Path
}

// extractGfyID pulls the gfycat id out of a URL path. Ids appear
// all-lowercase, camel-cased, or with the title appended after a
// dash; only camel-cased ids can be used against the CDN directly.
func extractGfyID(path string) (string, bool) {
	id := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(id, '-'); i >= 0 {
		id = id[:i]
	}
	return id, strings.ContainsFunc(id, func(r rune) bool { return r >= 'A' && r <= 'Z' })
}

// gfyAPI resolves the video URL through the lookup API, then fetches
// it. Rate limits may be encountered because anonymous API use is
// throttled.
func gfyAPI(ctx context.Context, f *web.Fetcher, apiURL, dest, mediaType string) (int64, error) {
	logger.Logger.Debugf("Querying gfycat API about %s", apiURL)

	var lookup struct {
		GfyItem struct {
			Mp4URL  string `json:"mp4Url"`
			WebmURL string `json:"webmUrl"`
		} `json:"gfyItem"`
	}
	if err := f.JSON(ctx, apiURL, &lookup); err != nil {
		return 0, err
	}

	videoURL := lookup.GfyItem.Mp4URL
	if mediaType == "webm" {
		videoURL = lookup.GfyItem.WebmURL
	}
	if videoURL == "" {
		return 0, fmt.Errorf("lookup API returned no %s URL", mediaType)
	}
	n, _, err := f.SaveToFile(ctx, videoURL, dest)
	return n, err
}
