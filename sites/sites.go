// Package sites routes posts to content handlers by destination
// domain and implements the per-site download strategies.
package sites

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agnosto/redditrip/posts"
	"github.com/agnosto/redditrip/web"
)

// Options selects and parameterizes handlers. It is fixed for the
// whole run.
type Options struct {
	// Allow restricts downloads to these hosts when non-empty.
	Allow map[string]struct{}

	// Exclude rejects downloads from these hosts.
	Exclude map[string]struct{}

	// Selfposts dumps self posts to text files.
	Selfposts bool

	// Force downloads from unsupported domains by writing whatever
	// the page returns to disk.
	Force bool

	// GfycatType is "mp4" or "webm".
	GfycatType string

	// VRedditMode is "no-audio", "ffmpeg", "hls", or a URL template
	// containing "{}" for the video id.
	VRedditMode string

	// TempDir holds intermediate files for multi-stage downloads.
	TempDir string
}

// RejectReason classifies why the router produced no handler.
// Rejections are skips, never errors.
type RejectReason int

const (
	RejectSelfPost RejectReason = iota
	RejectExcludedDomain
	RejectNotAllowed
	RejectUnsupportedDomain
	RejectInvalidURL
)

// Rejection is the router's alternative to a handler.
type Rejection struct {
	Reason RejectReason
	Detail string
}

func (r *Rejection) String() string {
	switch r.Reason {
	case RejectSelfPost:
		return "self post (pass --selfposts to download)"
	case RejectExcludedDomain:
		return fmt.Sprintf("excluded domain %q", r.Detail)
	case RejectNotAllowed:
		return fmt.Sprintf("domain %q not in the allow list", r.Detail)
	case RejectUnsupportedDomain:
		return fmt.Sprintf("unsupported domain %q", r.Detail)
	case RejectInvalidURL:
		return fmt.Sprintf("invalid URL %q", r.Detail)
	}
	return "rejected"
}

// Handler is one content-retrieval strategy.
type Handler interface {
	Name() string

	// Extension returns the file extension including the leading dot,
	// or "" when it is only known after the fetch.
	Extension(p *posts.Post, opts Options) string

	// Fetch downloads the post content to dest. It returns the final
	// path, which may differ from dest when the extension is guessed
	// from the response, and the number of bytes written.
	Fetch(ctx context.Context, f *web.Fetcher, p *posts.Post, dest string, opts Options) (string, int64, error)
}

var handlerTable = map[string]Handler{
	"i.redd.it":           directHandler{},
	"v.redd.it":           redditVideoHandler{},
	"i.imgur.com":         imgurDirectHandler{},
	"imgur.com":           imgurAlbumHandler{},
	"gfycat.com":          gfycatHandler{},
	"giant.gfycat.com":    directHandler{},
	"thumbs.gfycat.com":   directHandler{},
	"redgifs.com":         redgifsHandler{},
	"thumbs1.redgifs.com": directHandler{},
	"i.pinimg.com":        directHandler{},
	"i.postimg.cc":        directHandler{},
}

// Route selects the handler for a post, or explains the rejection.
// It is pure: no network access happens here.
func Route(p *posts.Post, opts Options) (Handler, *Rejection) {
	if p.IsSelf {
		if opts.Selfposts {
			return selfTextHandler{}, nil
		}
		return nil, &Rejection{Reason: RejectSelfPost}
	}

	u, err := url.Parse(p.URL)
	if err != nil || u.Host == "" {
		return nil, &Rejection{Reason: RejectInvalidURL, Detail: p.URL}
	}
	host := strings.ToLower(u.Hostname())

	if len(opts.Exclude) > 0 {
		if _, ok := opts.Exclude[host]; ok {
			return nil, &Rejection{Reason: RejectExcludedDomain, Detail: host}
		}
	}
	if len(opts.Allow) > 0 {
		if _, ok := opts.Allow[host]; !ok {
			return nil, &Rejection{Reason: RejectNotAllowed, Detail: host}
		}
	}

	if h, ok := lookupHandler(host); ok {
		return h, nil
	}
	if opts.Force {
		return rawHandler{}, nil
	}
	return nil, &Rejection{Reason: RejectUnsupportedDomain, Detail: host}
}

// lookupHandler matches host against the table, longest suffix first:
// the full host is checked before progressively dropping its leading
// labels.
func lookupHandler(host string) (Handler, bool) {
	for {
		if h, ok := handlerTable[host]; ok {
			return h, true
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			return nil, false
		}
		host = host[i+1:]
	}
}

// SupportedDomains lists the handled domains for --domains output.
func SupportedDomains() string {
	domains := make([]string, 0, len(handlerTable))
	for d := range handlerTable {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return strings.Join(domains, "\n")
}

// extFromURL extracts the extension from the last path segment, or ""
// when the segment has none.
func extFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return ""
	}
	return path.Ext(base)
}

// directHandler saves the linked bytes as-is. Used for image and
// video hosts that serve the file at the post URL.
type directHandler struct{}

func (directHandler) Name() string { return "direct" }

func (directHandler) Extension(p *posts.Post, _ Options) string {
	return extFromURL(p.URL)
}

func (directHandler) Fetch(ctx context.Context, f *web.Fetcher, p *posts.Post, dest string, _ Options) (string, int64, error) {
	n, _, err := f.SaveToFile(ctx, p.URL, dest)
	return dest, n, err
}

// selfTextHandler serializes the selftext body to a text file.
type selfTextHandler struct{}

func (selfTextHandler) Name() string { return "selftext" }

func (selfTextHandler) Extension(*posts.Post, Options) string { return ".txt" }

func (selfTextHandler) Fetch(_ context.Context, _ *web.Fetcher, p *posts.Post, dest string, _ Options) (string, int64, error) {
	if p.Selftext == "" && !p.IsSelf {
		return dest, 0, fmt.Errorf("malformed self post: field 'selftext' missing")
	}
	n, err := web.WriteAtomic(dest, strings.NewReader(p.Selftext))
	return dest, n, err
}

// rawHandler is the forced fallback for unsupported domains: it
// stores whatever the URL returns, guessing the extension from the
// response content type when the URL has none.
type rawHandler struct{}

func (rawHandler) Name() string { return "raw" }

func (rawHandler) Extension(p *posts.Post, _ Options) string {
	return extFromURL(p.URL)
}

func (rawHandler) Fetch(ctx context.Context, f *web.Fetcher, p *posts.Post, dest string, _ Options) (string, int64, error) {
	contentType, body, err := f.Stream(ctx, p.URL)
	if err != nil {
		return dest, 0, err
	}
	defer body.Close()

	final := dest
	if filepath.Ext(dest) == "" {
		final += extensionForContentType(contentType)
	}
	n, err := web.WriteAtomic(final, body)
	return final, n, err
}

var contentTypeExtensions = map[string]string{
	"image/jpeg":       ".jpg",
	"image/png":        ".png",
	"image/gif":        ".gif",
	"image/webp":       ".webp",
	"video/mp4":        ".mp4",
	"video/webm":       ".webm",
	"text/html":        ".html",
	"text/plain":       ".txt",
	"application/json": ".json",
}

func extensionForContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	if ext, ok := contentTypeExtensions[mediaType]; ok {
		return ext
	}
	exts, err := mime.ExtensionsByType(mediaType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return exts[0]
}
