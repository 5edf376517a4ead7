package sites

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/agnosto/redditrip/logger"
	"github.com/agnosto/redditrip/posts"
	"github.com/agnosto/redditrip/web"
)

// imgurDirectHandler fetches single images from i.imgur.com.
type imgurDirectHandler struct{}

func (imgurDirectHandler) Name() string { return "i.imgur.com" }

func (imgurDirectHandler) Extension(p *posts.Post, _ Options) string {
	return extFromURL(p.URL)
}

func (imgurDirectHandler) Fetch(ctx context.Context, f *web.Fetcher, p *posts.Post, dest string, _ Options) (string, int64, error) {
	n, _, err := f.SaveToFile(ctx, p.URL, dest)
	return dest, n, err
}

type imgurImage struct {
	Hash string `json:"hash"`
	Ext  string `json:"ext"`
}

// imgurAlbumHandler fetches imgur.com links. Albums and galleries are
// a two-stage download: a metadata request lists the images, which
// are then fetched one by one into a directory named after the post.
// Plain imgur.com image links are fetched directly via i.imgur.com.
type imgurAlbumHandler struct{}

func (imgurAlbumHandler) Name() string { return "imgur.com" }

func (imgurAlbumHandler) Extension(p *posts.Post, _ Options) string {
	u, err := url.Parse(p.URL)
	if err != nil {
		return ""
	}
	if strings.HasPrefix(u.Path, "/a/") || strings.HasPrefix(u.Path, "/gallery/") {
		// Albums become a directory; no extension.
		return ""
	}
	return extFromURL(p.URL)
}

func (h imgurAlbumHandler) Fetch(ctx context.Context, f *web.Fetcher, p *posts.Post, dest string, _ Options) (string, int64, error) {
	u, err := url.Parse(p.URL)
	if err != nil {
		return dest, 0, fmt.Errorf("invalid imgur URL: %w", err)
	}

	switch {
	case strings.HasPrefix(u.Path, "/a/"):
		images, err := fetchAlbumImages(ctx, f, albumID(u.Path))
		if err != nil {
			return dest, 0, err
		}
		n, err := downloadImages(ctx, f, images, dest)
		return dest, n, err
	case strings.HasPrefix(u.Path, "/gallery/"):
		id := strings.TrimSuffix(u.Path[len("/gallery/"):], "/")
		images, err := fetchGalleryImages(ctx, f, id)
		if err != nil {
			return dest, 0, err
		}
		n, err := downloadImages(ctx, f, images, dest)
		return dest, n, err
	default:
		// Assume a direct link without the `i.` prefix; imgur.com/*
		// redirects to i.imgur.com/* anyway.
		logger.Logger.Debugf("Trying to directly download image %s", p.URL)
		n, _, err := f.SaveToFile(ctx, "https://i.imgur.com"+u.Path, dest)
		return dest, n, err
	}
}

func albumID(urlPath string) string {
	id := urlPath[len("/a/"):]
	if i := strings.IndexByte(id, '/'); i >= 0 {
		id = id[:i]
	}
	return id
}

// fetchAlbumImages scrapes the album embed page for its image list.
func fetchAlbumImages(ctx context.Context, f *web.Fetcher, id string) ([]imgurImage, error) {
	page, err := f.Bytes(ctx, fmt.Sprintf("https://imgur.com/a/%s/embed", id))
	if err != nil {
		return nil, err
	}
	return parseAlbumEmbed(page)
}

// parseAlbumEmbed finds the album metadata the embed page carries in
// an inline script and decodes its image list.
func parseAlbumEmbed(page []byte) ([]imgurImage, error) {
	scanner := bufio.NewScanner(bytes.NewReader(page))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(strings.TrimSpace(line), "album") {
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			return nil, fmt.Errorf("imgur parser error")
		}
		payload := strings.TrimSpace(line[colon+1:])
		payload = strings.TrimSuffix(payload, ",")
		var album struct {
			AlbumImages struct {
				Images []imgurImage `json:"images"`
			} `json:"album_images"`
		}
		if err := json.Unmarshal([]byte(payload), &album); err != nil {
			return nil, fmt.Errorf("imgur parser error: %w", err)
		}
		return album.AlbumImages.Images, nil
	}
	return nil, fmt.Errorf("imgur parser error")
}

// fetchGalleryImages uses the gallery JSON endpoint.
func fetchGalleryImages(ctx context.Context, f *web.Fetcher, id string) ([]imgurImage, error) {
	var gallery struct {
		Data struct {
			Image struct {
				AlbumImages struct {
					Images []imgurImage `json:"images"`
				} `json:"album_images"`
			} `json:"image"`
		} `json:"data"`
	}
	if err := f.JSON(ctx, fmt.Sprintf("https://imgur.com/gallery/%s.json", id), &gallery); err != nil {
		return nil, err
	}
	return gallery.Data.Image.AlbumImages.Images, nil
}

// downloadImages fetches the album images into a directory at dest.
// Individual failures are logged and skipped so one broken image does
// not lose the rest of the album.
func downloadImages(ctx context.Context, f *web.Fetcher, images []imgurImage, dest string) (int64, error) {
	logger.Logger.Debugf("Found imgur album containing %d entries", len(images))

	if err := os.MkdirAll(dest, 0755); err != nil {
		return 0, err
	}
	var total int64
	for i, image := range images {
		target := filepath.Join(dest, fmt.Sprintf("%d%s", i, image.Ext))
		n, _, err := f.SaveToFile(ctx, fmt.Sprintf("https://i.imgur.com/%s%s", image.Hash, image.Ext), target)
		if err != nil {
			logger.Logger.Warnf("Failed to fetch album image %s%s: %v", image.Hash, image.Ext, err)
			continue
		}
		total += n
	}
	return total, nil
}
