package sites

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/grafov/m3u8"

	"github.com/agnosto/redditrip/logger"
	"github.com/agnosto/redditrip/posts"
	"github.com/agnosto/redditrip/web"
)

// V.redd.it download modes. Anything else is treated as a URL
// template in which "{}" is replaced by the video id.
const (
	VRedditNoAudio = "no-audio"
	VRedditFfmpeg  = "ffmpeg"
	VRedditHLS     = "hls"
)

// redditVideoHandler downloads v.redd.it videos. The video metadata
// travels with the post in secure_media, so no extra lookup is needed
// except in HLS mode.
type redditVideoHandler struct{}

func (redditVideoHandler) Name() string { return "v.redd.it" }

func (redditVideoHandler) Extension(_ *posts.Post, opts Options) string {
	if opts.VRedditMode == VRedditHLS {
		return ".ts"
	}
	return ".mp4"
}

func (redditVideoHandler) Fetch(ctx context.Context, f *web.Fetcher, p *posts.Post, dest string, opts Options) (string, int64, error) {
	if p.Media == nil || p.Media.RedditVideo == nil {
		return dest, 0, fmt.Errorf("no downloadable media found")
	}
	video := p.Media.RedditVideo
	id := videoID(p.URL)

	switch opts.VRedditMode {
	case VRedditNoAudio:
		n, _, err := f.SaveToFile(ctx, video.FallbackURL, dest)
		return dest, n, err
	case VRedditFfmpeg:
		n, err := fetchWithAudio(ctx, f, id, video.Height, dest, opts.TempDir)
		return dest, n, err
	case VRedditHLS:
		n, err := fetchHLS(ctx, f, video.HLSURL, dest)
		return dest, n, err
	default:
		n, _, err := f.SaveToFile(ctx, strings.Replace(opts.VRedditMode, "{}", id, 1), dest)
		return dest, n, err
	}
}

func videoID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	id := strings.TrimPrefix(u.Path, "/")
	if i := strings.IndexByte(id, '/'); i >= 0 {
		id = id[:i]
	}
	return id
}

// fetchWithAudio downloads the video and audio tracks separately and
// merges them with a local ffmpeg.
func fetchWithAudio(ctx context.Context, f *web.Fetcher, id string, height int64, dest, tempDir string) (int64, error) {
	videoURL := fmt.Sprintf("https://v.redd.it/%s/DASH_%d", id, height)
	audioURL := fmt.Sprintf("https://v.redd.it/%s/audio", id)
	videoPath := filepath.Join(tempDir, "v_redd_it_"+id+"_video")
	audioPath := filepath.Join(tempDir, "v_redd_it_"+id+"_audio")
	defer os.Remove(videoPath)
	defer os.Remove(audioPath)

	if _, _, err := f.SaveToFile(ctx, videoURL, videoPath); err != nil {
		return 0, fmt.Errorf("failed to download video track: %w", err)
	}
	if _, _, err := f.SaveToFile(ctx, audioURL, audioPath); err != nil {
		return 0, fmt.Errorf("failed to download audio track: %w", err)
	}

	logger.Logger.Debugf("Combining %s with ffmpeg", dest)

	merged := dest + ".part.mp4"
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-i", videoPath,
		"-i", audioPath,
		"-c", "copy",
		merged,
	)
	if err := cmd.Run(); err != nil {
		os.Remove(merged)
		return 0, fmt.Errorf("ffmpeg failed: %w", err)
	}
	info, err := os.Stat(merged)
	if err != nil {
		return 0, err
	}
	if err := os.Rename(merged, dest); err != nil {
		os.Remove(merged)
		return 0, err
	}
	return info.Size(), nil
}

// fetchHLS walks the HLS playlist of the video, picks the variant
// with the highest bandwidth and concatenates its MPEG-TS segments
// into dest.
func fetchHLS(ctx context.Context, f *web.Fetcher, playlistURL, dest string) (int64, error) {
	if playlistURL == "" {
		return 0, fmt.Errorf("post carries no HLS playlist")
	}
	base, err := url.Parse(playlistURL)
	if err != nil {
		return 0, fmt.Errorf("invalid playlist URL: %w", err)
	}

	mediaURL, err := resolveVariant(ctx, f, base)
	if err != nil {
		return 0, err
	}

	data, err := f.Bytes(ctx, mediaURL.String())
	if err != nil {
		return 0, fmt.Errorf("failed to fetch media playlist: %w", err)
	}
	playlist, kind, err := m3u8.DecodeFrom(bytes.NewReader(data), true)
	if err != nil {
		return 0, fmt.Errorf("failed to parse media playlist: %w", err)
	}
	media, ok := playlist.(*m3u8.MediaPlaylist)
	if kind != m3u8.MEDIA || !ok {
		return 0, fmt.Errorf("expected a media playlist at %s", mediaURL)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".part*")
	if err != nil {
		return 0, err
	}
	var written int64
	for _, seg := range media.Segments {
		if seg == nil {
			continue
		}
		segURL, err := mediaURL.Parse(seg.URI)
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return 0, fmt.Errorf("invalid segment URI %q: %w", seg.URI, err)
		}
		_, body, err := f.Stream(ctx, segURL.String())
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return 0, fmt.Errorf("failed to fetch segment: %w", err)
		}
		n, err := tmp.ReadFrom(body)
		body.Close()
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return 0, err
		}
		written += n
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}
	return written, nil
}

// resolveVariant returns the media playlist URL, following one level
// of master playlist when present.
func resolveVariant(ctx context.Context, f *web.Fetcher, playlistURL *url.URL) (*url.URL, error) {
	data, err := f.Bytes(ctx, playlistURL.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist: %w", err)
	}
	playlist, kind, err := m3u8.DecodeFrom(bytes.NewReader(data), true)
	if err != nil {
		return nil, fmt.Errorf("failed to parse playlist: %w", err)
	}
	if kind == m3u8.MEDIA {
		return playlistURL, nil
	}
	master, ok := playlist.(*m3u8.MasterPlaylist)
	if !ok {
		return nil, fmt.Errorf("unrecognized playlist at %s", playlistURL)
	}
	var best *m3u8.Variant
	for _, v := range master.Variants {
		if v == nil {
			continue
		}
		if best == nil || v.Bandwidth > best.Bandwidth {
			best = v
		}
	}
	if best == nil {
		return nil, fmt.Errorf("master playlist at %s has no variants", playlistURL)
	}
	return playlistURL.Parse(best.URI)
}
