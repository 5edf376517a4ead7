package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 60 * time.Second

// A NotFoundError marks a fetch whose target no longer exists.
type NotFoundError struct {
	URL string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.URL)
}

// A StatusError is a response outside the 2xx range.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected response code %d from %s", e.Code, e.URL)
}

// Fetcher performs the HTTP requests of the pipeline. It follows
// redirects and signals non-2xx responses as errors.
type Fetcher struct {
	client *resty.Client
}

// NewFetcher creates a Fetcher with the given user agent.
func NewFetcher(userAgent string) *Fetcher {
	client := resty.New()
	client.SetTimeout(defaultTimeout)
	client.SetHeader("User-Agent", userAgent)
	client.SetHeader("Accept-Encoding", "identity")
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	return &Fetcher{client: client}
}

// JSON fetches url and decodes the response body into v.
func (f *Fetcher) JSON(ctx context.Context, url string, v any) error {
	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetResult(v).
		Get(url)
	if err != nil {
		return err
	}
	if err := checkStatus(url, resp.StatusCode()); err != nil {
		return err
	}
	return nil
}

// Bytes fetches url and returns the whole response body.
func (f *Fetcher) Bytes(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(url, resp.StatusCode()); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// Stream fetches url and returns the content type and the unread body.
// The caller owns the returned reader.
func (f *Fetcher) Stream(ctx context.Context, url string) (string, io.ReadCloser, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return "", nil, err
	}
	body := resp.RawBody()
	if err := checkStatus(url, resp.RawResponse.StatusCode); err != nil {
		body.Close()
		return "", nil, err
	}
	return resp.RawResponse.Header.Get("Content-Type"), body, nil
}

// SaveToFile downloads url into path using a temporary file which is
// renamed once the body has been written completely, so a partial
// download never occupies the final path. It returns the number of
// bytes written and the response content type.
func (f *Fetcher) SaveToFile(ctx context.Context, url, path string) (int64, string, error) {
	contentType, body, err := f.Stream(ctx, url)
	if err != nil {
		return 0, "", err
	}
	defer body.Close()

	n, err := WriteAtomic(path, body)
	if err != nil {
		return 0, "", err
	}
	return n, contentType, nil
}

// WriteAtomic writes r to path via a sibling temporary file and rename.
func WriteAtomic(path string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".part*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("failed to move download into place: %w", err)
	}
	return n, nil
}

func checkStatus(url string, code int) error {
	if code >= 200 && code < 300 {
		return nil
	}
	if code == http.StatusNotFound {
		return &NotFoundError{URL: url}
	}
	return &StatusError{URL: url, Code: code}
}
