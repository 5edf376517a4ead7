package sites

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agnosto/redditrip/web"
)

func TestGfyAPILookup(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/v1/gfycats/someclip", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"gfyItem": {"mp4Url": "` + server.URL + `/clip.mp4", "webmUrl": "` + server.URL + `/clip.webm"}}`))
	})
	mux.HandleFunc("/clip.mp4", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("mp4data"))
	})
	mux.HandleFunc("/clip.webm", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("webmdata!"))
	})

	f := web.NewFetcher("test")

	dest := filepath.Join(t.TempDir(), "clip.mp4")
	n, err := gfyAPI(context.Background(), f, server.URL+"/v1/gfycats/someclip", dest, "mp4")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "mp4data", string(data))

	dest = filepath.Join(t.TempDir(), "clip.webm")
	n, err = gfyAPI(context.Background(), f, server.URL+"/v1/gfycats/someclip", dest, "webm")
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)
}

func TestGfyAPIMissingURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"gfyItem": {}}`))
	}))
	defer server.Close()

	_, err := gfyAPI(context.Background(), web.NewFetcher("test"), server.URL, filepath.Join(t.TempDir(), "x.mp4"), "mp4")
	assert.Error(t, err)
}

func TestGfycatExtension(t *testing.T) {
	p := linkPost("https://gfycat.com/SomeClip")
	assert.Equal(t, ".mp4", gfycatHandler{}.Extension(p, Options{GfycatType: "mp4"}))
	assert.Equal(t, ".webm", redgifsHandler{}.Extension(p, Options{GfycatType: "webm"}))
}
