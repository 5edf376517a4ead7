package sites

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agnosto/redditrip/posts"
)

func linkPost(url string) *posts.Post {
	return &posts.Post{ID: "abc", URL: url}
}

func TestRouteSupportedDomains(t *testing.T) {
	tests := []struct {
		url  string
		name string
	}{
		{"https://i.redd.it/x.jpg", "direct"},
		{"https://v.redd.it/abcdef", "v.redd.it"},
		{"https://i.imgur.com/x.png", "i.imgur.com"},
		{"https://imgur.com/a/abc", "imgur.com"},
		{"https://gfycat.com/SomeClip", "gfycat.com"},
		{"https://giant.gfycat.com/SomeClip.mp4", "direct"},
		{"https://redgifs.com/watch/someclip", "redgifs.com"},
		{"https://i.pinimg.com/originals/x.jpg", "direct"},
		{"https://i.postimg.cc/x/y.png", "direct"},
	}
	for _, tt := range tests {
		h, rejection := Route(linkPost(tt.url), Options{})
		require.Nil(t, rejection, tt.url)
		assert.Equal(t, tt.name, h.Name(), tt.url)
	}
}

func TestRouteMatchesSubdomainsBySuffix(t *testing.T) {
	h, rejection := Route(linkPost("https://www.gfycat.com/SomeClip"), Options{})
	require.Nil(t, rejection)
	assert.Equal(t, "gfycat.com", h.Name())
}

func TestRoutePrefersLongestSuffix(t *testing.T) {
	// giant.gfycat.com has its own entry and must not fall through to
	// the gfycat.com handler.
	h, rejection := Route(linkPost("https://giant.gfycat.com/SomeClip.webm"), Options{})
	require.Nil(t, rejection)
	assert.Equal(t, "direct", h.Name())
}

func TestRouteSelfPosts(t *testing.T) {
	post := &posts.Post{ID: "abc", IsSelf: true, Selftext: "body"}

	_, rejection := Route(post, Options{})
	require.NotNil(t, rejection)
	assert.Equal(t, RejectSelfPost, rejection.Reason)

	h, rejection := Route(post, Options{Selfposts: true})
	require.Nil(t, rejection)
	assert.Equal(t, "selftext", h.Name())
	assert.Equal(t, ".txt", h.Extension(post, Options{}))
}

func TestRouteExclude(t *testing.T) {
	opts := Options{Exclude: map[string]struct{}{"i.redd.it": {}}}

	_, rejection := Route(linkPost("https://i.redd.it/x.jpg"), opts)
	require.NotNil(t, rejection)
	assert.Equal(t, RejectExcludedDomain, rejection.Reason)

	h, rejection := Route(linkPost("https://i.imgur.com/x.png"), opts)
	require.Nil(t, rejection)
	assert.Equal(t, "i.imgur.com", h.Name())
}

func TestRouteAllow(t *testing.T) {
	opts := Options{Allow: map[string]struct{}{"i.redd.it": {}}}

	h, rejection := Route(linkPost("https://i.redd.it/x.jpg"), opts)
	require.Nil(t, rejection)
	assert.Equal(t, "direct", h.Name())

	_, rejection = Route(linkPost("https://i.imgur.com/x.png"), opts)
	require.NotNil(t, rejection)
	assert.Equal(t, RejectNotAllowed, rejection.Reason)
}

func TestRouteUnsupportedDomain(t *testing.T) {
	_, rejection := Route(linkPost("https://example.com/page"), Options{})
	require.NotNil(t, rejection)
	assert.Equal(t, RejectUnsupportedDomain, rejection.Reason)

	h, rejection := Route(linkPost("https://example.com/page"), Options{Force: true})
	require.Nil(t, rejection)
	assert.Equal(t, "raw", h.Name())
}

func TestRouteInvalidURL(t *testing.T) {
	_, rejection := Route(linkPost("not a url"), Options{})
	require.NotNil(t, rejection)
	assert.Equal(t, RejectInvalidURL, rejection.Reason)
}

func TestRouteIsDeterministic(t *testing.T) {
	post := linkPost("https://gfycat.com/SomeClip")
	first, rejection := Route(post, Options{})
	require.Nil(t, rejection)
	for i := 0; i < 10; i++ {
		h, rejection := Route(post, Options{})
		require.Nil(t, rejection)
		assert.Equal(t, first.Name(), h.Name())
	}
}

func TestExtFromURL(t *testing.T) {
	assert.Equal(t, ".jpg", extFromURL("https://i.redd.it/x.jpg"))
	assert.Equal(t, ".mp4", extFromURL("https://giant.gfycat.com/Clip.mp4?token=1"))
	assert.Equal(t, "", extFromURL("https://v.redd.it/abcdef"))
}

func TestExtractGfyID(t *testing.T) {
	id, wellFormed := extractGfyID("/ConsiderateOldArabianwildcat")
	assert.Equal(t, "ConsiderateOldArabianwildcat", id)
	assert.True(t, wellFormed)

	id, wellFormed = extractGfyID("/somelowercaseid")
	assert.Equal(t, "somelowercaseid", id)
	assert.False(t, wellFormed)

	id, _ = extractGfyID("/SomeClip-with-title-words")
	assert.Equal(t, "SomeClip", id)
}

func TestExtensionForContentType(t *testing.T) {
	assert.Equal(t, ".jpg", extensionForContentType("image/jpeg"))
	assert.Equal(t, ".mp4", extensionForContentType("video/mp4; charset=binary"))
	assert.Equal(t, "", extensionForContentType(""))
}
