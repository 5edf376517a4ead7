package posts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommunity(t *testing.T) {
	tests := []struct {
		input string
		want  Community
	}{
		{"pics", Community{KindSubreddit, "pics"}},
		{"r/pics", Community{KindSubreddit, "pics"}},
		{"/r/pics", Community{KindSubreddit, "pics"}},
		{"u/someone", Community{KindProfile, "someone"}},
		{"/u/someone", Community{KindProfile, "someone"}},
		{"Some_Sub-1", Community{KindSubreddit, "Some_Sub-1"}},
	}
	for _, tt := range tests {
		got, err := ParseCommunity(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

func TestParseCommunityRejectsInvalidNames(t *testing.T) {
	for _, input := range []string{
		"name with spaces",
		"emoji🦊",
		"far-too-long-subreddit-name",
	} {
		_, err := ParseCommunity(input)
		assert.Error(t, err, input)
	}
}

func TestCommunityString(t *testing.T) {
	assert.Equal(t, "r/pics", Community{KindSubreddit, "pics"}.String())
	assert.Equal(t, "u/someone", Community{KindProfile, "someone"}.String())
}
