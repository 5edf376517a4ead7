package title

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agnosto/redditrip/posts"
)

func testPost() *posts.Post {
	return &posts.Post{
		ID: "abc123",
		Fields: map[string]posts.Field{
			"id":     {Kind: posts.FieldString, Str: "abc123"},
			"title":  {Kind: posts.FieldString, Str: "A post: with/bad|chars?"},
			"author": {Kind: posts.FieldString, Str: "someone"},
			"score":  {Kind: posts.FieldInt, Int: 42},
		},
	}
}

func TestFormat(t *testing.T) {
	tmpl, err := Compile("{id}-{title}")
	require.NoError(t, err)

	got := tmpl.Format(testPost(), 255)
	assert.Equal(t, "abc123-A post_ with_bad_chars_", got)
}

func TestFormatLiteralsAndTypes(t *testing.T) {
	tmpl, err := Compile("[{score}] {author}")
	require.NoError(t, err)

	assert.Equal(t, "[42] someone", tmpl.Format(testPost(), 255))
}

func TestFormatAbsentFieldIsEmpty(t *testing.T) {
	tmpl, err := Compile("{id}{link_flair_text}")
	require.NoError(t, err)

	assert.Equal(t, "abc123", tmpl.Format(testPost(), 255))
}

func TestCompileRejectsUnknownField(t *testing.T) {
	_, err := Compile("{id}-{nope}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestCompileUnclosedBraceIsLiteral(t *testing.T) {
	tmpl, err := Compile("{id}-{title")
	require.NoError(t, err)
	assert.Equal(t, "abc123-{title", tmpl.Format(testPost(), 255))
}

func TestUsesID(t *testing.T) {
	withID, err := Compile("{id}-{title}")
	require.NoError(t, err)
	assert.True(t, withID.UsesID())

	withoutID, err := Compile("{title}")
	require.NoError(t, err)
	assert.False(t, withoutID.UsesID())
}

func TestFormatTruncatesToByteBudget(t *testing.T) {
	tmpl, err := Compile("{title}")
	require.NoError(t, err)

	p := &posts.Post{Fields: map[string]posts.Field{
		"title": {Kind: posts.FieldString, Str: strings.Repeat("x", 300)},
	}}
	got := tmpl.Format(p, 40)
	assert.Len(t, got, 40)
}

func TestFormatTruncatesOnRuneBoundary(t *testing.T) {
	tmpl, err := Compile("{title}")
	require.NoError(t, err)

	// Each rune is three bytes; a 10 byte budget falls mid-rune.
	p := &posts.Post{Fields: map[string]posts.Field{
		"title": {Kind: posts.FieldString, Str: strings.Repeat("猫", 8)},
	}}
	got := tmpl.Format(p, 10)
	assert.Equal(t, strings.Repeat("猫", 3), got)
}

func TestFormattingHelpListsEveryField(t *testing.T) {
	help := FormattingHelp()
	for _, f := range Fields {
		assert.Contains(t, help, f+": ")
	}
}
