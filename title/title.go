// Package title renders file name stems from post fields and a
// template string with {field} placeholders.
package title

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/agnosto/redditrip/posts"
)

// Fields are the available formatting fields, matching the submission
// fields served by the search index. Not all fields are set for every
// post; unset placeholders render as the empty string.
var Fields = []string{
	"allow_live_comments",
	"author",
	"author_flair_text",
	"author_fullname",
	"author_patreon_flair",
	"author_premium",
	"can_mod_post",
	"contest_mode",
	"created_utc",
	"crosspost_parent",
	"domain",
	"full_link",
	"id",
	"is_crosspostable",
	"is_meta",
	"is_original_content",
	"is_reddit_media_domain",
	"is_robot_indexable",
	"is_self",
	"is_video",
	"link_flair_background_color",
	"link_flair_text_color",
	"link_flair_text",
	"link_flair_type",
	"locked",
	"media_only",
	"no_follow",
	"num_comments",
	"num_crossposts",
	"over_18",
	"parent_whitelist_status",
	"permalink",
	"pinned",
	"post_hint",
	"pwls",
	"removed_by_category",
	"retrieved_on",
	"score",
	"selftext",
	"send_replies",
	"spoiler",
	"stickied",
	"subreddit",
	"subreddit_id",
	"subreddit_subscribers",
	"subreddit_type",
	"thumbnail",
	"title",
	"total_awards_received",
	"url",
	"whitelist_status",
	"wls",
}

var fieldSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(Fields))
	for _, f := range Fields {
		set[f] = struct{}{}
	}
	return set
}()

type segment struct {
	literal string
	field   string
}

// Title is a compiled formatting template. Compiling happens once at
// startup; formatting happens once per post.
type Title struct {
	segments []segment
	fields   []string
}

// Compile parses a template string. A {name} token whose name is not a
// known formatting field is an input error, reported before any
// network activity happens.
func Compile(template string) (*Title, error) {
	t := &Title{}
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			break
		}
		close := strings.IndexByte(rest[open:], '}')
		if close < 0 {
			break
		}
		name := rest[open+1 : open+close]
		if _, ok := fieldSet[name]; !ok {
			return nil, fmt.Errorf("unknown formatting field %q", name)
		}
		if open > 0 {
			t.segments = append(t.segments, segment{literal: sanitize(rest[:open])})
		}
		t.segments = append(t.segments, segment{field: name})
		t.fields = append(t.fields, name)
		rest = rest[open+close+1:]
	}
	if rest != "" {
		t.segments = append(t.segments, segment{literal: sanitize(rest)})
	}
	return t, nil
}

// UsesID reports whether the {id} placeholder is present. Templates
// without it risk file name collisions.
func (t *Title) UsesID() bool {
	for _, f := range t.fields {
		if f == "id" {
			return true
		}
	}
	return false
}

// Format renders the file name stem for a post, truncated to at most
// maxLen bytes on a rune boundary. The extension is appended by the
// caller after truncation so it is never cut off.
func (t *Title) Format(p *posts.Post, maxLen int) string {
	var b strings.Builder
	for _, seg := range t.segments {
		if seg.field == "" {
			b.WriteString(seg.literal)
			continue
		}
		b.WriteString(sanitize(p.Field(seg.field).String()))
	}
	return truncate(b.String(), maxLen)
}

// FormattingHelp lists the available fields with their types.
func FormattingHelp() string {
	var b strings.Builder
	for _, f := range Fields {
		kind := "string"
		switch f {
		case "created_utc", "num_comments", "num_crossposts", "pwls",
			"retrieved_on", "score", "subreddit_subscribers",
			"total_awards_received", "wls":
			kind = "integer"
		case "allow_live_comments", "author_patreon_flair", "author_premium",
			"can_mod_post", "contest_mode", "is_crosspostable", "is_meta",
			"is_original_content", "is_reddit_media_domain",
			"is_robot_indexable", "is_self", "is_video", "locked",
			"media_only", "no_follow", "over_18", "pinned", "send_replies",
			"spoiler", "stickied":
			kind = "bool"
		}
		fmt.Fprintf(&b, "%s: %s\n", f, kind)
	}
	return b.String()
}

// sanitize replaces characters that are illegal in file names on
// common filesystems with '_'.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '|', '?', '<', '>', ':', '*', '"':
			return '_'
		}
		return r
	}, s)
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if max < 0 {
		max = 0
	}
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
