package posts

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FieldKind tags the decoded type of a post field.
type FieldKind int

const (
	FieldAbsent FieldKind = iota
	FieldString
	FieldInt
	FieldBool
)

// Field is one named value returned by the search index.
// Values are decoded once per post and are read-only afterwards.
type Field struct {
	Kind FieldKind
	Str  string
	Int  int64
	Bool bool
}

// String renders the field the way it appears in generated file names.
// Absent fields render as the empty string.
func (f Field) String() string {
	switch f.Kind {
	case FieldString:
		return f.Str
	case FieldInt:
		return strconv.FormatInt(f.Int, 10)
	case FieldBool:
		return strconv.FormatBool(f.Bool)
	}
	return ""
}

// RedditVideo is a video hosted on v.redd.it.
type RedditVideo struct {
	FallbackURL string `json:"fallback_url"`
	HLSURL      string `json:"hls_url"`
	Height      int64  `json:"height"`
}

// SecureMedia is set on posts linking to v.redd.it.
type SecureMedia struct {
	RedditVideo *RedditVideo `json:"reddit_video"`
}

// Post is one submission returned by the search index.
type Post struct {
	ID         string
	CreatedUTC int64
	URL        string
	IsSelf     bool
	Title      string
	Author     string
	Domain     string
	Selftext   string
	Media      *SecureMedia

	// Fields holds every named value of the submission for title
	// formatting, including the typed ones above.
	Fields map[string]Field
}

// Field looks up a formatting field by name.
func (p *Post) Field(name string) Field {
	return p.Fields[name]
}

type postJSON struct {
	ID         string       `json:"id"`
	CreatedUTC json.Number  `json:"created_utc"`
	URL        string       `json:"url"`
	IsSelf     bool         `json:"is_self"`
	Title      string       `json:"title"`
	Author     string       `json:"author"`
	Domain     string       `json:"domain"`
	Selftext   string       `json:"selftext"`
	Media      *SecureMedia `json:"secure_media"`
}

// decodePost builds a Post from one raw submission object.
func decodePost(raw json.RawMessage) (Post, error) {
	var pj postJSON
	if err := json.Unmarshal(raw, &pj); err != nil {
		return Post{}, fmt.Errorf("malformed post object: %w", err)
	}
	if pj.ID == "" {
		return Post{}, fmt.Errorf("malformed post object: missing id")
	}

	created, err := pj.CreatedUTC.Int64()
	if err != nil {
		// Pushshift occasionally serves created_utc as a float.
		f, ferr := pj.CreatedUTC.Float64()
		if ferr != nil {
			return Post{}, fmt.Errorf("malformed created_utc for post %s: %w", pj.ID, err)
		}
		created = int64(f)
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return Post{}, fmt.Errorf("malformed post object: %w", err)
	}

	fields := make(map[string]Field, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			fields[k] = Field{Kind: FieldString, Str: val}
		case float64:
			fields[k] = Field{Kind: FieldInt, Int: int64(val)}
		case bool:
			fields[k] = Field{Kind: FieldBool, Bool: val}
		}
		// Nested objects and arrays are not formattable; skip them.
	}

	return Post{
		ID:         pj.ID,
		CreatedUTC: created,
		URL:        pj.URL,
		IsSelf:     pj.IsSelf,
		Title:      pj.Title,
		Author:     pj.Author,
		Domain:     pj.Domain,
		Selftext:   pj.Selftext,
		Media:      pj.Media,
		Fields:     fields,
	}, nil
}
