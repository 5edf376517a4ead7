package posts

import (
	"fmt"
	"strings"
)

// CommunityKind distinguishes subreddits from user profiles.
type CommunityKind int

const (
	KindSubreddit CommunityKind = iota
	KindProfile
)

// Community is one named content channel to enumerate.
type Community struct {
	Kind CommunityKind
	Name string
}

func (c Community) String() string {
	if c.Kind == KindProfile {
		return "u/" + c.Name
	}
	return "r/" + c.Name
}

// ParseCommunity parses a subreddit or profile name.
//
// The input is assumed to be a subreddit unless prefixed with "u/" or
// "/u/". The prefixes "r/", "/r/", "u/" and "/u/" are removed.
func ParseCommunity(input string) (Community, error) {
	kind := KindSubreddit
	name := input
	switch {
	case strings.HasPrefix(input, "/u/"):
		kind, name = KindProfile, input[3:]
	case strings.HasPrefix(input, "u/"):
		kind, name = KindProfile, input[2:]
	case strings.HasPrefix(input, "/r/"):
		name = input[3:]
	case strings.HasPrefix(input, "r/"):
		name = input[2:]
	}

	if err := verifyName(name); err != nil {
		return Community{}, err
	}

	return Community{Kind: kind, Name: name}, nil
}

func verifyName(name string) error {
	if len(name) > 21 {
		return fmt.Errorf("subreddit names have a maximum length of 21 characters")
	}
	for _, r := range name {
		if !isWordRune(r) {
			return fmt.Errorf("subreddit names can only contain alphanumeric characters, %q found", r)
		}
	}
	return nil
}

func isWordRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-', r == '_':
		return true
	}
	return false
}
