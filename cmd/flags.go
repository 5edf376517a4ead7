package cmd

import (
	"flag"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Flags is the parsed command line. Zero values mean "not given";
// merging with the config file happens in main.
type Flags struct {
	Quiet   bool
	Verbose int
	Color   string

	ShowDomains bool
	ShowFields  bool

	Force     bool
	Selfposts bool
	Update    bool
	NoParent  bool

	After  int64
	Before int64

	BatchSize         int
	MaxFileNameLength int

	Allow   []string
	Exclude []string

	GfycatType  string
	VRedditMode string

	Output string
	Title  string

	Communities []string
}

// ParseFlags parses os.Args. Invalid values are reported as errors
// rather than panics so main can exit with the right status.
func ParseFlags(args []string) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("redditrip", flag.ContinueOnError)

	fs.BoolVar(&f.Quiet, "q", false, "Only print errors")
	fs.BoolVar(&f.Quiet, "quiet", false, "Only print errors")
	verbose := fs.Bool("v", false, "Enable debug output")
	veryVerbose := fs.Bool("vv", false, "Enable trace output")
	fs.StringVar(&f.Color, "color", "auto", "Colorize output: auto, always or never")

	fs.BoolVar(&f.ShowDomains, "domains", false, "List supported domains and exit")
	fs.BoolVar(&f.ShowFields, "formatting-fields", false, "List title formatting fields and exit")

	fs.BoolVar(&f.Force, "f", false, "Download unsupported domains as raw files")
	fs.BoolVar(&f.Force, "force", false, "Download unsupported domains as raw files")
	fs.BoolVar(&f.Selfposts, "s", false, "Save self posts as text files")
	fs.BoolVar(&f.Selfposts, "selfposts", false, "Save self posts as text files")
	fs.BoolVar(&f.Update, "u", false, "Stop at the first already downloaded file")
	fs.BoolVar(&f.Update, "update", false, "Stop at the first already downloaded file")
	fs.BoolVar(&f.NoParent, "no-parent", false, "Save directly into the output directory")

	after := fs.String("after", "", "Only download posts after this date (YYYY-MM-DD, with optional HH:MM:SS, or unix seconds)")
	before := fs.String("before", "", "Only download posts before this date")

	fs.IntVar(&f.BatchSize, "b", 0, "Number of simultaneous downloads (1-1000)")
	fs.IntVar(&f.BatchSize, "batch-size", 0, "Number of simultaneous downloads (1-1000)")
	fs.IntVar(&f.MaxFileNameLength, "max-file-name-length", 0, "Maximum file name length in bytes")

	allow := fs.String("allow", "", "Comma separated list of the only domains to download from")
	exclude := fs.String("exclude", "", "Comma separated list of domains to skip")

	fs.StringVar(&f.GfycatType, "gfycat-type", "", "Media type for gfycat and redgifs: mp4 or webm")
	fs.StringVar(&f.VRedditMode, "vreddit-mode", "", "v.redd.it handling: no-audio, ffmpeg, hls or a URL template with {}")

	fs.StringVar(&f.Output, "o", "", "Output directory")
	fs.StringVar(&f.Output, "output", "", "Output directory")
	fs.StringVar(&f.Title, "t", "", "File name template, e.g. \"{id}-{title}\"")
	fs.StringVar(&f.Title, "title", "", "File name template, e.g. \"{id}-{title}\"")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: redditrip [options] <subreddit or u/user>...\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *verbose {
		f.Verbose = 1
	}
	if *veryVerbose {
		f.Verbose = 2
	}
	if f.Quiet {
		f.Verbose = -1
	}
	switch f.Color {
	case "auto", "always", "never":
	default:
		return nil, fmt.Errorf("invalid --color value %q", f.Color)
	}

	var err error
	if *after != "" {
		if f.After, err = ParseDate(*after); err != nil {
			return nil, fmt.Errorf("invalid --after date: %w", err)
		}
	}
	if *before != "" {
		if f.Before, err = ParseDate(*before); err != nil {
			return nil, fmt.Errorf("invalid --before date: %w", err)
		}
	}
	if f.After > 0 && f.Before > 0 && f.After >= f.Before {
		return nil, fmt.Errorf("--after must be earlier than --before")
	}

	if *allow != "" && *exclude != "" {
		return nil, fmt.Errorf("--allow and --exclude are mutually exclusive")
	}
	if f.Allow, err = ParseDomainList(*allow); err != nil {
		return nil, fmt.Errorf("invalid --allow value: %w", err)
	}
	if f.Exclude, err = ParseDomainList(*exclude); err != nil {
		return nil, fmt.Errorf("invalid --exclude value: %w", err)
	}

	if f.BatchSize != 0 && (f.BatchSize < 1 || f.BatchSize > 1000) {
		return nil, fmt.Errorf("--batch-size must be between 1 and 1000")
	}

	f.Communities = fs.Args()
	return f, nil
}

// ParseDate accepts "YYYY-MM-DD", "YYYY-MM-DD HH:MM:SS" or plain unix
// seconds, and returns unix seconds.
func ParseDate(input string) (int64, error) {
	if secs, err := strconv.ParseInt(input, 10, 64); err == nil {
		return secs, nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, input); err == nil {
			return t.Unix(), nil
		}
	}
	return 0, fmt.Errorf("expected YYYY-MM-DD, YYYY-MM-DD HH:MM:SS or unix seconds, got %q", input)
}

// ParseDomainList splits a comma separated list of domains. Entries
// may be full URLs, in which case the host is extracted.
func ParseDomainList(input string) ([]string, error) {
	if input == "" {
		return nil, nil
	}
	var out []string
	for _, entry := range strings.Split(input, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		host := entry
		if strings.Contains(entry, "/") {
			raw := entry
			if !strings.Contains(raw, "://") {
				raw = "https://" + raw
			}
			u, err := url.Parse(raw)
			if err != nil || u.Host == "" {
				return nil, fmt.Errorf("cannot extract a host from %q", entry)
			}
			host = u.Host
		}
		out = append(out, strings.ToLower(host))
	}
	return out, nil
}
