package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"golang.org/x/time/rate"

	"github.com/agnosto/redditrip/cmd"
	"github.com/agnosto/redditrip/config"
	"github.com/agnosto/redditrip/download"
	"github.com/agnosto/redditrip/logger"
	"github.com/agnosto/redditrip/notifications"
	"github.com/agnosto/redditrip/posts"
	"github.com/agnosto/redditrip/sites"
	"github.com/agnosto/redditrip/title"
	"github.com/agnosto/redditrip/web"
)

// Exit codes: 1 for startup errors, 2 for network failures during
// enumeration, 3 for unexpected search index responses.
const (
	exitOK      = 0
	exitStartup = 1
	exitNetwork = 2
	exitIndex   = 3
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	flags, err := cmd.ParseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(os.Stderr, err)
		return exitStartup
	}

	if flags.ShowDomains {
		fmt.Println(sites.SupportedDomains())
		return exitOK
	}
	if flags.ShowFields {
		fmt.Print(title.FormattingHelp())
		return exitOK
	}

	switch flags.Color {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	}

	configPath := config.GetConfigPath()
	if err := config.EnsureConfigExists(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create config: %v\n", err)
		return exitStartup
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitStartup
	}
	mergeFlags(cfg, flags)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitStartup
	}

	if err := logger.InitLogger(flags.Verbose, !color.NoColor, filepath.Dir(configPath)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitStartup
	}
	logger.Logger.Debugf("redditrip %s, config %s", version, configPath)

	if len(flags.Communities) == 0 {
		fmt.Fprintln(os.Stderr, "no subreddits given, run with --help for usage")
		return exitStartup
	}
	communities := make([]posts.Community, 0, len(flags.Communities))
	for _, arg := range flags.Communities {
		c, err := posts.ParseCommunity(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid subreddit %q: %v\n", arg, err)
			return exitStartup
		}
		communities = append(communities, c)
	}

	titles, err := title.Compile(cfg.Options.TitleTemplate)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitStartup
	}
	if !titles.UsesID() {
		color.Yellow("Warning: the title template has no {id} field, identically named posts will overwrite each other")
	}

	if cfg.Media.VRedditMode == sites.VRedditFfmpeg {
		if _, err := exec.LookPath("ffmpeg"); err != nil {
			fmt.Fprintln(os.Stderr, "vreddit-mode ffmpeg requires ffmpeg on the PATH")
			return exitStartup
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher := web.NewFetcher(cfg.Options.UserAgent + "/" + version)
	index := posts.NewPushshift(fetcher, "")
	limiter := rate.NewLimiter(rate.Limit(float64(cfg.Options.RequestsPerMinute)/60.0), 1)

	opts := sites.Options{
		Allow:       hostSet(flags.Allow),
		Exclude:     hostSet(flags.Exclude),
		Selfposts:   flags.Selfposts,
		Force:       flags.Force,
		GfycatType:  cfg.Media.GfycatType,
		VRedditMode: cfg.Media.VRedditMode,
		TempDir:     os.TempDir(),
	}
	filters := posts.Filters{
		After:     flags.After,
		Before:    flags.Before,
		Selfposts: flags.Selfposts,
		BatchSize: cfg.Options.BatchSize,
	}
	dlCfg := download.Config{
		OutputDir:         cfg.Options.SaveLocation,
		NoParent:          cfg.Options.NoParent,
		Update:            flags.Update,
		BatchSize:         cfg.Options.BatchSize,
		MaxFileNameLength: cfg.Options.MaxFileNameLength,
		ShowProgress:      flags.Verbose == 0,
	}

	scheduler := download.NewScheduler(index, fetcher, titles, filters, opts, dlCfg, limiter)

	var total download.Summary
	exitCode := exitOK
	for _, community := range communities {
		summary, err := scheduler.Run(ctx, community)
		total.Merge(summary)
		if err != nil {
			logger.Logger.Errorf("Ripping %s aborted: %v", community, err)
			exitCode = classifyError(err)
		}
		if ctx.Err() != nil {
			logger.Logger.Warn("Interrupted, stopping")
			break
		}
	}

	printSummary(total)

	notifier := notifications.NewNotificationService(cfg.Notifications)
	notifier.NotifyRunComplete(fmt.Sprintf("Finished: %d downloaded, %d failed", total.Completed, total.Failed))

	return exitCode
}

// mergeFlags overlays the given command line values onto the config.
func mergeFlags(cfg *config.Config, flags *cmd.Flags) {
	if flags.Output != "" {
		cfg.Options.SaveLocation = flags.Output
	}
	if flags.Title != "" {
		cfg.Options.TitleTemplate = flags.Title
	}
	if flags.BatchSize != 0 {
		cfg.Options.BatchSize = flags.BatchSize
	}
	if flags.MaxFileNameLength != 0 {
		cfg.Options.MaxFileNameLength = flags.MaxFileNameLength
	}
	if flags.NoParent {
		cfg.Options.NoParent = true
	}
	if flags.GfycatType != "" {
		cfg.Media.GfycatType = flags.GfycatType
	}
	if flags.VRedditMode != "" {
		cfg.Media.VRedditMode = flags.VRedditMode
	}
}

func hostSet(hosts []string) map[string]struct{} {
	if len(hosts) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		set[h] = struct{}{}
	}
	return set
}

// classifyError distinguishes network trouble from a misbehaving
// search index for the exit code.
func classifyError(err error) int {
	var urlErr *url.Error
	var netErr net.Error
	var statusErr *web.StatusError
	var notFound *web.NotFoundError
	if errors.As(err, &urlErr) || errors.As(err, &netErr) ||
		errors.As(err, &statusErr) || errors.As(err, &notFound) ||
		errors.Is(err, context.DeadlineExceeded) {
		return exitNetwork
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return exitIndex
	}
	return exitIndex
}

var (
	summaryStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 2)
	summaryTitleStyle = lipgloss.NewStyle().Bold(true)
)

func printSummary(s download.Summary) {
	body := fmt.Sprintf("%s\nDownloaded: %d (%s)\nSkipped: %d\nFailed: %d",
		summaryTitleStyle.Render("Run complete"),
		s.Completed, humanize.Bytes(uint64(s.Bytes)), s.Skipped, s.Failed)
	fmt.Println(summaryStyle.Render(body))

	for _, failure := range s.Failures {
		color.Red("  %v", failure)
	}
}
