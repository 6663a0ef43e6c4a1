package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/handiism/moov-downloader/internal/config"
	"github.com/handiism/moov-downloader/internal/download"
	"github.com/handiism/moov-downloader/internal/moov"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const banner = `
 _____ _____ _____ _____     ____  __
|     |     |     |  |  |___|    \|  |
| | | |  |  |  |  |  |  |___|  |  |  |__
|_|_|_|_____|_____|\___/    |____/|_____|
`

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warnColor    = color.New(color.FgYellow)
	successColor = color.New(color.FgGreen)
	infoColor    = color.New(color.FgCyan)
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		urlsFlag     = flag.StringSliceP("urls", "u", nil, "Album links or .txt files with one link per line")
		qualityFlag  = flag.IntP("quality", "q", 2, "1 = 16-bit FLAC, 2 = 24-bit FLAC")
		templateFlag = flag.StringP("template", "t", "", "Naming template for track filenames")
		outputFlag   = flag.StringP("output-dir", "o", "", "Output directory")
		keepCover    = flag.BoolP("keep-cover", "k", false, "Leave cover.jpg in the album folder")
		commentFlag  = flag.StringP("comment", "c", "", "Text for the comment tag (default: album URL)")
		lyricsFlag   = flag.BoolP("lyrics", "l", false, "Write .lrc lyric files when available")
		languageFlag = flag.IntP("meta-language", "m", 1, "Metadata language. 1 = English, 2 = Chinese")
		workersFlag  = flag.Int("workers", 1, "Concurrent segment downloads per track")
		playlistFlag = flag.Bool("playlist", false, "Create a playlist file per album")
		configFlag   = flag.String("config", "config.json", "Path to config file")
		envFlag      = flag.String("env", ".env", "Path to .env file with MOOV_* overrides")
		verboseFlag  = flag.BoolP("verbose", "v", false, "Show verbose output")
		debugFlag    = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	inputs := append(*urlsFlag, flag.Args()...)
	if len(inputs) == 0 {
		fmt.Println("MOOV Downloader - Download albums from MOOV as FLAC")
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  moov-dl -u <URL|file.txt>... [options]")
		fmt.Println("  moov-dl <URL|file.txt>... [options]")
		fmt.Println()
		fmt.Println("For interactive mode, use: moov-tui")
		fmt.Println()
		flag.PrintDefaults()
		return 1
	}

	logger, err := newLogger(*debugFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	settings, err := config.Load(*configFlag)
	if err != nil {
		errorColor.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}
	if err := settings.LoadEnv(*envFlag); err != nil {
		errorColor.Fprintf(os.Stderr, "Error loading %s: %v\n", *envFlag, err)
		return 1
	}

	// Flags win over file and environment, but only when given.
	changed := flag.CommandLine.Changed
	if changed("quality") {
		settings.Quality = *qualityFlag
	}
	if changed("template") {
		settings.Template = *templateFlag
	}
	if changed("output-dir") {
		settings.OutputDir = *outputFlag
	}
	if changed("keep-cover") {
		settings.KeepCover = *keepCover
	}
	if changed("comment") {
		settings.Comment = *commentFlag
	}
	if changed("lyrics") {
		settings.Lyrics = *lyricsFlag
	}
	if changed("meta-language") {
		settings.MetaLanguage = *languageFlag
	}
	if changed("workers") {
		settings.SegmentWorkers = *workersFlag
	}
	if changed("playlist") {
		settings.CreatePlaylist = *playlistFlag
	}

	if err := settings.Validate(); err != nil {
		errorColor.Fprintf(os.Stderr, "Invalid settings: %v\n", err)
		return 1
	}

	urls, err := moov.CollectURLs(inputs)
	if err != nil {
		errorColor.Fprintf(os.Stderr, "Error reading URLs: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := download.NewManager(settings, func(event download.ProgressEvent) {
		printEvent(event, *verboseFlag)
	},
		download.WithLogger(logger),
		download.WithBarFactory(download.NewTerminalBars(os.Stderr)),
	)

	go handleSignals(manager, cancel)

	fmt.Print(banner)
	fmt.Println()

	start := time.Now()
	results, err := manager.Run(ctx, urls)
	if err != nil {
		if download.Classify(err) == download.KindCancelled {
			warnColor.Println("\nDownload cancelled.")
			printSummary(results, start)
			return 130
		}
		errorColor.Fprintf(os.Stderr, "%v\n", err)
		logger.Error("run failed", zap.Error(err))
		return 1
	}

	printSummary(results, start)
	return 0
}

// handleSignals skips the current album on the first interrupt. A second
// interrupt within two seconds, SIGTERM, or an interrupt between albums
// stops the run.
func handleSignals(manager *download.Manager, cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var last time.Time
	for sig := range sigCh {
		if sig == syscall.SIGTERM || time.Since(last) < 2*time.Second || !manager.SkipCurrentAlbum() {
			warnColor.Println("\nInterrupted, stopping...")
			cancel()
			signal.Stop(sigCh)
			return
		}
		last = time.Now()
		warnColor.Println("\nInterrupted, skipping current album. Press Ctrl+C again to quit.")
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func printEvent(event download.ProgressEvent, verbose bool) {
	switch event.Level {
	case download.LevelVerbose:
		if verbose {
			fmt.Println("   " + event.Message)
		}
	case download.LevelError:
		errorColor.Println("[x] " + event.Message)
	case download.LevelWarning:
		warnColor.Println("[!] " + event.Message)
	case download.LevelSuccess:
		successColor.Println("[+] " + event.Message)
	default:
		infoColor.Println("[i] " + event.Message)
	}
}

func printSummary(results []download.AlbumResult, start time.Time) {
	var downloaded, skipped, failed, albumsFailed int
	var size uint64
	for _, album := range results {
		if album.Err != nil {
			albumsFailed++
		}
		for _, track := range album.Tracks {
			switch track.Status {
			case download.TrackDownloaded:
				downloaded++
				if info, err := os.Stat(track.Path); err == nil {
					size += uint64(info.Size())
				}
			case download.TrackSkipped:
				skipped++
			default:
				failed++
			}
		}
	}

	fmt.Println()
	fmt.Printf("Done in %s: %d downloaded (%s), %d skipped, %d failed",
		time.Since(start).Round(time.Second), downloaded, humanize.Bytes(size), skipped, failed)
	if albumsFailed > 0 {
		fmt.Printf(", %d of %d albums incomplete", albumsFailed, len(results))
	}
	fmt.Println()
}
