package main

import (
	"fmt"
	"os"

	"github.com/handiism/moov-downloader/internal/config"
	"github.com/handiism/moov-downloader/internal/tui"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	configFlag := flag.String("config", "config.json", "Path to config file")
	envFlag := flag.String("env", ".env", "Path to .env file with MOOV_* overrides")
	logFlag := flag.String("log-file", "", "Write debug logs to this file")
	flag.Parse()

	settings, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := settings.LoadEnv(*envFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", *envFlag, err)
		os.Exit(1)
	}
	if err := settings.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid settings: %v\n", err)
		os.Exit(1)
	}

	// The alternate screen owns the terminal, so logs only go to a file.
	logger := zap.NewNop()
	if *logFlag != "" {
		cfg := zap.NewDevelopmentConfig()
		cfg.OutputPaths = []string{*logFlag}
		cfg.ErrorOutputPaths = []string{*logFlag}
		if logger, err = cfg.Build(); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
	}

	if err := tui.Run(settings, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
