package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/handiism/moov-downloader/internal/audio"
	mhttp "github.com/handiism/moov-downloader/internal/http"
	"github.com/handiism/moov-downloader/internal/model"
)

// Settings holds all configuration options.
type Settings struct {
	// Account
	Email    string `json:"email"`
	Password string `json:"password"`

	// Download settings
	Quality        int     `json:"quality"`       // 1 = LL, 2 = HR
	MetaLanguage   int     `json:"meta_language"` // 1 = English, 2 = Chinese
	OutputDir      string  `json:"output_dir"`
	WorkDir        string  `json:"work_dir"`
	SegmentWorkers int     `json:"segment_workers"`
	MaxAttempts    int     `json:"max_attempts"`
	RetryDelayMS   int     `json:"retry_delay_ms"`
	RequestsPerSec float64 `json:"requests_per_second"`

	// File naming and tags
	Template string `json:"template"`
	Comment  string `json:"comment"` // empty means the album URL
	Lyrics   bool   `json:"lyrics"`

	// Cover art settings
	KeepCover    bool `json:"keep_cover"`
	CoverMaxSize int  `json:"cover_max_size"` // 0 keeps the original size

	// Playlist settings
	CreatePlaylist bool   `json:"create_playlist"`
	PlaylistFormat string `json:"playlist_format"` // m3u, pls, wpl, zpl
	M3UExtended    bool   `json:"m3u_extended"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		Quality:        2,
		MetaLanguage:   int(model.LanguageEnglish),
		OutputDir:      "MOOV-DL downloads",
		WorkDir:        "moov-dl_tmp",
		SegmentWorkers: 1,
		MaxAttempts:    10,
		RetryDelayMS:   1000,
		RequestsPerSec: 10,

		Template: model.DefaultTemplate,

		PlaylistFormat: "m3u",
		M3UExtended:    true,
	}
}

// Load reads settings from a JSON file. A missing file yields defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return settings, nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Validate reports every setting that is out of range.
func (s *Settings) Validate() error {
	var errs []error

	if s.Email == "" || s.Password == "" {
		errs = append(errs, errors.New("email and password are required"))
	}
	if _, err := model.ParseQuality(s.Quality); err != nil {
		errs = append(errs, err)
	}
	if _, err := model.ParseLanguage(s.MetaLanguage); err != nil {
		errs = append(errs, err)
	}
	if s.OutputDir == "" {
		errs = append(errs, errors.New("output_dir must not be empty"))
	}
	if s.WorkDir == "" {
		errs = append(errs, errors.New("work_dir must not be empty"))
	} else if s.OutputDir != "" && contains(s.WorkDir, s.OutputDir) {
		errs = append(errs, fmt.Errorf("work_dir %q must not contain output_dir %q, it is deleted after every track", s.WorkDir, s.OutputDir))
	}
	if s.Template == "" {
		errs = append(errs, errors.New("template must not be empty"))
	}
	if s.SegmentWorkers < 1 {
		errs = append(errs, fmt.Errorf("segment_workers must be at least 1, got %d", s.SegmentWorkers))
	}
	if s.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("max_attempts must be at least 1, got %d", s.MaxAttempts))
	}
	if s.RetryDelayMS < 0 {
		errs = append(errs, fmt.Errorf("retry_delay_ms must not be negative, got %d", s.RetryDelayMS))
	}
	if s.RequestsPerSec < 0 {
		errs = append(errs, fmt.Errorf("requests_per_second must not be negative, got %g", s.RequestsPerSec))
	}
	if s.CoverMaxSize < 0 {
		errs = append(errs, fmt.Errorf("cover_max_size must not be negative, got %d", s.CoverMaxSize))
	}
	if _, err := audio.ParsePlaylistFormat(s.PlaylistFormat); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// contains reports whether path is dir or lies below it.
func contains(dir, path string) bool {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return true
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return true
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// WantQuality returns the configured quality. Call Validate first.
func (s *Settings) WantQuality() model.Quality {
	q, _ := model.ParseQuality(s.Quality)
	return q
}

// Language returns the configured metadata language. Call Validate first.
func (s *Settings) Language() model.Language {
	l, _ := model.ParseLanguage(s.MetaLanguage)
	return l
}

// RetryPolicy converts the retry settings.
func (s *Settings) RetryPolicy() mhttp.RetryPolicy {
	return mhttp.RetryPolicy{
		MaxAttempts: s.MaxAttempts,
		Delay:       time.Duration(s.RetryDelayMS) * time.Millisecond,
	}
}

// Playlist returns the configured playlist creator, or nil when playlists
// are disabled.
func (s *Settings) Playlist() *audio.PlaylistCreator {
	if !s.CreatePlaylist {
		return nil
	}
	format, _ := audio.ParsePlaylistFormat(s.PlaylistFormat)
	return audio.NewPlaylistCreator(format, s.M3UExtended)
}
