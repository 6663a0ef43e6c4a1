package model

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Album represents a MOOV album with its metadata and tracks.
//
// Album is built once per album by the API client and is read-only for the
// rest of the run. Title fields are already resolved to the configured
// metadata language.
//
// Example:
//
//	album, _ := client.Album(ctx, "VAAAAAAAAAAAA", model.LanguageEnglish)
//	dir := album.Dir("/music")
//	// dir = "/music/Artist - Album"
type Album struct {
	// ID is the 13 character album identifier.
	ID string

	// URL is the link the album was requested with.
	URL string

	// Title is the album title in the selected language.
	Title string

	// Artists lists the album artists in upstream order.
	Artists []string

	// Label is the record label.
	Label string

	// Copyright is the copyright notice (upstream "cnote").
	Copyright string

	// ReleaseDate is the release date as published upstream (YYYY-MM-DD).
	ReleaseDate string

	// CoverURL is the cover image URL. Empty means no cover is available.
	CoverURL string

	// Tracks contains all tracks in play order.
	Tracks []*Track
}

// Artist returns the album artists joined with ", ".
func (a *Album) Artist() string {
	return strings.Join(a.Artists, ", ")
}

// Year returns the release year, or "" when the release date is unknown.
func (a *Album) Year() string {
	year, _, _ := strings.Cut(a.ReleaseDate, "-")
	if len(year) != 4 {
		return ""
	}
	return year
}

// HasCover returns true if the album has cover art available for download.
func (a *Album) HasCover() bool {
	return a.CoverURL != ""
}

// FolderName returns the sanitized "{albumartist} - {album}" folder name.
func (a *Album) FolderName() string {
	return sanitizeFileName(a.Artist() + " - " + a.Title)
}

// Dir returns the album directory below outputDir.
//
// The folder name is truncated for Windows MAX_PATH compatibility.
func (a *Album) Dir(outputDir string) string {
	path := filepath.Join(outputDir, a.FolderName())
	if len(path) >= 248 {
		path = strings.TrimRight(truncateUTF8(path, 247), " ")
	}
	return path
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// CoverPath returns where the album cover is written inside dir.
func (a *Album) CoverPath(dir string) string {
	return filepath.Join(dir, "cover.jpg")
}

// sanitizeFileName removes or replaces characters that are invalid in file/folder names.
//
// The following transformations are applied:
//   - Invalid characters (<>:"/\|?* and control chars) are replaced with underscore
//   - Trailing dots are removed (Windows limitation)
//   - Multiple whitespace is collapsed to single space
//   - Trailing whitespace is removed
//
// Example:
//
//	sanitizeFileName("Song: Part 1/2") // Returns "Song_ Part 1_2"
func sanitizeFileName(name string) string {
	name = invalidChars.ReplaceAllString(name, "_")
	name = trailingDots.ReplaceAllString(name, "")
	name = whitespace.ReplaceAllString(name, " ")
	return strings.TrimRight(name, " ")
}

var (
	invalidChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots = regexp.MustCompile(`\.+$`)
	whitespace   = regexp.MustCompile(`\s+`)
)
