package model

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Track represents a single track within an album.
type Track struct {
	// ID is the upstream product id, used for checkout and lyrics.
	ID string

	// Number is the 1-based position in the album.
	Number int

	// Title is the track title.
	Title string

	// Artists lists the track artists.
	Artists []string

	// Qualities lists the tiers the track is offered in.
	Qualities []Quality
}

// Artist returns the track artists joined with ", ".
func (t *Track) Artist() string {
	return strings.Join(t.Artists, ", ")
}

// Padded returns the track number zero-padded to two digits.
func (t *Track) Padded() string {
	return fmt.Sprintf("%02d", t.Number)
}

// Offers reports whether the track is available in q.
func (t *Track) Offers(q Quality) bool {
	return slices.Contains(t.Qualities, q)
}

// ProvisionalPath is where the track is assembled before it is tagged and
// renamed to its final name.
func (t *Track) ProvisionalPath(albumDir string) string {
	return filepath.Join(albumDir, strconv.Itoa(t.Number)+".flac")
}

// Quality is an upstream fidelity tier.
type Quality string

const (
	// QualityLossless is 16-bit FLAC ("LL").
	QualityLossless Quality = "LL"

	// QualityHiRes is 24-bit FLAC ("HR").
	QualityHiRes Quality = "HR"
)

// ParseQuality maps the numeric config/CLI value to a tier: 1 = LL, 2 = HR.
func ParseQuality(n int) (Quality, error) {
	switch n {
	case 1:
		return QualityLossless, nil
	case 2:
		return QualityHiRes, nil
	}
	return "", fmt.Errorf("invalid quality %d, expected 1 (16-bit) or 2 (24-bit)", n)
}

// ParseQualities parses the upstream comma separated tier list, e.g. "HR,LL".
// Unknown tiers are kept so callers can report them.
func ParseQualities(s string) []Quality {
	var out []Quality
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, Quality(part))
		}
	}
	return out
}

// Language selects which localized title field is used for metadata.
type Language int

const (
	LanguageEnglish Language = iota + 1
	LanguageChinese
)

// ParseLanguage maps the numeric config/CLI value: 1 = English, 2 = Chinese.
func ParseLanguage(n int) (Language, error) {
	switch Language(n) {
	case LanguageEnglish, LanguageChinese:
		return Language(n), nil
	}
	return 0, fmt.Errorf("invalid metadata language %d, expected 1 (English) or 2 (Chinese)", n)
}

func (l Language) String() string {
	if l == LanguageChinese {
		return "chinese"
	}
	return "english"
}
