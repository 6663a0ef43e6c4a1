package moov

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// ErrInvalidURL is returned for links that are not MOOV album URLs.
var ErrInvalidURL = errors.New("invalid album URL")

var albumURLPattern = regexp.MustCompile(`^https?://moov\.hk/#/album/([A-Za-z0-9]{13})(?:[/?#]|$)`)

// ExtractAlbumID returns the 13 character album id of rawURL.
//
// Example:
//
//	id, err := ExtractAlbumID("https://moov.hk/#/album/VAAAAAAAAAAAA")
//	// id = "VAAAAAAAAAAAA"
func ExtractAlbumID(rawURL string) (string, error) {
	m := albumURLPattern.FindStringSubmatch(strings.TrimSpace(rawURL))
	if m == nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}
	return m[1], nil
}

// AlbumURL returns the canonical web URL of an album.
func AlbumURL(id string) string {
	return "https://moov.hk/#/album/" + id
}

// CollectURLs expands command line inputs into a list of links.
//
// An input ending in ".txt" is read as a file with one link per line; any
// other input is used as-is. Blank lines are skipped and duplicates are
// dropped, keeping the first occurrence.
func CollectURLs(inputs []string) ([]string, error) {
	var urls []string
	seen := make(map[string]struct{})
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		urls = append(urls, s)
	}

	for _, in := range inputs {
		if !strings.HasSuffix(strings.ToLower(in), ".txt") {
			add(in)
			continue
		}
		lines, err := readLines(in)
		if err != nil {
			return nil, err
		}
		for _, line := range lines {
			add(line)
		}
	}
	return urls, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read url list: %w", err)
	}
	defer f.Close()
	return ReadURLs(f)
}

// ReadURLs returns the non-empty lines of r.
func ReadURLs(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
