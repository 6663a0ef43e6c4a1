package hls

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/grafov/m3u8"
	"github.com/handiism/moov-downloader/internal/model"
)

// ErrEmptyPlaylist is returned when a manifest lists no segments.
var ErrEmptyPlaylist = errors.New("playlist contains no segments")

// ErrMasterPlaylist is returned for a variant (master) manifest.
var ErrMasterPlaylist = errors.New("master playlists are not supported")

// ParsePlaylist returns the segments of manifest in play order, numbered
// from 1. Every line that is neither blank nor a tag is a segment, with or
// without a preceding #EXTINF. Relative segment URIs are resolved against
// baseURL.
func ParsePlaylist(manifest, baseURL string) ([]model.Segment, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse playlist URL: %w", err)
	}

	if err := checkManifest(manifest); err != nil {
		return nil, err
	}

	uris := scanLines(manifest)
	if len(uris) == 0 {
		return nil, ErrEmptyPlaylist
	}

	segments := make([]model.Segment, 0, len(uris))
	for i, uri := range uris {
		ref, err := url.Parse(uri)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i+1, err)
		}
		segments = append(segments, model.Segment{
			Index: i + 1,
			URL:   base.ResolveReference(ref).String(),
		})
	}
	return segments, nil
}

// checkManifest rejects variant (master) manifests. A manifest the decoder
// cannot make sense of is accepted; its lines are still scanned.
func checkManifest(manifest string) error {
	_, listType, err := m3u8.DecodeFrom(strings.NewReader(manifest), false)
	if err == nil && listType == m3u8.MASTER {
		return ErrMasterPlaylist
	}
	return nil
}

// scanLines returns every non-empty line that is not a tag or comment.
func scanLines(manifest string) []string {
	var uris []string
	scanner := bufio.NewScanner(strings.NewReader(manifest))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		uris = append(uris, line)
	}
	return uris
}
