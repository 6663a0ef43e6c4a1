package model

import (
	"fmt"
	"strconv"
)

// FileMeta is the per-track streaming descriptor returned by checkout.
// It is fetched fresh for every track and never cached.
type FileMeta struct {
	// PlaylistURL points at the HLS manifest of encrypted segments.
	PlaylistURL string

	// ContentKey is the key material the segment key is derived from.
	ContentKey string

	// BitDepth is the sample size in bits (16 or 24).
	BitDepth int

	// SampleRate is the sample rate in kHz, e.g. 44.1 or 96.
	SampleRate float64

	// Quality is the tier that was negotiated.
	Quality Quality
}

// Specs describes the stream, e.g. "24-bit / 96 kHz FLAC".
func (f *FileMeta) Specs() string {
	return fmt.Sprintf("%d-bit / %s kHz FLAC", f.BitDepth, strconv.FormatFloat(f.SampleRate, 'f', -1, 64))
}

// Segment is one entry of a track playlist.
type Segment struct {
	// Index is the 1-based position; it defines concatenation order.
	Index int

	// URL is the absolute segment URL.
	URL string
}
