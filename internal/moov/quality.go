package moov

import (
	"errors"
	"fmt"

	"github.com/handiism/moov-downloader/internal/model"
)

// ErrQualityUnavailable is returned when a track has no usable FLAC tier.
var ErrQualityUnavailable = errors.New("unavailable in FLAC")

// SelectQuality picks the tier to request for a track.
//
// Hi-res is used when it was asked for and is offered. Otherwise the 16-bit
// tier is used if offered, and fellBack reports whether that differs from
// what was asked for.
func SelectQuality(want model.Quality, offered []model.Quality) (got model.Quality, fellBack bool, err error) {
	has := func(q model.Quality) bool {
		for _, o := range offered {
			if o == q {
				return true
			}
		}
		return false
	}

	if want == model.QualityHiRes && has(model.QualityHiRes) {
		return model.QualityHiRes, false, nil
	}
	if has(model.QualityLossless) {
		return model.QualityLossless, want != model.QualityLossless, nil
	}
	return "", false, fmt.Errorf("%w (offered: %v)", ErrQualityUnavailable, offered)
}
