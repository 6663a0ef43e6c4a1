package download

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/handiism/moov-downloader/internal/audio"
	"github.com/handiism/moov-downloader/internal/crypto"
	"github.com/handiism/moov-downloader/internal/hls"
	mhttp "github.com/handiism/moov-downloader/internal/http"
	"github.com/handiism/moov-downloader/internal/model"
	"github.com/handiism/moov-downloader/internal/moov"
	"github.com/handiism/moov-downloader/internal/moov/dto"
)

// ErrorKind classifies a pipeline failure by how far it propagates.
type ErrorKind int

const (
	// KindUnknown is an error none of the other kinds describe. It aborts
	// the current track.
	KindUnknown ErrorKind = iota
	// KindTransient is a transport failure that survived every retry.
	KindTransient
	// KindTransportFatal is a non-retryable HTTP status or a malformed
	// response.
	KindTransportFatal
	// KindCrypto is a segment that cannot be decrypted.
	KindCrypto
	// KindFilesystem is a local read, write or rename failure.
	KindFilesystem
	// KindTemplate is a filename template that cannot be rendered.
	KindTemplate
	// KindQualityUnavailable means no acceptable tier is offered.
	KindQualityUnavailable
	// KindAuth is a failed login and ends the run.
	KindAuth
	// KindInvalidURL is an input that is not an album link.
	KindInvalidURL
	// KindCancelled is a user interrupt.
	KindCancelled
)

var kindNames = [...]string{
	KindUnknown:            "unknown",
	KindTransient:          "transient",
	KindTransportFatal:     "transport",
	KindCrypto:             "crypto",
	KindFilesystem:         "filesystem",
	KindTemplate:           "template",
	KindQualityUnavailable: "quality unavailable",
	KindAuth:               "auth",
	KindInvalidURL:         "invalid url",
	KindCancelled:          "cancelled",
}

func (k ErrorKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// PipelineError is a failure of one pipeline step.
type PipelineError struct {
	Kind ErrorKind
	Op   string // step that failed, e.g. "fetch file meta"
	Err  error
}

func (e *PipelineError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// wrap annotates err with the failed step and its kind. A nil err stays nil.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PipelineError{Kind: Classify(err), Op: op, Err: err}
}

// Classify maps an error chain to its kind.
func Classify(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}

	var (
		statusErr *mhttp.StatusError
		pathErr   *fs.PathError
		linkErr   *os.LinkError
	)
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	case errors.Is(err, moov.ErrAuthFailed):
		return KindAuth
	case errors.Is(err, moov.ErrInvalidURL), errors.Is(err, mhttp.ErrInvalidURL):
		return KindInvalidURL
	case errors.Is(err, moov.ErrQualityUnavailable):
		return KindQualityUnavailable
	case errors.Is(err, crypto.ErrCiphertextLength), errors.Is(err, audio.ErrNotFLAC):
		return KindCrypto
	case errors.Is(err, model.ErrUnknownField):
		return KindTemplate
	case errors.Is(err, mhttp.ErrRetryExhausted):
		return KindTransient
	case errors.As(err, &statusErr),
		errors.Is(err, hls.ErrEmptyPlaylist),
		errors.Is(err, hls.ErrMasterPlaylist),
		errors.Is(err, dto.ErrMalformed),
		errors.Is(err, dto.ErrNoTracks):
		return KindTransportFatal
	case errors.As(err, &pathErr), errors.As(err, &linkErr):
		return KindFilesystem
	}
	return KindUnknown
}
