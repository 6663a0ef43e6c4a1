package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"
)

// ErrNotFLAC is returned when a file does not start with a FLAC stream marker.
var ErrNotFLAC = errors.New("not a FLAC stream")

// Concatenator joins decrypted segment files, in order, into one file.
//
// Implementations never leave a partial file at output: the result is
// written next to it and renamed into place only on success.
type Concatenator interface {
	Concat(ctx context.Context, paths []string, output string) error
}

// NewConcatenator returns an FFmpegConcatenator when ffmpeg is on PATH and
// a ByteConcatenator otherwise. Callers can tell the two apart with
// IsRemuxing.
func NewConcatenator(logger *zap.Logger) Concatenator {
	if logger == nil {
		logger = zap.NewNop()
	}
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		logger.Warn("ffmpeg not found, segments will be joined byte by byte", zap.Error(err))
		return &ByteConcatenator{}
	}
	return NewFFmpegConcatenator(path, logger)
}

// IsRemuxing reports whether c rebuilds a single FLAC stream instead of
// appending segment files.
func IsRemuxing(c Concatenator) bool {
	switch c.(type) {
	case ByteConcatenator, *ByteConcatenator:
		return false
	}
	return true
}

// FFmpegConcatenator remuxes segments with ffmpeg's concat demuxer and a
// stream copy, so no audio is re-encoded.
type FFmpegConcatenator struct {
	binary string
	logger *zap.Logger
}

// NewFFmpegConcatenator creates a concatenator running the ffmpeg binary.
func NewFFmpegConcatenator(binary string, logger *zap.Logger) *FFmpegConcatenator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FFmpegConcatenator{binary: binary, logger: logger}
}

// Concat implements Concatenator.
func (f *FFmpegConcatenator) Concat(ctx context.Context, paths []string, output string) error {
	if len(paths) == 0 {
		return errors.New("concat: no segments")
	}

	list, err := writeConcatList(paths)
	if err != nil {
		return err
	}
	defer os.Remove(list)

	tmp := partialPath(output)
	// A run killed during the remux leaves tmp behind.
	if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale output: %w", err)
	}
	args := concatArgs(list, tmp)

	f.logger.Debug("running ffmpeg", zap.String("binary", f.binary), zap.Strings("args", args))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.binary, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		os.Remove(tmp)
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("ffmpeg concat: %w: %s", err, msg)
		}
		return fmt.Errorf("ffmpeg concat: %w", err)
	}

	return commit(tmp, output)
}

// concatArgs builds the ffmpeg command line. OverWriteOutput must come after
// GlobalArgs: the global node starts a new stream and -y is read from the
// last one.
func concatArgs(list, output string) []string {
	return ffmpeg.Input(list, ffmpeg.KwArgs{"f": "concat", "safe": "0"}).
		Output(output, ffmpeg.KwArgs{"c": "copy", "f": "flac"}).
		GlobalArgs("-loglevel", "error").
		OverWriteOutput().
		GetArgs()
}

// writeConcatList writes an ffconcat list next to the first segment.
func writeConcatList(paths []string) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(paths[0]), "concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("create concat list: %w", err)
	}
	defer f.Close()

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			os.Remove(f.Name())
			return "", err
		}
		// ffconcat quoting: close the quote, escape the quote, reopen.
		line := "file '" + strings.ReplaceAll(abs, "'", `'\''`) + "'\n"
		if _, err := f.WriteString(line); err != nil {
			os.Remove(f.Name())
			return "", fmt.Errorf("write concat list: %w", err)
		}
	}
	return f.Name(), nil
}

// ByteConcatenator appends segment files verbatim. It is used when ffmpeg
// is not installed. The result keeps every segment's stream header, which
// most players accept but which is not a clean single FLAC stream.
type ByteConcatenator struct{}

// Concat implements Concatenator.
func (ByteConcatenator) Concat(ctx context.Context, paths []string, output string) error {
	if len(paths) == 0 {
		return errors.New("concat: no segments")
	}

	tmp := partialPath(output)
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	if err := appendFiles(ctx, out, paths); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	return commit(tmp, output)
}

func appendFiles(ctx context.Context, w io.Writer, paths []string) error {
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		in, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("open segment: %w", err)
		}
		_, err = io.Copy(w, in)
		in.Close()
		if err != nil {
			return fmt.Errorf("copy segment %s: %w", filepath.Base(p), err)
		}
	}
	return nil
}

// CheckFLAC reports ErrNotFLAC unless path starts with a FLAC stream marker.
func CheckFLAC(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %v", ErrNotFLAC, err)
	}
	if !filetype.Is(head[:n], "flac") {
		return ErrNotFLAC
	}
	return nil
}

func partialPath(output string) string {
	return output + ".part"
}

func commit(tmp, output string) error {
	if err := os.Rename(tmp, output); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("move output into place: %w", err)
	}
	return nil
}
