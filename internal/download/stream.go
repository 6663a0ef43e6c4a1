package download

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/handiism/moov-downloader/internal/audio"
	"github.com/handiism/moov-downloader/internal/crypto"
	"github.com/handiism/moov-downloader/internal/hls"
	mhttp "github.com/handiism/moov-downloader/internal/http"
	ioutils "github.com/handiism/moov-downloader/internal/io"
	"github.com/handiism/moov-downloader/internal/model"
	"github.com/handiism/moov-downloader/internal/moov"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StreamConfig configures a StreamDownloader.
type StreamConfig struct {
	// WorkDir holds decrypted segments until they are concatenated.
	WorkDir string

	// Workers bounds concurrent segment fetches. 1 fetches in order.
	Workers int

	// Retry is applied to the playlist and to every segment.
	Retry mhttp.RetryPolicy

	// NewBar creates the per-track segment bar. Nil draws nothing.
	NewBar BarFactory

	Logger *zap.Logger
}

// StreamDownloader turns a track's FileMeta into a provisional FLAC file.
type StreamDownloader struct {
	session *mhttp.Client
	concat  audio.Concatenator
	cfg     StreamConfig
	logger  *zap.Logger
}

// NewStreamDownloader creates a StreamDownloader fetching through session.
func NewStreamDownloader(session *mhttp.Client, concat audio.Concatenator, cfg StreamConfig) *StreamDownloader {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry = mhttp.DefaultRetryPolicy()
	}
	if cfg.NewBar == nil {
		cfg.NewBar = nopBars
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamDownloader{session: session, concat: concat, cfg: cfg, logger: logger}
}

// Download fetches, decrypts and joins every segment of the track and
// returns the path of the provisional file in albumDir.
//
// Any segment that cannot be fetched or decrypted aborts the track; nothing
// is concatenated then. Segment files are removed before Download returns.
func (d *StreamDownloader) Download(ctx context.Context, fm *model.FileMeta, track *model.Track, albumDir string) (string, error) {
	manifest, err := d.session.FetchWithRetry(ctx, fm.PlaylistURL, d.cfg.Retry, &mhttp.RequestOptions{
		Header: http.Header{"User-Agent": {moov.PlaylistUserAgent}},
	})
	if err != nil {
		return "", fmt.Errorf("fetch playlist: %w", err)
	}

	segments, err := hls.ParsePlaylist(string(manifest), fm.PlaylistURL)
	if err != nil {
		return "", err
	}

	if err := ioutils.EnsureDir(d.cfg.WorkDir); err != nil {
		return "", err
	}

	paths := make([]string, len(segments))
	defer func() {
		if err := ioutils.RemoveFiles(paths...); err != nil {
			d.logger.Warn("failed to remove segment files", zap.Error(err))
		}
	}()

	if err := d.fetchSegments(ctx, fm, track, segments, paths); err != nil {
		return "", err
	}

	output := track.ProvisionalPath(albumDir)
	if err := d.concat.Concat(ctx, paths, output); err != nil {
		return "", fmt.Errorf("concatenate segments: %w", err)
	}
	if err := audio.CheckFLAC(output); err != nil {
		os.Remove(output)
		return "", err
	}

	d.logger.Debug("track assembled",
		zap.String("track", track.ID),
		zap.Int("segments", len(segments)),
		zap.String("path", output))
	return output, nil
}

// fetchSegments stores segment i at paths[i], so concatenation follows
// playlist order whatever order the workers finish in.
func (d *StreamDownloader) fetchSegments(ctx context.Context, fm *model.FileMeta, track *model.Track, segments []model.Segment, paths []string) error {
	key := crypto.DeriveKey(fm.ContentKey, crypto.Secret)

	bar := d.cfg.NewBar(len(segments), fmt.Sprintf("%s. %s", track.Padded(), track.Title))
	defer bar.Exit()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Workers)

	for i, seg := range segments {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			data, err := d.session.FetchWithRetry(gctx, seg.URL, d.cfg.Retry, nil)
			if err != nil {
				return fmt.Errorf("segment %d: %w", seg.Index, err)
			}

			plain, err := crypto.Decrypt(data, key[:], crypto.SegmentIV[:])
			if err != nil {
				return fmt.Errorf("segment %d: %w", seg.Index, err)
			}

			path := filepath.Join(d.cfg.WorkDir, fmt.Sprintf("%s-%d.flac", track.ID, seg.Index))
			paths[i] = path
			if err := os.WriteFile(path, plain, 0644); err != nil {
				return fmt.Errorf("segment %d: %w", seg.Index, err)
			}

			bar.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
