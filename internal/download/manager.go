package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/handiism/moov-downloader/internal/audio"
	"github.com/handiism/moov-downloader/internal/config"
	mhttp "github.com/handiism/moov-downloader/internal/http"
	ioutils "github.com/handiism/moov-downloader/internal/io"
	"github.com/handiism/moov-downloader/internal/model"
	"github.com/handiism/moov-downloader/internal/moov"
	"go.uber.org/zap"
)

// API is the part of the MOOV client the Manager depends on.
type API interface {
	Authenticate(ctx context.Context, email, password string) error
	Album(ctx context.Context, id string, lang model.Language) (*model.Album, error)
	FileMeta(ctx context.Context, trackID string, q model.Quality) (*model.FileMeta, error)
	Lyrics(ctx context.Context, trackID string) (string, error)
}

// Streamer downloads the audio of one track into a provisional file.
type Streamer interface {
	Download(ctx context.Context, fm *model.FileMeta, track *model.Track, albumDir string) (string, error)
}

// TrackStatus is the outcome of one track.
type TrackStatus int

const (
	TrackFailed TrackStatus = iota
	TrackDownloaded
	TrackSkipped // final file already existed
)

func (s TrackStatus) String() string {
	switch s {
	case TrackDownloaded:
		return "downloaded"
	case TrackSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// TrackResult reports what happened to one track.
type TrackResult struct {
	Track   *model.Track
	Status  TrackStatus
	Path    string // final file, or the provisional one when renaming failed
	Quality model.Quality
	Err     error
}

// AlbumResult reports what happened to one album.
type AlbumResult struct {
	URL    string
	Album  *model.Album // nil when metadata could not be fetched
	Dir    string
	Tracks []TrackResult
	Err    error // album level failure, including an interrupt
}

// Count returns how many tracks ended with status s.
func (r *AlbumResult) Count(s TrackStatus) int {
	n := 0
	for _, t := range r.Tracks {
		if t.Status == s {
			n++
		}
	}
	return n
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithSession sets the HTTP session used for the API, segments and covers.
func WithSession(session *mhttp.Client) Option {
	return func(m *Manager) {
		m.session = session
	}
}

// WithAPI replaces the MOOV client.
func WithAPI(api API) Option {
	return func(m *Manager) {
		m.api = api
	}
}

// WithStreamer replaces the segment downloader.
func WithStreamer(s Streamer) Option {
	return func(m *Manager) {
		m.stream = s
	}
}

// WithBarFactory sets how segment progress is drawn for the default
// streamer.
func WithBarFactory(f BarFactory) Option {
	return func(m *Manager) {
		m.newBar = f
	}
}

// Manager runs the whole batch: sign in, then every album in order and
// every track of an album in order.
type Manager struct {
	settings *config.Settings
	api      API
	session  *mhttp.Client
	stream   Streamer
	tagger   *audio.Tagger
	images   *ioutils.ImageService
	playlist *audio.PlaylistCreator
	newBar   BarFactory
	logger   *zap.Logger

	// byteJoin is set when ffmpeg is missing and segments are appended.
	byteJoin bool

	onProgress func(ProgressEvent)

	mu        sync.Mutex
	skipAlbum context.CancelFunc
}

// NewManager creates a new download Manager. Settings must be valid.
func NewManager(settings *config.Settings, onProgress func(ProgressEvent), opts ...Option) *Manager {
	m := &Manager{
		settings:   settings,
		tagger:     audio.NewTagger(),
		images:     ioutils.NewImageService(),
		playlist:   settings.Playlist(),
		onProgress: onProgress,
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.session == nil {
		m.session = mhttp.NewClient(
			mhttp.WithRateLimit(settings.RequestsPerSec),
			mhttp.WithLogger(m.logger),
		)
	}
	if m.api == nil {
		m.api = moov.NewClient(m.session, moov.WithLogger(m.logger))
	}
	if m.stream == nil {
		concat := audio.NewConcatenator(m.logger)
		m.byteJoin = !audio.IsRemuxing(concat)
		m.stream = NewStreamDownloader(m.session, concat, StreamConfig{
			WorkDir: settings.WorkDir,
			Workers: settings.SegmentWorkers,
			Retry:   settings.RetryPolicy(),
			NewBar:  m.newBar,
			Logger:  m.logger,
		})
	}
	return m
}

// Run signs in and downloads every album URL.
//
// A failed login ends the run before any album is touched. Any other
// failure is reported and the run moves on to the next track or album.
// Run returns early only when ctx is cancelled.
func (m *Manager) Run(ctx context.Context, urls []string) ([]AlbumResult, error) {
	if err := m.api.Authenticate(ctx, m.settings.Email, m.settings.Password); err != nil {
		return nil, wrap("authenticate", err)
	}
	m.progress(ProgressEvent{Message: "Signed in successfully.", Level: LevelSuccess})
	if m.byteJoin {
		m.progress(ProgressEvent{
			Message: "ffmpeg not found. Segments will be joined without remuxing, install ffmpeg for clean FLAC files.",
			Level:   LevelWarning,
		})
	}

	results := make([]AlbumResult, 0, len(urls))
	for i, albumURL := range urls {
		if err := ctx.Err(); err != nil {
			return results, wrap("run", err)
		}
		res := m.processAlbum(ctx, albumURL, i+1, len(urls))
		results = append(results, res)
	}
	return results, nil
}

// SkipCurrentAlbum aborts the album being processed. The run continues with
// the next album. It reports whether an album was in progress.
func (m *Manager) SkipCurrentAlbum() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.skipAlbum == nil {
		return false
	}
	m.skipAlbum()
	return true
}

func (m *Manager) setSkip(cancel context.CancelFunc) {
	m.mu.Lock()
	m.skipAlbum = cancel
	m.mu.Unlock()
}

func (m *Manager) processAlbum(ctx context.Context, albumURL string, num, total int) (res AlbumResult) {
	res.URL = albumURL

	ctx, cancel := context.WithCancel(ctx)
	m.setSkip(cancel)
	defer func() {
		m.setSkip(nil)
		cancel()
		m.cleanWorkDir()
	}()

	id, err := moov.ExtractAlbumID(albumURL)
	if err != nil {
		res.Err = wrap("parse album url", err)
		m.albumFailed(&res, num, total)
		return res
	}

	album, err := m.api.Album(ctx, id, m.settings.Language())
	if err != nil {
		res.Err = wrap("fetch album metadata", err)
		m.albumFailed(&res, num, total)
		return res
	}
	res.Album = album
	res.Dir = album.Dir(m.settings.OutputDir)

	m.progress(ProgressEvent{
		Message: fmt.Sprintf("Album %d of %d: %s - %s", num, total, album.Artist(), album.Title),
		Level:   LevelInfo,
	})

	if err := ioutils.EnsureDir(res.Dir); err != nil {
		res.Err = wrap("create album directory", err)
		m.albumFailed(&res, num, total)
		return res
	}

	cover := &albumCover{path: album.CoverPath(res.Dir)}
	for _, track := range album.Tracks {
		if err := ctx.Err(); err != nil {
			res.Err = wrap("download album", err)
			break
		}
		res.Tracks = append(res.Tracks, m.processTrack(ctx, album, track, res.Dir, cover))
	}

	if cover.written && !m.settings.KeepCover {
		if err := ioutils.RemoveFiles(cover.path); err != nil {
			m.logger.Warn("failed to remove cover", zap.String("path", cover.path), zap.Error(err))
		}
	}

	m.writePlaylist(album, &res)

	switch {
	case res.Err != nil:
		m.albumFailed(&res, num, total)
	case res.Count(TrackFailed) > 0:
		m.progress(ProgressEvent{
			Message: fmt.Sprintf("Finished %s, %d of %d tracks failed", album.Title, res.Count(TrackFailed), len(album.Tracks)),
			Level:   LevelWarning,
		})
	default:
		m.progress(ProgressEvent{Message: fmt.Sprintf("Successfully downloaded album: %s", album.Title), Level: LevelSuccess})
	}
	return res
}

func (m *Manager) albumFailed(res *AlbumResult, num, total int) {
	msg := fmt.Sprintf("Album %d of %d failed: %v", num, total, res.Err)
	if Classify(res.Err) == KindCancelled {
		msg = fmt.Sprintf("Album %d of %d skipped.", num, total)
	}
	m.progress(ProgressEvent{Message: msg, Level: LevelError})
	m.logger.Error("album failed", zap.String("url", res.URL), zap.Error(res.Err))
}

func (m *Manager) processTrack(ctx context.Context, album *model.Album, track *model.Track, dir string, cover *albumCover) TrackResult {
	res := TrackResult{Track: track}
	defer m.cleanWorkDir()

	comment := m.settings.Comment
	if comment == "" {
		comment = album.URL
	}

	final := filepath.Join(dir, m.fileName(album, track, comment)+".flac")
	if ioutils.FileExists(final) {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Track %d already exists locally.", track.Number), Level: LevelVerbose})
		res.Status = TrackSkipped
		res.Path = final
		return res
	}

	fail := func(op string, err error) TrackResult {
		res.Status = TrackFailed
		res.Err = wrap(op, err)
		m.progress(ProgressEvent{
			Message: fmt.Sprintf("Track %d of %d failed: %v", track.Number, len(album.Tracks), res.Err),
			Level:   LevelError,
		})
		m.logger.Error("track failed",
			zap.String("album", album.ID),
			zap.String("track", track.ID),
			zap.Stringer("kind", Classify(res.Err)),
			zap.Error(res.Err))
		return res
	}

	quality, fellBack, err := moov.SelectQuality(m.settings.WantQuality(), track.Qualities)
	if err != nil {
		return fail("select quality", err)
	}
	if fellBack {
		m.progress(ProgressEvent{
			Message: fmt.Sprintf("Unavailable in %q. %q will be used instead.", m.settings.WantQuality(), quality),
			Level:   LevelWarning,
		})
	}
	res.Quality = quality

	fm, err := m.api.FileMeta(ctx, track.ID, quality)
	if err != nil {
		return fail("fetch file meta", err)
	}

	m.progress(ProgressEvent{
		Message: fmt.Sprintf("Track %d of %d: %s - %s", track.Number, len(album.Tracks), track.Title, fm.Specs()),
		Level:   LevelInfo,
	})

	provisional, err := m.stream.Download(ctx, fm, track, dir)
	if err != nil {
		return fail("download", err)
	}

	art := m.coverArt(ctx, album, cover)
	if err := m.tagger.WriteTags(provisional, audio.MetadataFields(album, track, comment), art); err != nil {
		os.Remove(provisional)
		return fail("write tags", err)
	}

	res.Status = TrackDownloaded
	res.Path = final
	if err := os.Rename(provisional, final); err != nil {
		res.Path = provisional
		m.progress(ProgressEvent{
			Message: fmt.Sprintf("Failed to rename track, it was kept as %s", filepath.Base(provisional)),
			Level:   LevelWarning,
		})
		m.logger.Warn("rename failed", zap.String("from", provisional), zap.String("to", final), zap.Error(err))
	}

	if m.settings.Lyrics {
		m.writeLyrics(ctx, track, res.Path)
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded: %s", filepath.Base(res.Path)), Level: LevelVerbose})
	return res
}

// fileName renders the configured template, falling back to the default
// one when it references an unknown field.
func (m *Manager) fileName(album *model.Album, track *model.Track, comment string) string {
	fields := model.NewTemplateFields(album, track, comment)

	name, err := model.RenderFileName(m.settings.Template, fields)
	if err == nil {
		return name
	}
	m.progress(ProgressEvent{
		Message: "Failed to parse filename template. Default one will be used instead.",
		Level:   LevelWarning,
	})
	m.logger.Warn("template rejected", zap.String("template", m.settings.Template), zap.Error(err))

	name, err = model.RenderFileName(model.DefaultTemplate, fields)
	if err != nil {
		// Only an empty title gets here.
		return track.Padded()
	}
	return name
}

// albumCover is fetched at most once per album, when the first track
// reaches tagging, and kept in memory for every later track.
type albumCover struct {
	path    string
	fetched bool
	written bool
	data    []byte
}

func (m *Manager) coverArt(ctx context.Context, album *model.Album, cover *albumCover) []byte {
	if cover.fetched {
		return cover.data
	}
	cover.fetched = true

	if !album.HasCover() {
		m.logger.Debug("album has no cover", zap.String("album", album.ID))
		return nil
	}

	data, err := m.session.DownloadBytes(ctx, album.CoverURL)
	if err == nil {
		data, err = m.images.NormalizeCover(ctx, data, m.settings.CoverMaxSize)
	}
	if err != nil {
		m.progress(ProgressEvent{Message: "Failed to get cover.", Level: LevelWarning})
		m.logger.Warn("cover unavailable", zap.String("url", album.CoverURL), zap.Error(err))
		return nil
	}
	cover.data = data

	if err := ioutils.WriteFileAtomic(cover.path, data); err != nil {
		m.progress(ProgressEvent{Message: "Failed to write cover.", Level: LevelWarning})
		m.logger.Warn("cover not saved", zap.String("path", cover.path), zap.Error(err))
	} else {
		cover.written = true
	}
	return cover.data
}

func (m *Manager) writeLyrics(ctx context.Context, track *model.Track, audioPath string) {
	lyrics, err := m.api.Lyrics(ctx, track.ID)
	if err != nil {
		m.progress(ProgressEvent{Message: "Failed to get lyrics.", Level: LevelWarning})
		m.logger.Warn("lyrics unavailable", zap.String("track", track.ID), zap.Error(err))
		return
	}
	if lyrics == "" {
		return
	}

	path := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".lrc"
	if err := ioutils.WriteFileAtomic(path, []byte(lyrics)); err != nil {
		m.progress(ProgressEvent{Message: "Failed to write lyrics.", Level: LevelWarning})
		m.logger.Warn("lyrics not saved", zap.String("path", path), zap.Error(err))
		return
	}
	m.progress(ProgressEvent{Message: "Wrote lyrics.", Level: LevelVerbose})
}

func (m *Manager) writePlaylist(album *model.Album, res *AlbumResult) {
	if m.playlist == nil {
		return
	}

	var entries []audio.PlaylistEntry
	for _, t := range res.Tracks {
		if t.Status == TrackFailed {
			continue
		}
		duration, err := audio.Duration(t.Path)
		if err != nil {
			m.logger.Debug("unknown track duration", zap.String("path", t.Path), zap.Error(err))
		}
		entries = append(entries, audio.PlaylistEntry{
			Path:     t.Path,
			Title:    t.Track.Title,
			Artist:   t.Track.Artist(),
			Duration: duration,
		})
	}
	if len(entries) == 0 {
		return
	}

	content := m.playlist.CreatePlaylist(album.Title, album.Artist(), entries)
	path := filepath.Join(res.Dir, album.FolderName()+m.playlist.Format().Extension())
	if err := ioutils.WriteFileAtomic(path, []byte(content)); err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error creating playlist: %v", err), Level: LevelWarning})
		return
	}
	m.progress(ProgressEvent{Message: fmt.Sprintf("Created playlist for %s", album.Title), Level: LevelSuccess})
}

func (m *Manager) cleanWorkDir() {
	if err := ioutils.CleanDir(m.settings.WorkDir); err != nil {
		m.logger.Warn("failed to clean work dir", zap.String("dir", m.settings.WorkDir), zap.Error(err))
	}
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}
