package download

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/handiism/moov-downloader/internal/crypto"
	"github.com/handiism/moov-downloader/internal/model"
	"github.com/handiism/moov-downloader/internal/moov"
	"github.com/icza/bitio"
)

// flacHeader is "fLaC", a STREAMINFO block and a PADDING block: 48 bytes,
// so it fills whole AES blocks on its own.
func flacHeader(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString("fLaC")
	w := bitio.NewWriter(&buf)

	w.TryWriteBool(false)
	w.TryWriteBits(0, 7)
	w.TryWriteBits(34, 24)
	w.TryWriteBits(4096, 16)
	w.TryWriteBits(4096, 16)
	w.TryWriteBits(0, 24)
	w.TryWriteBits(0, 24)
	w.TryWriteBits(96000, 20)
	w.TryWriteBits(1, 3)
	w.TryWriteBits(23, 5)
	w.TryWriteBits(960000, 36)
	w.TryWrite(make([]byte, 16))

	w.TryWriteBool(true)
	w.TryWriteBits(1, 7)
	w.TryWriteBits(2, 24)
	w.TryWrite([]byte{0, 0})

	if w.TryError != nil {
		t.Fatal(w.TryError)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 48 {
		t.Fatalf("header is %d bytes, want 48", buf.Len())
	}
	return buf.Bytes()
}

// trackSegments returns the plaintext segments of a track: the FLAC header
// followed by n-1 blocks of fake frame data.
func trackSegments(t *testing.T, trackID string, n int) [][]byte {
	t.Helper()
	segs := [][]byte{flacHeader(t)}
	for i := 1; i < n; i++ {
		frame := fmt.Sprintf("%-16s", fmt.Sprintf("%s#%d", trackID, i))
		segs = append(segs, []byte(frame[:16]))
	}
	return segs
}

func contentKey(trackID string) string {
	return "ck-" + trackID
}

// segmentServer serves encrypted tracks at /<track>/playlist.m3u8 and
// /<track>/seg-<n>.bin, and a cover at /cover.jpg.
type segmentServer struct {
	*httptest.Server

	mu     sync.Mutex
	tracks map[string][][]byte // ciphertext per track
	fail   map[string]int      // "<track>/<n>" -> status
	flaky  map[string]int      // "<track>/<n>" -> failures left before success
	hits   map[string]int      // "<track>/<n>" -> requests

	coverStatus int
	cover       []byte

	segmentHits  atomic.Int32
	playlistUAOK atomic.Bool
}

func newSegmentServer(t *testing.T) *segmentServer {
	t.Helper()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4)), nil); err != nil {
		t.Fatal(err)
	}

	s := &segmentServer{
		tracks:      make(map[string][][]byte),
		fail:        make(map[string]int),
		flaky:       make(map[string]int),
		hits:        make(map[string]int),
		coverStatus: http.StatusOK,
		cover:       buf.Bytes(),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// addTrack encrypts plain segments with the key derived for trackID.
func (s *segmentServer) addTrack(t *testing.T, trackID string, plain [][]byte) {
	t.Helper()
	key := crypto.DeriveKey(contentKey(trackID), crypto.Secret)

	var enc [][]byte
	for _, p := range plain {
		c, err := crypto.Encrypt(p, key[:], crypto.SegmentIV[:])
		if err != nil {
			t.Fatal(err)
		}
		enc = append(enc, c)
	}

	s.mu.Lock()
	s.tracks[trackID] = enc
	s.mu.Unlock()
}

func (s *segmentServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/cover.jpg" {
		if s.coverStatus != http.StatusOK {
			http.Error(w, "no cover", s.coverStatus)
			return
		}
		w.Write(s.cover)
		return
	}

	trackID, file, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")

	s.mu.Lock()
	segs, ok := s.tracks[trackID]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}

	if file == "playlist.m3u8" {
		s.playlistUAOK.Store(r.UserAgent() == moov.PlaylistUserAgent)
		var sb strings.Builder
		sb.WriteString("#EXTM3U\r\n#EXT-X-TARGETDURATION:10\r\n")
		for i := range segs {
			fmt.Fprintf(&sb, "#EXTINF:10.0,\r\nseg-%d.bin\r\n", i+1)
		}
		sb.WriteString("#EXT-X-ENDLIST\r\n")
		w.Write([]byte(sb.String()))
		return
	}

	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(file, "seg-"), ".bin"))
	if err != nil || n < 1 || n > len(segs) {
		http.NotFound(w, r)
		return
	}
	s.segmentHits.Add(1)

	key := fmt.Sprintf("%s/%d", trackID, n)
	s.mu.Lock()
	s.hits[key]++
	status := s.fail[key]
	if s.flaky[key] > 0 {
		s.flaky[key]--
		status = http.StatusServiceUnavailable
	}
	s.mu.Unlock()
	if status != 0 {
		http.Error(w, "failed", status)
		return
	}
	w.Write(segs[n-1])
}

func (s *segmentServer) fileMeta(trackID string) *model.FileMeta {
	return &model.FileMeta{
		PlaylistURL: s.URL + "/" + trackID + "/playlist.m3u8",
		ContentKey:  contentKey(trackID),
		BitDepth:    24,
		SampleRate:  96,
		Quality:     model.QualityHiRes,
	}
}

// fakeAPI serves albums from memory and file metas from a segmentServer.
type fakeAPI struct {
	srv     *segmentServer
	albums  map[string]*model.Album
	lyrics  map[string]string
	authErr error

	// onFileMeta, when set, runs before a file meta is returned.
	onFileMeta func(ctx context.Context, trackID string) error

	albumCalls    atomic.Int32
	fileMetaCalls atomic.Int32
}

func (f *fakeAPI) Authenticate(ctx context.Context, email, password string) error {
	return f.authErr
}

func (f *fakeAPI) Album(ctx context.Context, id string, lang model.Language) (*model.Album, error) {
	f.albumCalls.Add(1)
	album, ok := f.albums[id]
	if !ok {
		return nil, fmt.Errorf("album %s: not found", id)
	}
	return album, nil
}

func (f *fakeAPI) FileMeta(ctx context.Context, trackID string, q model.Quality) (*model.FileMeta, error) {
	f.fileMetaCalls.Add(1)
	if f.onFileMeta != nil {
		if err := f.onFileMeta(ctx, trackID); err != nil {
			return nil, err
		}
	}
	fm := f.srv.fileMeta(trackID)
	fm.Quality = q
	return fm, nil
}

func (f *fakeAPI) Lyrics(ctx context.Context, trackID string) (string, error) {
	return f.lyrics[trackID], nil
}

// addAlbum registers an album with the given track titles, all offered in
// HR and LL, and serves their segments.
func (f *fakeAPI) addAlbum(t *testing.T, id, title string, tracks ...string) *model.Album {
	t.Helper()
	album := &model.Album{
		ID:          id,
		URL:         moov.AlbumURL(id),
		Title:       title,
		Artists:     []string{"Singer"},
		Label:       "Label",
		ReleaseDate: "2020-01-02",
		CoverURL:    f.srv.URL + "/cover.jpg",
	}
	for i, name := range tracks {
		trackID := fmt.Sprintf("%s-t%d", id, i+1)
		album.Tracks = append(album.Tracks, &model.Track{
			ID:        trackID,
			Number:    i + 1,
			Title:     name,
			Artists:   []string{"Singer"},
			Qualities: []model.Quality{model.QualityHiRes, model.QualityLossless},
		})
		f.srv.addTrack(t, trackID, trackSegments(t, trackID, 3))
	}
	if f.albums == nil {
		f.albums = make(map[string]*model.Album)
	}
	f.albums[id] = album
	return album
}

// fakeBar records how it was driven.
type fakeBar struct {
	mu    sync.Mutex
	added int
	exits int
}

func (b *fakeBar) Add(n int) error {
	b.mu.Lock()
	b.added += n
	b.mu.Unlock()
	return nil
}

func (b *fakeBar) Exit() error {
	b.mu.Lock()
	b.exits++
	b.mu.Unlock()
	return nil
}
