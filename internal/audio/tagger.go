package audio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bogem/id3v2"
	"github.com/h2non/filetype"
	"github.com/handiism/moov-downloader/internal/model"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/meta"
)

// Vendor is written as the Vorbis comment vendor string.
const Vendor = "moov-dl"

// Field is one Vorbis comment entry.
type Field struct {
	Name  string
	Value string
}

// MetadataFields returns the tags written for a track. Empty values are
// left out.
func MetadataFields(album *model.Album, track *model.Track, comment string) []Field {
	fields := []Field{
		{"ALBUM", album.Title},
		{"ALBUMARTIST", album.Artist()},
		{"ARTIST", track.Artist()},
		{"TITLE", track.Title},
		{"TRACKNUMBER", strconv.Itoa(track.Number)},
		{"TRACKTOTAL", strconv.Itoa(len(album.Tracks))},
		{"DATE", album.Year()},
		{"LABEL", album.Label},
		{"COPYRIGHT", album.Copyright},
		{"COMMENT", comment},
	}

	out := fields[:0]
	for _, f := range fields {
		if f.Value != "" {
			out = append(out, f)
		}
	}
	return out
}

// Tagger rewrites the metadata of FLAC files.
type Tagger struct{}

// NewTagger creates a new Tagger.
func NewTagger() *Tagger {
	return &Tagger{}
}

// WriteTags replaces every existing tag in the FLAC file at path with fields
// and, when cover is non-empty, a front cover picture.
//
// The file is rewritten through a temporary sibling and renamed into place,
// so a failure leaves the original untouched. Audio frames are copied
// without being decoded.
func (t *Tagger) WriteTags(path string, fields []Field, cover []byte) error {
	if err := stripID3(path); err != nil {
		return fmt.Errorf("strip ID3: %w", err)
	}

	stream, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotFLAC, err)
	}
	stream.Close()

	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	layout, err := readLayout(src)
	if err != nil {
		return err
	}

	comment := &meta.VorbisComment{Vendor: Vendor}
	for _, f := range fields {
		comment.Tags = append(comment.Tags, [2]string{f.Name, f.Value})
	}

	var picture *meta.Picture
	if len(cover) > 0 {
		picture = NewPicture(cover)
	}

	header, err := encodeMetadata(layout, comment, picture)
	if err != nil {
		return err
	}

	if _, err := src.Seek(layout.audioOffset, io.SeekStart); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tag-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(header); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("copy audio frames: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	src.Close()
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// NewPicture builds a front cover picture block for image data.
// Dimensions are filled in when the image header can be decoded.
func NewPicture(data []byte) *meta.Picture {
	pic := &meta.Picture{
		Type:  PictureFrontCover,
		MIME:  "image/jpeg",
		Depth: 24,
		Data:  data,
	}
	if kind, err := filetype.Image(data); err == nil {
		pic.MIME = kind.MIME.Value
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		pic.Width = uint32(cfg.Width)
		pic.Height = uint32(cfg.Height)
	}
	return pic
}

// ReadTags returns the Vorbis comment and front cover of a FLAC file.
// Either may be nil.
func ReadTags(path string) (*meta.VorbisComment, *meta.Picture, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return nil, nil, err
	}
	defer stream.Close()

	var (
		comment *meta.VorbisComment
		picture *meta.Picture
	)
	for _, block := range stream.Blocks {
		switch body := block.Body.(type) {
		case *meta.VorbisComment:
			comment = body
		case *meta.Picture:
			if body.Type == PictureFrontCover {
				picture = body
			}
		}
	}
	return comment, picture, nil
}

// Duration reports the playing time recorded in the STREAMINFO block.
func Duration(path string) (time.Duration, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	info := stream.Info
	if info == nil || info.SampleRate == 0 {
		return 0, errors.New("stream info without sample rate")
	}
	return time.Duration(info.NSamples) * time.Second / time.Duration(info.SampleRate), nil
}

// stripID3 removes an ID3v2 header some encoders put in front of the
// FLAC marker.
func stripID3(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	head := make([]byte, 3)
	_, err = io.ReadFull(f, head)
	f.Close()
	if err != nil || string(head) != "ID3" {
		return nil
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: false})
	if err != nil {
		return err
	}
	defer tag.Close()

	tag.DeleteAllFrames()
	return tag.Save()
}
