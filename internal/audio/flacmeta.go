package audio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/icza/bitio"
	"github.com/mewkiz/flac/meta"
)

const (
	flacMarker     = "fLaC"
	blockHeaderLen = 4
	maxBlockLen    = 1<<24 - 1

	// PictureFrontCover is the FLAC picture type for a front cover.
	PictureFrontCover = 3
)

// rawBlock is a metadata block kept byte for byte across a rewrite.
type rawBlock struct {
	typ  meta.Type
	body []byte
}

// metadataLayout describes the metadata section of a FLAC file.
type metadataLayout struct {
	streamInfo []byte
	kept       []rawBlock
	// audioOffset is where the first audio frame starts.
	audioOffset int64
}

// readLayout scans the metadata block headers of a FLAC stream.
//
// STREAMINFO, SEEKTABLE, APPLICATION and CUESHEET blocks are kept. Existing
// VORBIS_COMMENT and PICTURE blocks are dropped along with PADDING.
func readLayout(r io.Reader) (*metadataLayout, error) {
	br := bitio.NewReader(bufio.NewReader(r))

	marker := make([]byte, len(flacMarker))
	if _, err := io.ReadFull(br, marker); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFLAC, err)
	}
	if string(marker) != flacMarker {
		return nil, ErrNotFLAC
	}

	layout := &metadataLayout{audioOffset: int64(len(flacMarker))}
	for last := false; !last; {
		last = br.TryReadBool()
		typ := meta.Type(br.TryReadBits(7))
		length := br.TryReadBits(24)
		if br.TryError != nil {
			return nil, fmt.Errorf("read block header: %w", br.TryError)
		}

		body := make([]byte, length)
		if _, err := io.ReadFull(br, body); err != nil {
			return nil, fmt.Errorf("read %v block: %w", typ, err)
		}
		layout.audioOffset += blockHeaderLen + int64(length)

		switch typ {
		case meta.TypeStreamInfo:
			layout.streamInfo = body
		case meta.TypeSeekTable, meta.TypeApplication, meta.TypeCueSheet:
			layout.kept = append(layout.kept, rawBlock{typ: typ, body: body})
		}
	}

	if layout.streamInfo == nil {
		return nil, errors.New("missing STREAMINFO block")
	}
	return layout, nil
}

// encodeMetadata serializes the marker and all metadata blocks. The last
// block carries the last-block flag.
func encodeMetadata(layout *metadataLayout, comment *meta.VorbisComment, picture *meta.Picture) ([]byte, error) {
	blocks := make([]rawBlock, 0, len(layout.kept)+3)
	blocks = append(blocks, rawBlock{typ: meta.TypeStreamInfo, body: layout.streamInfo})
	blocks = append(blocks, layout.kept...)
	blocks = append(blocks, rawBlock{typ: meta.TypeVorbisComment, body: encodeVorbisComment(comment)})
	if picture != nil {
		body, err := encodePicture(picture)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, rawBlock{typ: meta.TypePicture, body: body})
	}

	var buf bytes.Buffer
	buf.WriteString(flacMarker)
	w := bitio.NewWriter(&buf)
	for i, b := range blocks {
		if len(b.body) > maxBlockLen {
			return nil, fmt.Errorf("%v block too large: %d bytes", b.typ, len(b.body))
		}
		w.TryWriteBool(i == len(blocks)-1)
		w.TryWriteBits(uint64(b.typ), 7)
		w.TryWriteBits(uint64(len(b.body)), 24)
		w.TryWrite(b.body)
	}
	if w.TryError != nil {
		return nil, w.TryError
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeVorbisComment uses the little-endian Vorbis layout, unlike every
// other FLAC metadata block.
func encodeVorbisComment(c *meta.VorbisComment) []byte {
	var buf bytes.Buffer
	putString := func(s string) {
		binary.Write(&buf, binary.LittleEndian, uint32(len(s)))
		buf.WriteString(s)
	}

	putString(c.Vendor)
	binary.Write(&buf, binary.LittleEndian, uint32(len(c.Tags)))
	for _, tag := range c.Tags {
		putString(tag[0] + "=" + tag[1])
	}
	return buf.Bytes()
}

func encodePicture(p *meta.Picture) ([]byte, error) {
	var buf bytes.Buffer
	w := bitio.NewWriter(&buf)

	w.TryWriteBits(uint64(p.Type), 32)
	w.TryWriteBits(uint64(len(p.MIME)), 32)
	w.TryWrite([]byte(p.MIME))
	w.TryWriteBits(uint64(len(p.Desc)), 32)
	w.TryWrite([]byte(p.Desc))
	w.TryWriteBits(uint64(p.Width), 32)
	w.TryWriteBits(uint64(p.Height), 32)
	w.TryWriteBits(uint64(p.Depth), 32)
	w.TryWriteBits(uint64(p.NPalColors), 32)
	w.TryWriteBits(uint64(len(p.Data)), 32)
	w.TryWrite(p.Data)

	if w.TryError != nil {
		return nil, fmt.Errorf("encode picture: %w", w.TryError)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
