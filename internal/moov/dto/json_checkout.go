package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/handiism/moov-downloader/internal/model"
)

// CheckoutResponse is the envelope of content/checkout.
type CheckoutResponse struct {
	Result struct {
		DataObject *JSONFileMeta `json:"dataObject"`
	} `json:"result"`
}

// ErrMalformed is returned for responses that do not have the expected shape.
var ErrMalformed = errors.New("malformed response")

// JSONFileMeta is the streaming descriptor of one track.
type JSONFileMeta struct {
	PlayURL    string     `json:"playUrl"`
	ContentKey string     `json:"contentKey"`
	BitDepth   FlexNumber `json:"bitDepth"`
	SampleRate FlexNumber `json:"sampleRate"`
}

// ToFileMeta converts JSONFileMeta to a model.FileMeta negotiated at q.
func (jf *JSONFileMeta) ToFileMeta(q model.Quality) (*model.FileMeta, error) {
	if jf.PlayURL == "" {
		return nil, fmt.Errorf("%w: checkout returned no playlist URL", ErrMalformed)
	}
	if jf.ContentKey == "" {
		return nil, fmt.Errorf("%w: checkout returned no content key", ErrMalformed)
	}
	return &model.FileMeta{
		PlaylistURL: jf.PlayURL,
		ContentKey:  jf.ContentKey,
		BitDepth:    int(jf.BitDepth),
		SampleRate:  float64(jf.SampleRate),
		Quality:     q,
	}, nil
}

// LyricResponse is the envelope of lyric/getLyric.
type LyricResponse struct {
	DataObject *JSONLyric `json:"dataObject"`
}

// JSONLyric holds LRC formatted lyrics.
type JSONLyric struct {
	Lyric string `json:"lyric"`
}

// FlexNumber decodes a JSON number that may be sent as a string.
type FlexNumber float64

// UnmarshalJSON parses 24, "24", 44.1 or "44.1". Null and "" decode to zero.
func (n *FlexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || string(data) == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", data, err)
	}
	*n = FlexNumber(v)
	return nil
}

// Decode unmarshals data into v, naming the endpoint on failure.
func Decode(endpoint string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s response: %w: %w", endpoint, ErrMalformed, err)
	}
	return nil
}
