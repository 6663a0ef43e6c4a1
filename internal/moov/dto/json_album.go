package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/handiism/moov-downloader/internal/model"
)

// ErrNoTracks is returned when a profile has no track module.
var ErrNoTracks = errors.New("album has no tracks")

// ProfileResponse is the envelope of profile/getProfile.
type ProfileResponse struct {
	DataObject *JSONAlbum `json:"dataObject"`
}

// JSONAlbum represents the album profile returned by MOOV.
//
// Only the fields below are read; everything else in the profile is ignored.
type JSONAlbum struct {
	ProfileID   string         `json:"profileId"`
	EngTitle    LocalizedField `json:"engTitle"`
	ChiTitle    LocalizedField `json:"chiTitle"`
	Artists     []JSONArtist   `json:"artists"`
	CNote       string         `json:"cnote"`
	AlbumLabel  string         `json:"albumLabel"`
	ReleaseDate string         `json:"releaseDate"`
	Images      []JSONImage    `json:"images"`
	Modules     []JSONModule   `json:"modules"`
}

// JSONArtist is an artist reference.
type JSONArtist struct {
	Name string `json:"name"`
}

// JSONImage is an image reference; Path is an absolute URL.
type JSONImage struct {
	Path string `json:"path"`
}

// JSONModule groups products on a profile. The first module holds the tracks.
type JSONModule struct {
	Products []JSONTrack `json:"products"`
}

// LocalizedField holds a localized title entry. Upstream sends a list whose
// first element is the title and whose third element is the release date;
// a plain string is accepted as a one element list.
type LocalizedField []string

// UnmarshalJSON accepts a string, a list of strings or null. Null entries in
// the list become empty strings.
func (f *LocalizedField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = nil
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = LocalizedField{s}
		return nil
	}

	var list []*string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("localized field: %w", err)
	}
	out := make(LocalizedField, len(list))
	for i, s := range list {
		if s != nil {
			out[i] = *s
		}
	}
	*f = out
	return nil
}

// At returns entry i, or "" when it does not exist.
func (f LocalizedField) At(i int) string {
	if i < 0 || i >= len(f) {
		return ""
	}
	return strings.TrimSpace(f[i])
}

// Localized returns the title field for lang, falling back to the other
// language when the preferred one is empty.
func (ja *JSONAlbum) Localized(lang model.Language) LocalizedField {
	primary, secondary := ja.EngTitle, ja.ChiTitle
	if lang == model.LanguageChinese {
		primary, secondary = secondary, primary
	}
	if primary.At(0) == "" {
		return secondary
	}
	return primary
}

// ToAlbum converts JSONAlbum to a model.Album.
//
// Tracks are numbered by their position in the first module, which is how
// the upstream orders them.
func (ja *JSONAlbum) ToAlbum(id, albumURL string, lang model.Language) (*model.Album, error) {
	if len(ja.Modules) == 0 || len(ja.Modules[0].Products) == 0 {
		return nil, ErrNoTracks
	}

	title := ja.Localized(lang)
	releaseDate := title.At(2)
	if releaseDate == "" {
		releaseDate = strings.TrimSpace(ja.ReleaseDate)
	}

	var coverURL string
	if len(ja.Images) > 0 {
		coverURL = ja.Images[0].Path
	}

	album := &model.Album{
		ID:          id,
		URL:         albumURL,
		Title:       title.At(0),
		Artists:     artistNames(ja.Artists),
		Label:       ja.AlbumLabel,
		Copyright:   ja.CNote,
		ReleaseDate: releaseDate,
		CoverURL:    coverURL,
	}

	for i, jt := range ja.Modules[0].Products {
		album.Tracks = append(album.Tracks, jt.ToTrack(i+1))
	}

	return album, nil
}

func artistNames(artists []JSONArtist) []string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return names
}
