package dto

import (
	"github.com/handiism/moov-downloader/internal/model"
)

// JSONTrack represents a product entry of an album profile.
type JSONTrack struct {
	ProductID    string       `json:"productId"`
	ProductTitle string       `json:"productTitle"`
	Artists      []JSONArtist `json:"artists"`
	Qualities    string       `json:"qualities"`
}

// ToTrack converts JSONTrack to a model.Track at position number.
func (jt *JSONTrack) ToTrack(number int) *model.Track {
	return &model.Track{
		ID:        jt.ProductID,
		Number:    number,
		Title:     jt.ProductTitle,
		Artists:   artistNames(jt.Artists),
		Qualities: model.ParseQualities(jt.Qualities),
	}
}
