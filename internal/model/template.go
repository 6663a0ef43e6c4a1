package model

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultTemplate is used when no template is configured or the configured
// one references an unknown field.
const DefaultTemplate = "{track_padded}. {title}"

// ErrUnknownField is returned when a template references a field that does
// not exist.
var ErrUnknownField = errors.New("unknown template field")

var placeholder = regexp.MustCompile(`\{(\w*)\}`)

// TemplateFields holds the values a filename template can reference.
//
// Available placeholders: {album}, {albumartist}, {artist}, {title},
// {track}, {track_padded}, {tracktotal}, {year}, {label}, {copyright},
// {comment}.
type TemplateFields map[string]string

// NewTemplateFields collects the fields of track within album.
func NewTemplateFields(album *Album, track *Track, comment string) TemplateFields {
	return TemplateFields{
		"album":        album.Title,
		"albumartist":  album.Artist(),
		"artist":       track.Artist(),
		"title":        track.Title,
		"track":        strconv.Itoa(track.Number),
		"track_padded": track.Padded(),
		"tracktotal":   strconv.Itoa(len(album.Tracks)),
		"year":         album.Year(),
		"label":        album.Label,
		"copyright":    album.Copyright,
		"comment":      comment,
	}
}

// RenderFileName expands template and returns a sanitized file name without
// extension. It fails with ErrUnknownField if any placeholder is not a known
// field; nothing is substituted in that case.
//
// Example:
//
//	name, err := RenderFileName("{track_padded}. {title}", fields)
//	// name = "01. Intro"
func RenderFileName(template string, fields TemplateFields) (string, error) {
	for _, m := range placeholder.FindAllStringSubmatch(template, -1) {
		if _, ok := fields[m[1]]; !ok {
			return "", fmt.Errorf("%w: {%s}", ErrUnknownField, m[1])
		}
	}

	name := placeholder.ReplaceAllStringFunc(template, func(s string) string {
		return fields[strings.Trim(s, "{}")]
	})

	name = sanitizeFileName(name)
	if name == "" {
		return "", fmt.Errorf("template %q produced an empty file name", template)
	}
	return name, nil
}
