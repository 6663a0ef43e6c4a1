// Package model defines the core data structures used throughout
// moov-downloader.
//
// # Album and Track
//
// Album and Track are immutable once the API client has built them. They
// compute the on-disk layout of an album:
//
//	dir := album.Dir(outputDir)              // "<output>/<albumartist> - <album>"
//	pre := track.ProvisionalPath(dir)        // "<dir>/1.flac"
//	cover := album.CoverPath(dir)            // "<dir>/cover.jpg"
//
// # File names
//
// Final track names come from a template:
//
//	fields := model.NewTemplateFields(album, track, comment)
//	name, err := model.RenderFileName("{track_padded}. {title}", fields)
//
// Available placeholders: {album}, {albumartist}, {artist}, {title}, {track},
// {track_padded}, {tracktotal}, {year}, {label}, {copyright}, {comment}.
//
// # Streaming
//
// FileMeta describes one track's encrypted HLS stream and Segment one entry
// of its playlist.
package model
