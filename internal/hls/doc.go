// Package hls turns a MOOV track manifest into an ordered segment list.
//
// Every non-comment line of a manifest is a segment. Upstream manifests may
// list some or all segment URLs without #EXTINF tags, so github.com/grafov/m3u8
// is only used to recognise and reject variant playlists.
package hls
