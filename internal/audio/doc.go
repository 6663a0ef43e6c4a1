// Package audio turns decrypted segments into a finished, tagged FLAC file.
//
// # Concatenation
//
// A Concatenator joins segment files in order. NewConcatenator picks the
// ffmpeg remuxer when the binary is installed and falls back to a plain
// byte join otherwise:
//
//	concat := audio.NewConcatenator(logger)
//	err := concat.Concat(ctx, segmentPaths, "01.flac")
//
// # Tagging
//
// Tagger rewrites the FLAC metadata section. Existing Vorbis comments,
// pictures and padding are dropped, then one Vorbis comment block and an
// optional front cover are written:
//
//	fields := audio.MetadataFields(album, track, comment)
//	err := audio.NewTagger().WriteTags("01.flac", fields, coverBytes)
//
// # Playlist Generation
//
// PlaylistCreator writes M3U, PLS, WPL or ZPL playlists for the tracks of
// an album that finished downloading.
package audio
