// Package ioutils provides file system and image processing utilities.
//
// # File Operations
//
//	err := ioutils.EnsureDir("/music/Artist - Album")
//	err = ioutils.WriteFileAtomic("/music/Artist - Album/cover.jpg", data)
//	err = ioutils.RemoveFiles(segmentPaths...)
//	err = ioutils.CleanDir("moov-dl_tmp")
//
// # Image Processing
//
// The ImageService checks downloaded cover art and converts it to JPEG:
//
//	svc := ioutils.NewImageService()
//	cover, err := svc.NormalizeCover(ctx, data, 0)
package ioutils
