package ioutils

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoder registration

	"github.com/h2non/filetype"
	"golang.org/x/image/draw"
)

// ErrNotImage is returned when cover data is not a recognised image.
var ErrNotImage = errors.New("not an image")

// ImageService provides image processing operations for cover art.
//
// ImageService is used to:
//   - Reject responses that are not images at all
//   - Convert covers to JPEG, the format written as cover.jpg
//   - Optionally shrink oversized covers before embedding
//
// Example usage:
//
//	svc := NewImageService()
//	cover, err := svc.NormalizeCover(ctx, data, 1400)
type ImageService struct{}

// NewImageService creates a new ImageService.
func NewImageService() *ImageService {
	return &ImageService{}
}

// NormalizeCover returns cover art as JPEG no larger than maxSize pixels on
// either side. A maxSize of 0 disables resizing.
//
// JPEG input that already fits is returned unchanged, byte for byte.
func (s *ImageService) NormalizeCover(ctx context.Context, data []byte, maxSize int) ([]byte, error) {
	kind, err := filetype.Image(data)
	if err != nil {
		return nil, ErrNotImage
	}

	if kind.MIME.Value == "image/jpeg" && maxSize <= 0 {
		return data, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	fits := maxSize <= 0 || (cfg.Width <= maxSize && cfg.Height <= maxSize)

	switch {
	case fits && kind.MIME.Value == "image/jpeg":
		return data, nil
	case fits:
		return s.ConvertToJPEG(ctx, data)
	default:
		return s.ResizeImage(ctx, data, maxSize, maxSize)
	}
}

// ResizeImage resizes an image to fit within the specified maximum dimensions.
//
// The aspect ratio is preserved and the result is JPEG-encoded. The
// Catmull-Rom kernel is used for scaling.
//
// Example:
//
//	// A 1500x1000 image becomes 1000x667
//	resized, err := svc.ResizeImage(ctx, imageData, 1000, 1000)
func (s *ImageService) ResizeImage(ctx context.Context, data []byte, maxWidth, maxHeight int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := fitWithin(bounds.Dx(), bounds.Dy(), maxWidth, maxHeight)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	return encodeJPEG(dst)
}

// ConvertToJPEG re-encodes an image as JPEG at quality 90.
func (s *ImageService) ConvertToJPEG(ctx context.Context, data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return encodeJPEG(img)
}

func fitWithin(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}

	ratio := float64(width) / float64(height)
	if float64(maxWidth)/float64(maxHeight) > ratio {
		// Height is the limiting factor
		return max(1, int(float64(maxHeight)*ratio)), maxHeight
	}
	return maxWidth, max(1, int(float64(maxWidth)/ratio))
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
