// Package media validates and optimizes user images before they are
// submitted to a generation provider.
package media

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultMaxBytes is the largest accepted input image.
	DefaultMaxBytes = 10 * 1024 * 1024

	// DefaultMaxDimension bounds the longer side after optimization.
	DefaultMaxDimension = 1024

	jpegQuality = 85
)

func init() {
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
}

// SupportedMIME reports whether the sniffed content type is one the bot
// accepts for generation.
func SupportedMIME(mime string) bool {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/jpeg", "image/jpg", "image/png":
		return true
	default:
		return false
	}
}

// DetectMIME sniffs the content type from the leading bytes.
func DetectMIME(data []byte) string {
	return http.DetectContentType(data)
}

// Validate fails closed: oversized or undecodable bytes are rejected and no
// provider call should be made for them.
func Validate(data []byte, maxBytes int64) bool {
	if len(data) == 0 || int64(len(data)) > maxBytes {
		return false
	}
	if !SupportedMIME(DetectMIME(data)) {
		return false
	}
	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		log.Debug().Err(err).Msg("image decode failed during validation")
		return false
	}
	return true
}

// Optimize converts the image to an RGB JPEG, downscaled to fit within
// maxW x maxH with Lanczos resampling. Optimization is best effort: on any
// processing error the original bytes are returned unchanged so a slightly
// malformed but decodable image still proceeds.
func Optimize(data []byte, maxW, maxH int) []byte {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		log.Warn().Err(err).Msg("image optimize skipped: decode failed")
		return data
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxW || bounds.Dy() > maxH {
		img = imaging.Fit(img, maxW, maxH, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		log.Warn().Err(err).Msg("image optimize skipped: encode failed")
		return data
	}
	return buf.Bytes()
}
