package images

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log/slog"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const ContentTypePNG = "image/png"

// EncodePNG decodes any supported raster format and re-encodes it losslessly as PNG.
// PNG input is decoded and re-encoded too, so corrupt input always fails here.
func EncodePNG(imageData []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	slog.Debug("Decoded raster image",
		"format", format,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy(),
		"input_size_bytes", len(imageData))

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image to PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// HasPNGSignature checks whether data begins with the 8-byte PNG signature
func HasPNGSignature(data []byte) bool {
	signature := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	return len(data) >= len(signature) && bytes.Equal(data[:len(signature)], signature)
}

// Describe returns the format and dimensions of encoded image data without a full decode
func Describe(imageData []byte) (format string, width, height int, err error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(imageData))
	if err != nil {
		return "", 0, 0, fmt.Errorf("failed to read image header: %w", err)
	}
	return format, cfg.Width, cfg.Height, nil
}
