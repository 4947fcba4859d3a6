package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/lehigh-university-libraries/ocrloader/internal/dataset"
)

// Upper bound on a single fetched image
const maxImageBytes = 32 * 1024 * 1024

var ErrNoImageData = errors.New("record has no image bytes or path")

// Fetcher resolves the raw bytes of a dataset image feature
type Fetcher struct {
	HTTPClient *http.Client
}

// NewFetcher creates a new image fetcher
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Resolve returns the encoded image bytes for a record, reading embedded bytes,
// a remote URL, or a local file in that order.
func (f *Fetcher) Resolve(ctx context.Context, feature dataset.ImageFeature) ([]byte, error) {
	switch {
	case feature.HasBytes():
		return feature.Bytes, nil
	case feature.IsRemote():
		return f.Fetch(ctx, feature.Path)
	case feature.Path != "":
		data, err := os.ReadFile(feature.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read image file: %w", err)
		}
		return data, nil
	default:
		return nil, ErrNoImageData
	}
}

// Fetch downloads an image from a URL
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	slog.Debug("Fetching remote image", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image URL returned status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	if len(imageData) > maxImageBytes {
		return nil, fmt.Errorf("image too large (max %d bytes)", maxImageBytes)
	}
	if len(imageData) == 0 {
		return nil, fmt.Errorf("image URL returned an empty body")
	}

	return imageData, nil
}
