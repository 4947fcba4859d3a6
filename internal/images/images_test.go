package images

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/lehigh-university-libraries/ocrloader/internal/dataset"
)

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 12, 4))
	for x := 0; x < 12; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 20), G: uint8(y * 60), B: 100, A: 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(), nil); err != nil {
		t.Fatalf("jpeg encode error: %v", err)
	}
	return buf.Bytes()
}

func TestEncodePNG_FromJPEG(t *testing.T) {
	out, err := EncodePNG(encodeJPEG(t))
	if err != nil {
		t.Fatalf("EncodePNG error: %v", err)
	}
	if !HasPNGSignature(out) {
		t.Fatalf("expected PNG signature in output")
	}

	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not decodable PNG: %v", err)
	}
	if img.Bounds().Dx() != 12 || img.Bounds().Dy() != 4 {
		t.Errorf("expected 12x4, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestEncodePNG_LosslessFromPNG(t *testing.T) {
	src := testImage()
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("png encode error: %v", err)
	}

	out, err := EncodePNG(buf.Bytes())
	if err != nil {
		t.Fatalf("EncodePNG error: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	for x := 0; x < 12; x++ {
		for y := 0; y < 4; y++ {
			r1, g1, b1, a1 := src.At(x, y).RGBA()
			r2, g2, b2, a2 := img.At(x, y).RGBA()
			if r1 != r2 || g1 != g2 || b1 != b2 || a1 != a2 {
				t.Fatalf("pixel (%d,%d) changed after re-encode", x, y)
			}
		}
	}
}

func TestEncodePNG_InvalidImage(t *testing.T) {
	if _, err := EncodePNG([]byte("not a valid image")); err == nil {
		t.Error("expected error for invalid image data, got nil")
	}

	// PNG signature with garbage body
	broken := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00}
	if _, err := EncodePNG(broken); err == nil {
		t.Error("expected error for truncated PNG, got nil")
	}
}

func TestDescribe(t *testing.T) {
	format, w, h, err := Describe(encodeJPEG(t))
	if err != nil {
		t.Fatalf("Describe error: %v", err)
	}
	if format != "jpeg" || w != 12 || h != 4 {
		t.Errorf("expected jpeg 12x4, got %s %dx%d", format, w, h)
	}
}

func TestResolve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			_, _ = w.Write([]byte("remote bytes"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	localPath := filepath.Join(t.TempDir(), "local.png")
	if err := os.WriteFile(localPath, []byte("local bytes"), 0644); err != nil {
		t.Fatalf("failed to write local image: %v", err)
	}

	tests := []struct {
		name    string
		feature dataset.ImageFeature
		want    string
		wantErr bool
	}{
		{name: "embedded", feature: dataset.ImageFeature{Bytes: []byte("embedded")}, want: "embedded"},
		{name: "remote", feature: dataset.ImageFeature{Path: server.URL + "/ok.png"}, want: "remote bytes"},
		{name: "remote missing", feature: dataset.ImageFeature{Path: server.URL + "/missing.png"}, wantErr: true},
		{name: "local", feature: dataset.ImageFeature{Path: localPath}, want: "local bytes"},
		{name: "local missing", feature: dataset.ImageFeature{Path: "/nonexistent/x.png"}, wantErr: true},
		{name: "empty", wantErr: true},
	}

	fetcher := NewFetcher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fetcher.Resolve(context.Background(), tt.feature)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestResolve_EmptyFeature(t *testing.T) {
	_, err := NewFetcher().Resolve(context.Background(), dataset.ImageFeature{})
	if !errors.Is(err, ErrNoImageData) {
		t.Errorf("expected ErrNoImageData, got %v", err)
	}
}
