package dataset

import "strings"

// OCRRecord represents a row from an OCR line-image dataset such as TextOCR_OCR
// Dataset: https://huggingface.co/datasets/MiXaiLL76/TextOCR_OCR
type OCRRecord struct {
	Image ImageFeature `json:"image" parquet:"image,optional"`
	Text  string       `json:"text" parquet:"text,optional"` // Ground truth transcription
}

// ImageFeature mirrors the HuggingFace datasets Image feature.
// Exactly one of Bytes or Path is normally populated.
type ImageFeature struct {
	Bytes []byte `json:"bytes" parquet:"bytes,optional"`
	Path  string `json:"path" parquet:"path,optional"`
}

// HasBytes reports whether the image payload is embedded in the record
func (f ImageFeature) HasBytes() bool {
	return len(f.Bytes) > 0
}

// IsRemote reports whether the image must be fetched over HTTP
func (f ImageFeature) IsRemote() bool {
	return !f.HasBytes() && (strings.HasPrefix(f.Path, "http://") || strings.HasPrefix(f.Path, "https://"))
}

// Preview returns the ground truth text truncated to max runes
func (r *OCRRecord) Preview(max int) string {
	runes := []rune(r.Text)
	if max <= 0 || len(runes) <= max {
		return r.Text
	}
	return string(runes[:max]) + "..."
}
