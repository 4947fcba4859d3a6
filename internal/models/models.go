package models

// DefaultTable is the table metadata rows are written to
const DefaultTable = "ocr_images"

// OCRImage is a row of the ocr_images table.
// Vote counters are incremented by the practice app, never by the loader.
type OCRImage struct {
	ID             string `json:"id"`
	ImagePath      string `json:"image_path"` // Public URL of <id>.png
	CorrectText    string `json:"correct_text"`
	CorrectCount   int    `json:"correct_count"`
	IncorrectCount int    `json:"incorrect_count"`
}

// NewOCRImage builds a fresh row with both vote counters at zero
func NewOCRImage(id, imagePath, correctText string) OCRImage {
	return OCRImage{
		ID:          id,
		ImagePath:   imagePath,
		CorrectText: correctText,
	}
}

// ObjectName returns the storage key of the row's image
func ObjectName(id string) string {
	return id + ".png"
}
