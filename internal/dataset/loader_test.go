package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
)

func TestNewLoader(t *testing.T) {
	path := "./test.parquet"
	loader := NewLoader(path)

	if loader.datasetPath != path {
		t.Errorf("Expected path %s, got %s", path, loader.datasetPath)
	}
}

func TestImageFeature(t *testing.T) {
	tests := []struct {
		name       string
		feature    ImageFeature
		wantBytes  bool
		wantRemote bool
	}{
		{
			name:      "embedded bytes",
			feature:   ImageFeature{Bytes: []byte{0x89, 'P'}, Path: "https://example.com/a.png"},
			wantBytes: true,
		},
		{
			name:       "remote path",
			feature:    ImageFeature{Path: "https://example.com/a.png"},
			wantRemote: true,
		},
		{
			name:    "local path",
			feature: ImageFeature{Path: "images/a.png"},
		},
		{
			name: "empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.feature.HasBytes(); got != tt.wantBytes {
				t.Errorf("Expected HasBytes=%v, got %v", tt.wantBytes, got)
			}
			if got := tt.feature.IsRemote(); got != tt.wantRemote {
				t.Errorf("Expected IsRemote=%v, got %v", tt.wantRemote, got)
			}
		})
	}
}

func TestPreview(t *testing.T) {
	record := OCRRecord{Text: "héllo world"}

	if got := record.Preview(5); got != "héllo..." {
		t.Errorf("Expected 'héllo...', got %s", got)
	}
	if got := record.Preview(0); got != "héllo world" {
		t.Errorf("Expected full text, got %s", got)
	}
	if got := record.Preview(100); got != "héllo world" {
		t.Errorf("Expected full text, got %s", got)
	}
}

// hfSchema is the layout HuggingFace writes for an Image + Value("string") dataset
var hfSchema = parquet.NewSchema("dataset", parquet.Group{
	"image": parquet.Optional(parquet.Group{
		"bytes": parquet.Optional(parquet.Leaf(parquet.ByteArrayType)),
		"path":  parquet.Optional(parquet.String()),
	}),
	"text": parquet.Optional(parquet.String()),
})

func writeShard(t *testing.T, path string, texts ...string) {
	t.Helper()

	rows := make([]any, 0, len(texts))
	for _, text := range texts {
		rows = append(rows, map[string]any{
			"image": map[string]any{
				"bytes": []byte("img-" + text),
				"path":  text + ".jpg",
			},
			"text": text,
		})
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create parquet shard: %v", err)
	}
	defer f.Close()

	writer := parquet.NewGenericWriter[any](f, hfSchema)
	if _, err := writer.Write(rows); err != nil {
		t.Fatalf("Failed to write parquet rows: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close parquet writer: %v", err)
	}
}

func TestLoadParquetShardsInOrder(t *testing.T) {
	tmpDir := t.TempDir()
	writeShard(t, filepath.Join(tmpDir, "00001-1.parquet"), "c", "d", "e")
	writeShard(t, filepath.Join(tmpDir, "00000-0.parquet"), "a", "b")

	loader := NewLoader(tmpDir)

	count, err := loader.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 5 {
		t.Errorf("Expected 5 records, got %d", count)
	}

	records, err := loader.LoadSample(3)
	if err != nil {
		t.Fatalf("LoadSample failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}

	for i, want := range []string{"a", "b", "c"} {
		if records[i].Text != want {
			t.Errorf("Expected record %d text %s, got %s", i, want, records[i].Text)
		}
		if string(records[i].Image.Bytes) != "img-"+want {
			t.Errorf("Expected record %d bytes img-%s, got %s", i, want, records[i].Image.Bytes)
		}
		if records[i].Image.Path != want+".jpg" {
			t.Errorf("Expected record %d path %s.jpg, got %s", i, want, records[i].Image.Path)
		}
	}

	all, err := loader.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("Expected 5 records, got %d", len(all))
	}
}

func TestLoadParquetLargeShard(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "big.parquet")

	texts := make([]string, 200)
	for i := range texts {
		texts[i] = fmt.Sprintf("line-%03d", i)
	}
	writeShard(t, path, texts...)

	records, err := NewLoader(path).LoadSample(150)
	if err != nil {
		t.Fatalf("LoadSample failed: %v", err)
	}
	if len(records) != 150 {
		t.Fatalf("Expected 150 records, got %d", len(records))
	}
	for i, record := range records {
		if record.Text != texts[i] {
			t.Fatalf("Expected record %d text %s, got %s", i, texts[i], record.Text)
		}
		if string(record.Image.Bytes) != "img-"+texts[i] {
			t.Fatalf("Expected record %d bytes to match its text, got %s", i, record.Image.Bytes)
		}
	}
}

func TestLoadJSONLSample(t *testing.T) {
	tmpDir := t.TempDir()
	jsonlPath := filepath.Join(tmpDir, "test.jsonl")

	// bytes are base64 encoded in JSON
	testData := `{"image":{"bytes":"aW1nLTE="},"text":"first"}
{"image":{"path":"https://example.com/2.png"},"text":"second"}

{"image":{"bytes":"aW1nLTM="},"text":"third"}
`
	if err := os.WriteFile(jsonlPath, []byte(testData), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	loader := NewLoader(jsonlPath)

	count, err := loader.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 records, got %d", count)
	}

	records, err := loader.LoadSample(2)
	if err != nil {
		t.Fatalf("LoadSample failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if string(records[0].Image.Bytes) != "img-1" {
		t.Errorf("Expected bytes img-1, got %s", records[0].Image.Bytes)
	}
	if records[1].Image.Path != "https://example.com/2.png" {
		t.Errorf("Expected remote path, got %s", records[1].Image.Path)
	}

	none, err := loader.LoadSample(0)
	if err != nil {
		t.Fatalf("LoadSample(0) failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Expected 0 records, got %d", len(none))
	}
}

func TestLoadJSONLMalformed(t *testing.T) {
	tmpDir := t.TempDir()
	jsonlPath := filepath.Join(tmpDir, "bad.jsonl")

	if err := os.WriteFile(jsonlPath, []byte("{\"text\":\"ok\"}\nnot json\n"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if _, err := NewLoader(jsonlPath).Load(); err == nil {
		t.Error("Expected error for malformed line, got nil")
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.txt")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	loader := NewLoader(path)

	if _, err := loader.Load(); err == nil {
		t.Error("Expected error for unsupported format, got nil")
	}

	if _, err := loader.Count(); err == nil {
		t.Error("Expected error for unsupported format in Count, got nil")
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	loader := NewLoader("/nonexistent/path/file.jsonl")

	if _, err := loader.Load(); err == nil {
		t.Error("Expected error for non-existent file, got nil")
	}

	if _, err := loader.LoadSample(10); err == nil {
		t.Error("Expected error for non-existent file in LoadSample, got nil")
	}
}

func TestLoadEmptyDirectory(t *testing.T) {
	if _, err := NewLoader(t.TempDir()).Count(); err == nil {
		t.Error("Expected error for directory without shards, got nil")
	}
}
