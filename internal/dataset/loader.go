package dataset

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// Loader reads OCR records from a dataset file or a directory of parquet shards.
// Records are always returned in shard order, then row order.
type Loader struct {
	datasetPath string
	shards      []string
}

// NewLoader creates a loader for a single file (.parquet, .jsonl) or a directory of .parquet shards
func NewLoader(datasetPath string) *Loader {
	return &Loader{
		datasetPath: datasetPath,
	}
}

// NewShardLoader creates a loader over an explicit, ordered list of parquet shards
func NewShardLoader(shards []string) *Loader {
	return &Loader{
		shards: shards,
	}
}

// Files returns the dataset files the loader reads, in order
func (l *Loader) Files() ([]string, error) {
	if len(l.shards) > 0 {
		return l.shards, nil
	}

	info, err := os.Stat(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat dataset path: %w", err)
	}

	if !info.IsDir() {
		return []string{l.datasetPath}, nil
	}

	files, err := filepath.Glob(filepath.Join(l.datasetPath, "*.parquet"))
	if err != nil {
		return nil, fmt.Errorf("failed to list parquet shards: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no parquet shards found in %s", l.datasetPath)
	}
	sort.Strings(files)

	return files, nil
}

// Count returns the number of records without decoding rows.
// For parquet this is read from the file footer.
func (l *Loader) Count() (int, error) {
	files, err := l.Files()
	if err != nil {
		return 0, err
	}

	total := 0
	for _, path := range files {
		var n int
		switch formatOf(path) {
		case ".parquet":
			n, err = countParquet(path)
		case ".jsonl", ".json":
			n, err = countJSONL(path)
		default:
			err = fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl)", filepath.Ext(path))
		}
		if err != nil {
			return 0, err
		}
		total += n
	}

	slog.Debug("Counted dataset records", "files", len(files), "records", total)

	return total, nil
}

// Load loads every record
func (l *Loader) Load() ([]OCRRecord, error) {
	return l.LoadSample(-1)
}

// LoadSample loads at most limit records from the start of the dataset.
// A negative limit loads everything.
func (l *Loader) LoadSample(limit int) ([]OCRRecord, error) {
	files, err := l.Files()
	if err != nil {
		return nil, err
	}

	var records []OCRRecord
	for _, path := range files {
		remaining := -1
		if limit >= 0 {
			remaining = limit - len(records)
			if remaining <= 0 {
				break
			}
		}

		var batch []OCRRecord
		switch formatOf(path) {
		case ".parquet":
			batch, err = loadParquet(path, remaining)
		case ".jsonl", ".json":
			batch, err = loadJSONL(path, remaining)
		default:
			err = fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl)", filepath.Ext(path))
		}
		if err != nil {
			return nil, err
		}
		records = append(records, batch...)
	}

	return records, nil
}

func formatOf(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

func openParquet(path string) (*os.File, *parquet.File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("failed to stat file: %w", err)
	}

	slog.Debug("Parquet file stats", "path", path, "size_bytes", info.Size(), "size_mb", info.Size()/1024/1024)

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	return file, pf, nil
}

func countParquet(path string) (int, error) {
	file, pf, err := openParquet(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	return int(pf.NumRows()), nil
}

// loadParquet reads up to limit rows (all rows when limit < 0)
func loadParquet(path string, limit int) ([]OCRRecord, error) {
	file, pf, err := openParquet(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	slog.Debug("Parquet file opened successfully", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[OCRRecord](pf)
	defer reader.Close()

	var records []OCRRecord

	batchNum := 0
	for limit < 0 || len(records) < limit {
		// Fresh buffer per batch so image bytes are never shared between records
		rows := make([]OCRRecord, 64)
		n, err := reader.Read(rows)
		if n > 0 {
			batchNum++
			if limit >= 0 && n > limit-len(records) {
				n = limit - len(records)
			}
			records = append(records, rows[:n]...)
			slog.Debug("Read batch from Parquet", "batch", batchNum, "rows_in_batch", n, "total_rows_read", len(records))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows from %s: %w", path, err)
		}
	}

	return records, nil
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)

	// Embedded base64 images make for long lines
	const maxCapacity = 32 * 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxCapacity)

	return scanner
}

func countJSONL(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	count := 0
	scanner := newLineScanner(file)
	for scanner.Scan() {
		if len(scanner.Bytes()) > 0 {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("error reading dataset: %w", err)
	}

	return count, nil
}

// loadJSONL reads up to limit records (all when limit < 0). Malformed lines are errors.
func loadJSONL(path string, limit int) ([]OCRRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	var records []OCRRecord
	scanner := newLineScanner(file)

	lineNum := 0
	for (limit < 0 || len(records) < limit) && scanner.Scan() {
		lineNum++
		line := scanner.Bytes()

		if len(line) == 0 {
			continue
		}

		var record OCRRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}

		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading dataset: %w", err)
	}

	slog.Debug("Finished reading JSONL file", "total_records", len(records), "total_lines", lineNum)

	return records, nil
}
