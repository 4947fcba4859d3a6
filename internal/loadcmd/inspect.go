package loadcmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/lehigh-university-libraries/ocrloader/internal/dataset"
	"github.com/lehigh-university-libraries/ocrloader/internal/images"
)

const previewChars = 500

func executeInspect(ctx context.Context, in io.Reader, out io.Writer, datasetPath string, limit int, interactive, showImage bool) error {
	loader := dataset.NewLoader(datasetPath)

	var records []dataset.OCRRecord
	var err error

	if limit > 0 {
		records, err = loader.LoadSample(limit)
	} else {
		records, err = loader.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	fmt.Fprintf(out, "Loaded %d records from %s\n", len(records), datasetPath)
	fmt.Fprintln(out, strings.Repeat("=", 80))
	fmt.Fprintln(out)

	reader := bufio.NewReader(in)
	fetcher := images.NewFetcher()

	for i, record := range records {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nInspection interrupted.")
			return nil
		default:
		}

		fmt.Fprintf(out, "RECORD %d/%d\n", i+1, len(records))
		fmt.Fprintln(out, strings.Repeat("-", 80))

		switch {
		case record.Image.HasBytes():
			fmt.Fprintf(out, "Image:          embedded (%d bytes)\n", len(record.Image.Bytes))
		case record.Image.Path != "":
			fmt.Fprintf(out, "Image:          %s\n", record.Image.Path)
		default:
			fmt.Fprintln(out, "Image:          missing")
		}

		if showImage {
			describeImage(ctx, out, fetcher, record.Image)
		}

		fmt.Fprintf(out, "Text Length:    %d characters\n", len([]rune(record.Text)))
		fmt.Fprintln(out, "TEXT:")
		fmt.Fprintln(out, record.Preview(previewChars))
		fmt.Fprintln(out, strings.Repeat("-", 80))
		fmt.Fprintln(out)

		if interactive {
			fmt.Fprint(out, "Press Enter to continue to next record (or Ctrl+C to quit)...")

			inputCh := make(chan struct{})
			go func() {
				_, _ = reader.ReadString('\n')
				close(inputCh)
			}()

			select {
			case <-ctx.Done():
				fmt.Fprintln(out, "\nInspection interrupted.")
				return nil
			case <-inputCh:
				fmt.Fprintln(out)
			}
		}
	}

	return nil
}

func describeImage(ctx context.Context, out io.Writer, fetcher *images.Fetcher, feature dataset.ImageFeature) {
	data, err := fetcher.Resolve(ctx, feature)
	if err != nil {
		fmt.Fprintf(out, "Image Error:    %v\n", err)
		return
	}

	format, width, height, err := images.Describe(data)
	if err != nil {
		fmt.Fprintf(out, "Image Error:    %v\n", err)
		return
	}
	fmt.Fprintf(out, "Format:         %s (%dx%d)\n", format, width, height)
}
