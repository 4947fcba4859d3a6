// Package uploader loads OCR dataset records into object storage and a metadata table.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/ocrloader/internal/dataset"
	"github.com/lehigh-university-libraries/ocrloader/internal/images"
	"github.com/lehigh-university-libraries/ocrloader/internal/journal"
	"github.com/lehigh-university-libraries/ocrloader/internal/models"
	"github.com/lehigh-university-libraries/ocrloader/internal/report"
	"github.com/lehigh-university-libraries/ocrloader/internal/sink"
	"github.com/lehigh-university-libraries/ocrloader/internal/supabase"
)

// Dataset is a read-only, length-queryable record source
type Dataset interface {
	Count() (int, error)
	LoadSample(limit int) ([]dataset.OCRRecord, error)
}

// ObjectStore is the bucket API the uploader needs
type ObjectStore interface {
	GetBucket(ctx context.Context, name string) (*supabase.Bucket, error)
	CreateBucket(ctx context.Context, name string, opts supabase.BucketOptions) error
	Upload(ctx context.Context, bucket, objectPath string, data []byte, contentType string, upsert bool) error
	PublicURL(bucket, objectPath string) string
}

// ImageSource resolves the raw bytes of a record's image
type ImageSource interface {
	Resolve(ctx context.Context, feature dataset.ImageFeature) ([]byte, error)
}

// Journal tracks per-record progress across runs
type Journal interface {
	Get(ctx context.Context, index int) (journal.Entry, bool, error)
	MarkUploaded(ctx context.Context, index int, id string) error
	MarkDone(ctx context.Context, index int, id string) error
}

// Options configures an Uploader
type Options struct {
	Bucket        string
	PublicBucket  bool
	Delay         time.Duration
	ProgressEvery int
	Out           io.Writer   // Progress lines; defaults to stdout
	Images        ImageSource // Defaults to an HTTP-capable fetcher
	Journal       Journal     // Optional; enables resume
	Report        report.RunConfig
}

// Uploader runs the download -> encode -> upload -> insert pipeline, one record at a time
type Uploader struct {
	store   ObjectStore
	table   sink.Table
	images  ImageSource
	journal Journal
	out     io.Writer
	opts    Options
	pacer   pauser
	newID   func() string
}

// New creates an uploader writing objects to store and rows to table
func New(store ObjectStore, table sink.Table, opts Options) *Uploader {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Images == nil {
		opts.Images = images.NewFetcher()
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = 10
	}

	return &Uploader{
		store:   store,
		table:   table,
		images:  opts.Images,
		journal: opts.Journal,
		out:     opts.Out,
		opts:    opts,
		pacer:   NewPacer(opts.Delay),
		newID:   uuid.NewString,
	}
}

// EnsureBucket makes sure the target bucket exists. Failures are logged, never returned:
// a failed lookup counts as a missing bucket, and a failed create leaves the
// per-item uploads to surface the problem.
func (u *Uploader) EnsureBucket(ctx context.Context) {
	name := u.opts.Bucket

	_, err := u.store.GetBucket(ctx, name)
	if err == nil {
		fmt.Fprintf(u.out, "Bucket '%s' already exists\n", name)
		return
	}
	if !errors.Is(err, supabase.ErrNotFound) {
		slog.Debug("Bucket lookup failed, treating bucket as missing", "bucket", name, "error", err)
	}

	err = u.store.CreateBucket(ctx, name, supabase.BucketOptions{Public: u.opts.PublicBucket})
	switch {
	case err == nil:
		fmt.Fprintf(u.out, "Created bucket '%s'\n", name)
	case errors.Is(err, supabase.ErrAlreadyExists):
		fmt.Fprintf(u.out, "Bucket '%s' already exists\n", name)
	default:
		slog.Warn("Failed to create bucket", "bucket", name, "error", err)
		fmt.Fprintf(u.out, "Warning: could not create bucket '%s': %v\n", name, err)
	}
}

// SelectBatch returns the first min(count, dataset size) records in dataset order
func SelectBatch(ds Dataset, count int) ([]dataset.OCRRecord, error) {
	size, err := ds.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count dataset records: %w", err)
	}

	n := min(max(count, 0), size)
	records, err := ds.LoadSample(n)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset records: %w", err)
	}
	if len(records) != n {
		return nil, fmt.Errorf("dataset returned %d records, expected %d", len(records), n)
	}

	return records, nil
}

// UploadOne encodes, stores, and registers a single record. position is 1-based.
// On error the returned result still describes how far the record got.
func (u *Uploader) UploadOne(ctx context.Context, position int, record dataset.OCRRecord) (report.ItemResult, error) {
	result := report.ItemResult{Index: position, Status: report.StatusFailed}
	index := position - 1

	id := ""
	resumed := false
	if u.journal != nil {
		entry, ok, err := u.journal.Get(ctx, index)
		if err != nil {
			return result, err
		}
		if ok {
			result.ID = entry.ID
			result.Object = models.ObjectName(entry.ID)
			if entry.State == journal.StateDone {
				result.URL = u.store.PublicURL(u.opts.Bucket, result.Object)
				result.Status = report.StatusSkipped
				return result, nil
			}
			// Object stored by an earlier run; finish that record under the same id
			id = entry.ID
			resumed = true
		}
	}

	raw, err := u.images.Resolve(ctx, record.Image)
	if err != nil {
		return result, err
	}
	pngData, err := images.EncodePNG(raw)
	if err != nil {
		return result, err
	}

	if id == "" {
		id = u.newID()
	}
	filename := models.ObjectName(id)
	result.ID = id
	result.Object = filename

	if err := u.store.Upload(ctx, u.opts.Bucket, filename, pngData, images.ContentTypePNG, resumed); err != nil {
		return result, err
	}
	u.mark(ctx, index, id, journal.StateUploaded)

	result.URL = u.store.PublicURL(u.opts.Bucket, filename)

	if resumed {
		exists, err := u.table.Exists(ctx, id)
		if err != nil {
			result.Status = report.StatusOrphaned
			return result, err
		}
		if exists {
			u.mark(ctx, index, id, journal.StateDone)
			result.Status = report.StatusUploaded
			return result, nil
		}
	}

	row := models.NewOCRImage(id, result.URL, record.Text)
	if err := u.table.Insert(ctx, row); err != nil {
		if !(resumed && errors.Is(err, sink.ErrDuplicateRow)) {
			slog.Warn("Orphaned object: uploaded but no metadata row", "bucket", u.opts.Bucket, "object", filename, "error", err)
			result.Status = report.StatusOrphaned
			return result, err
		}
	}
	u.mark(ctx, index, id, journal.StateDone)

	result.Status = report.StatusUploaded
	return result, nil
}

func (u *Uploader) mark(ctx context.Context, index int, id string, state journal.State) {
	if u.journal == nil {
		return
	}

	var err error
	if state == journal.StateDone {
		err = u.journal.MarkDone(ctx, index, id)
	} else {
		err = u.journal.MarkUploaded(ctx, index, id)
	}
	if err != nil {
		slog.Warn("Failed to update journal", "index", index, "id", id, "state", state, "error", err)
	}
}

// Run uploads the first count records of ds. Per-record failures are logged
// and skipped; only dataset errors and cancellation are returned.
func (u *Uploader) Run(ctx context.Context, ds Dataset, count int) (*report.RunReport, error) {
	runConfig := u.opts.Report
	runConfig.Requested = count
	runConfig.Bucket = u.opts.Bucket
	runConfig.Delay = u.opts.Delay.String()
	runConfig.Resume = u.journal != nil

	records, err := SelectBatch(ds, count)
	if err != nil {
		return nil, err
	}
	runConfig.Selected = len(records)
	rep := report.New(runConfig)

	total := len(records)
	fmt.Fprintf(u.out, "Uploading %d images to bucket '%s'...\n", total, u.opts.Bucket)

	for i, record := range records {
		if err := ctx.Err(); err != nil {
			return rep, fmt.Errorf("upload interrupted after %d/%d images: %w", i, total, err)
		}

		position := i + 1
		result, err := u.UploadOne(ctx, position, record)
		if err != nil {
			result.Error = err.Error()
			rep.Add(result)
			fmt.Fprintf(u.out, "Error uploading image %d: %v\n", position, err)
			continue
		}
		rep.Add(result)

		if result.Status == report.StatusSkipped {
			slog.Info("Skipping image loaded by a previous run", "position", position, "object", result.Object)
			continue
		}

		fmt.Fprintf(u.out, "Uploaded image %d/%d: %s\n", position, total, result.Object)

		if position%u.opts.ProgressEvery == 0 {
			fmt.Fprintf(u.out, "Progress: %d/%d images uploaded (%.1f%%)\n",
				position, total, float64(position)/float64(total)*100)
		}

		if err := u.pacer.Pause(ctx); err != nil {
			return rep, fmt.Errorf("upload interrupted after %d/%d images: %w", position, total, ctx.Err())
		}
	}

	for _, orphan := range rep.Orphans() {
		slog.Warn("Orphaned object needs cleanup", "bucket", u.opts.Bucket, "object", orphan.Object, "position", orphan.Index)
	}

	fmt.Fprintln(u.out, "Upload complete!")
	return rep, nil
}
