package loadcmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lehigh-university-libraries/ocrloader/internal/config"
	"github.com/lehigh-university-libraries/ocrloader/internal/dataset"
	"github.com/lehigh-university-libraries/ocrloader/internal/journal"
	"github.com/lehigh-university-libraries/ocrloader/internal/report"
	"github.com/lehigh-university-libraries/ocrloader/internal/sink"
	"github.com/lehigh-university-libraries/ocrloader/internal/supabase"
	"github.com/lehigh-university-libraries/ocrloader/internal/uploader"
)

func setupLogging(w io.Writer, verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}

func executeUpload(ctx context.Context, cfg *config.Config, out io.Writer) error {
	// Credentials are checked before anything touches the network
	if err := cfg.Validate(); err != nil {
		return err
	}

	slog.Info("Starting dataset upload",
		"repo", cfg.Dataset.Repo,
		"split", cfg.Dataset.Split,
		"bucket", cfg.Upload.Bucket,
		"count", cfg.Upload.Count,
		"sink", cfg.Sink.Kind,
		"resume", cfg.Upload.Resume)

	fmt.Fprintln(out, "Loading dataset...")
	loader, err := openDataset(ctx, cfg.Dataset)
	if err != nil {
		return err
	}
	size, err := loader.Count()
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	fmt.Fprintf(out, "Dataset loaded with %d items\n", size)

	client := supabase.NewClient(cfg.SupabaseURL, cfg.ServiceKey)

	table, err := sink.NewTable(ctx, sink.Options{
		Kind:        cfg.Sink.Kind,
		TableName:   cfg.Sink.Table,
		Supabase:    client,
		DatabaseURL: cfg.Sink.DatabaseURL,
		SQLitePath:  cfg.Sink.SQLitePath,
	})
	if err != nil {
		return fmt.Errorf("failed to open %s sink: %w", cfg.Sink.Kind, err)
	}
	defer func() {
		_ = table.Close()
	}()

	opts := uploader.Options{
		Bucket:        cfg.Upload.Bucket,
		PublicBucket:  cfg.Upload.PublicBucket,
		Delay:         cfg.Upload.Delay,
		ProgressEvery: cfg.Upload.ProgressEvery,
		Out:           out,
		Report: report.RunConfig{
			Repo:  cfg.Dataset.Repo,
			Split: cfg.Dataset.Split,
			Table: cfg.Sink.Table,
			Sink:  cfg.Sink.Kind,
		},
	}

	if cfg.Upload.Resume {
		j, err := journal.Open(ctx, cfg.RedisURL, journal.Key(cfg.Dataset.Repo, cfg.Dataset.Split, cfg.Dataset.Path))
		if err != nil {
			return err
		}
		defer func() {
			_ = j.Close()
		}()

		if cfg.Upload.ResetJournal {
			if err := j.Reset(ctx); err != nil {
				return fmt.Errorf("failed to reset journal: %w", err)
			}
			slog.Info("Journal cleared")
		} else if counts, err := j.Counts(ctx); err == nil {
			slog.Info("Resuming from journal", "done", counts[journal.StateDone], "uploaded", counts[journal.StateUploaded])
		}
		opts.Journal = j
	}

	u := uploader.New(client.Storage(), table, opts)
	u.EnsureBucket(ctx)

	rep, runErr := u.Run(ctx, loader, cfg.Upload.Count)

	if rep != nil {
		slog.Info("Upload summary",
			"uploaded", rep.Totals.Uploaded,
			"failed", rep.Totals.Failed,
			"orphaned", rep.Totals.Orphaned,
			"skipped", rep.Totals.Skipped)

		if cfg.Upload.ReportPath != "" {
			if err := rep.Save(cfg.Upload.ReportPath); err != nil {
				slog.Error("Failed to save run report", "path", cfg.Upload.ReportPath, "error", err)
			} else {
				slog.Info("Saved run report", "path", cfg.Upload.ReportPath)
			}
		}
	}

	return runErr
}

func openDataset(ctx context.Context, cfg config.DatasetConfig) (*dataset.Loader, error) {
	if cfg.Path != "" {
		if _, err := os.Stat(cfg.Path); os.IsNotExist(err) {
			return nil, fmt.Errorf("dataset not found: %s", cfg.Path)
		}
		return dataset.NewLoader(cfg.Path), nil
	}

	loader, err := dataset.LoadOrDownload(ctx, cfg.Repo, cfg.Config, cfg.Split, dataset.DownloadConfig{
		CacheDir:      cfg.CacheDir,
		ForceDownload: cfg.ForceDownload,
		Token:         cfg.Token,
		HubURL:        cfg.HubURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	return loader, nil
}
