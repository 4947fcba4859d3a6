package loadcmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/lehigh-university-libraries/ocrloader/internal/dataset"
)

type fetchOptions struct {
	repo          string
	config        string
	split         string
	cacheDir      string
	forceDownload bool
	clear         bool
	token         string
	hubURL        string
}

func executeFetch(ctx context.Context, out io.Writer, opts fetchOptions) error {
	downloader := dataset.NewDownloader(dataset.DownloadConfig{
		CacheDir:      opts.cacheDir,
		ForceDownload: opts.forceDownload,
		Token:         opts.token,
		HubURL:        opts.hubURL,
	})

	if opts.clear {
		if err := downloader.ClearCache(opts.repo, opts.config, opts.split); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Fprintf(out, "Cleared %s\n", downloader.GetCachePath(opts.repo, opts.config, opts.split))
		return nil
	}

	slog.Info("Fetching dataset split", "repo", opts.repo, "config", opts.config, "split", opts.split)

	shards, err := downloader.DownloadSplit(ctx, opts.repo, opts.config, opts.split)
	if err != nil {
		return err
	}

	count, err := dataset.NewShardLoader(shards).Count()
	if err != nil {
		return fmt.Errorf("failed to read downloaded shards: %w", err)
	}

	fmt.Fprintf(out, "Cached %d shards (%d records) in %s\n",
		len(shards), count, downloader.GetCachePath(opts.repo, opts.config, opts.split))
	for _, shard := range shards {
		fmt.Fprintf(out, "  %s\n", shard)
	}

	return nil
}
