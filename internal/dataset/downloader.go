package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// HuggingFace dataset repository
	DefaultRepo = "MiXaiLL76/TextOCR_OCR"

	DefaultConfig = "default"
	DefaultSplit  = "test"

	DefaultHubURL = "https://huggingface.co"

	// Lists the auto-converted parquet shards of a split
	HFParquetListPath = "/api/datasets/%s/parquet/%s/%s"

	// Default cache directory (similar to Python's datasets library)
	DefaultCacheDir = "~/.cache/huggingface/datasets"
)

// DownloadConfig configures dataset downloading
type DownloadConfig struct {
	CacheDir      string
	ForceDownload bool
	Token         string // HuggingFace token for gated datasets
	HubURL        string
	HTTPClient    *http.Client
}

// Downloader handles downloading and caching dataset splits from HuggingFace
type Downloader struct {
	config DownloadConfig
}

// NewDownloader creates a new dataset downloader
func NewDownloader(config DownloadConfig) *Downloader {
	if config.CacheDir == "" {
		config.CacheDir = DefaultCacheDir
	}
	if config.HubURL == "" {
		config.HubURL = DefaultHubURL
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 10 * time.Minute}
	}

	// Expand ~ to home directory
	if strings.HasPrefix(config.CacheDir, "~") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			config.CacheDir = filepath.Join(homeDir, config.CacheDir[1:])
		}
	}

	return &Downloader{
		config: config,
	}
}

// GetCachePath returns the directory where a split's shards are cached
func (d *Downloader) GetCachePath(repo, config, split string) string {
	return filepath.Join(d.config.CacheDir, repo, config, split)
}

// ListShards asks the HuggingFace hub for the parquet shard URLs of a split
func (d *Downloader) ListShards(ctx context.Context, repo, config, split string) ([]string, error) {
	url := d.config.HubURL + fmt.Sprintf(HFParquetListPath, repo, config, split)

	resp, err := d.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to list parquet shards: %w", err)
	}
	defer resp.Body.Close()

	var shards []string
	if err := json.NewDecoder(resp.Body).Decode(&shards); err != nil {
		return nil, fmt.Errorf("failed to decode shard list: %w", err)
	}
	if len(shards) == 0 {
		return nil, fmt.Errorf("split %s/%s of %s has no parquet shards", config, split, repo)
	}

	return shards, nil
}

// DownloadSplit downloads every parquet shard of a split.
// Returns the local shard paths in hub order. Shards are staged next to the
// cache directory and moved into place only after all of them succeed.
func (d *Downloader) DownloadSplit(ctx context.Context, repo, config, split string) ([]string, error) {
	cacheDir := d.GetCachePath(repo, config, split)

	// Check if the split is already cached
	if !d.config.ForceDownload {
		cached, _ := filepath.Glob(filepath.Join(cacheDir, "*.parquet"))
		if len(cached) > 0 {
			sort.Strings(cached)
			slog.Info("Using cached dataset", "path", cacheDir, "shards", len(cached))
			return cached, nil
		}
	}

	slog.Info("Downloading dataset from HuggingFace", "repo", repo, "config", config, "split", split)

	urls, err := d.ListShards(ctx, repo, config, split)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cacheDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	stageDir, err := os.MkdirTemp(filepath.Dir(cacheDir), filepath.Base(cacheDir)+".partial-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stageDir)
	if err := os.Chmod(stageDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	names := make([]string, 0, len(urls))
	for i, url := range urls {
		// Prefix keeps hub order under lexical sort
		name := fmt.Sprintf("%05d-%s", i, path.Base(url))
		slog.Info("Downloading shard", "shard", fmt.Sprintf("%d/%d", i+1, len(urls)), "url", url)
		if err := d.downloadFile(ctx, url, filepath.Join(stageDir, name)); err != nil {
			return nil, fmt.Errorf("failed to download dataset: %w", err)
		}
		names = append(names, name)
	}

	if err := os.RemoveAll(cacheDir); err != nil {
		return nil, fmt.Errorf("failed to replace cached split: %w", err)
	}
	if err := os.Rename(stageDir, cacheDir); err != nil {
		return nil, fmt.Errorf("failed to move split into cache: %w", err)
	}

	paths := make([]string, 0, len(names))
	for _, name := range names {
		paths = append(paths, filepath.Join(cacheDir, name))
	}

	slog.Info("Dataset downloaded successfully", "path", cacheDir, "shards", len(paths))
	return paths, nil
}

func (d *Downloader) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Add HuggingFace token if provided
	if d.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+d.config.Token)
	}

	resp, err := d.config.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("request to %s failed with status: %d", url, resp.StatusCode)
	}

	return resp, nil
}

// progressWriter logs download progress every 10MB
type progressWriter struct {
	total      int64
	downloaded int64
	nextLog    int64
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.downloaded += int64(len(b))
	if p.downloaded >= p.nextLog {
		p.nextLog += 10 * 1024 * 1024
		attrs := []any{"downloaded_mb", p.downloaded / (1024 * 1024)}
		if p.total > 0 {
			attrs = append(attrs,
				"total_mb", p.total/(1024*1024),
				"progress", fmt.Sprintf("%.1f%%", float64(p.downloaded)/float64(p.total)*100))
		}
		slog.Debug("Download progress", attrs...)
	}
	return len(b), nil
}

// downloadFile downloads a file from a URL to a local path via a temp file
func (d *Downloader) downloadFile(ctx context.Context, url, destPath string) error {
	resp, err := d.get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	tempPath := destPath + ".tmp"
	out, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	progress := &progressWriter{total: resp.ContentLength}
	_, err = io.Copy(out, io.TeeReader(resp.Body, progress))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("download failed: %w", err)
	}

	// Move temp file to final location
	if err := os.Rename(tempPath, destPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to move file: %w", err)
	}

	return nil
}

// ClearCache removes the cached shards of a split
func (d *Downloader) ClearCache(repo, config, split string) error {
	cacheDir := d.GetCachePath(repo, config, split)
	slog.Info("Clearing cache", "path", cacheDir)
	return os.RemoveAll(cacheDir)
}

// LoadOrDownload loads a split from cache or downloads it if not present
func LoadOrDownload(ctx context.Context, repo, config, split string, cfg DownloadConfig) (*Loader, error) {
	downloader := NewDownloader(cfg)

	shards, err := downloader.DownloadSplit(ctx, repo, config, split)
	if err != nil {
		return nil, err
	}

	return NewShardLoader(shards), nil
}
