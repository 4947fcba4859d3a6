package loadcmd

import (
	"fmt"
	"os"
	"time"

	"github.com/lehigh-university-libraries/ocrloader/internal/config"
	"github.com/lehigh-university-libraries/ocrloader/internal/dataset"
	"github.com/lehigh-university-libraries/ocrloader/internal/models"
	"github.com/lehigh-university-libraries/ocrloader/internal/sink"
	"github.com/spf13/cobra"
)

// NewUploadCmd creates the upload command for loading OCR images into Supabase
func NewUploadCmd() *cobra.Command {
	var configPath string
	var verbose bool
	var (
		count         int
		bucket        string
		table         string
		delay         time.Duration
		repo          string
		split         string
		datasetPath   string
		cacheDir      string
		forceDownload bool
		resume        bool
		resetJournal  bool
		reportPath    string
		sinkKind      string
		sqlitePath    string
		private       bool
	)

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload OCR dataset images to Supabase Storage and register them in ocr_images",
		Long: `Upload the first N images of a HuggingFace OCR dataset split.

Each image is re-encoded as PNG, stored in a Supabase Storage bucket under a
random UUID name, and registered in the metadata table with its public URL and
ground truth text. Individual failures are reported and skipped.

Requires SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY (a .env file is loaded if present).

Dataset: https://huggingface.co/datasets/MiXaiLL76/TextOCR_OCR`,
		Example: `  # Upload the default 500 images
  ocrloader upload

  # Upload 20 images with no pause between uploads
  ocrloader upload --count 20 --delay 0

  # Upload from a local parquet file into a local SQLite table
  ocrloader upload --path ./test.parquet --sink sqlite --sqlite ./ocr.db

  # Resume an interrupted run (requires REDIS_URL) and write a report
  ocrloader upload --resume --report ./reports/run.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd.OutOrStdout(), verbose)

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("count") {
				cfg.Upload.Count = count
			}
			if flags.Changed("bucket") {
				cfg.Upload.Bucket = bucket
			}
			if flags.Changed("table") {
				cfg.Sink.Table = table
			}
			if flags.Changed("delay") {
				cfg.Upload.Delay = delay
			}
			if flags.Changed("dataset") {
				cfg.Dataset.Repo = repo
			}
			if flags.Changed("split") {
				cfg.Dataset.Split = split
			}
			if flags.Changed("path") {
				cfg.Dataset.Path = datasetPath
			}
			if flags.Changed("cache-dir") {
				cfg.Dataset.CacheDir = cacheDir
			}
			if flags.Changed("force-download") {
				cfg.Dataset.ForceDownload = forceDownload
			}
			if flags.Changed("resume") {
				cfg.Upload.Resume = resume
			}
			if flags.Changed("report") {
				cfg.Upload.ReportPath = reportPath
			}
			if flags.Changed("sink") {
				cfg.Sink.Kind = sinkKind
			}
			if flags.Changed("sqlite") {
				cfg.Sink.SQLitePath = sqlitePath
			}
			if flags.Changed("private") {
				cfg.Upload.PublicBucket = !private
			}
			cfg.Upload.ResetJournal = resetJournal

			return executeUpload(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&configPath, "config", os.Getenv(config.EnvConfigPath), "Path to YAML config file")
	cmd.Flags().IntVar(&count, "count", config.DefaultCount, "Number of images to upload (at most 500)")
	cmd.Flags().StringVar(&bucket, "bucket", config.DefaultBucket, "Storage bucket name")
	cmd.Flags().StringVar(&table, "table", models.DefaultTable, "Metadata table name")
	cmd.Flags().DurationVar(&delay, "delay", config.DefaultDelay, "Pause between successful uploads (0 disables)")
	cmd.Flags().StringVar(&repo, "dataset", dataset.DefaultRepo, "HuggingFace dataset repository")
	cmd.Flags().StringVar(&split, "split", dataset.DefaultSplit, "Dataset split")
	cmd.Flags().StringVar(&datasetPath, "path", "", "Local parquet/jsonl file or shard directory (skips the download)")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", dataset.DefaultCacheDir, "Dataset cache directory")
	cmd.Flags().BoolVar(&forceDownload, "force-download", false, "Re-download the dataset even if cached")
	cmd.Flags().BoolVar(&resume, "resume", false, "Skip records completed by a previous run (requires REDIS_URL)")
	cmd.Flags().BoolVar(&resetJournal, "reset-journal", false, "Clear the resume journal before uploading")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write a YAML run report to this path")
	cmd.Flags().StringVar(&sinkKind, "sink", sink.KindREST, "Metadata sink (rest, postgres, or sqlite)")
	cmd.Flags().StringVar(&sqlitePath, "sqlite", "", "SQLite database path for --sink sqlite")
	cmd.Flags().BoolVar(&private, "private", false, "Create the bucket as private")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Verbose logging")

	return cmd
}

// NewFetchCmd creates the fetch command for caching a dataset split locally
func NewFetchCmd() *cobra.Command {
	var repo string
	var datasetConfig string
	var split string
	var cacheDir string
	var forceDownload bool
	var clearCache bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download a dataset split's parquet shards into the local cache",
		Long: `Download the parquet shards of a HuggingFace dataset split without uploading anything.

Later upload and inspect runs read the cached shards instead of downloading again.
Set HF_TOKEN for gated datasets.`,
		Example: `  # Cache the default split
  ocrloader fetch

  # Re-download the validation split
  ocrloader fetch --split validation --force-download

  # Remove the cached split
  ocrloader fetch --clear`,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd.OutOrStdout(), verbose)

			return executeFetch(cmd.Context(), cmd.OutOrStdout(), fetchOptions{
				repo:          repo,
				config:        datasetConfig,
				split:         split,
				cacheDir:      cacheDir,
				forceDownload: forceDownload,
				clear:         clearCache,
				token:         os.Getenv(config.EnvHFToken),
			})
		},
	}

	cmd.Flags().StringVar(&repo, "dataset", dataset.DefaultRepo, "HuggingFace dataset repository")
	cmd.Flags().StringVar(&datasetConfig, "config-name", dataset.DefaultConfig, "Dataset config name")
	cmd.Flags().StringVar(&split, "split", dataset.DefaultSplit, "Dataset split")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", dataset.DefaultCacheDir, "Dataset cache directory")
	cmd.Flags().BoolVar(&forceDownload, "force-download", false, "Re-download even if cached")
	cmd.Flags().BoolVar(&clearCache, "clear", false, "Remove the cached split instead of downloading")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Verbose logging")

	return cmd
}

// NewInspectCmd creates the inspect command
func NewInspectCmd() *cobra.Command {
	var datasetPath string
	var limit int
	var interactive bool
	var showImage bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect dataset records (ground truth text and image details)",
		Long: `Inspect records from a parquet or jsonl dataset file or a directory of shards.

Useful for checking what an upload run will send: the ground truth text of each
record and the format and size of its image.`,
		Example: `  # Inspect the first 5 records interactively
  ocrloader inspect --path ./test.parquet --limit 5 --interactive

  # Inspect a cached split without decoding images
  ocrloader inspect --path ~/.cache/huggingface/datasets/MiXaiLL76/TextOCR_OCR/default/test --image=false`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if datasetPath == "" {
				return fmt.Errorf("--path is required")
			}

			return executeInspect(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), datasetPath, limit, interactive, showImage)
		},
	}

	cmd.Flags().StringVar(&datasetPath, "path", "", "Path to parquet or jsonl dataset file, or a shard directory (required)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of records to inspect (0 for all)")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "Pause after each record (press Enter to continue)")
	cmd.Flags().BoolVar(&showImage, "image", true, "Decode images and show format and dimensions")

	_ = cmd.MarkFlagRequired("path")

	return cmd
}
