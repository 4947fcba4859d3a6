package cmd

import (
	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/ocrloader/internal/loadcmd"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ocrloader",
		Short: "Load OCR line-image datasets into Supabase for transcription review",
		Long: `ocrloader populates a Supabase project with OCR ground truth images.

It downloads a HuggingFace OCR dataset split, stores each image as a PNG in a
Storage bucket, and registers it in the ocr_images table with its text and
zeroed review counters.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.AddCommand(loadcmd.NewUploadCmd())
	cmd.AddCommand(loadcmd.NewFetchCmd())
	cmd.AddCommand(loadcmd.NewInspectCmd())

	return cmd
}
