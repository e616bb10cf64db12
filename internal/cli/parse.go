package cli

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"decaquiz-service/internal/extract"
	"github.com/spf13/cobra"
)

// newParseCmd runs the question extractor on a local file.
func newParseCmd(opts *globalOptions) *cobra.Command {
	var contentType string
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Extract questions from a CSV, text, XLSX or PDF file and print them as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if contentType == "" {
				contentType = mime.TypeByExtension(filepath.Ext(args[0]))
			}

			questions, err := extract.New(cfg.MaxQuestions()).Extract(data, extract.Hint{
				ContentType: contentType,
				FileName:    filepath.Base(args[0]),
			})
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(questions)
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "", "declared MIME type (defaults to the extension's)")
	return cmd
}
