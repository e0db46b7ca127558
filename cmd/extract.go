/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tieubaoca/pdfchat/types"
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract FILE...",
	Short: "Print the text extracted from PDF files",
	Long: `Reads every page of the given PDF files, in order, and prints the combined
text that a chat session would use as its document.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig("warn")
		if err != nil {
			return err
		}
		defer logger.Sync()

		files, err := readPDFFiles(args)
		if err != nil {
			return err
		}

		showProgress, _ := cmd.Flags().GetBool("progress")
		var progress func(types.ProcessingDocumentStatus)
		if showProgress {
			progress = func(status types.ProcessingDocumentStatus) {
				if status.File != "" {
					fmt.Fprintf(os.Stderr, "%s: page %d/%d\n", status.File, status.ProcessedPages, status.TotalPages)
				}
			}
		}

		result, err := newPDFService(cfg, logger).ExtractText(cmd.Context(), files, progress)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), result.Corpus)
		for _, doc := range result.Documents {
			fmt.Fprintf(os.Stderr, "%s: %d pages, %d characters\n", doc.Name, doc.Pages, doc.Characters)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().BoolP("progress", "p", false, "Report every extracted page on stderr")
}
