/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tieubaoca/pdfchat/types"
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat FILE...",
	Short: "Chat with PDF files in the terminal",
	Long: `Processes the given PDF files into a session and starts a conversation on
stdin. Answers are printed as they stream in.

Commands: /reset clears the conversation, /quit exits.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		level := "warn"
		if verbose {
			level = ""
		}
		cfg, logger, err := loadConfig(level)
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		chatService, _, closeStore, err := newChatService(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeStore()

		files, err := readPDFFiles(args)
		if err != nil {
			return err
		}

		session, err := chatService.CreateSession(ctx)
		if err != nil {
			return err
		}
		defer chatService.DeleteSession(context.Background(), session.ID)

		out := cmd.OutOrStdout()
		info := color.New(color.FgHiBlack)
		session, err = chatService.ProcessDocuments(ctx, session.ID, files, types.ProcessOptions{
			Progress: func(status types.ProcessingDocumentStatus) {
				if status.File != "" {
					info.Fprintf(out, "\r%s: page %d/%d", status.File, status.ProcessedPages, status.TotalPages)
				}
			},
		})
		fmt.Fprintln(out)
		if err != nil {
			return err
		}
		for _, doc := range session.Documents {
			info.Fprintf(out, "Loaded %s (%d pages)\n", doc.Name, doc.Pages)
		}
		info.Fprintln(out, "Ask a question. /reset clears the conversation, /quit exits.")

		you := color.New(color.FgGreen, color.Bold)
		bot := color.New(color.FgCyan, color.Bold)
		errColor := color.New(color.FgRed)

		scanner := bufio.NewScanner(cmd.InOrStdin())
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for {
			you.Fprint(out, "You: ")
			if !scanner.Scan() {
				fmt.Fprintln(out)
				return scanner.Err()
			}
			input := scanner.Text()

			switch strings.TrimSpace(input) {
			case "":
				continue
			case "/quit", "/exit":
				return nil
			case "/reset":
				if err := chatService.ResetHistory(ctx, session.ID); err != nil {
					errColor.Fprintln(out, err)
				} else {
					info.Fprintln(out, "Conversation cleared.")
				}
				continue
			}

			bot.Fprint(out, "Assistant: ")
			_, err := chatService.Chat(ctx, session.ID, input, func(delta string) {
				fmt.Fprint(out, delta)
			})
			fmt.Fprintln(out)
			if err != nil {
				errColor.Fprintf(out, "Error: %v\n", err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().BoolP("verbose", "v", false, "Log at the configured level instead of warnings only")
}
