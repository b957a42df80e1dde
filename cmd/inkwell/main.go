// Package main provides the inkwell CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/inkwell-ai/inkwell/cli"
)

var (
	// Global flags
	provider string
	verbose  bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "inkwell",
		Short: "LLM document-drafting service",
		Long: `Inkwell runs an LLM tool-orchestration loop for drafting and editing
markdown documents. The model edits documents through a closed set of
deterministic patch tools; every document change is a structural patch,
never free-form regeneration.`,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "anthropic", "LLM provider (anthropic, openai, deepseek)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(patchCmd())
	rootCmd.AddCommand(toolsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var addr string
	var dbPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP drafting service",
		Long: `Run the HTTP drafting service.

POST /v1/chat streams newline-delimited JSON events: assistant text,
document notifications, web-search markers, and a closing DONE event.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.Options{
				Provider: provider,
				Addr:     addr,
				DBPath:   dbPath,
				Verbose:  verbose,
			}
			return cli.Serve(context.Background(), opts)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from INKWELL_ADDR or :8080)")
	cmd.Flags().StringVar(&dbPath, "db", "", "Database path (default from INKWELL_DB or inkwell.db)")

	return cmd
}

func patchCmd() *cobra.Command {
	var find, replace, content, position, heading string
	var all bool

	cmd := &cobra.Command{
		Use:   "patch [operation] [file]",
		Short: "Apply one patch operation to a file",
		Long: `Apply one patch operation to a markdown file in place.

Operations: find_and_replace, insert_at_position, replace_section,
rewrite_document. A failed operation leaves the file untouched.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Patch(args[0], args[1], map[string]string{
				"find":     find,
				"replace":  replace,
				"content":  content,
				"position": position,
				"heading":  heading,
				"all":      fmt.Sprintf("%t", all),
			})
		},
	}

	cmd.Flags().StringVar(&find, "find", "", "Text to find (find_and_replace)")
	cmd.Flags().StringVar(&replace, "replace", "", "Replacement text (find_and_replace)")
	cmd.Flags().StringVar(&content, "content", "", "Content to insert or write")
	cmd.Flags().StringVar(&position, "position", "end", "Insert anchor: start, end, after_heading:<H>, line:<N>")
	cmd.Flags().StringVar(&heading, "heading", "", "Section heading (replace_section)")
	cmd.Flags().BoolVar(&all, "all", false, "Replace every occurrence (find_and_replace)")

	return cmd
}

func toolsCmd() *cobra.Command {
	var withDocument bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Print the tool catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Tools(withDocument)
		},
	}

	cmd.Flags().BoolVar(&withDocument, "with-document", false, "Include tools that require an active document")

	return cmd
}
