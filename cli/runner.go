// Command execution for CLI commands.
//
// Information Hiding:
// - Server wiring (config, provider, store) hidden
// - Patch-operation argument handling hidden
// - Output formatting hidden

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/inkwell-ai/inkwell/config"
	"github.com/inkwell-ai/inkwell/llm"
	"github.com/inkwell-ai/inkwell/patch"
	"github.com/inkwell-ai/inkwell/server"
	"github.com/inkwell-ai/inkwell/storage"
	"github.com/inkwell-ai/inkwell/tools"
)

// Options holds CLI execution options.
type Options struct {
	Provider string
	Addr     string
	DBPath   string
	Verbose  bool
}

// createProvider resolves a provider from settings plus environment credentials.
func createProvider(settings config.Settings) (llm.Provider, error) {
	apiKey, err := config.APIKeyFor(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}
	return llm.New(settings.LLM.Provider, apiKey, settings.LLM.Model,
		settings.LLM.MaxTokens, settings.LLM.Temperature)
}

// Serve runs the HTTP server until interrupted.
func Serve(ctx context.Context, opts Options) error {
	settings, err := config.New(opts.Provider)
	if err != nil {
		return err
	}
	if opts.Addr != "" {
		settings.Server.Addr = opts.Addr
	}
	if opts.DBPath != "" {
		settings.Server.DBPath = opts.DBPath
	}

	provider, err := createProvider(settings)
	if err != nil {
		return err
	}

	store, err := storage.OpenSqlite(settings.Server.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	srv := server.New(provider, store, server.Config{
		Addr:             settings.Server.Addr,
		MaxTurns:         settings.Agent.MaxTurns,
		WebSearch:        settings.Agent.WebSearch,
		WebSearchMaxUses: settings.Agent.WebSearchMaxUses,
	}, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Patch applies one patch operation to a file and writes the result back.
// Arguments mirror the tool schemas; a failed operation leaves the file
// untouched and returns the failure message as an error.
func Patch(op, path string, args map[string]string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	content := string(raw)

	var result patch.Result
	switch op {
	case "find_and_replace":
		result = patch.FindAndReplace(content, args["find"], args["replace"], args["all"] == "true")
	case "insert_at_position":
		result = patch.InsertAtPosition(content, args["content"], args["position"])
	case "replace_section":
		result = patch.ReplaceSection(content, args["heading"], args["content"])
	case "rewrite_document":
		result = patch.RewriteDocument(content, args["content"])
	default:
		return fmt.Errorf("unknown patch operation: %q", op)
	}

	if !result.Success {
		return fmt.Errorf("%s", result.Message)
	}
	if err := os.WriteFile(path, []byte(result.NewContent), 0o644); err != nil {
		return err
	}
	fmt.Println(result.Message)
	return nil
}

// Tools prints the tool catalog as JSON, with or without the patch tools
// that need an active document.
func Tools(withActiveDocument bool) error {
	catalog := tools.Catalog(withActiveDocument)
	out, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
