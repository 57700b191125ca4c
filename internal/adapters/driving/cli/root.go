// Package cli implements the quarry command line interface.
//
// Commands are thin: they parse flags, call the driving ports and
// format output. All wiring of adapters to services happens once in
// PersistentPreRunE so every subcommand sees the same service set.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/spf13/cobra"

	ollamaembed "github.com/quarrylabs/quarry-cli/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/quarrylabs/quarry-cli/internal/adapters/driven/embedding/openai"
	"github.com/quarrylabs/quarry-cli/internal/adapters/driven/config/file"
	"github.com/quarrylabs/quarry-cli/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/quarrylabs/quarry-cli/internal/adapters/driven/llm/ollama"
	openaillm "github.com/quarrylabs/quarry-cli/internal/adapters/driven/llm/openai"
	"github.com/quarrylabs/quarry-cli/internal/adapters/driven/storage/sqlite"
	"github.com/quarrylabs/quarry-cli/internal/adapters/driven/vector/flat"
	"github.com/quarrylabs/quarry-cli/internal/connectors"
	"github.com/quarrylabs/quarry-cli/internal/core/domain"
	"github.com/quarrylabs/quarry-cli/internal/core/ports/driven"
	"github.com/quarrylabs/quarry-cli/internal/core/ports/driving"
	"github.com/quarrylabs/quarry-cli/internal/core/services"
	"github.com/quarrylabs/quarry-cli/internal/extract"
	"github.com/quarrylabs/quarry-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	verbose   bool
	configDir string
	ownerID   int64

	cfg *file.Config

	retrievalService driving.RetrievalService
	ingestService    driving.IngestService

	// closers holds adapters with resources to release after the
	// command finishes. Populated by initServices.
	closers []io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "quarry",
	Short: "Local document retrieval and question answering",
	Long: `Quarry indexes documents with vector embeddings and answers
questions grounded in the most relevant matches.

Documents come from local files, directories, web pages or Notion
pages. Everything is stored locally under ~/.quarry.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		if !needsServices(cmd) {
			return nil
		}
		// Tests install stub services before executing commands.
		if retrievalService != nil {
			return nil
		}
		return initServices()
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logger.Debug("close: %v", err)
			}
		}
		closers = nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default ~/.quarry)")
	rootCmd.PersistentFlags().Int64Var(&ownerID, "owner", 1, "owner ID scoping all operations")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// needsServices reports whether the command requires the full service
// wiring. Informational commands run without touching config or disk.
func needsServices(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
		return false
	}
	return true
}

// initServices loads configuration and wires adapters into the core
// services. Called once per invocation.
func initServices() error {
	var err error
	cfg, err = file.Load(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	embedder, err := buildEmbedder(cfg.Embedding)
	if err != nil {
		return err
	}
	closers = append(closers, embedder)

	store, err := sqlite.NewStore(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening document store: %w", err)
	}
	closers = append(closers, store)

	index, err := openIndex(cfg.Storage.DataDir, embedder.Dimensions(), flat.Metric(cfg.Search.Metric))
	if err != nil {
		return err
	}

	generator, err := buildGenerator(cfg.Generator)
	if err != nil {
		return err
	}
	if generator != nil {
		closers = append(closers, generator)
	}

	engine := services.NewRetrievalEngine(embedder, index, store, generator, services.EngineConfig{
		DataDir:       cfg.Storage.DataDir,
		ContextBudget: cfg.Search.ContextBudget,
		MaxTokens:     cfg.Generator.MaxTokens,
	})

	factory := connectors.NewFactory(connectors.FactoryConfig{
		NotionToken:             cfg.Notion.Token,
		NotionRequestsPerSecond: cfg.Notion.RequestsPerSecond,
	})

	retrievalService = engine
	ingestService = services.NewIngestor(engine, factory, extract.New())
	return nil
}

// openIndex opens the persisted vector index, falling back to a fresh
// one when the file is absent or unreadable. A corrupt or mismatched
// blob is not fatal: documents survive in the store and a rebuild
// restores the index.
func openIndex(dataDir string, dimension int, metric flat.Metric) (*flat.Index, error) {
	if !metric.Valid() {
		return nil, fmt.Errorf("unknown similarity metric %q", metric)
	}

	path := filepath.Join(dataDir, services.VectorsFilename)
	index, err := flat.Open(path, dimension, metric)
	switch {
	case err == nil:
		return index, nil
	case errors.Is(err, fs.ErrNotExist):
		return flat.New(dimension, metric)
	case errors.Is(err, domain.ErrIndexCorrupt):
		logger.Warn("vector index unreadable, starting empty (run 'quarry rebuild' to restore): %v", err)
		return flat.New(dimension, metric)
	default:
		return nil, fmt.Errorf("opening vector index: %w", err)
	}
}

func buildEmbedder(cfg file.EmbeddingConfig) (driven.EmbeddingService, error) {
	switch cfg.Provider {
	case "", "ollama":
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		}), nil
	case "openai":
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// buildGenerator returns nil when no provider is configured; the
// retrieval engine degrades to search-only answers in that case.
func buildGenerator(cfg file.GeneratorConfig) (driven.AnswerGenerator, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "ollama":
		return ollamallm.NewGenerator(ollamallm.Config{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		}), nil
	case "openai":
		return openaillm.NewGenerator(openaillm.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
	case "anthropic":
		return anthropic.NewGenerator(anthropic.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
	default:
		return nil, fmt.Errorf("unknown generator provider %q", cfg.Provider)
	}
}

// commandContext returns the context attached to the command, falling
// back to Background for commands constructed outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
