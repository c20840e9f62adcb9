// Package main is the Enfance CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/enfance/internal/assistant"
	"github.com/hyperjump/enfance/internal/cli"
	"github.com/hyperjump/enfance/internal/config"
	"github.com/hyperjump/enfance/internal/corpus"
	"github.com/hyperjump/enfance/internal/datasets"
	"github.com/hyperjump/enfance/internal/embedding"
	"github.com/hyperjump/enfance/internal/generation"
	"github.com/hyperjump/enfance/internal/keyword"
	"github.com/hyperjump/enfance/internal/lexicon"
	"github.com/hyperjump/enfance/internal/metrics"
	"github.com/hyperjump/enfance/internal/models"
	"github.com/hyperjump/enfance/internal/ranking"
	"github.com/hyperjump/enfance/internal/server"
	"github.com/hyperjump/enfance/internal/storage"
	"github.com/hyperjump/enfance/internal/vector"
	"github.com/hyperjump/enfance/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/enfance/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "ask":
		runAsk()
	case "import":
		runImport()
	case "export":
		runExport()
	case "config":
		runConfig()
	case "version", "--version", "-v":
		fmt.Printf("enfance version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads the config and creates the logger shared by every command.
func setup(configPath string, debug bool) (*config.Config, *zap.Logger, string) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, logger, resolved
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (ranking scores, follow-up decisions)")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, resolved := setup(*configPath, *debug)
	defer logger.Sync()
	logger.Info("config loaded", zap.String("config_path", resolved), zap.Bool("debug", cfg.Debug || *debug))

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	info := server.Info{
		Segments: len(components.Indexes.Segments),
		Semantic: components.Semantic.Available(),
		Lexicon:  components.Lexicon.Len(),
		Datasets: components.Catalog.Loaded(),
		Files: map[string]string{
			"database": cfg.Corpus.DatabasePath,
			"corpus":   cfg.Corpus.MetadataPath,
			"matrix":   cfg.Embedding.MatrixPath,
			"lexicon":  cfg.Lexicon.Path,
		},
		Store: components.Store,
	}
	srv := server.NewServer(components.Assistant, components.Metrics, info, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: enfance %s [flags] <question>\n\n", fs.Name())
	fmt.Fprintf(fs.Output(), "The question is all remaining arguments joined by spaces.\n\n")
	fs.PrintDefaults()
}

// buildQuestion joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the question
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = load the corpus locally)")
	topK := fs.Int("top-k", 0, "number of segments (0 = configured default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(argsReorder(os.Args[2:]))

	question := buildQuestion(fs.Args())
	if question == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	req := &models.SearchRequest{Question: question, TopK: *topK}

	var response models.SearchResponse
	if *serverURL != "" {
		if err := postJSON(*serverURL+"/api/v1/search", req, &response); err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, logger, _ := setup(*configPath, false)
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()
		resp, err := components.Assistant.Search(context.Background(), req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		response = *resp
	}
	if err := cli.WriteSearchResults(os.Stdout, &response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = answer locally)")
	instructions := fs.String("instructions", "", "extra instructions appended to the prompt")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(argsReorder(os.Args[2:]))

	question := buildQuestion(fs.Args())
	if question == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	req := &models.AskRequest{Question: question, Instructions: *instructions}

	var response models.AskResponse
	if *serverURL != "" {
		if err := postJSON(*serverURL+"/api/v1/ask", req, &response); err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, logger, _ := setup(*configPath, false)
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()
		resp, err := components.Assistant.Ask(context.Background(), req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		response = *resp
	}
	if err := cli.WriteAnswer(os.Stdout, &response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	format := fs.String("format", corpus.FormatSegments, "input format: segments (corpus metadata) or pages (crawled pages)")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: enfance import [--format segments|pages] <file.json>")
		os.Exit(1)
	}
	cfg, logger, _ := setup(*configPath, false)
	defer logger.Sync()

	store, err := storage.NewSQLiteStorage(cfg.Corpus.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to open segment store", zap.Error(err))
	}
	defer store.Close()

	importer := corpus.NewImporter(store,
		corpus.WithLogger(logger),
		corpus.WithSectioner(corpus.NewSectioner(corpus.WithBaseURL(cfg.Corpus.PagesBaseURL))))
	imp, err := importer.ImportFile(context.Background(), fs.Arg(0), *format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Imported %d segments from %s (import %s)\n", imp.SegmentCount, imp.Source, imp.ID)
}

func runExport() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	output := fs.String("output", "", "output file (empty = stdout)")
	matrix := fs.String("matrix", "", "convert the configured embedding matrix to the binary format at this path instead")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, _ := setup(*configPath, false)
	defer logger.Sync()

	if *matrix != "" {
		m, err := vector.Convert(cfg.Embedding.MatrixPath, cfg.Embedding.Format, *matrix)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Matrix conversion failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %d x %d matrix to %s\n", m.Size(), m.Dimensions(), *matrix)
		return
	}

	store, err := storage.NewSQLiteStorage(cfg.Corpus.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to open segment store", zap.Error(err))
	}
	defer store.Close()

	segments, err := store.ListSegments(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
		os.Exit(1)
	}
	var w io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}
	if err := corpus.WriteSegments(w, segments); err != nil {
		fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
		os.Exit(1)
	}
}

// runConfig prints the effective configuration (defaults applied, paths expanded) or
// writes it to a file.
func runConfig() {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	output := fs.String("output", "", "output file (empty = stdout)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolved, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *output == "" {
		fmt.Printf("# effective configuration from %s\n", resolved)
		err = config.Write(os.Stdout, cfg)
	} else {
		err = config.Save(*output, cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config output failed: %v\n", err)
		os.Exit(1)
	}
}

func postJSON(url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Components holds initialized services.
type Components struct {
	// Store is nil when the database cannot be opened.
	Store     storage.SegmentStore
	Embedder  embedding.Embedder
	Indexes   *corpus.Indexes
	Semantic  *embedding.Semantic
	Lexicon   *lexicon.Lexicon
	Catalog   *datasets.Catalog
	Metrics   *metrics.Metrics
	Assistant *assistant.Assistant
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

// initializeComponents loads the read-only request context. Missing optional pieces
// (segment store, embedding matrix or service, lexicon, datasets, API key) are logged
// and disable the corresponding capability.
func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	ctx := context.Background()
	c := &Components{Metrics: metrics.New()}
	if store, err := storage.NewSQLiteStorage(cfg.Corpus.DatabasePath); err != nil {
		logger.Warn("segment store unavailable, reading the corpus file",
			zap.String("path", cfg.Corpus.DatabasePath), zap.Error(err))
	} else {
		c.Store = store
	}

	segments, err := corpus.Load(ctx, c.Store, cfg.Corpus.MetadataPath, logger)
	if err != nil {
		logger.Warn("corpus unavailable, answers will have no grounding", zap.Error(err))
	}

	matrix, err := vector.Open(cfg.Embedding.MatrixPath, cfg.Embedding.Format)
	if err != nil {
		logger.Warn("embedding matrix unavailable", zap.String("path", cfg.Embedding.MatrixPath), zap.Error(err))
		matrix = nil
	}
	c.Indexes = corpus.BuildIndexes(segments, matrix, keyword.SearchOptions{
		K1:           cfg.Ranking.BM25K1,
		B:            cfg.Ranking.BM25B,
		LabelBoost:   cfg.Ranking.LabelBoost,
		ContentBoost: cfg.Ranking.ContentBoost,
	}, logger)

	var semantic ranking.SemanticSearcher
	if cfg.Embedding.BaseURL != "" {
		c.Embedder = embedding.NewCachedEmbedder(
			embedding.NewOllamaEmbedder(cfg.Embedding.BaseURL, cfg.Embedding.Model, cfg.Embedding.Dimensions, cfg.Embedding.Timeout),
			cfg.Embedding.CacheSize)
	}
	if c.Embedder != nil && c.Indexes.Matrix != nil {
		c.Semantic = embedding.NewSemantic(c.Embedder, c.Indexes.Matrix, logger)
		semantic = c.Semantic
	} else {
		logger.Warn("semantic search disabled",
			zap.Bool("embedder", c.Embedder != nil),
			zap.Bool("matrix", c.Indexes.Matrix != nil))
	}

	c.Lexicon, err = lexicon.Load(cfg.Lexicon.Path, cfg.Lexicon.QueryHints)
	if err != nil {
		logger.Warn("lexicon unavailable, query expansion disabled", zap.Error(err))
		c.Lexicon = lexicon.Empty()
	}

	ranker := ranking.NewRanker(&cfg.Ranking, c.Indexes.Segments, c.Indexes.Lexical, semantic, c.Lexicon,
		ranking.WithLogger(logger))
	c.Catalog = datasets.Load(cfg.Datasets.Paths(), logger)

	opts := []assistant.Option{
		assistant.WithLogger(logger),
		assistant.WithCatalog(c.Catalog),
		assistant.WithMetrics(c.Metrics),
	}
	if apiKey := cfg.APIKey(); apiKey != "" {
		opts = append(opts, assistant.WithGenerator(
			generation.NewClient(cfg.Generation, apiKey, generation.WithLogger(logger))))
	} else {
		logger.Warn("no API key, answer generation disabled", zap.String("env", cfg.Generation.APIKeyEnv))
	}
	if cfg.Cache.EnabledOrDefault() {
		opts = append(opts, assistant.WithCache(assistant.NewCache(cfg.Cache.TTL)))
	}
	c.Assistant = assistant.New(ranker, opts...)
	return c, nil
}

func printUsage() {
	fmt.Println(`enfance - Childcare question answering over the municipal corpus

Usage:
  enfance server [flags]             Start the HTTP server
  enfance search [flags] <question>  Rank corpus segments for a question
  enfance ask [flags] <question>     Answer a question
  enfance import [flags] <file>      Import a corpus file into the segment store
  enfance export [flags]             Write the stored corpus as corpus metadata JSON
  enfance config [flags]             Print the effective configuration
  enfance version                    Show version
  enfance help                       Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/enfance/config.yaml)
  --debug            Enable debug logging (ranking scores, follow-up decisions)

Search / Ask Flags:
  --config string        Config file path (for local mode)
  --server string        Server URL. Empty (default) loads the corpus locally.
  --top-k int            Number of segments (search only, default from config)
  --instructions string  Extra prompt instructions (ask only)
  --output string        Output format: text or json (default: text)

Import Flags:
  --format string    segments (corpus metadata JSON) or pages (crawled pages JSON)

Export Flags:
  --output string    Output file (default: stdout)
  --matrix string    Convert the configured embedding matrix to the binary format at this path

Config Flags:
  --output string    Output file (default: stdout)

Examples:
  enfance import data/corpus_metadata.json
  enfance import --format pages data/pages.json
  enfance export --matrix data/embeddings.bin
  enfance server
  enfance search "combien coûte la cantine"
  enfance ask --server http://localhost:8711 "comment inscrire mon enfant à la crèche"
  enfance search --output json "horaires du relais petite enfance"`)
}
