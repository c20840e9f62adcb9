package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/enfance/internal/assistant"
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
)

const (
	e2eTopK       = 5
	e2eDimensions = 8
)

// pipeline is the request context built the way the CLI builds it, with a mock embedder.
type pipeline struct {
	store     *storage.SQLiteStorage
	indexes   *corpus.Indexes
	assistant *assistant.Assistant
	metrics   *metrics.Metrics
}

func buildPipeline(t *testing.T, dir string, gen assistant.Generator) *pipeline {
	t.Helper()
	ctx := context.Background()
	c := BuildCorpus()
	pagesPath := filepath.Join(dir, "pages.json")
	if err := c.WritePages(pagesPath); err != nil {
		t.Fatal(err)
	}

	dbPath := filepath.Join(dir, "segments.db")
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	imp, err := corpus.NewImporter(store).ImportFile(ctx, pagesPath, corpus.FormatPages)
	if err != nil {
		t.Fatalf("import pages: %v", err)
	}
	if imp.SegmentCount != 2*c.TotalPages {
		t.Fatalf("imported %d segments, want %d", imp.SegmentCount, 2*c.TotalPages)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopen to load from disk, as a restarted server would.
	store, err = storage.NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	segments, err := corpus.Load(ctx, store, "", nil)
	if err != nil {
		t.Fatalf("load corpus: %v", err)
	}

	embedder := embedding.NewMockEmbedder(e2eDimensions)
	rows := make([][]float32, len(segments))
	for i, seg := range segments {
		if rows[i], err = embedder.Embed(ctx, seg.Content); err != nil {
			t.Fatal(err)
		}
	}
	matrix, err := vector.NewMatrixIndexFromRows(rows)
	if err != nil {
		t.Fatal(err)
	}
	ix := corpus.BuildIndexes(segments, matrix, keyword.SearchOptions{}, nil)
	if ix.Matrix == nil {
		t.Fatal("matrix should match the corpus")
	}

	semantic := embedding.NewSemantic(embedder, ix.Matrix, nil)
	ranker := ranking.NewRanker(nil, ix.Segments, ix.Lexical, semantic, lexicon.Empty())
	m := metrics.New()
	opts := []assistant.Option{
		assistant.WithCatalog(datasets.New(nil, nil, nil, nil)),
		assistant.WithMetrics(m),
	}
	if gen != nil {
		opts = append(opts, assistant.WithGenerator(gen))
	}
	return &pipeline{
		store:     store,
		indexes:   ix,
		assistant: assistant.New(ranker, opts...),
		metrics:   m,
	}
}

func TestE2E_SearchReturnsExpectedPages(t *testing.T) {
	p := buildPipeline(t, t.TempDir(), nil)
	c := BuildCorpus()
	ctx := context.Background()

	t.Logf("indexed %d segments; running %d question test cases", len(p.indexes.Segments), c.TotalQueries)

	for _, tc := range c.TestCases {
		t.Run(tc.Description, func(t *testing.T) {
			resp, err := p.assistant.Search(ctx, &models.SearchRequest{Question: tc.Question, TopK: e2eTopK})
			if err != nil {
				t.Fatalf("search failed: %v", err)
			}
			sources := sourcesFromResponse(p.indexes, resp.Segments)
			if !contains(sources, tc.ExpectedSource) {
				t.Errorf("question %q: expected %s in top %d, got %v", tc.Question, tc.ExpectedSource, e2eTopK, sources)
			}
			for i, seg := range resp.Segments {
				if seg.Reference == "" {
					t.Errorf("segment %d has no reference", i)
				}
			}
		})
	}
}

func TestE2E_AskOverHTTP(t *testing.T) {
	var prompts []string
	llm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode generation request: %v", err)
		}
		if len(req.Messages) > 0 {
			prompts = append(prompts, req.Messages[0].Content)
		}
		answer := `{"answer_html":"<p>La crèche du quartier Etouvie accueille les tout-petits [#1].</p>","follow_up_question":null}`
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content":     []map[string]any{{"type": "text", "text": answer}},
			"stop_reason": "end_turn",
		})
	}))
	defer llm.Close()

	gen := generation.NewClient(generation.Config{BaseURL: llm.URL}, "test-key")
	p := buildPipeline(t, t.TempDir(), gen)
	srv := server.NewServer(p.assistant, p.metrics, server.Info{
		Segments: len(p.indexes.Segments),
		Semantic: true,
		Store:    p.store,
	}, &config.ServerConfig{}, nil)
	api := httptest.NewServer(srv.Handler())
	defer api.Close()

	body, _ := json.Marshal(models.AskRequest{Question: "horaires crèche quartier etouvie"})
	resp, err := http.Post(api.URL+"/api/v1/ask", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("status %d: %s", resp.StatusCode, b)
	}
	var answer models.AskResponse
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		t.Fatal(err)
	}
	if answer.Status != models.StatusAnswered {
		t.Errorf("status = %q, want %q", answer.Status, models.StatusAnswered)
	}
	if !strings.Contains(answer.AnswerHTML, "Etouvie") {
		t.Errorf("unexpected answer_html %q", answer.AnswerHTML)
	}
	if answer.RequestID == "" || resp.Header.Get("X-Request-Id") == "" {
		t.Error("request id should be set on the body and the response header")
	}
	if len(prompts) != 1 || !strings.Contains(prompts[0], "Etouvie") {
		t.Fatalf("expected one prompt quoting the Etouvie page, got %d prompts", len(prompts))
	}
	if !contains(sourcesFromResponse(p.indexes, answer.Segments), "enfance_creche-etouvie.txt") {
		t.Errorf("Etouvie crèche page missing from segments")
	}

	health, err := http.Get(api.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer health.Body.Close()
	var status map[string]any
	if err := json.NewDecoder(health.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status["last_import"] == nil {
		t.Error("health should report the pages import")
	}
}

func sourcesFromResponse(ix *corpus.Indexes, segments []*models.RetrievedSegment) []string {
	sources := make([]string, 0, len(segments))
	for _, r := range segments {
		if seg := ix.Lookup(r.CorpusID); seg != nil {
			sources = append(sources, seg.Source)
		}
	}
	return sources
}

func contains(got []string, want string) bool {
	for _, s := range got {
		if s == want {
			return true
		}
	}
	return false
}
