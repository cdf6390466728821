//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloo-solutions/docqa/internal/api/handlers"
	"github.com/cloo-solutions/docqa/internal/fetcher"
	"github.com/cloo-solutions/docqa/internal/repository"
	"github.com/cloo-solutions/docqa/internal/server"
	"github.com/cloo-solutions/docqa/internal/service"
	"github.com/cloo-solutions/docqa/internal/testutil"
	"github.com/cloo-solutions/docqa/internal/vectorindex"
	"github.com/jackc/pgx/v5/pgxpool"
)

const testToken = "e2e-token"

// keywordEmbedder places texts on fixed keyword axes so retrieval is deterministic.
type keywordEmbedder struct{}

var keywords = []string{"grace", "maternity", "cataract", "donor"}

func (keywordEmbedder) Dimensions() int { return len(keywords) }

func (keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, len(keywords))
		for k, kw := range keywords {
			if strings.Contains(strings.ToLower(t), kw) {
				v[k] = 1
			}
		}
		v[len(v)-1] += 0.01
		out[i] = v
	}
	return out, nil
}

// plainExtractor treats the fetched bytes as already extracted text.
type plainExtractor struct{}

func (plainExtractor) Extract(_ context.Context, raw []byte) (string, error) {
	return string(raw), nil
}

// echoGenerator answers with the first clause line of the prompt.
type echoGenerator struct {
	mu      sync.Mutex
	prompts []string
}

func (g *echoGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	lines := strings.Split(prompt, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "[Clause 1]") && i+1 < len(lines) {
			return lines[i+1], nil
		}
	}
	return "no clauses", nil
}

// Env holds the containers and servers of one e2e run.
type Env struct {
	T         *testing.T
	Ctx       context.Context
	Postgres  *testutil.PostgresContainer
	Pool      *pgxpool.Pool
	API       *httptest.Server
	Documents *httptest.Server
	Generator *echoGenerator
	Fetches   *atomic.Int32
	client    *http.Client
}

// SetupEnv starts postgres, wires the full pipeline and serves it over HTTP.
func SetupEnv(t *testing.T, documents map[string]string) *Env {
	t.Helper()
	ctx := context.Background()

	pc := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")

	fetches := &atomic.Int32{}
	docServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := documents[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fetches.Add(1)
		w.Header().Set("Content-Type", "application/pdf")
		io.WriteString(w, body)
	}))

	index := vectorindex.New(pool, keywordEmbedder{}, "llm-query-retrieval")
	gen := &echoGenerator{}
	chunks := repository.NewChunkRepository(pool)

	coordinator := service.NewCoordinator(service.CoordinatorDeps{
		Documents: repository.NewDocumentRepository(pool),
		Chunks:    chunks,
		Queries:   repository.NewQueryRepository(pool),
		Tx:        repository.NewTxRunner(pool),
		Locker:    repository.NewAdvisoryLocker(pool),
		Fetcher:   fetcher.New(fetcher.Config{Attempts: 1, Timeout: 5 * time.Second}),
		Extractor: plainExtractor{},
		Index:     index,
		Generator: gen,
	}, service.CoordinatorConfig{
		Chunking: service.ChunkConfig{MaxChars: 90, Overlap: 0},
		TopK:     2,
	})

	router := server.NewRouter(server.RouterConfig{
		BearerToken:     testToken,
		RunHandler:      handlers.NewRunHandler(coordinator),
		HealthHandler:   handlers.NewHealthHandler(pool, "e2e"),
		DocumentHandler: handlers.NewDocumentHandler(coordinator, time.UTC),
	})
	api := httptest.NewServer(router)

	env := &Env{
		T:         t,
		Ctx:       ctx,
		Postgres:  pc,
		Pool:      pool,
		API:       api,
		Documents: docServer,
		Generator: gen,
		Fetches:   fetches,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
	t.Cleanup(env.cleanup)
	return env
}

func (e *Env) cleanup() {
	e.API.Close()
	e.Documents.Close()
	e.Pool.Close()
	_ = e.Postgres.Terminate(e.Ctx)
}

// DocumentURL returns the served URL of a document path.
func (e *Env) DocumentURL(path string) string {
	return e.Documents.URL + path
}

// Do sends a request to the API and decodes a JSON response into out.
func (e *Env) Do(method, path, token string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(e.Ctx, method, e.API.URL+path, reader)
	if err != nil {
		return 0, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s: %w", string(data), err)
		}
	}
	return resp.StatusCode, nil
}

// DocumentID looks up the id assigned to an ingested URL.
func (e *Env) DocumentID(url string) string {
	e.T.Helper()
	var id string
	if err := e.Pool.QueryRow(e.Ctx, `SELECT id FROM documents WHERE url = $1`, url).Scan(&id); err != nil {
		e.T.Fatalf("document %s not found: %v", url, err)
	}
	return id
}
