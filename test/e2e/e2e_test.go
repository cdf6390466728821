//go:build e2e

package e2e

import (
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const policy = `National Parivar Mediclaim Plus Policy.
A grace period of thirty days is provided for premium payment after the due date.

Maternity expenses are covered after twenty four months of continuous coverage.

Cataract surgery has a waiting period of two years from policy inception.`

type runResponse struct {
	Answers            []string `json:"answers"`
	RetrievalAvailable bool     `json:"retrieval_available"`
	Error              string   `json:"error"`
}

func TestE2E_RunAnswersInOrder(t *testing.T) {
	env := SetupEnv(t, map[string]string{"/policy.pdf": policy})
	docURL := env.DocumentURL("/policy.pdf")

	var resp runResponse
	status, err := env.Do(http.MethodPost, "/api/v1/hackrx/run", testToken, map[string]any{
		"documents": docURL,
		"questions": []string{
			"What is the grace period for premium payment?",
			"What is the waiting period for cataract surgery?",
		},
	}, &resp)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status, resp.Error)

	require.Len(t, resp.Answers, 2)
	assert.True(t, resp.RetrievalAvailable)
	assert.Contains(t, resp.Answers[0], "grace period")
	assert.Contains(t, resp.Answers[1], "Cataract")

	t.Run("second request reuses stored chunks", func(t *testing.T) {
		var again runResponse
		status, err := env.Do(http.MethodPost, "/api/v1/hackrx/run", testToken, map[string]any{
			"documents": docURL,
			"questions": []string{"Are maternity expenses covered?"},
		}, &again)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, status)
		assert.Contains(t, again.Answers[0], "Maternity")
		assert.EqualValues(t, 1, env.Fetches.Load())
	})

	t.Run("history lists both requests newest first", func(t *testing.T) {
		id := env.DocumentID(docURL)

		var history struct {
			Data struct {
				Items []struct {
					Question string `json:"question"`
					Answers  []struct {
						Text    string `json:"text"`
						Clauses []struct {
							ChunkID string `json:"chunk_id"`
						} `json:"clauses"`
					} `json:"answers"`
				} `json:"items"`
				HasMore bool `json:"has_more"`
			} `json:"data"`
		}
		status, err := env.Do(http.MethodGet, "/api/v1/documents/"+id+"/history", testToken, nil, &history)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, status)

		require.Len(t, history.Data.Items, 3)
		assert.Equal(t, "Are maternity expenses covered?", history.Data.Items[0].Question)
		assert.False(t, history.Data.HasMore)
		require.NotEmpty(t, history.Data.Items[0].Answers)
		assert.NotEmpty(t, history.Data.Items[0].Answers[0].Clauses)
	})
}

func TestE2E_ConcurrentRequestsIngestOnce(t *testing.T) {
	env := SetupEnv(t, map[string]string{"/policy.pdf": policy})
	docURL := env.DocumentURL("/policy.pdf")

	var wg sync.WaitGroup
	statuses := make([]int, 4)
	for i := range statuses {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var resp runResponse
			statuses[i], _ = env.Do(http.MethodPost, "/api/v1/hackrx/run", testToken, map[string]any{
				"documents": docURL,
				"questions": []string{"What is the grace period?"},
			}, &resp)
		}(i)
	}
	wg.Wait()

	for _, s := range statuses {
		assert.Equal(t, http.StatusOK, s)
	}
	assert.EqualValues(t, 1, env.Fetches.Load())

	var count int
	require.NoError(t, env.Pool.QueryRow(env.Ctx,
		`SELECT count(*) FROM document_chunks c JOIN documents d ON d.id = c.document_id WHERE d.url = $1`,
		docURL).Scan(&count))
	assert.Equal(t, 4, count)
}

func TestE2E_Errors(t *testing.T) {
	env := SetupEnv(t, map[string]string{"/policy.pdf": policy})

	t.Run("wrong token", func(t *testing.T) {
		status, err := env.Do(http.MethodPost, "/api/v1/hackrx/run", "wrong", map[string]any{
			"documents": env.DocumentURL("/policy.pdf"),
			"questions": []string{"q"},
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Zero(t, env.Fetches.Load())
	})

	t.Run("missing document", func(t *testing.T) {
		var resp runResponse
		status, err := env.Do(http.MethodPost, "/api/v1/hackrx/run", testToken, map[string]any{
			"documents": env.DocumentURL("/missing.pdf"),
			"questions": []string{"q"},
		}, &resp)
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.True(t, strings.Contains(resp.Error, "404"), resp.Error)
	})

	t.Run("empty questions", func(t *testing.T) {
		status, err := env.Do(http.MethodPost, "/api/v1/hackrx/run", testToken, map[string]any{
			"documents": env.DocumentURL("/policy.pdf"),
			"questions": []string{},
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("health", func(t *testing.T) {
		var health struct {
			Status   string `json:"status"`
			Database string `json:"database"`
		}
		status, err := env.Do(http.MethodGet, "/health", "", nil, &health)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "healthy", health.Status)
		assert.Equal(t, "connected", health.Database)
	})
}
