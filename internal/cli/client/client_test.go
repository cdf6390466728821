package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsk_SendsBearerAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, runPath, r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))

		var req runRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://example.com/policy.pdf", req.Documents)
		assert.Equal(t, []string{"q1", "q2"}, req.Questions)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"answers":["a1","a2"],"retrieval_available":true}`))
	}))
	defer server.Close()

	client := NewAPIClientWithConfig("secret-token", server.URL+"/", time.Second)
	resp, err := ask(context.Background(), client, "https://example.com/policy.pdf", []string{"q1", "q2"})

	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, resp.Answers)
	assert.True(t, resp.RetrievalAvailable)
}

func TestAsk_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid bearer token"}`))
	}))
	defer server.Close()

	client := NewAPIClientWithConfig("wrong", server.URL, time.Second)
	_, err := ask(context.Background(), client, "https://example.com/policy.pdf", []string{"q"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "invalid bearer token", apiErr.Message)
}

func TestAPIClient_NonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewAPIClientWithConfig("", server.URL, time.Second)
	err := client.Get(context.Background(), "/health", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "bad gateway", apiErr.Message)
}

func TestPrintAnswers(t *testing.T) {
	var buf bytes.Buffer
	printAnswers(&buf, []string{"What?"}, &runResponse{Answers: []string{"That."}, RetrievalAvailable: false})

	out := buf.String()
	assert.Contains(t, out, "Q1: What?\nA1: That.")
	assert.Contains(t, out, "document search was unavailable")
}

func TestNewAPIClientWithCmd_Default(t *testing.T) {
	t.Setenv(envAPIToken, "")
	t.Setenv(envAPIURL, "")

	client, err := NewAPIClientWithCmd(&cobra.Command{})
	require.NoError(t, err)
	assert.Equal(t, defaultAPIURL, client.baseURL)
	assert.Equal(t, defaultTimeout, client.httpClient.Timeout)
}

func TestHistoryPath(t *testing.T) {
	assert.Equal(t, "/api/v1/documents/doc-1/history", historyPath("doc-1", "", 0))
	assert.Equal(t, "/api/v1/documents/doc-1/history?cursor=abc&limit=5", historyPath("doc-1", "abc", 5))
}

func TestNewAPIClientFromFlags_Cascade(t *testing.T) {
	t.Setenv(envAPIToken, "env-token")
	t.Setenv(envAPIURL, "http://env:9000")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("token", "", "")
	flags.String("api-url", "", "")
	flags.Duration("timeout", 0, "")

	client, err := NewAPIClientFromFlags(flags)
	require.NoError(t, err)
	assert.Equal(t, "env-token", client.token)
	assert.Equal(t, "http://env:9000", client.baseURL)

	require.NoError(t, flags.Set("token", "flag-token"))
	require.NoError(t, flags.Set("timeout", "5s"))
	client, err = NewAPIClientFromFlags(flags)
	require.NoError(t, err)
	assert.Equal(t, "flag-token", client.token)
	assert.Equal(t, 5*time.Second, client.httpClient.Timeout)
}
