package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/wsayer1/empathic-weave/internal/logger"
)

func newTestClient(t *testing.T, serverURL string) Client {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_BASE_URL", serverURL)
	t.Setenv("OPENAI_EMBED_MODEL", "text-embedding-3-small")
	t.Setenv("OPENAI_MAX_RETRIES", "2")

	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)

	c, err := NewClient(log)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func embeddingsPayload(indexToVec map[int][]float64) string {
	type datum struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	}
	var data []datum
	for idx, vec := range indexToVec {
		data = append(data, datum{Embedding: vec, Index: idx})
	}
	raw, _ := json.Marshal(map[string]any{"data": data})
	return string(raw)
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	defer log.Sync()

	if _, err := NewClient(log); err == nil {
		t.Fatalf("expected error without OPENAI_API_KEY")
	}
}

func TestEmbedSendsRequestAndRestoresOrder(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody embeddingsRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		// Indices deliberately out of order.
		fmt.Fprint(w, embeddingsPayload(map[int][]float64{
			1: {4, 5, 6},
			0: {1, 2, 3},
		}))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	vecs, err := c.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if gotPath != "/v1/embeddings" {
		t.Fatalf("path=%q, want /v1/embeddings", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("auth header=%q", gotAuth)
	}
	if gotBody.Model != "text-embedding-3-small" {
		t.Fatalf("model=%q", gotBody.Model)
	}
	if len(gotBody.Input) != 2 || gotBody.Input[0] != "first" {
		t.Fatalf("request inputs=%v", gotBody.Input)
	}
	if len(vecs) != 2 || vecs[0][0] != 1 || vecs[1][0] != 4 {
		t.Fatalf("vectors not restored to input order: %v", vecs)
	}
}

func TestEmbedBlankInputsArePadded(t *testing.T) {
	var gotBody embeddingsRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, embeddingsPayload(map[int][]float64{0: {1}}))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	if _, err := c.Embed(context.Background(), []string{"   "}); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	// The API rejects empty strings, so blanks go out as a single space.
	if len(gotBody.Input) != 1 || gotBody.Input[0] != " " {
		t.Fatalf("request inputs=%q, want a single space", gotBody.Input)
	}
}

func TestEmbedRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, embeddingsPayload(map[int][]float64{0: {1, 2}}))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	vecs, err := c.Embed(context.Background(), []string{"hello"})
	if err != nil {
		t.Fatalf("Embed after retry: %v", err)
	}
	if len(vecs) != 1 {
		t.Fatalf("vectors=%d, want 1", len(vecs))
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("server calls=%d, want 2 (one failure, one retry)", got)
	}
}

func TestEmbedDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	if _, err := c.Embed(context.Background(), []string{"hello"}); err == nil {
		t.Fatalf("expected error for a 400 response")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("server calls=%d, want 1 (client errors are terminal)", got)
	}
}

func TestEmbedFailsOnMissingIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Two inputs, one vector back.
		fmt.Fprint(w, embeddingsPayload(map[int][]float64{0: {1, 2}}))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	if _, err := c.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatalf("expected error when the response is missing a vector")
	}
}

func TestEmbedEmptyInputShortCircuits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected for empty input")
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	vecs, err := c.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 0 {
		t.Fatalf("vectors=%d, want 0", len(vecs))
	}
}
