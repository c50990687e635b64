package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/estate-intake/internal/core/domain"
	"github.com/kirillkom/estate-intake/internal/infrastructure/resilience"
)

func TestOracleInvokeReturnsSingleResponse(t *testing.T) {
	var capturedPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		capturedPrompt, _ = payload["prompt"].(string)
		_, _ = w.Write([]byte(`{"response":"  Purchase Agreements\n"}`))
	}))
	defer server.Close()

	resp, err := NewOracle(New(server.URL, "gen", "embed")).Invoke(context.Background(), "classify this")
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if resp.Kind != domain.OracleSingle || resp.Text() != "Purchase Agreements" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if capturedPrompt != "classify this" {
		t.Fatalf("unexpected prompt: %s", capturedPrompt)
	}
}

func TestGeneratorBuildsContextPrompt(t *testing.T) {
	var capturedPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		capturedPrompt, _ = payload["prompt"].(string)
		_, _ = w.Write([]byte(`{"response":"ok"}`))
	}))
	defer server.Close()

	gen := NewGenerator(New(server.URL, "gen", "embed"))
	_, err := gen.GenerateAnswer(context.Background(), "question?", []domain.RetrievedChunk{{Filename: "a.txt", Category: "settlement", Location: "file:///a.txt#chunk=0", Text: "chunk text", Score: 0.99}})
	if err != nil {
		t.Fatalf("GenerateAnswer() error = %v", err)
	}
	if !strings.Contains(capturedPrompt, "question?") || !strings.Contains(capturedPrompt, "chunk text") || !strings.Contains(capturedPrompt, "location=file:///a.txt#chunk=0") {
		t.Fatalf("unexpected prompt: %s", capturedPrompt)
	}
}

func TestEmbedIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed"))
	_, err := embedder.Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error for 502, got %v", err)
	}
}

func TestExecutorRetriesRetryableStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"response":"Income Verifications"}`))
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		BreakerEnabled:      false,
	})
	client := NewWithOptions(server.URL, "gen", "embed", Options{ResilienceExecutor: executor})

	resp, err := NewOracle(client).Invoke(context.Background(), "p")
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if resp.Text() != "Income Verifications" || calls.Load() != 2 {
		t.Fatalf("expected success on second attempt, got %q after %d calls", resp.Text(), calls.Load())
	}
}

func TestBadRequestIsNotTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad prompt", http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := NewOracle(New(server.URL, "gen", "embed")).Invoke(context.Background(), "p")
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected non-temporary error, got %v", err)
	}
}

func TestOracleUsesZeroTemperature(t *testing.T) {
	var req generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&req)
		_, _ = w.Write([]byte(`{"response":"{}"}`))
	}))
	defer server.Close()

	if _, err := NewOracle(New(server.URL, "gen", "embed")).Invoke(context.Background(), "p"); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if req.Model != "gen" || req.Stream || req.Options.Temperature != 0 {
		t.Fatalf("unexpected generate request %+v", req)
	}
}

func TestEmbedRejectsVectorCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2]]}`))
	}))
	defer server.Close()

	_, err := NewEmbedder(New(server.URL, "gen", "embed")).Embed(context.Background(), []string{"a", "b"})
	if err == nil || !strings.Contains(err.Error(), "1 vectors for 2 inputs") {
		t.Fatalf("expected count mismatch error, got %v", err)
	}
}

func TestAnswerPromptTruncatesLongChunks(t *testing.T) {
	long := strings.Repeat("x", maxChunkRunes+100)
	prompt := buildAnswerPrompt("q", []domain.RetrievedChunk{{Filename: "a.pdf", Text: long}})
	if strings.Contains(prompt, long) {
		t.Fatalf("expected chunk text to be truncated")
	}
	if !strings.Contains(prompt, "[1] a.pdf") {
		t.Fatalf("expected numbered source, got %s", prompt)
	}
}
