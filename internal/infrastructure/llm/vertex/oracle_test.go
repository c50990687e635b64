package vertex

import (
	"errors"
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func streamOf(responses ...*genai.GenerateContentResponse) func() (*genai.GenerateContentResponse, error) {
	i := 0
	return func() (*genai.GenerateContentResponse, error) {
		if i >= len(responses) {
			return nil, iterator.Done
		}
		i++
		return responses[i-1], nil
	}
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{}
	for _, p := range parts {
		content.Parts = append(content.Parts, genai.Text(p))
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func TestCollectStreamKeepsOrder(t *testing.T) {
	chunks, err := collectStream(streamOf(
		textResponse(`{"buyer_name":`),
		&genai.GenerateContentResponse{},
		textResponse(` "Alice"`, `}`),
	))
	if err != nil {
		t.Fatalf("collectStream() error = %v", err)
	}
	if len(chunks) != 3 || chunks[0] != `{"buyer_name":` || chunks[2] != `}` {
		t.Fatalf("unexpected chunks %q", chunks)
	}
}

func TestCollectStreamPropagatesError(t *testing.T) {
	boom := errors.New("stream broken")
	_, err := collectStream(func() (*genai.GenerateContentResponse, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected stream error, got %v", err)
	}
}

func TestClassifyVertexError(t *testing.T) {
	if !classifyVertexError(&googleapi.Error{Code: 429}).Retryable {
		t.Fatalf("expected 429 to be retryable")
	}
	if classifyVertexError(&googleapi.Error{Code: 400}).Retryable {
		t.Fatalf("expected 400 to be final")
	}
	if !classifyVertexError(status.Error(codes.Unavailable, "try later")).Retryable {
		t.Fatalf("expected unavailable to be retryable")
	}
	if class := classifyVertexError(status.Error(codes.InvalidArgument, "bad")); class.Retryable || class.RecordFailure {
		t.Fatalf("expected invalid argument to be final, got %+v", class)
	}
}
