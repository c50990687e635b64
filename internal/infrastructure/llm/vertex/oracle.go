package vertex

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/kirillkom/estate-intake/internal/core/domain"
	"github.com/kirillkom/estate-intake/internal/infrastructure/resilience"
)

// Oracle streams Gemini answers and returns them as ordered chunks.
type Oracle struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	executor *resilience.Executor
}

func NewOracle(ctx context.Context, projectID, region, modelName string, executor *resilience.Executor) (*Oracle, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("vertex oracle: project and region are required")
	}
	client, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.0),
	}
	return &Oracle{client: client, model: model, executor: executor}, nil
}

func (o *Oracle) Invoke(ctx context.Context, prompt string) (domain.OracleResponse, error) {
	chunks, err := resilience.ExecuteValue(ctx, o.executor, "vertex.generate", func(callCtx context.Context) ([]string, error) {
		return collectStream(o.model.GenerateContentStream(callCtx, genai.Text(prompt)).Next)
	}, classifyVertexError)
	if err != nil {
		if classifyVertexError(err).Retryable {
			return domain.OracleResponse{}, domain.WrapError(domain.ErrTemporary, "vertex generate", err)
		}
		return domain.OracleResponse{}, fmt.Errorf("vertex generate: %w", err)
	}
	return domain.ChunkedResponse(chunks), nil
}

func (o *Oracle) Close() error {
	return o.client.Close()
}

// collectStream drains a response stream, keeping the text parts of the
// first candidate in arrival order.
func collectStream(next func() (*genai.GenerateContentResponse, error)) ([]string, error) {
	var chunks []string
	for {
		resp, err := next()
		if errors.Is(err, iterator.Done) {
			return chunks, nil
		}
		if err != nil {
			return nil, err
		}
		if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				chunks = append(chunks, string(txt))
			}
		}
	}
}

func classifyVertexError(err error) resilience.ErrorClassification {
	if class, ok := resilience.ClassifyCommon(err); ok {
		return class
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return resilience.ClassifyHTTPStatus(apiErr.Code)
	}
	if class, ok := resilience.ClassifyGRPC(err); ok {
		return class
	}
	return resilience.Permanent
}
