package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/estate-intake/internal/core/domain"
)

// Client talks to the Qdrant REST API. One collection holds every indexed
// document chunk; payload keys below are the contract with Search.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client

	ensureMu   sync.Mutex
	ensuredDim int
}

const (
	payloadStorageKey = "storage_key"
	payloadLocation   = "location"
	payloadFilename   = "filename"
	payloadCategory   = "category"
	payloadChunkIndex = "chunk_index"
	payloadText       = "text"
)

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type matchCondition struct {
	Key   string `json:"key"`
	Match struct {
		Value string `json:"value"`
	} `json:"match"`
}

type filter struct {
	Must []matchCondition `json:"must"`
}

func matchFilter(key, value string) *filter {
	c := matchCondition{Key: key}
	c.Match.Value = value
	return &filter{Must: []matchCondition{c}}
}

type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
	Filter      *filter   `json:"filter,omitempty"`
}

type searchResponse struct {
	Result []struct {
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// IndexChunks replaces every point of the landed object with the given chunks.
func (c *Client) IndexChunks(ctx context.Context, event domain.LandedEvent, chunks []string, vectors [][]float32) error {
	if len(chunks) == 0 || len(vectors) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("qdrant index: %d chunks for %d vectors", len(chunks), len(vectors))
	}
	if err := c.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	// A shorter re-extraction must not leave stale tail chunks behind.
	deleteBody := map[string]any{"filter": matchFilter(payloadStorageKey, event.StorageKey)}
	if err := c.do(ctx, http.MethodPost, "/points/delete?wait=true", deleteBody, nil); err != nil {
		return fmt.Errorf("qdrant delete stale points: %w", err)
	}

	points := make([]point, len(chunks))
	for i := range chunks {
		points[i] = point{
			ID:     PointID(event.StorageKey, i),
			Vector: vectors[i],
			Payload: map[string]any{
				payloadStorageKey: event.StorageKey,
				payloadLocation:   ChunkLocation(event.StoragePath, i),
				payloadFilename:   event.Filename,
				payloadCategory:   string(event.Category),
				payloadChunkIndex: i,
				payloadText:       chunks[i],
			},
		}
	}
	if err := c.do(ctx, http.MethodPut, "/points?wait=true", map[string]any{"points": points}, nil); err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

func (c *Client) Search(ctx context.Context, queryVector []float32, limit int, f domain.SearchFilter) ([]domain.RetrievedChunk, error) {
	req := searchRequest{Vector: queryVector, Limit: limit, WithPayload: true}
	if f.Category != "" {
		req.Filter = matchFilter(payloadCategory, f.Category)
	}

	var resp searchResponse
	if err := c.do(ctx, http.MethodPost, "/points/search", req, &resp); err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	out := make([]domain.RetrievedChunk, 0, len(resp.Result))
	for _, r := range resp.Result {
		out = append(out, domain.RetrievedChunk{
			StorageKey: stringPayload(r.Payload, payloadStorageKey),
			Location:   stringPayload(r.Payload, payloadLocation),
			Filename:   stringPayload(r.Payload, payloadFilename),
			Category:   stringPayload(r.Payload, payloadCategory),
			ChunkIndex: intPayload(r.Payload, payloadChunkIndex),
			Text:       stringPayload(r.Payload, payloadText),
			Score:      r.Score,
		})
	}
	return out, nil
}

// ensureCollection creates the collection and its filter indexes once per
// vector dimension seen by this process.
func (c *Client) ensureCollection(ctx context.Context, dim int) error {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	if c.ensuredDim == dim {
		return nil
	}

	create := map[string]any{"vectors": map[string]any{"size": dim, "distance": "Cosine"}}
	err := c.do(ctx, http.MethodPut, "", create, nil)
	var statusErr *statusError
	if err != nil && !(errors.As(err, &statusErr) && statusErr.code == http.StatusConflict) {
		return fmt.Errorf("qdrant ensure collection: %w", err)
	}

	for _, field := range []string{payloadCategory, payloadStorageKey} {
		index := map[string]any{"field_name": field, "field_schema": "keyword"}
		if err := c.do(ctx, http.MethodPut, "/index?wait=true", index, nil); err != nil {
			return fmt.Errorf("qdrant payload index %s: %w", field, err)
		}
	}
	c.ensuredDim = dim
	return nil
}

type statusError struct {
	code   int
	status string
	body   string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return "status " + e.status
	}
	return "status " + e.status + ": " + e.body
}

// do sends a JSON request to a collection-relative path and decodes the
// response into out when it is non-nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	url := c.baseURL + "/collections/" + c.collection + path
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &statusError{code: resp.StatusCode, status: resp.Status, body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func stringPayload(payload map[string]any, key string) string {
	switch v := payload[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func intPayload(payload map[string]any, key string) int {
	if v, ok := payload[key].(float64); ok {
		return int(v)
	}
	return 0
}

// PointID is stable per object and chunk so re-indexing overwrites points.
func PointID(storageKey string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(storageKey+"#chunk="+strconv.Itoa(index))).String()
}

// ChunkLocation is the citation location of one chunk of a stored object.
func ChunkLocation(storagePath string, index int) string {
	return storagePath + "#chunk=" + strconv.Itoa(index)
}
