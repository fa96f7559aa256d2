package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"palmpay/pkg/apperror"

	"github.com/rs/zerolog"
)

const maxExtractorResponse = 1 << 20

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type extractRequest struct {
	Artifact string `json:"artifact"` // base64
}

type extractResponse struct {
	Embedding []float64 `json:"embedding"`
}

// HTTPEmbeddingExtractor implements ports.EmbeddingExtractor by calling an
// external model service. An empty URL disables extraction.
type HTTPEmbeddingExtractor struct {
	url        string
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewHTTPEmbeddingExtractor creates an extractor posting to url.
func NewHTTPEmbeddingExtractor(url string, httpClient HTTPClient, log zerolog.Logger) *HTTPEmbeddingExtractor {
	return &HTTPEmbeddingExtractor{url: url, httpClient: httpClient, log: log}
}

// Extract posts the artifact and returns the vector from the response.
func (e *HTTPEmbeddingExtractor) Extract(ctx context.Context, artifact []byte) ([]float64, error) {
	if e.url == "" {
		return nil, apperror.ErrExtraction(errors.New("no extractor configured"))
	}

	body, err := json.Marshal(extractRequest{Artifact: base64.StdEncoding.EncodeToString(artifact)})
	if err != nil {
		return nil, apperror.ErrExtraction(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, apperror.ErrExtraction(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		e.log.Warn().Err(err).Msg("extractor: request failed")
		return nil, apperror.ErrExtraction(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e.log.Warn().Int("status", resp.StatusCode).Msg("extractor: non-2xx response")
		return nil, apperror.ErrExtraction(fmt.Errorf("extractor returned status %d", resp.StatusCode))
	}

	var out extractResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxExtractorResponse)).Decode(&out); err != nil {
		return nil, apperror.ErrExtraction(fmt.Errorf("decode response: %w", err))
	}
	if len(out.Embedding) == 0 {
		return nil, apperror.ErrExtraction(errors.New("extractor returned an empty embedding"))
	}
	return out.Embedding, nil
}
