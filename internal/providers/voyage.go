package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// voyageBaseURL is Voyage AI's embeddings endpoint.
const voyageBaseURL = "https://api.voyageai.com/v1/embeddings"

// VoyageAdapter is an embeddings-only provider; Complete and
// CompleteStream are unsupported. Grounded on the same base retry
// plumbing as the chat adapters, talking a small bespoke JSON request
// since no example repo carries a Voyage SDK.
type VoyageAdapter struct {
	base
	apiKey     string
	httpClient *http.Client
}

// NewVoyage builds an embeddings-only adapter for Voyage AI.
func NewVoyage(apiKey string, log *slog.Logger) *VoyageAdapter {
	return &VoyageAdapter{
		base:       newBase("voyage", log),
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

func (a *VoyageAdapter) Name() string { return a.name }

func (a *VoyageAdapter) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return nil, &Error{Provider: a.name, Kind: KindInvalidRequest, Message: "voyage adapter supports embeddings only"}
}

func (a *VoyageAdapter) CompleteStream(ctx context.Context, req CompletionRequest) (<-chan CompletionChunk, error) {
	return nil, ErrStreamingUnsupported
}

type voyageRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type voyageResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (a *VoyageAdapter) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	var out [][]float32
	err := a.retry(ctx, isRetryableVoyageErr, func(ctx context.Context) error {
		body, err := json.Marshal(voyageRequest{Input: inputs, Model: model})
		if err != nil {
			return err
		}
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, voyageBaseURL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", a.apiKey))

		resp, err := a.httpClient.Do(httpReq)
		if err != nil {
			return ClassifyNetwork(a.name, err)
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			return ClassifyHTTP(a.name, resp.StatusCode, string(respBody))
		}

		var wire voyageResponse
		if err := json.Unmarshal(respBody, &wire); err != nil {
			return fmt.Errorf("providers: voyage: decode response: %w", err)
		}
		out = make([][]float32, len(wire.Data))
		for _, d := range wire.Data {
			out[d.Index] = d.Embedding
		}
		return nil
	})
	return out, err
}

func isRetryableVoyageErr(err error) bool {
	if perr, ok := err.(*Error); ok {
		return perr.IsRetryable()
	}
	return false
}
