// Package suggest is the semantic search service: it embeds profiles into a
// local vector index and ranks them against free-text queries.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

// Input prefixes expected by e5-family embedding models.
const (
	PassagePrefix = "passage: "
	QueryPrefix   = "query: "
)

// ErrEmptyEmbedding is returned when the backend answers without a vector.
var ErrEmptyEmbedding = errors.New("failed to generate embedding")

// OllamaEmbedder embeds text with an Ollama model.
type OllamaEmbedder struct {
	api   *api.Client
	model string
}

// NewOllamaEmbedder creates an embedder for the server at baseURL.
func NewOllamaEmbedder(baseURL, model string, httpClient *http.Client) (*OllamaEmbedder, error) {
	u, err := url.ParseRequestURI(baseURL)
	if err != nil {
		return nil, fmt.Errorf("suggest.new_embedder: invalid base url: %w", err)
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("suggest.new_embedder: model is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OllamaEmbedder{api: api.NewClient(u, httpClient), model: model}, nil
}

// EmbedPassage embeds profile text for storage.
func (e *OllamaEmbedder) EmbedPassage(ctx context.Context, text string) ([]float32, error) {
	return e.embed(ctx, PassagePrefix+text)
}

// EmbedQuery embeds a search query.
func (e *OllamaEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.embed(ctx, QueryPrefix+text)
}

func (e *OllamaEmbedder) embed(ctx context.Context, input string) ([]float32, error) {
	truncate := true
	resp, err := e.api.Embed(ctx, &api.EmbedRequest{
		Model:    e.model,
		Input:    input,
		Truncate: &truncate,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return resp.Embeddings[0], nil
}
