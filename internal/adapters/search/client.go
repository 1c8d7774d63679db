// Package search calls the semantic search service that ranks people against
// free-text criteria.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/qri-io/jsonschema"
	"golang.org/x/time/rate"

	"github.com/okian/admit/internal/domain/scoring"
	"github.com/okian/admit/pkg/logger"
)

// SuggestPath is the search endpoint relative to the service base URL.
const SuggestPath = "/api/suggest-attendees"

const responseSchema = `{
	"type": "object",
	"required": ["suggestions"],
	"properties": {
		"suggestions": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["userId", "score"],
				"properties": {
					"userId": {"type": "string"},
					"score": {"type": "number"},
					"metadata": {"type": "object"}
				}
			}
		}
	}
}`

type suggestRequest struct {
	Query string `json:"query"`
}

type suggestResponse struct {
	Suggestions []scoring.Suggestion `json:"suggestions"`
}

// Client implements scoring.Searcher over HTTP.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	schema  *jsonschema.Schema
	logger  logger.Logger

	timeout time.Duration
	retries int
}

var _ scoring.Searcher = (*Client)(nil)

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	const op = "search.new_client"
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("%s: base url is required", op)
	}
	schema := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(responseSchema), schema); err != nil {
		return nil, fmt.Errorf("%s: compile response schema: %w", op, err)
	}

	c := &Client{
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		schema:  schema,
		logger:  logger.Nop(),
		timeout: 15 * time.Second,
		retries: 1,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.http = resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(c.timeout).
		SetRetryCount(c.retries).
		SetRetryWaitTime(200 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && r != nil && r.StatusCode() >= http.StatusInternalServerError
		})
	return c, nil
}

// Search posts query and returns the validated suggestions. Blank queries
// fail with scoring.ErrBlankQuery without a call.
func (c *Client) Search(ctx context.Context, query string) ([]scoring.Suggestion, error) {
	const op = "search.search"
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, scoring.ErrBlankQuery
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, scoring.ErrSearchFailed, err)
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(suggestRequest{Query: query}).
		Post(SuggestPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, scoring.ErrSearchFailed, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%s: %w: status %d", op, scoring.ErrSearchFailed, resp.StatusCode())
	}

	body := resp.Body()
	keyErrs, err := c.schema.ValidateBytes(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, scoring.ErrInvalidResponse, err)
	}
	if len(keyErrs) > 0 {
		return nil, fmt.Errorf("%s: %w: %s", op, scoring.ErrInvalidResponse, keyErrs[0].Error())
	}

	var out suggestResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, scoring.ErrInvalidResponse, err)
	}
	c.logger.Debug(ctx, "search answered",
		logger.Int("suggestions", len(out.Suggestions)),
		logger.Duration("took", time.Since(start)))
	return out.Suggestions, nil
}
