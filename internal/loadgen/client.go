package loadgen

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// client talks to the review API.
type client struct {
	http *resty.Client
}

type eventBody struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	Status    string `json:"status"`
	Questions []struct {
		ID       string `json:"id"`
		Text     string `json:"text"`
		Required bool   `json:"required"`
	} `json:"questions"`
}

type personBody struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type submitBody struct {
	PersonID string            `json:"person_id"`
	Answers  map[string]string `json:"answers"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{http: resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)}
}

// health checks that the server answers /healthz.
func (c *client) health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode())
	}
	return nil
}

func (c *client) event(ctx context.Context, slug string) (eventBody, error) {
	var out eventBody
	var e apiError
	resp, err := c.http.R().SetContext(ctx).
		SetPathParam("slug", slug).
		SetResult(&out).
		SetError(&e).
		Get("/api/events/{slug}")
	if err != nil {
		return eventBody{}, err
	}
	if resp.IsError() {
		return eventBody{}, fmt.Errorf("event %q: %d %s", slug, resp.StatusCode(), e.Message)
	}
	return out, nil
}

// register finds or creates the applicant's profile and fills it in.
func (c *client) register(ctx context.Context, a Applicant) (string, error) {
	var p personBody
	var e apiError
	resp, err := c.http.R().SetContext(ctx).
		SetBody(map[string]string{"email": a.Email}).
		SetResult(&p).
		SetError(&e).
		Post("/api/profiles")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("profile %s: %d %s", a.Email, resp.StatusCode(), e.Message)
	}

	resp, err = c.http.R().SetContext(ctx).
		SetPathParam("id", p.ID).
		SetBody(a.Profile).
		SetError(&e).
		Patch("/api/profiles/{id}")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("profile %s: %d %s", p.ID, resp.StatusCode(), e.Message)
	}
	return p.ID, nil
}

// submit posts an application and classifies the answer.
func (c *client) submit(ctx context.Context, slug, personID string, answers map[string]string) (string, error) {
	var e apiError
	resp, err := c.http.R().SetContext(ctx).
		SetPathParam("slug", slug).
		SetBody(submitBody{PersonID: personID, Answers: answers}).
		SetError(&e).
		Post("/api/events/{slug}/applications")
	if err != nil {
		return resultFailed, err
	}
	switch resp.StatusCode() {
	case http.StatusCreated:
		return resultAccepted, nil
	case http.StatusConflict:
		return resultDuplicate, nil
	default:
		return resultFailed, fmt.Errorf("submit %s: %d %s", personID, resp.StatusCode(), e.Message)
	}
}
