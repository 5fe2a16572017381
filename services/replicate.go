package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"photopro/models"
)

// photomakerVersion is the hosted model every generation request runs against.
const photomakerVersion = "tencentarc/photomaker:ddfc2b08d209f9fa8c1eca692712918bd449f695dabb4a958da31802a9570fe4"

// maxPollTime bounds how long a single prediction may stay non-terminal.
const maxPollTime = 3 * time.Minute

// Generator transforms a source image into a styled result and returns the
// result URL. Implementations must return models.ErrUpstreamFailure when the
// model produces no output.
type Generator interface {
	Generate(ctx context.Context, originalURL, style string) (string, error)
}

// Fixed per-style model parameters.
type styleParams struct {
	StrengthRatio  int
	InferenceSteps int
}

var stylePresets = map[string]styleParams{
	"corporate": {StrengthRatio: 25, InferenceSteps: 50},
	"creative":  {StrengthRatio: 30, InferenceSteps: 60},
	"formal":    {StrengthRatio: 20, InferenceSteps: 50},
	"casual":    {StrengthRatio: 35, InferenceSteps: 55},
}

func IsValidStyle(style string) bool {
	_, ok := stylePresets[style]
	return ok
}

// ReplicateClient calls the Replicate predictions API and polls until the
// prediction reaches a terminal state. No automatic retry: a failed or empty
// prediction is terminal for the request.
type ReplicateClient struct {
	BaseURL      string
	APIToken     string
	HTTPClient   *http.Client
	PollInterval time.Duration
}

func NewReplicateClient() *ReplicateClient {
	return &ReplicateClient{
		BaseURL:      "https://api.replicate.com/v1",
		APIToken:     os.Getenv("REPLICATE_API_TOKEN"),
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
		PollInterval: time.Second,
	}
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
}

func (c *ReplicateClient) Generate(ctx context.Context, originalURL, style string) (string, error) {
	params, ok := stylePresets[style]
	if !ok {
		return "", models.ErrInvalidStyle
	}

	body, err := json.Marshal(map[string]interface{}{
		"version": photomakerVersion,
		"input": map[string]interface{}{
			"input_image":          originalURL,
			"style":                style,
			"num_outputs":          1,
			"style_strength_ratio": params.StrengthRatio,
			"num_inference_steps":  params.InferenceSteps,
		},
	})
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, maxPollTime)
	defer cancel()

	pred, err := c.do(ctx, http.MethodPost, c.BaseURL+"/predictions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	for pred.Status != "succeeded" && pred.Status != "failed" && pred.Status != "canceled" {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.PollInterval):
		}

		pred, err = c.do(ctx, http.MethodGet, c.BaseURL+"/predictions/"+pred.ID, nil)
		if err != nil {
			return "", err
		}
	}

	if pred.Status != "succeeded" {
		return "", fmt.Errorf("%w: prediction %s: %s", models.ErrUpstreamFailure, pred.Status, pred.Error)
	}

	// Output is usually a list of URLs; a bare string shows up on some models.
	var urls []string
	if err := json.Unmarshal(pred.Output, &urls); err != nil {
		var single string
		if err := json.Unmarshal(pred.Output, &single); err == nil && single != "" {
			return single, nil
		}
		return "", models.ErrUpstreamFailure
	}
	if len(urls) == 0 || urls[0] == "" {
		return "", models.ErrUpstreamFailure
	}
	return urls[0], nil
}

func (c *ReplicateClient) do(ctx context.Context, method, url string, body *bytes.Reader) (*prediction, error) {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, url, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, url, nil)
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+c.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: replicate status %d", models.ErrUpstreamFailure, resp.StatusCode)
	}

	var pred prediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", models.ErrUpstreamFailure, err)
	}
	return &pred, nil
}

// DefaultGenerator is the generator used by the photo workflow. Tests swap it
// for a stub.
var DefaultGenerator Generator = NewReplicateClient()
