package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"recipepredictor/internal/recipe"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 4 << 20

// Client is a client for the recipe prediction service.
type Client struct {
	httpClient *http.Client
	apiURL     string
	logger     *zap.Logger
	timeout    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the transport timeout for each prediction request. It is
// applied to a copy of the HTTP client, never to the client passed in.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new client posting to apiURL.
func NewClient(apiURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		apiURL:     apiURL,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// Request represents the request body for the prediction service.
type Request struct {
	Ingredients string `json:"ingredients"`
}

// Predict sends the ingredient query to the service and decodes the result.
// A transport failure, a non-2xx status or an undecodable body is an error.
func (c *Client) Predict(ctx context.Context, ingredients string) (recipe.PredictionResult, error) {
	reqBytes, err := json.Marshal(Request{Ingredients: ingredients})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("prediction service responded",
		zap.String("url", c.apiURL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	result, err := recipe.DecodePrediction(body)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// StatusError is returned when the service answers with a non-2xx status.
// The response body is never parsed.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("received non-success status code: %d", e.StatusCode)
}
