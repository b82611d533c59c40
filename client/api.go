package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"frauddetect/ml"
)

const (
	DefaultAPIURL  = "http://127.0.0.1:8000/predict"
	DefaultTimeout = 10 * time.Second

	maxErrorBody = 4 << 10
)

// StatusError is a non-2xx answer from the prediction API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned %d: %s", e.Code, e.Body)
}

// RequestError covers transport failures, timeouts included.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("Request failed: %v", e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// APIClient posts transactions to the prediction service. It never retries.
type APIClient struct {
	url        string
	timeout    time.Duration
	httpClient *http.Client
}

type Option func(*APIClient)

// WithTimeout caps the whole request, connect to last byte.
func WithTimeout(d time.Duration) Option {
	return func(c *APIClient) { c.timeout = d }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *APIClient) { c.httpClient = httpClient }
}

func NewAPIClient(apiURL string, opts ...Option) *APIClient {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	c := &APIClient{url: apiURL, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: c.timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   c.timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        4,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		}
	}
	return c
}

func (c *APIClient) URL() string { return c.url }

// Predict sends tx and decodes {probability, label}.
func (c *APIClient) Predict(ctx context.Context, tx ml.Transaction) (ml.Prediction, error) {
	payload, err := json.Marshal(tx)
	if err != nil {
		return ml.Prediction{}, fmt.Errorf("encode transaction: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return ml.Prediction{}, &RequestError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return ml.Prediction{}, err
	}

	var result struct {
		Probability *float64 `json:"probability"`
		Label       *int     `json:"label"`
	}
	if err := json.Unmarshal(body, &result); err != nil || result.Probability == nil {
		return ml.Prediction{}, fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body)))
	}
	prediction := ml.Prediction{Probability: *result.Probability, Label: ml.LabelFor(*result.Probability)}
	if result.Label != nil {
		prediction.Label = *result.Label
	}
	return prediction, nil
}

// Health calls the service root and returns its status string.
func (c *APIClient) Health(ctx context.Context) (string, error) {
	base, err := url.Parse(c.url)
	if err != nil {
		return "", &RequestError{Err: err}
	}
	root := base.ResolveReference(&url.URL{Path: "/"})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, root.String(), nil)
	if err != nil {
		return "", &RequestError{Err: err}
	}
	body, err := c.do(req)
	if err != nil {
		return "", err
	}
	var result struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body)))
	}
	return result.Status, nil
}

func (c *APIClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RequestError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{Err: err}
	}
	return body, nil
}
