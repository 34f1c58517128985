package prover

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured is returned when no proving service URL is set.
var ErrNotConfigured = errors.New("document prover not configured")

// Verdict is the proving service's answer to a verify call.
type Verdict struct {
	Valid bool    `json:"valid"`
	Error *string `json:"error"`
}

// Prover generates and checks ownership-document proofs.
type Prover interface {
	Prove(ctx context.Context, propertyID int64, pdf []byte) (json.RawMessage, error)
	Verify(ctx context.Context, proof json.RawMessage) (Verdict, error)
}

// Client talks to the remote proving service over HTTP.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

var _ Prover = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout, http: httpClient}
}

type proveRequest struct {
	PDFBytes   []int `json:"pdf_bytes"`
	PropertyID int64 `json:"property_id"`
}

func (c *Client) Prove(ctx context.Context, propertyID int64, pdf []byte) (json.RawMessage, error) {
	// The service expects raw bytes as a JSON number array, not base64.
	payload := proveRequest{PDFBytes: make([]int, len(pdf)), PropertyID: propertyID}
	for i, b := range pdf {
		payload.PDFBytes[i] = int(b)
	}

	body, err := c.post(ctx, "/prove", payload)
	if err != nil {
		return nil, fmt.Errorf("prove document: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("prove document: response is not JSON")
	}
	return json.RawMessage(body), nil
}

func (c *Client) Verify(ctx context.Context, proof json.RawMessage) (Verdict, error) {
	body, err := c.post(ctx, "/verify", proof)
	if err != nil {
		return Verdict{}, fmt.Errorf("verify proof: %w", err)
	}
	var v Verdict
	if err := json.Unmarshal(body, &v); err != nil {
		return Verdict{}, fmt.Errorf("decode verdict: %w", err)
	}
	return v, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prover returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
