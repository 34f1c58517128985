package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNotConfigured is returned when no verifier endpoint is set.
var ErrNotConfigured = errors.New("identity verifier not configured")

// VerifyRequest is the proof bundle posted by the KYC client app.
type VerifyRequest struct {
	AttestationID   json.RawMessage `json:"attestationId"`
	Proof           json.RawMessage `json:"proof"`
	PublicSignals   json.RawMessage `json:"publicSignals"`
	UserContextData string          `json:"userContextData"`
}

// Result is the verifier's verdict.
type Result struct {
	IsValidDetails struct {
		IsValid bool `json:"isValid"`
	} `json:"isValidDetails"`
	UserData struct {
		UserIdentifier  string `json:"userIdentifier"`
		UserDefinedData string `json:"userDefinedData"`
	} `json:"userData"`
	DiscloseOutput json.RawMessage `json:"discloseOutput,omitempty"`
}

// Valid reports whether the proof was accepted.
func (r Result) Valid() bool {
	return r.IsValidDetails.IsValid
}

// Verifier checks zero-knowledge identity proofs.
type Verifier interface {
	Verify(ctx context.Context, req VerifyRequest) (Result, error)
}

// HTTPVerifier calls a remote verification endpoint.
type HTTPVerifier struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
}

var _ Verifier = (*HTTPVerifier)(nil)

func NewHTTPVerifier(endpoint string, timeout time.Duration, client *http.Client) *HTTPVerifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPVerifier{endpoint: endpoint, timeout: timeout, client: client}
}

func (v *HTTPVerifier) Verify(ctx context.Context, req VerifyRequest) (Result, error) {
	if v.endpoint == "" {
		return Result{}, ErrNotConfigured
	}
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("encode verify request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build verify request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("call identity verifier: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("read verifier response: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{}, fmt.Errorf("identity verifier returned %d", resp.StatusCode)
	}

	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return Result{}, fmt.Errorf("decode verifier response: %w", err)
	}
	return result, nil
}
