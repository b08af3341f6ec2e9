// Package verify holds the outbound HTTP client for the external
// phone-verification provider.
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/HamzaElshennawy/qrsystem-sub000/internal/otp"
)

// HTTPProviderClient implements otp.Provider against a REST verification API.
type HTTPProviderClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ otp.Provider = (*HTTPProviderClient)(nil)

// NewHTTPProviderClient constructs the default provider client.
func NewHTTPProviderClient(baseURL, apiKey string, client *http.Client) *HTTPProviderClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPProviderClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: client,
	}
}

// StartVerification asks the provider to deliver a code to the phone.
func (c *HTTPProviderClient) StartVerification(ctx context.Context, phone string) (string, error) {
	data := url.Values{}
	data.Set("phone", phone)

	body, status, err := c.post(ctx, "/v1/verifications", data)
	if err != nil {
		return "", fmt.Errorf("verification request: %w", err)
	}
	if status >= 300 {
		return "", fmt.Errorf("verification request failed: status=%d", status)
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("decode verification response: %w", err)
	}
	id, _ := raw["verification_id"].(string)
	if id == "" {
		return "", fmt.Errorf("verification response missing verification_id")
	}
	return id, nil
}

// CheckVerification confirms a code against a pending verification.
func (c *HTTPProviderClient) CheckVerification(ctx context.Context, providerID, code string) error {
	data := url.Values{}
	data.Set("verification_id", providerID)
	data.Set("code", code)

	_, status, err := c.post(ctx, "/v1/verifications/check", data)
	if err != nil {
		return fmt.Errorf("verification check: %w", err)
	}
	switch {
	case status < 300:
		return nil
	case status >= 400 && status < 500:
		return otp.ErrInvalidCode
	default:
		return fmt.Errorf("verification check failed: status=%d", status)
	}
}

func (c *HTTPProviderClient) post(ctx context.Context, path string, data url.Values) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}
