package assemblyai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nikhilbhutani/lifereview/internal/config"
)

const (
	MinExpiry     = 60
	MaxExpiry     = 600
	DefaultExpiry = 300
)

// APIError carries a non-2xx answer from AssemblyAI so callers can relay its status.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("assemblyai token request failed (%d): %s", e.Status, e.Body)
}

// TokenClient mints temporary streaming tokens so browsers never see the API key.
type TokenClient struct {
	apiKey     string
	tokenURL   string
	httpClient *http.Client
}

func NewTokenClient(cfg config.AssemblyAIConfig) (*TokenClient, error) {
	if err := config.Require("ASSEMBLYAI_API_KEY", cfg.APIKey); err != nil {
		return nil, err
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = "https://streaming.assemblyai.com/v3/token"
	}
	return &TokenClient{
		apiKey:     cfg.APIKey,
		tokenURL:   tokenURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// ClampExpiry keeps seconds inside the range AssemblyAI accepts; 0 means the default.
func ClampExpiry(seconds int) int {
	if seconds == 0 {
		return DefaultExpiry
	}
	return max(MinExpiry, min(MaxExpiry, seconds))
}

// Token returns AssemblyAI's JSON response verbatim.
func (c *TokenClient) Token(ctx context.Context, expiresInSeconds int) (json.RawMessage, error) {
	q := url.Values{"expires_in_seconds": {strconv.Itoa(ClampExpiry(expiresInSeconds))}}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tokenURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("token response is not JSON")
	}
	return json.RawMessage(body), nil
}
