package walletgate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type httpClient struct {
	baseURL string
	http    *http.Client
}

// Option configures the HTTP client
type Option func(*httpClient)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(c *http.Client) Option {
	return func(h *httpClient) { h.http = c }
}

// NewClient returns a Client talking to the server at baseURL
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Nonce(ctx context.Context, walletType, address string) (*Challenge, error) {
	var out Challenge
	body := map[string]string{"walletType": walletType, "walletAddress": address}
	if err := c.do(ctx, http.MethodPost, "/auth/wallet/nonce", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) Verify(ctx context.Context, proof Proof) (*VerifyResult, error) {
	var out VerifyResult
	if err := c.do(ctx, http.MethodPost, "/auth/wallet/verify", "", proof, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) Redeem(ctx context.Context, loginArtifact string) (*Tokens, error) {
	var out Tokens
	body := map[string]string{"loginArtifact": loginArtifact}
	if err := c.do(ctx, http.MethodPost, "/auth/session/redeem", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) Link(ctx context.Context, accessToken string, proof Proof) (*LinkResult, error) {
	var out LinkResult
	if err := c.do(ctx, http.MethodPost, "/auth/wallet/link", accessToken, proof, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	var out Tokens
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) Logout(ctx context.Context, refreshToken string) error {
	body := map[string]string{"refresh_token": refreshToken}
	return c.do(ctx, http.MethodPost, "/auth/logout", "", body, nil)
}

func (c *httpClient) Me(ctx context.Context, accessToken string) (*Account, error) {
	var out Account
	if err := c.do(ctx, http.MethodGet, "/api/me", accessToken, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{Status: resp.StatusCode, Code: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
