// Package authclient calls the auth service from other marketplace services.
package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Skotchmaster/tekxchange/internal/transport"
)

var ErrUnauthorized = errors.New("authclient: unauthorized")

const refreshCookieName = "refresh"

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(authServiceURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(authServiceURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Me asks the auth service who owns accessToken.
func (c *Client) Me(ctx context.Context, accessToken string) (*transport.MeResponse, error) {
	req, err := c.newRequest(ctx, "/auth/me", accessToken)
	if err != nil {
		return nil, err
	}

	var result transport.MeResponse
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RefreshAccessToken exchanges a possibly expired access token and the
// refresh token for a new access token.
func (c *Client) RefreshAccessToken(ctx context.Context, accessToken, refreshToken string) (string, error) {
	req, err := c.newRequest(ctx, "/auth/refresh", accessToken)
	if err != nil {
		return "", err
	}
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: refreshToken})

	var result transport.TokenResponse
	if err := c.do(req, &result); err != nil {
		return "", err
	}
	return result.JWT, nil
}

func (c *Client) newRequest(ctx context.Context, path, accessToken string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%s %s failed with status: %d", req.Method, req.URL.Path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
