package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
)

// Identity describes the authenticated caller.
type Identity struct {
	UserID      int    `json:"user_id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// Validator resolves a bearer token into an identity.
type Validator interface {
	ValidateToken(ctx context.Context, token string) (Identity, error)
}

// Client talks to the auth service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs an auth client with a bounded request timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// ValidateToken verifies the bearer token and returns the caller identity.
func (c *Client) ValidateToken(ctx context.Context, token string) (Identity, error) {
	ctx, span := otel.Tracer("showroom-chat/auth").Start(ctx, "auth.validate_token")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/validate", nil)
	if err != nil {
		return Identity{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("auth request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("auth service status %d", resp.StatusCode)
	}

	var body struct {
		Valid bool `json:"valid"`
		Identity
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Identity{}, fmt.Errorf("decode auth response: %w", err)
	}
	if !body.Valid || body.UserID == 0 {
		return Identity{}, errors.New("invalid token")
	}
	return body.Identity, nil
}
