// Package oneapi is the client for the external One API billing service.
// Every call is best effort: the local account store is the source of
// truth and callers log failures instead of propagating them.
package oneapi

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/taotie8304/lu-gang-connect-project/internal/config"
)

// Status values follow the One API convention: 1 enables, 2 disables.
// The inverse-looking mapping is fixed upstream and must not be remapped.
const (
	StatusEnabled  = 1
	StatusDisabled = 2
)

var ErrUserNotFound = errors.New("one api user not found")

type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Password     string `json:"password,omitempty"`
	DisplayName  string `json:"display_name"`
	Email        string `json:"email"`
	Quota        int64  `json:"quota"`
	UsedQuota    int64  `json:"used_quota"`
	RequestCount int64  `json:"request_count"`
	Status       int    `json:"status"`
	Group        string `json:"group"`
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type Client struct {
	baseURL      string
	token        string
	initialQuota int64
	http         *http.Client
	log          zerolog.Logger
}

func NewClient(cfg config.OneAPIConfig, log zerolog.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		token:        cfg.Token,
		initialQuota: cfg.InitialQuota,
		http:         &http.Client{Timeout: cfg.Timeout},
		log:          log,
	}
}

func (c *Client) do(ctx context.Context, method string, path string, body any) (*apiResponse, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("one api request: %w", err)
	}
	defer resp.Body.Close()

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("one api %s %s: http %d: %s", method, path, resp.StatusCode, parsed.Message)
	}
	return &parsed, nil
}

// FindByUsername resolves a billing account through the keyword search
// endpoint; One API has no direct lookup-by-username route.
func (c *Client) FindByUsername(ctx context.Context, username string) (User, error) {
	path := "/api/user/search?keyword=" + url.QueryEscape(username)
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return User{}, err
	}

	// The search payload is the user array itself, not a nested page.
	var users []User
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &users); err != nil {
			return User{}, fmt.Errorf("decode search result: %w", err)
		}
	}
	for _, u := range users {
		if u.Username == username || u.Email == username {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (c *Client) CreateUser(ctx context.Context, username string, password string, displayName string, quota int64) (User, error) {
	body := map[string]any{
		"username":     username,
		"password":     password,
		"display_name": displayName,
		"email":        username,
		"quota":        quota,
		"group":        "default",
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/user", body)
	if err != nil {
		return User{}, err
	}

	var created User
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &created); err != nil {
			return User{}, fmt.Errorf("decode created user: %w", err)
		}
	}
	c.log.Info().Str("username", username).Msg("one api user created")
	return created, nil
}

func (c *Client) UpdateUserStatus(ctx context.Context, id int64, status int) error {
	_, err := c.do(ctx, http.MethodPut, "/api/user", map[string]any{
		"id":     id,
		"status": status,
	})
	return err
}

func (c *Client) UpdateUserQuota(ctx context.Context, id int64, quota int64) error {
	_, err := c.do(ctx, http.MethodPut, "/api/user", map[string]any{
		"id":    id,
		"quota": quota,
	})
	return err
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/user/%d", id), nil)
	return err
}

// Health probes the unauthenticated status endpoint.
func (c *Client) Health(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/status", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 400
}

// SyncUser mirrors a local account into One API: look up first, create only
// when absent. Concurrent duplicate creations are left for One API to
// arbitrate. The generated password is throwaway; users never sign in to
// One API directly.
func (c *Client) SyncUser(ctx context.Context, username string, displayName string) (User, error) {
	existing, err := c.FindByUsername(ctx, username)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return User{}, err
	}

	password, err := randomPassword()
	if err != nil {
		return User{}, err
	}
	return c.CreateUser(ctx, username, password, displayName, c.initialQuota)
}

func randomPassword() (string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
