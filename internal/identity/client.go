// Package identity talks to the authentication subsystem's admin API.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/glansab/backoffice/internal/model"
)

const (
	// ClientTimeout is the total request timeout.
	ClientTimeout = 15 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 5 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 5 * time.Second
	// ResponseHeaderTimeout is time to wait for response headers.
	ResponseHeaderTimeout = 10 * time.Second

	adminUsersPath = "/auth/v1/admin/users"
	healthPath     = "/auth/v1/health"
	maxErrorBody   = 4 << 10
)

// Sentinel errors for identity operations.
var (
	ErrNotFound     = errors.New("identity not found")
	ErrInvalidInput = errors.New("invalid identity input")
)

// APIError is a non-2xx response from the admin API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Is lets errors.Is match ErrNotFound on 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Retryable reports whether repeating the request may succeed.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// NewHTTPClient creates an HTTP client for admin API calls.
// It does not follow redirects.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: ClientTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   TLSHandshakeTimeout,
			ResponseHeaderTimeout: ResponseHeaderTimeout,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// CreateUserParams describes a new identity.
type CreateUserParams struct {
	Email        string
	Password     string
	EmailConfirm bool
	FullName     string
}

// Client calls the GoTrue-compatible admin users endpoints.
type Client struct {
	baseURL    string
	serviceKey string
	http       *http.Client
}

// NewClient creates an admin client. baseURL is the project root, e.g.
// https://xyz.supabase.co; serviceKey is the service-role key.
func NewClient(baseURL, serviceKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		http:       httpClient,
	}
}

type createUserRequest struct {
	Email        string            `json:"email"`
	Password     string            `json:"password"`
	EmailConfirm bool              `json:"email_confirm"`
	UserMetadata map[string]string `json:"user_metadata,omitempty"`
}

type userResponse struct {
	ID               string            `json:"id"`
	Email            string            `json:"email"`
	EmailConfirmedAt *time.Time        `json:"email_confirmed_at"`
	CreatedAt        time.Time         `json:"created_at"`
	UserMetadata     map[string]any    `json:"user_metadata"`
	AppMetadata      map[string]any    `json:"app_metadata"`
	Identities       []json.RawMessage `json:"identities"`
}

// CreateUser creates an identity and returns it.
func (c *Client) CreateUser(ctx context.Context, params CreateUserParams) (*model.Identity, error) {
	if params.Email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	body := createUserRequest{
		Email:        params.Email,
		Password:     params.Password,
		EmailConfirm: params.EmailConfirm,
	}
	if params.FullName != "" {
		body.UserMetadata = map[string]string{"full_name": params.FullName}
	}

	var out userResponse
	if err := c.do(ctx, http.MethodPost, adminUsersPath, body, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, errors.New("identity response missing id")
	}

	identity := &model.Identity{
		ID:             out.ID,
		Email:          out.Email,
		EmailConfirmed: out.EmailConfirmedAt != nil,
		CreatedAt:      out.CreatedAt,
	}
	if name, ok := out.UserMetadata["full_name"].(string); ok {
		identity.FullName = name
	}
	return identity, nil
}

// DeleteUser removes an identity by id.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	return c.do(ctx, http.MethodDelete, adminUsersPath+"/"+id, nil, nil)
}

// Ping checks that the identity subsystem answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, healthPath, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Backoffice-Admin/1.0")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.StatusCode, raw)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage extracts the human readable message from an admin API error
// body. GoTrue versions differ in which field they populate.
func errorMessage(status int, raw []byte) string {
	var body struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		for _, m := range []string{body.Msg, body.Message, body.ErrorDescription, body.Error} {
			if m != "" {
				return m
			}
		}
	}
	if text := strings.TrimSpace(string(raw)); text != "" {
		return text
	}
	return http.StatusText(status)
}
