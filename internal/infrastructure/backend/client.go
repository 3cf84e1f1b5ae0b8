package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/crm-web/internal/config"
	"github.com/crm-web/internal/domain"
)

// maxBodyBytes caps how much of a backend response is read.
const maxBodyBytes = 1 << 20

// Client calls the CRM backend API.
type Client struct {
	http         *http.Client
	baseURL      string
	verifyPath   string
	registerPath string
	loginPath    string
}

func NewClient(cfg config.Backend) *Client {
	return NewClientWithHTTP(cfg, &http.Client{Timeout: cfg.Timeout})
}

// NewClientWithHTTP is NewClient with a caller-supplied transport.
func NewClientWithHTTP(cfg config.Backend, hc *http.Client) *Client {
	return &Client{
		http:         hc,
		baseURL:      cfg.BaseURL,
		verifyPath:   cfg.VerifyPath,
		registerPath: cfg.RegisterPath,
		loginPath:    cfg.LoginPath,
	}
}

type messageBody struct {
	Message string `json:"message"`
}

// VerifyEmail resolves a verification token and returns the backend's message.
func (c *Client) VerifyEmail(ctx context.Context, token string) (string, error) {
	q := url.Values{}
	q.Set(domain.TokenQueryParam, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.verifyPath+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build verify request: %w", err)
	}
	var body messageBody
	if err := c.do(req, &body); err != nil {
		return "", err
	}
	return body.Message, nil
}

// Ping calls the backend root, which answers with a liveness message.
func (c *Client) Ping(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return "", fmt.Errorf("build ping request: %w", err)
	}
	var body messageBody
	if err := c.do(req, &body); err != nil {
		return "", err
	}
	return body.Message, nil
}

// Register submits the registration form.
func (c *Client) Register(ctx context.Context, in domain.RegisterRequest) (*domain.User, error) {
	var u domain.User
	if err := c.postJSON(ctx, c.registerPath, in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, in domain.LoginRequest) (*domain.AccessToken, error) {
	var tok domain.AccessToken
	if err := c.postJSON(ctx, c.loginPath, in, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// do sends req and decodes a 2xx body into out. A non-2xx answer becomes a
// *domain.RejectedError; no answer at all wraps domain.ErrUnreachable.
func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%s %s: %w: %v", req.Method, req.URL.Path, domain.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		// The status line arrived, so the backend did respond.
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &domain.RejectedError{Status: resp.StatusCode}
		}
		return fmt.Errorf("read response: %w: %v", domain.ErrUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.RejectedError{Status: resp.StatusCode, Detail: decodeDetail(raw)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	// A 2xx body that does not match out leaves the missing fields zero-valued.
	_ = json.Unmarshal(raw, out)
	return nil
}

// decodeDetail returns the "detail" field when it is a plain string.
// FastAPI validation errors carry a list there, which is not shown verbatim.
func decodeDetail(raw []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(body.Detail, &s); err != nil {
		return ""
	}
	return s
}
