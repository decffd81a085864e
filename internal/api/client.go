package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const maxBodyBytes = 4 << 20

// Exchange is one completed request/response pair as seen by the client.
// Request and Response hold redacted JSON bodies.
type Exchange struct {
	Op       string
	Method   string
	Path     string
	Status   int
	Request  []byte
	Response []byte
	Latency  time.Duration
	Err      error
}

// Options configures a Client.
type Options struct {
	BaseURL           string
	HTTPClient        *http.Client
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	UserAgent         string
	Observer          func(ctx context.Context, ex Exchange)
}

// Client issues JSON-over-HTTP calls against the storefront backend.
type Client struct {
	baseURL   string
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	observer  func(ctx context.Context, ex Exchange)
}

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("api: base URL is required")
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api: invalid base URL %q", opts.BaseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Client{
		baseURL:   base,
		http:      hc,
		limiter:   limiter,
		userAgent: opts.UserAgent,
		observer:  opts.Observer,
	}, nil
}

// BaseURL returns the normalized backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Authenticate posts a sign-in or sign-up attempt.
func (c *Client) Authenticate(ctx context.Context, req AuthenticateRequest) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, "authenticate", http.MethodPost, "/auth/authenticate", req, &out)
	return out, err
}

// VerifyOTP posts an OTP code for the pending channel.
func (c *Client) VerifyOTP(ctx context.Context, req VerifyRequest) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, "verify_otp", http.MethodPost, "/auth/authenticate-pass", req, &out)
	return out, err
}

// ResendOTP asks the backend to issue a fresh OTP.
func (c *Client) ResendOTP(ctx context.Context, req ResendRequest) (ResendResponse, error) {
	var out ResendResponse
	err := c.do(ctx, "resend_otp", http.MethodPost, "/auth/resend-otp", req, &out)
	return out, err
}

// Banners fetches the carousel banners. A body without data yields an empty slice.
func (c *Client) Banners(ctx context.Context) ([]Banner, error) {
	var out listResponse[Banner]
	if err := c.do(ctx, "banners", http.MethodGet, "/banner", nil, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return []Banner{}, nil
	}
	return out.Data, nil
}

// Products fetches the full product listing.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var out listResponse[Product]
	if err := c.do(ctx, "products", http.MethodGet, "/product", nil, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return []Product{}, nil
	}
	return out.Data, nil
}

// AddWishlist registers a product and returns the wishlist entry id.
func (c *Client) AddWishlist(ctx context.Context, req AddWishlistRequest) (ID, error) {
	var out AddWishlistResponse
	if err := c.do(ctx, "wishlist_add", http.MethodPost, "/wishlist/add", req, &out); err != nil {
		return "", err
	}
	if out.UID == "" {
		return "", &IncompleteError{Op: "wishlist_add", Missing: []string{"uid"}}
	}
	return out.UID, nil
}

// RemoveWishlist deletes a wishlist entry by its id.
func (c *Client) RemoveWishlist(ctx context.Context, uid ID) error {
	if uid == "" {
		return errors.New("api: wishlist entry id is required")
	}
	return c.do(ctx, "wishlist_remove", http.MethodDelete, "/wishlist/"+url.PathEscape(uid.String()), nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	ex := Exchange{Op: op, Method: method, Path: path}
	start := time.Now()
	defer func() {
		ex.Latency = time.Since(start)
		ex.Err = err
		if c.observer != nil {
			c.observer(ctx, ex)
		}
	}()

	var body io.Reader
	if in != nil {
		payload, merr := json.Marshal(in)
		if merr != nil {
			return &TransportError{Op: op, Err: merr}
		}
		ex.Request = Redact(payload)
		body = bytes.NewReader(payload)
	}

	if c.limiter != nil {
		if werr := c.limiter.Wait(ctx); werr != nil {
			return &TransportError{Op: op, Err: werr}
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	ex.Status = resp.StatusCode
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	ex.Response = Redact(raw)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		return &RejectedError{Op: op, Status: resp.StatusCode, Message: eb.text()}
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return &TransportError{Op: op, Err: errors.New("empty response body")}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
