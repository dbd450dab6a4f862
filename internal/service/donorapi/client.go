package donorapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"foodbridge/internal/model"
)

type Config struct {
	BaseURL string
	Token   string
}

// Client is a stateless mapping onto the remote donation service. It holds
// no caller state across calls and knows nothing about local storage.
type Client struct {
	client *http.Client
	config Config
}

func NewClient(cfg Config) *Client {
	return &Client{
		client: &http.Client{
			Transport: &AuthTransport{
				Token: cfg.Token,
				Base:  http.DefaultTransport,
			},
			Timeout: 10 * time.Second,
		},
		config: cfg,
	}
}

// AuthTransport adds the token header on every request
type AuthTransport struct {
	Token string
	Base  http.RoundTripper
}

func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Token != "" {
		req.Header.Set("Authorization", "Token "+t.Token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "br")
	return t.Base.RoundTrip(req)
}

func (c *Client) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	var resp LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/login/", req, &resp); err != nil {
		return LoginResponse{}, err
	}
	return resp, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (RegisterResponse, error) {
	var resp RegisterResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/register/", req, &resp); err != nil {
		return RegisterResponse{}, err
	}
	return resp, nil
}

func (c *Client) FetchDonations(ctx context.Context) ([]model.Donation, error) {
	var donations []model.Donation
	if err := c.doJSON(ctx, http.MethodGet, "/api/donations/", nil, &donations); err != nil {
		return nil, err
	}
	return donations, nil
}

// CreateDonation posts a donation without an id; the server assigns one and
// echoes the canonical record back.
func (c *Client) CreateDonation(ctx context.Context, d model.Donation) (model.Donation, error) {
	d.ID = 0
	var created model.Donation
	if err := c.doJSON(ctx, http.MethodPost, "/api/donations/", d, &created); err != nil {
		return model.Donation{}, err
	}
	return created, nil
}

func (c *Client) UpdateDonation(ctx context.Context, id int64, d model.Donation) (model.Donation, error) {
	var updated model.Donation
	path := fmt.Sprintf("/api/donations/%d/", id)
	if err := c.doJSON(ctx, http.MethodPut, path, d, &updated); err != nil {
		return model.Donation{}, err
	}
	return updated, nil
}

func (c *Client) InitiatePayment(ctx context.Context, req PaymentRequest) (model.MpesaTransaction, error) {
	var tx model.MpesaTransaction
	if err := c.doJSON(ctx, http.MethodPost, "/api/mpesa/payment/", req, &tx); err != nil {
		return model.MpesaTransaction{}, err
	}
	return tx, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// Timeouts and connection failures both land here.
		return &Error{Kind: KindOffline, Message: err.Error()}
	}

	if resp.Header.Get("Content-Encoding") == "br" {
		resp.Body = &readCloserWrapper{Reader: brotli.NewReader(resp.Body), Closer: resp.Body}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		kind := KindBadRequest
		if resp.StatusCode >= 500 {
			kind = KindServerFault
		}
		msg := readErrorMessage(resp.Body)
		return &Error{Kind: kind, Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// readErrorMessage pulls a message field out of an error body when there is
// one, otherwise returns the raw body.
func readErrorMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 4096))
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return string(raw)
}

type readCloserWrapper struct {
	io.Reader
	io.Closer
}

func (r *readCloserWrapper) Read(p []byte) (n int, err error) {
	return r.Reader.Read(p)
}

func (r *readCloserWrapper) Close() error {
	return r.Closer.Close()
}
