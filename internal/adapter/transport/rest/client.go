package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dayanaadylkhanova/powgate/internal/entity"
)

// StatusError is a non-2xx reply from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server replied %d", e.Code)
	}
	return fmt.Sprintf("server replied %d: %s", e.Code, e.Message)
}

// Client talks to a Server over HTTP.
type Client struct {
	base string
	http *http.Client
}

func NewClient(base string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{base: strings.TrimRight(base, "/"), http: hc}
}

func (c *Client) Challenge(ctx context.Context) (entity.Challenge, error) {
	var ch entity.Challenge
	err := c.do(ctx, http.MethodGet, "/api/challenge", nil, nil, &ch)
	return ch, err
}

func (c *Client) Verify(ctx context.Context, sol entity.Solution) error {
	payload, err := entity.EncodePayload(sol)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/api/challenge/verify", map[string]string{"payload": payload}, nil, nil)
}

// Contact submits the form with the solution in the X-Altcha header and
// returns the stored id.
func (c *Client) Contact(ctx context.Context, sol entity.Solution, name, email, message string) (string, error) {
	payload, err := entity.EncodePayload(sol)
	if err != nil {
		return "", err
	}
	body := map[string]string{"name": name, "email": email, "message": message}
	var out struct {
		ID string `json:"id"`
	}
	err = c.do(ctx, http.MethodPost, "/api/contact", body, http.Header{HeaderSolution: {payload}}, &out)
	return out.ID, err
}

func (c *Client) do(ctx context.Context, method, path string, in any, hdr http.Header, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	for k, v := range hdr {
		req.Header[k] = v
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read reply: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		return &StatusError{Code: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	return nil
}

// IsRejected reports whether err is a 403 from the server.
func IsRejected(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusForbidden
}
