package clients

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

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/envelope"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
)

// Upper bound on a backend response body.
const maxBodyBytes = 4 << 20

type Client struct {
	Name    string
	BaseURL *url.URL
	HTTP    *http.Client
}

func NewClient(name string, baseURL string, httpClient *http.Client) *Client {
	u, err := url.Parse(baseURL)
	if err != nil {
		// Fail fast: config error
		panic(fmt.Sprintf("invalid %s base url %q: %v", name, baseURL, err))
	}
	// Relative paths resolve under the base path only with a trailing slash.
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return &Client{Name: name, BaseURL: u, HTTP: httpClient}
}

// Do sends one request. path is relative to BaseURL.
func (c *Client) Do(ctx context.Context, method, path, rawQuery string, body io.Reader, headers http.Header) (*http.Response, error) {
	rel := &url.URL{Path: strings.TrimPrefix(path, "/"), RawQuery: rawQuery}
	u := c.BaseURL.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	for k, vv := range headers {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}

	// Ensure correlation id propagated downstream
	if cid := middleware.GetCorrelationID(ctx); cid != "" {
		req.Header.Set(middleware.HeaderCorrelationID, cid)
	}

	return c.HTTP.Do(req)
}

// call performs an authenticated JSON request against an envelope backend and
// returns the decoded data and the backend message.
func call[T any](ctx context.Context, c *Client, s session.Session, method, path string, query url.Values, in any) (T, string, error) {
	var zero T
	if s.Token == "" {
		return zero, "", apperr.New(apperr.ErrAuthRequired, "please sign in to continue")
	}

	headers := http.Header{}
	headers.Set("Accept", "application/json")
	headers.Set("Authorization", "Bearer "+s.Token)

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return zero, "", fmt.Errorf("marshal %s request: %w", c.Name, err)
		}
		body = bytes.NewReader(b)
		headers.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(ctx, method, path, query.Encode(), body, headers)
	if err != nil {
		return zero, "", apperr.Wrap(apperr.ErrBackend, c.Name+" is unavailable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return zero, "", apperr.Wrap(apperr.ErrBackend, "read "+c.Name+" response", err)
	}

	data, msg, err := envelope.Decode[T](raw, resp.StatusCode)
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return zero, msg, err
		}
		return zero, msg, apperr.Wrap(apperr.ErrBackend, c.Name+" returned an unreadable response", err)
	}
	return data, msg, nil
}

// ack is used for calls whose data is ignored.
type ack = json.RawMessage
