package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// apiClient talks to the cases API on behalf of one actor.
type apiClient struct {
	base  string
	actor string
	http  *http.Client
}

func newAPIClient(base, actor string, timeout time.Duration) *apiClient {
	return &apiClient{
		base:  strings.TrimRight(base, "/"),
		actor: actor,
		http:  &http.Client{Timeout: timeout},
	}
}

// apiError is a non-2xx answer from the API.
type apiError struct {
	Status int
	Kind   string `json:"kind"`
	Msg    string `json:"error"`
}

func (e *apiError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Kind, e.Msg)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Msg)
}

// do sends body as JSON and returns the raw response body of a 2xx answer.
func (c *apiClient) do(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Actor", c.actor)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		ae := &apiError{Status: resp.StatusCode}
		if jerr := json.Unmarshal(data, ae); jerr != nil || ae.Msg == "" {
			ae.Msg = strings.TrimSpace(string(data))
		}
		return nil, ae
	}
	return data, nil
}
