// Package remote retrieves raw tables from statistical agency APIs.
//
// Each client turns the parameters of a sources.yaml fetch block into an
// HTTP request and parses the CSV response into a frame.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/JonMunkholm/histnorm/internal/frame"
)

var (
	// ErrRemoteStatus is returned when the server answers with a 4xx or 5xx.
	ErrRemoteStatus = errors.New("remote returned error status")

	// ErrMissingParam is returned when a required fetch parameter is absent.
	ErrMissingParam = errors.New("missing fetch parameter")
)

// DefaultTimeout bounds a single download.
const DefaultTimeout = 60 * time.Second

// Client fetches one table described by fetch parameters.
type Client interface {
	Fetch(ctx context.Context, params map[string]any) (*frame.Frame, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, params map[string]any) (*frame.Frame, error)

// Fetch calls fn.
func (fn ClientFunc) Fetch(ctx context.Context, params map[string]any) (*frame.Frame, error) {
	return fn(ctx, params)
}

func newHTTPClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: DefaultTimeout}
}

// getCSV issues a GET and parses the body as CSV.
func getCSV(ctx context.Context, client *http.Client, url, accept string) (*frame.Frame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrRemoteStatus, resp.StatusCode, string(body))
	}

	f, err := frame.Read(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return f, nil
}

func stringParam(params map[string]any, key string) string {
	v, ok := params[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func requireParam(params map[string]any, key string) (string, error) {
	v := stringParam(params, key)
	if v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingParam, key)
	}
	return v, nil
}
