package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/JonMunkholm/histnorm/internal/frame"
)

// DefaultOpenKAPSARCURL is the public KAPSARC data portal.
const DefaultOpenKAPSARCURL = "https://datasource.kapsarc.org"

// OpenKAPSARCClient downloads whole datasets from the KAPSARC Opendatasoft
// portal.
//
// Recognized parameters:
//
//	dataset  dataset id (required)
//	params   mapping of extra query parameters, e.g. q or refine.*
type OpenKAPSARCClient struct {
	HTTP    *http.Client
	BaseURL string
	APIKey  string
}

// NewOpenKAPSARCClient creates a client. An empty baseURL selects the
// public portal; an empty apiKey sends anonymous requests.
func NewOpenKAPSARCClient(httpClient *http.Client, baseURL, apiKey string) *OpenKAPSARCClient {
	if baseURL == "" {
		baseURL = DefaultOpenKAPSARCURL
	}
	return &OpenKAPSARCClient{
		HTTP:    newHTTPClient(httpClient),
		BaseURL: baseURL,
		APIKey:  apiKey,
	}
}

// Fetch implements Client.
func (c *OpenKAPSARCClient) Fetch(ctx context.Context, params map[string]any) (*frame.Frame, error) {
	u, err := c.URL(params)
	if err != nil {
		return nil, err
	}
	f, err := getCSV(ctx, newHTTPClient(c.HTTP), u, "text/csv")
	if err != nil {
		return nil, fmt.Errorf("openkapsarc %s: %w", stringParam(params, "dataset"), err)
	}
	return f, nil
}

// URL builds the export URL for params.
func (c *OpenKAPSARCClient) URL(params map[string]any) (string, error) {
	dataset, err := requireParam(params, "dataset")
	if err != nil {
		return "", fmt.Errorf("openkapsarc: %w", err)
	}

	q := queryParams(params["params"])
	if q == nil {
		q = url.Values{}
	}
	q.Set("dataset", dataset)
	q.Set("format", "csv")
	q.Set("csv_separator", ",")
	if c.APIKey != "" {
		q.Set("apikey", c.APIKey)
	}

	return strings.TrimRight(c.BaseURL, "/") + "/api/records/1.0/download/?" + q.Encode(), nil
}
