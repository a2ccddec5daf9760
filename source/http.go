package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/warp/fleet-engine/factory"
)

// Upstream REST paths per collection.
var collectionPaths = map[string]string{
	factory.CollectionVehicles:     "/vehicles",
	factory.CollectionBookings:     "/bookings",
	factory.CollectionMaintenance:  "/maintenance",
	factory.CollectionPricingRules: "/pricing-rules",
}

// HTTPClient fetches raw records from the upstream backend.
type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewHTTPClient builds a client. An empty token sends no Authorization
// header; a non-positive timeout falls back to ten seconds.
func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) FetchVehicles(ctx context.Context) ([]factory.Record, error) {
	return c.fetch(ctx, factory.CollectionVehicles)
}

func (c *HTTPClient) FetchBookings(ctx context.Context) ([]factory.Record, error) {
	return c.fetch(ctx, factory.CollectionBookings)
}

func (c *HTTPClient) FetchMaintenance(ctx context.Context) ([]factory.Record, error) {
	return c.fetch(ctx, factory.CollectionMaintenance)
}

func (c *HTTPClient) FetchPricingRules(ctx context.Context) ([]factory.Record, error) {
	return c.fetch(ctx, factory.CollectionPricingRules)
}

func (c *HTTPClient) fetch(ctx context.Context, collection string) ([]factory.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+collectionPaths[collection], nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", collection, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", collection, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status code %d: %s", collection, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	records, err := DecodeRecords(body)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", collection, err)
	}
	return records, nil
}

// DecodeRecords accepts a bare JSON array or an object wrapping the array
// under "data" or "content" (paged responses).
func DecodeRecords(body []byte) ([]factory.Record, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}

	dec := func(b []byte) ([]factory.Record, error) {
		var records []factory.Record
		d := json.NewDecoder(bytes.NewReader(b))
		d.UseNumber()
		if err := d.Decode(&records); err != nil {
			return nil, err
		}
		return records, nil
	}

	if body[0] == '[' {
		return dec(body)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	for _, key := range []string{"data", "content", "items"} {
		if inner, ok := envelope[key]; ok {
			return dec(inner)
		}
	}
	return nil, fmt.Errorf("no record array in response")
}
