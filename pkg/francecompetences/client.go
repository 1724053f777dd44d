// Package francecompetences provides a client for the France Compétences
// "Quel est mon OPCO ?" lookup API.
package francecompetences

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/teleconseil/prospect-cli/internal/jsonwalk"
)

// Client defines the France Compétences lookup operations.
type Client interface {
	// Lookup fetches the OPCO affiliation and IDCC code for a SIRET.
	// Empty results with a nil error mean "no answer for this company";
	// an error means the upstream could not be reached or parsed.
	Lookup(ctx context.Context, siret string) (opco, idcc string, err error)
}

// Response keys vary across API revisions; match by substring instead of
// exact name.
var (
	opcoKeys = jsonwalk.KeyContains("opco")
	idccKeys = jsonwalk.KeyContains("idcc")
)

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a France Compétences client. The API is public and
// unauthenticated.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: "https://api.francecompetences.fr",
		http: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Lookup(ctx context.Context, siret string) (string, string, error) {
	reqURL := fmt.Sprintf("%s/siro/v1/nico/search/%s", c.baseURL, siret)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", "", eris.Wrap(err, "francecompetences: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", eris.Wrap(err, "francecompetences: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		// Unknown SIRETs come back as 404; treat any non-200 as no answer.
		return "", "", nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", eris.Wrap(err, "francecompetences: read response body")
	}

	// The payload may be an object or a list, with the interesting keys at
	// arbitrary depth.
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return "", "", nil
	}

	opco, _ := jsonwalk.FindFirst(data, opcoKeys)
	idcc, _ := jsonwalk.FindFirst(data, idccKeys)
	return opco, idcc, nil
}
