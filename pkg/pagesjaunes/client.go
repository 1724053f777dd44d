// Package pagesjaunes provides a best-effort client for the PagesJaunes
// directory API, used to look up company phone numbers.
//
// The API surface is not formally published: search endpoints, response
// envelopes and field names all vary. Every operation degrades to "not
// found" rather than failing.
package pagesjaunes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teleconseil/prospect-cli/internal/jsonwalk"
	"github.com/teleconseil/prospect-cli/internal/links"
)

// Client defines the directory lookup operations.
type Client interface {
	// LookupPhone finds a formatted phone number for a company by name and
	// address. The second return value reports whether a number was found.
	LookupPhone(ctx context.Context, name, address string) (string, bool)
}

// searchPaths are the candidate search endpoints, tried in order until one
// answers with a 200.
var searchPaths = []string{"/search", "/pros/search"}

// idAliases are the keys under which a search result may carry the
// directory identifier.
var idAliases = []string{"id", "pro_id", "proId"}

// phonePaths are the candidate locations of a phone value in a detail
// response, probed in order.
var phonePaths = [][]any{
	{"coordonnees", "telephone"},
	{"coordonnees", "phone"},
	{"coordonnees", "tel"},
	{"contact", "telephone"},
	{"contact", "phone"},
	{"contact", "tel"},
	{"phone"},
	{"telephone"},
	{"tel"},
	{"phones", 0},
	{"telephones", 0},
}

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
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a PagesJaunes client. The API key is optional; without
// it some endpoints still answer anonymous requests.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.pagesjaunes.fr/v1",
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) LookupPhone(ctx context.Context, name, address string) (string, bool) {
	if strings.TrimSpace(name) == "" {
		return "", false
	}

	where := address
	if cp, ok := links.PostalCode(address); ok {
		where = cp
	}

	proID, ok := c.searchPro(ctx, name, where)
	if !ok {
		return "", false
	}
	return c.proPhone(ctx, proID)
}

// searchPro locates a company in the directory and returns its identifier.
// Each candidate endpoint is tried in turn; 404s and transport errors move
// on to the next one.
func (c *httpClient) searchPro(ctx context.Context, name, where string) (string, bool) {
	query := url.Values{}
	query.Set("what", name)
	query.Set("where", where)

	for _, path := range searchPaths {
		reqURL := c.baseURL + path + "?" + query.Encode()

		body, status, err := c.get(ctx, reqURL)
		if err != nil {
			zap.L().Debug("pagesjaunes: search endpoint unreachable",
				zap.String("url", reqURL),
				zap.Error(err),
			)
			continue
		}
		if status == http.StatusNotFound {
			continue
		}
		if status != http.StatusOK {
			continue
		}

		if id, ok := extractProID(body); ok {
			return id, true
		}
	}
	return "", false
}

// extractProID pulls a directory identifier out of a search response,
// whatever its envelope: results under "results"/"data"/"items", a single
// direct object, or a bare list.
func extractProID(body []byte) (string, bool) {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return "", false
	}

	switch d := data.(type) {
	case map[string]any:
		for _, listKey := range []string{"results", "data", "items"} {
			items, ok := d[listKey].([]any)
			if !ok {
				continue
			}
			if id, ok := idFromList(items); ok {
				return id, true
			}
		}
		return idFromEntry(d)
	case []any:
		return idFromList(d)
	}
	return "", false
}

func idFromList(items []any) (string, bool) {
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := idFromEntry(entry); ok {
			return id, true
		}
	}
	return "", false
}

func idFromEntry(entry map[string]any) (string, bool) {
	for _, alias := range idAliases {
		if id, ok := jsonwalk.At(entry, alias); ok {
			return id, true
		}
	}
	return "", false
}

// proPhone fetches the detail record for an identifier and probes the
// known phone field locations.
func (c *httpClient) proPhone(ctx context.Context, proID string) (string, bool) {
	reqURL := fmt.Sprintf("%s/pros/%s", c.baseURL, url.PathEscape(proID))

	body, status, err := c.get(ctx, reqURL)
	if err != nil || status != http.StatusOK {
		zap.L().Debug("pagesjaunes: detail fetch failed",
			zap.String("pro_id", proID),
			zap.Int("status", status),
			zap.Error(err),
		)
		return "", false
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return "", false
	}

	for _, path := range phonePaths {
		if phone, ok := jsonwalk.At(data, path...); ok {
			return FormatPhone(phone), true
		}
	}
	return "", false
}

func (c *httpClient) get(ctx context.Context, reqURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

var nonDigitRe = regexp.MustCompile(`\D`)

// FormatPhone renders a French phone number in the usual two-digit groups.
// A 10-digit number with the 0 trunk prefix becomes "01 23 45 67 89"; an
// 11-digit number with the 33 country prefix is converted to trunk form
// first. Anything else is returned unchanged.
func FormatPhone(phone string) string {
	digits := nonDigitRe.ReplaceAllString(phone, "")

	if len(digits) == 11 && strings.HasPrefix(digits, "33") {
		digits = "0" + digits[2:]
	}

	if len(digits) == 10 && strings.HasPrefix(digits, "0") {
		return fmt.Sprintf("%s %s %s %s %s",
			digits[0:2], digits[2:4], digits[4:6], digits[6:8], digits[8:10])
	}

	return phone
}
