package sirene

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/teleconseil/prospect-cli/internal/model"
)

func newTestClient(apiKey, baseURL string) Client {
	return NewClient(apiKey,
		WithBaseURL(baseURL),
		WithLimiter(rate.NewLimiter(rate.Inf, 1)),
	)
}

func TestSearch_DemoMode(t *testing.T) {
	c := NewClient("")
	require.True(t, c.Demo())

	records := c.Search(context.Background(), "boulangerie", "69", 10)
	require.Len(t, records, 2)

	for _, r := range records {
		assert.Contains(t, r.Name, "Boulangerie")
		assert.Contains(t, r.Name, "69")
		assert.Equal(t, "boulangerie", r.Sector)
		assert.Equal(t, model.StatusActive, r.Status)
		assert.NotEmpty(t, r.Phone)
		assert.Equal(t, r.Siret[:9], r.Siren)
	}
	assert.NotEqual(t, records[0].Siret, records[1].Siret)
}

func TestSearch_WrappedEstablishments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/siret", r.URL.Path)
		assert.Equal(t, "key-123", r.Header.Get("X-INSEE-Api-Key-Integration"))
		w.Write([]byte(`{
			"etablissements": [
				{"etablissement": {
					"siret": "55208131766522",
					"trancheEffectifsEtablissement": "12",
					"etatAdministratifEtablissement": "A",
					"adresseEtablissement": {
						"libelleVoieEtablissement": "Rue de Rivoli",
						"codePostalEtablissement": "75004",
						"libelleCommuneEtablissement": "Paris"
					},
					"uniteLegale": {
						"siren": "552081317",
						"denominationUniteLegale": "GRANDE EPICERIE",
						"activitePrincipaleUniteLegale": "47.11F",
						"etatAdministratifUniteLegale": "A"
					}
				}}
			]
		}`))
	}))
	defer srv.Close()

	records := newTestClient("key-123", srv.URL).Search(context.Background(), "47.11F", "75", 10)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "GRANDE EPICERIE", r.Name)
	assert.Equal(t, "Rue de Rivoli, 75004 Paris", r.Address)
	assert.Equal(t, "55208131766522", r.Siret)
	assert.Equal(t, "552081317", r.Siren)
	assert.Equal(t, "47.11F", r.Sector)
	assert.Equal(t, "20 à 49 salariés", r.Workforce)
	assert.Equal(t, model.StatusActive, r.Status)
}

func TestSearch_FlatEstablishments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"etablissements": [
				{
					"siret": "12345678900011",
					"etatAdministratifEtablissement": "A",
					"uniteLegale": {
						"denominationUniteLegale": "SARL EXEMPLE",
						"etatAdministratifUniteLegale": "A"
					}
				}
			]
		}`))
	}))
	defer srv.Close()

	records := newTestClient("k", srv.URL).Search(context.Background(), "restaurant", "13", 10)
	require.Len(t, records, 1)
	assert.Equal(t, "SARL EXEMPLE", records[0].Name)
	// SIREN falls back to the SIRET prefix when the unité légale omits it.
	assert.Equal(t, "123456789", records[0].Siren)
	assert.Equal(t, model.StatusActive, records[0].Status)
	// Absent workforce code reads as the smallest band.
	assert.Equal(t, "0 à 1", records[0].Workforce)
}

func TestSearch_StatusFromPeriodHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"etablissements": [
				{
					"siret": "12345678900011",
					"periodesEtablissement": [
						{"etatAdministratifEtablissement": "A"},
						{"etatAdministratifEtablissement": "F"}
					],
					"uniteLegale": {"etatAdministratifUniteLegale": "A"}
				}
			]
		}`))
	}))
	defer srv.Close()

	records := newTestClient("k", srv.URL).Search(context.Background(), "restaurant", "13", 10)
	require.Len(t, records, 1)
	assert.Equal(t, model.StatusClosed, records[0].Status)
}

func TestSearch_ClosedLegalUnitWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"etablissements": [
				{
					"siret": "12345678900011",
					"etatAdministratifEtablissement": "A",
					"uniteLegale": {
						"periodesUniteLegale": [{"etatAdministratifUniteLegale": "C"}]
					}
				}
			]
		}`))
	}))
	defer srv.Close()

	records := newTestClient("k", srv.URL).Search(context.Background(), "restaurant", "13", 10)
	require.Len(t, records, 1)
	assert.Equal(t, model.StatusClosed, records[0].Status)
}

func TestSearch_CeasedEstablishment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"etablissements": [
				{"siret": "1", "etatAdministratifEtablissement": "C"},
				{"siret": "2"}
			]
		}`))
	}))
	defer srv.Close()

	records := newTestClient("k", srv.URL).Search(context.Background(), "restaurant", "13", 10)
	require.Len(t, records, 2)
	assert.Equal(t, model.StatusCeased, records[0].Status)
	assert.Equal(t, model.StatusUnknown, records[1].Status)
}

func TestSearch_UpstreamErrorFallsBackToDemo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	records := newTestClient("k", srv.URL).Search(context.Background(), "plomberie", "38", 10)
	require.Len(t, records, 2)
	assert.Contains(t, records[0].Name, "Plomberie")
	assert.Contains(t, records[0].Name, "38")
}

func TestSearch_MalformedBodyFallsBackToDemo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>gateway timeout</html>`))
	}))
	defer srv.Close()

	records := newTestClient("k", srv.URL).Search(context.Background(), "plomberie", "38", 10)
	require.Len(t, records, 2)
	assert.Equal(t, "12345678900011", records[0].Siret)
}

func TestSearch_LimitTruncatesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"etablissements": [
				{"siret": "1"}, {"siret": "2"}, {"siret": "3"}
			]
		}`))
	}))
	defer srv.Close()

	records := newTestClient("k", srv.URL).Search(context.Background(), "x1", "75", 2)
	assert.Len(t, records, 2)
}

func TestBuildQuery(t *testing.T) {
	// A sector with digits is a NAF code filter.
	assert.Equal(t,
		"activitePrincipaleUniteLegale:47.11F AND codePostalEtablissement:75*",
		buildQuery("47.11F", "75"))

	// A keyword sector becomes an accent-folded name prefix.
	assert.Equal(t,
		"denominationUniteLegale:creperie* AND codePostalEtablissement:29*",
		buildQuery("crêperie", "29"))
}

func TestSearch_RequestedCountIsCapped(t *testing.T) {
	var gotNombre string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotNombre = r.URL.Query().Get("nombre")
		w.Write([]byte(`{"etablissements": []}`))
	}))
	defer srv.Close()

	newTestClient("k", srv.URL).Search(context.Background(), "x1", "75", 5000)
	assert.Equal(t, "1000", gotNombre)
}
