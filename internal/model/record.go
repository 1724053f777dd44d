// Package model defines the core record types shared across the pipeline.
package model

// RecordStatus is the displayed administrative status of an establishment.
//
// The registry reports establishment and legal-unit statuses separately;
// pkg/sirene combines them into a single display value. Combined values
// ("Closed / Ceased") are possible, so comparisons should use the constants
// below rather than exhaustive switches.
type RecordStatus string

const (
	StatusActive  RecordStatus = "Active"
	StatusClosed  RecordStatus = "Closed"
	StatusCeased  RecordStatus = "Ceased"
	StatusUnknown RecordStatus = "Unknown"
)

// CompanyRecord is one establishment as returned by the registry search.
// Records are rebuilt on every query and never persisted.
type CompanyRecord struct {
	Name      string       `json:"nom"`
	Address   string       `json:"adresse"`
	Phone     string       `json:"telephone"`
	Sector    string       `json:"secteur"`
	Siret     string       `json:"siret"`
	Siren     string       `json:"siren"`
	Officer   string       `json:"dirigeant"`
	Workforce string       `json:"effectif"`
	Status    RecordStatus `json:"etat"`
}

// DeriveSiren returns the SIREN for a record: the explicit value when the
// registry supplied one, otherwise the first 9 digits of the SIRET.
func DeriveSiren(siren, siret string) string {
	if siren != "" {
		return siren
	}
	if len(siret) >= 9 {
		return siret[:9]
	}
	return ""
}

// EnrichedRecord is a CompanyRecord plus request-scoped derived fields:
// deep links to external lookup pages, the resolved training-fund
// affiliation, and the operator's stored annotation.
type EnrichedRecord struct {
	CompanyRecord

	PappersURL     string `json:"pappers_url"`
	PagesJaunesURL string `json:"pagesjaunes_url"`
	OpcoURL        string `json:"opco_url"`

	Opco string `json:"opco,omitempty"`
	IDCC string `json:"idcc,omitempty"`

	Annotation Annotation `json:"annotation"`
}

// AnnotationStatusDefault is the status assigned to a company the operator
// has not processed yet.
const AnnotationStatusDefault = "A traiter"

// Annotation holds the operator's per-establishment notes, keyed by SIRET.
// Unlike CompanyRecord it is persisted and survives across searches.
type Annotation struct {
	Siret        string `json:"siret"`
	Status       string `json:"statut"`
	LastModified string `json:"date_modification"`
	Funbooster   string `json:"funbooster"`
	Observation  string `json:"observation"`
}

// DefaultAnnotation returns the annotation shown for a SIRET that has never
// been saved.
func DefaultAnnotation(siret string) Annotation {
	return Annotation{Siret: siret, Status: AnnotationStatusDefault}
}

// workforceLabels maps INSEE tranche d'effectifs codes to display labels.
var workforceLabels = map[string]string{
	"00": "0 salarié (ayant employé des salariés au cours de l'année)",
	"01": "1 ou 2 salariés",
	"02": "3 à 5 salariés",
	"03": "6 à 9 salariés",
	"11": "10 à 19 salariés",
	"12": "20 à 49 salariés",
	"21": "50 à 99 salariés",
	"22": "100 à 199 salariés",
	"31": "200 à 249 salariés",
	"32": "250 à 499 salariés",
	"41": "500 à 999 salariés",
	"42": "1 000 à 1 999 salariés",
	"51": "2 000 à 4 999 salariés",
	"52": "5 000 à 9 999 salariés",
	"53": "10 000 salariés et plus",
}

// WorkforceLabel translates a tranche d'effectifs code into a readable
// label. A missing code or the "NN" sentinel (non-employer or unknown)
// displays as "0 à 1", which is deliberately distinct from the genuine
// small bands ("00", "01"). Unmapped codes pass through unchanged.
func WorkforceLabel(code string) string {
	if code == "" || code == "NN" {
		return "0 à 1"
	}
	if label, ok := workforceLabels[code]; ok {
		return label
	}
	return code
}
