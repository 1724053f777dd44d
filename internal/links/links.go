// Package links builds deep links to external lookup pages from company
// identifiers. All generators are pure: on unmet preconditions they return
// an empty string, which callers treat as "no link".
package links

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	pappersBaseURL     = "https://www.pappers.fr/recherche"
	pagesJaunesBaseURL = "https://www.pagesjaunes.fr/recherche"
	opcoBaseURL        = "https://quel-est-mon-opco.francecompetences.fr/"
)

var postalCodeRe = regexp.MustCompile(`\b(\d{5})\b`)

// PostalCode extracts the first 5-digit postal code from a free-form
// address line.
func PostalCode(address string) (string, bool) {
	m := postalCodeRe.FindStringSubmatch(address)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// PappersURL returns a Pappers search link for looking up company officers
// by SIREN. Requires at least 9 identifier characters.
func PappersURL(siren string) string {
	if len(siren) < 9 {
		return ""
	}
	return fmt.Sprintf("%s?q=%s", pappersBaseURL, url.QueryEscape(siren))
}

// PagesJaunesURL returns a PagesJaunes search link for looking up a
// company's phone number. Without a postal code the link would be too
// imprecise to be useful, so none is produced.
func PagesJaunesURL(name, address string) string {
	if strings.TrimSpace(name) == "" {
		return ""
	}
	cp, ok := PostalCode(address)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s/%s/%s", pagesJaunesBaseURL, cp, url.PathEscape(strings.TrimSpace(name)))
}

// OpcoURL returns a link to the France Compétences "Quel est mon OPCO ?"
// portal with the SIRET pre-filled. The portal expects a full 14-digit
// SIRET; anything else produces no link.
func OpcoURL(siret string) string {
	siret = strings.TrimSpace(siret)
	if len(siret) != 14 || !IsDigits(siret) {
		return ""
	}
	return fmt.Sprintf("%s?siret=%s", opcoBaseURL, siret)
}

// IsDigits reports whether s is non-empty and entirely ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
