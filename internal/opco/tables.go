// Package opco resolves a company's training-fund operator (OPCO) and
// collective-agreement code (IDCC), first through the France Compétences
// lookup, then through static APE-code mapping tables.
package opco

import (
	_ "embed"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var tablesYAML []byte

// Tables holds the static APE→IDCC and IDCC→OPCO fallback mappings.
type Tables struct {
	APEToIDCC  map[string]string `yaml:"ape_to_idcc"`
	IDCCToOPCO map[string]string `yaml:"idcc_to_opco"`
}

// LoadTables parses the embedded mapping tables. Called once at startup.
func LoadTables() (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(tablesYAML, &t); err != nil {
		return nil, eris.Wrap(err, "opco: parse tables")
	}
	if len(t.APEToIDCC) == 0 || len(t.IDCCToOPCO) == 0 {
		return nil, eris.New("opco: embedded tables are empty")
	}
	return &t, nil
}

// NormalizeAPE strips separators from an APE/NAF code and uppercases it,
// so "47.11C" and "4711c" both normalize to "4711C".
func NormalizeAPE(code string) string {
	code = strings.TrimSpace(code)
	code = strings.NewReplacer(".", "", "-", "", " ", "").Replace(code)
	return strings.ToUpper(code)
}

// IDCCForAPE resolves a collective-agreement code from an APE code by
// longest-prefix match: the full normalized code first, then the 4-, 3-
// and 2-digit prefixes. Returns "" when nothing matches.
func (t *Tables) IDCCForAPE(ape string) string {
	norm := NormalizeAPE(ape)
	if norm == "" {
		return ""
	}

	candidates := []string{norm}
	for _, n := range []int{4, 3, 2} {
		if len(norm) > n {
			candidates = append(candidates, norm[:n])
		}
	}

	for _, c := range candidates {
		if idcc, ok := t.APEToIDCC[c]; ok {
			return idcc
		}
	}
	return ""
}

// OPCOForIDCC resolves the training-fund operator for an agreement code.
// Exact match only; returns "" when unknown.
func (t *Tables) OPCOForIDCC(idcc string) string {
	return t.IDCCToOPCO[strings.TrimSpace(idcc)]
}
