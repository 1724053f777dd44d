package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveSiren(t *testing.T) {
	tests := []struct {
		name  string
		siren string
		siret string
		want  string
	}{
		{"explicit siren wins", "111111111", "98765432100022", "111111111"},
		{"derived from siret", "", "98765432100022", "987654321"},
		{"exactly nine digits", "", "123456789", "123456789"},
		{"siret too short", "", "12345678", ""},
		{"both empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveSiren(tt.siren, tt.siret))
		})
	}
}

func TestDeriveSiren_PrefixInvariant(t *testing.T) {
	// For any SIRET of length >= 9, the derived SIREN is its 9-char prefix.
	for _, siret := range []string{"123456789", "1234567890", "12345678900011"} {
		got := DeriveSiren("", siret)
		assert.Len(t, got, 9)
		assert.Equal(t, siret[:9], got)
	}
}

func TestWorkforceLabel(t *testing.T) {
	assert.Equal(t, "0 à 1", WorkforceLabel(""))
	assert.Equal(t, "0 à 1", WorkforceLabel("NN"))
	assert.Equal(t, "3 à 5 salariés", WorkforceLabel("02"))
	assert.Equal(t, "10 000 salariés et plus", WorkforceLabel("53"))

	// Unknown codes pass through rather than disappearing.
	assert.Equal(t, "99", WorkforceLabel("99"))
}

func TestWorkforceLabel_UnknownDistinctFromSmallBands(t *testing.T) {
	unknown := WorkforceLabel("NN")
	assert.NotEqual(t, unknown, WorkforceLabel("00"))
	assert.NotEqual(t, unknown, WorkforceLabel("01"))
}

func TestDefaultAnnotation(t *testing.T) {
	a := DefaultAnnotation("12345678900011")
	assert.Equal(t, "12345678900011", a.Siret)
	assert.Equal(t, AnnotationStatusDefault, a.Status)
	assert.Empty(t, a.LastModified)
	assert.Empty(t, a.Funbooster)
	assert.Empty(t, a.Observation)
}
