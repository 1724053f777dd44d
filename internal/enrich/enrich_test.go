package enrich

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teleconseil/prospect-cli/internal/model"
)

type fakeRegistry struct {
	records []model.CompanyRecord
	demo    bool
	calls   int
}

func (f *fakeRegistry) Search(_ context.Context, _, _ string, _ int) []model.CompanyRecord {
	f.calls++
	return f.records
}

func (f *fakeRegistry) Demo() bool { return f.demo }

type fakeDirectory struct {
	phones map[string]string
	calls  []string
}

func (f *fakeDirectory) LookupPhone(_ context.Context, name, _ string) (string, bool) {
	f.calls = append(f.calls, name)
	phone, ok := f.phones[name]
	return phone, ok
}

type fakeFunds struct {
	opco string
	idcc string
}

func (f *fakeFunds) Resolve(_ context.Context, _, _ string) (string, string) {
	return f.opco, f.idcc
}

type fakeStore struct {
	annotations map[string]model.Annotation
	err         error
}

func (f *fakeStore) All(_ context.Context) (map[string]model.Annotation, error) {
	return f.annotations, f.err
}

func activeRecord() model.CompanyRecord {
	return model.CompanyRecord{
		Name:    "Boulangerie Dupont",
		Address: "10 Rue de la Paix, 75002 Paris",
		Sector:  "10.71C",
		Siret:   "12345678900011",
		Siren:   "123456789",
		Status:  model.StatusActive,
	}
}

func TestRun_RequiresCriteria(t *testing.T) {
	reg := &fakeRegistry{}
	e := New(reg, nil, nil, nil)

	_, err := e.Run(context.Background(), "", "75", 10)
	assert.ErrorIs(t, err, ErrMissingCriteria)

	_, err = e.Run(context.Background(), "boulangerie", "  ", 10)
	assert.ErrorIs(t, err, ErrMissingCriteria)

	// Validation happens before any registry call.
	assert.Zero(t, reg.calls)
}

func TestRun_KeepsOnlyActiveRecords(t *testing.T) {
	closed := activeRecord()
	closed.Siret = "98765432100022"
	closed.Status = model.StatusClosed

	reg := &fakeRegistry{records: []model.CompanyRecord{activeRecord(), closed}}
	e := New(reg, nil, nil, nil)

	out, err := e.Run(context.Background(), "boulangerie", "75", 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "12345678900011", out[0].Siret)
}

func TestRun_AttachesLinks(t *testing.T) {
	reg := &fakeRegistry{records: []model.CompanyRecord{activeRecord()}}
	e := New(reg, nil, nil, nil)

	out, err := e.Run(context.Background(), "boulangerie", "75", 10)
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Contains(t, out[0].PappersURL, "123456789")
	assert.Contains(t, out[0].PagesJaunesURL, "75002")
	assert.Contains(t, out[0].OpcoURL, "12345678900011")
}

func TestRun_NoPostalCodeNoDirectoryLink(t *testing.T) {
	rec := activeRecord()
	rec.Address = "Lieu-dit Les Granges"
	reg := &fakeRegistry{records: []model.CompanyRecord{rec}}
	e := New(reg, nil, nil, nil)

	out, err := e.Run(context.Background(), "boulangerie", "75", 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Empty(t, out[0].PagesJaunesURL)
	assert.NotEmpty(t, out[0].PappersURL)
}

func TestRun_PhoneLookup(t *testing.T) {
	reg := &fakeRegistry{records: []model.CompanyRecord{activeRecord()}}
	dir := &fakeDirectory{phones: map[string]string{"Boulangerie Dupont": "01 23 45 67 89"}}
	e := New(reg, nil, dir, nil)

	out, err := e.Run(context.Background(), "boulangerie", "75", 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "01 23 45 67 89", out[0].Phone)
}

func TestRun_ExistingPhoneNotOverwritten(t *testing.T) {
	rec := activeRecord()
	rec.Phone = "04 00 00 00 00"
	reg := &fakeRegistry{records: []model.CompanyRecord{rec}}
	dir := &fakeDirectory{phones: map[string]string{"Boulangerie Dupont": "01 23 45 67 89"}}
	e := New(reg, nil, dir, nil)

	out, err := e.Run(context.Background(), "boulangerie", "75", 10)
	require.NoError(t, err)
	assert.Equal(t, "04 00 00 00 00", out[0].Phone)
	assert.Empty(t, dir.calls)
}

func TestRun_FundsResolution(t *testing.T) {
	reg := &fakeRegistry{records: []model.CompanyRecord{activeRecord()}}
	e := New(reg, nil, nil, &fakeFunds{opco: "OPCO 2i", idcc: "2120"})

	out, err := e.Run(context.Background(), "boulangerie", "75", 10)
	require.NoError(t, err)
	assert.Equal(t, "OPCO 2i", out[0].Opco)
	assert.Equal(t, "2120", out[0].IDCC)
}

func TestRun_MergesStoredAnnotations(t *testing.T) {
	reg := &fakeRegistry{records: []model.CompanyRecord{activeRecord()}}
	st := &fakeStore{annotations: map[string]model.Annotation{
		"12345678900011": {Siret: "12345678900011", Status: "Contacté", Observation: "devis envoyé"},
	}}
	e := New(reg, st, nil, nil)

	out, err := e.Run(context.Background(), "boulangerie", "75", 10)
	require.NoError(t, err)
	assert.Equal(t, "Contacté", out[0].Annotation.Status)
	assert.Equal(t, "devis envoyé", out[0].Annotation.Observation)
}

func TestRun_DefaultAnnotationWhenUnstored(t *testing.T) {
	reg := &fakeRegistry{records: []model.CompanyRecord{activeRecord()}}
	e := New(reg, &fakeStore{}, nil, nil)

	out, err := e.Run(context.Background(), "boulangerie", "75", 10)
	require.NoError(t, err)
	assert.Equal(t, model.AnnotationStatusDefault, out[0].Annotation.Status)
	assert.Equal(t, "12345678900011", out[0].Annotation.Siret)
}

func TestRun_StoreFailureDegradesToDefaults(t *testing.T) {
	reg := &fakeRegistry{records: []model.CompanyRecord{activeRecord()}}
	st := &fakeStore{err: eris.New("disk full")}
	e := New(reg, st, nil, nil)

	out, err := e.Run(context.Background(), "boulangerie", "75", 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, model.AnnotationStatusDefault, out[0].Annotation.Status)
}
