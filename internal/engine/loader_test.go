package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	csvContent := `  setor ,CUSTO MANUTENCAO,Data Manutenção,Notas,Notas
Produção,100,2024-01-10,ok,x
Logística, 250.5 ,10/02/2024,,y
Qualidade,abc,not-a-date,late
`
	log, _ := test.NewNullLogger()

	ds, err := ReadCSV(strings.NewReader(csvContent), LoadOptions{
		Columns:  []string{"Setor", "Custo Manutenção", "Data Manutenção"},
		Numeric:  []string{"Custo Manutenção"},
		Temporal: []string{"Data Manutenção"},
	}, log)
	require.NoError(t, err)

	// 1. Header folding
	assert.Equal(t, []string{"Setor", "Custo Manutenção", "Data Manutenção", "Notas", "Notas.1"}, ds.Columns())
	require.Equal(t, 3, ds.Len())

	// 2. Coercion
	assert.Equal(t, "Produção", ds.Value(0, "Setor").String())
	cost, ok := ds.Value(1, "Custo Manutenção").Float()
	require.True(t, ok)
	assert.InDelta(t, 250.5, cost, 1e-9)
	assert.True(t, ds.Value(2, "Custo Manutenção").IsMissing())

	ts, ok := ds.Value(1, "Data Manutenção").Timestamp()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), ts)
	assert.True(t, ds.Value(2, "Data Manutenção").IsMissing())

	// 3. Empty and short records
	assert.True(t, ds.Value(1, "Notas").IsMissing())
	assert.True(t, ds.Value(2, "Notas.1").IsMissing())

	// 4. Types survive introspection
	s := Introspect(ds)
	typ, _ := s.Type("Custo Manutenção")
	assert.Equal(t, Numeric, typ)
	typ, _ = s.Type("Data Manutenção")
	assert.Equal(t, Temporal, typ)
}

func TestReadCSV_SkipsMalformedRecords(t *testing.T) {
	log, hook := test.NewNullLogger()

	ds, err := ReadCSV(strings.NewReader("a,b\n1,2\n\"broken,3\n"), LoadOptions{}, log)
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Message == "Skipping malformed record" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestReadCSV_NoHeader(t *testing.T) {
	log, _ := test.NewNullLogger()
	_, err := ReadCSV(strings.NewReader(""), LoadOptions{}, log)
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestLoadCSV(t *testing.T) {
	log, _ := test.NewNullLogger()

	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("Setor;Custo\nA;1\n"), 0o600))

	ds, err := LoadCSV(path, LoadOptions{Comma: ';', Numeric: []string{"Custo"}}, log)
	require.NoError(t, err)
	assert.Equal(t, []string{"Setor", "Custo"}, ds.Columns())
	assert.Equal(t, 1, ds.Len())

	_, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"), LoadOptions{}, log)
	assert.Error(t, err)
}

func TestFoldName(t *testing.T) {
	assert.Equal(t, "tipo manutencao", FoldName("  Tipo Manutenção "))
	assert.Equal(t, FoldName("SETOR"), FoldName("setor"))
}

func TestReadCSV_DuplicateHeaders(t *testing.T) {
	log, _ := test.NewNullLogger()

	tests := []struct {
		header string
		want   []string
	}{
		{"a,a,a", []string{"a", "a.1", "a.2"}},
		{"a.1,a,a", []string{"a.1", "a", "a.2"}},
		{"a,a,a.1", []string{"a", "a.2", "a.1"}},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			ds, err := ReadCSV(strings.NewReader(tt.header+"\n1,2,3\n"), LoadOptions{}, log)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ds.Columns())
		})
	}
}
