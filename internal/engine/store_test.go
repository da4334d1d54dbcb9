package engine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue(t *testing.T) {
	tests := []struct {
		name    string
		v       Value
		kind    Kind
		f       float64
		numeric bool
		label   string
	}{
		{"missing", Missing(), KindMissing, 0, false, ""},
		{"number", Number(2.5), KindNumber, 2.5, true, "2.5"},
		{"nan is missing", Number(math.NaN()), KindMissing, 0, false, ""},
		{"numeric text", Text(" 42 "), KindText, 42, true, " 42 "},
		{"plain text", Text("abc"), KindText, 0, false, "abc"},
		{"infinite text", Text("Inf"), KindText, 0, false, "Inf"},
		{"time", Time(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)), KindTime, 0, false, "2024-01-10T00:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.v.Kind())
			f, ok := tt.v.Float()
			assert.Equal(t, tt.numeric, ok)
			assert.InDelta(t, tt.f, f, 1e-9)
			assert.Equal(t, tt.label, tt.v.String())
		})
	}
}

func TestNewDataset(t *testing.T) {
	ds := sample(t)

	assert.NotEmpty(t, ds.ID)
	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, []string{"Setor", "Custo", "Parado"}, ds.Columns())
	assert.True(t, ds.HasColumn("Custo"))
	assert.False(t, ds.HasColumn("Modelo"))
	assert.True(t, ds.Value(0, "Modelo").IsMissing())

	t.Run("duplicate column", func(t *testing.T) {
		_, err := NewDataset(Column{Name: "a"}, Column{Name: "a"})
		assert.ErrorIs(t, err, ErrDuplicateColumn)
	})

	t.Run("ragged columns", func(t *testing.T) {
		_, err := NewDataset(
			Column{Name: "a", Values: []Value{Number(1)}},
			Column{Name: "b", Values: []Value{Number(1), Number(2)}},
		)
		assert.ErrorIs(t, err, ErrRaggedColumns)
	})

	t.Run("input slices are copied", func(t *testing.T) {
		vals := []Value{Number(1)}
		ds, err := NewDataset(Column{Name: "a", Values: vals})
		require.NoError(t, err)
		vals[0] = Number(9)
		assert.Equal(t, "1", ds.Value(0, "a").String())
	})
}

func TestView(t *testing.T) {
	ds := sample(t)
	all := ds.All()

	assert.Equal(t, 3, all.Len())
	assert.Equal(t, []int{0, 1, 2}, all.Rows())

	sub := all.subset([]int{2})
	assert.Equal(t, 1, sub.Len())
	assert.Equal(t, 2, sub.Row(0))
	assert.Equal(t, "B", sub.Value(0, "Setor").String())
	assert.Same(t, ds, sub.Dataset())

	rows := sub.Rows()
	rows[0] = 0
	assert.Equal(t, 2, sub.Row(0), "Rows returns a copy")
}
