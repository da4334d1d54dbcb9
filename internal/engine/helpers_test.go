package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// sample is the three-row fleet used across the engine tests:
//
//	Setor  Custo  Parado
//	A      100    2
//	A      50     5
//	B      300    1
func sample(t *testing.T) *Dataset {
	t.Helper()

	ds, err := NewDataset(
		Column{Name: "Setor", Values: []Value{Text("A"), Text("A"), Text("B")}},
		Column{Name: "Custo", Values: []Value{Number(100), Number(50), Number(300)}},
		Column{Name: "Parado", Values: []Value{Number(2), Number(5), Number(1)}},
	)
	require.NoError(t, err)
	return ds
}

func sampleRegistry(t *testing.T) *Registry {
	t.Helper()

	reg, err := NewRegistry(
		FilterSpec{ID: "sector", Column: "Setor"},
		FilterSpec{ID: "cost", Column: "Custo"},
		FilterSpec{ID: "downtime", Column: "Parado"},
	)
	require.NoError(t, err)
	return reg
}

func column(view View, name string) []string {
	out := make([]string, view.Len())
	for i := range out {
		out[i] = view.Value(i, name).String()
	}
	return out
}
