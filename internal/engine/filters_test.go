package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	_, err := NewRegistry(FilterSpec{ID: "a", Column: "x"}, FilterSpec{ID: "a", Column: "y"})
	assert.ErrorIs(t, err, ErrDuplicateFilter)

	_, err = NewRegistry(FilterSpec{ID: "a"})
	assert.ErrorIs(t, err, ErrInvalidFilter)

	reg := sampleRegistry(t)
	assert.Equal(t, "cost", reg.Specs()[1].ID)
	spec, ok := reg.Lookup("downtime")
	require.True(t, ok)
	assert.Equal(t, "Parado", spec.Column)
}

func TestApply(t *testing.T) {
	ds := sample(t)
	schema := Introspect(ds)
	reg := sampleRegistry(t)

	tests := []struct {
		name string
		sel  Selection
		rows []int
	}{
		{"no selection", Selection{}, []int{0, 1, 2}},
		{"disabled filters pass everything", Selection{
			"sector": {Enabled: false, Values: []string{"B"}},
		}, []int{0, 1, 2}},
		{"numeric range is closed", Selection{
			"cost": {Enabled: true, Range: &Range{Min: 50, Max: 100}},
		}, []int{0, 1}},
		{"cost between 60 and 300", Selection{
			"cost": {Enabled: true, Range: &Range{Min: 60, Max: 300}},
		}, []int{0, 2}},
		{"filters combine with and", Selection{
			"cost":   {Enabled: true, Range: &Range{Min: 60, Max: 300}},
			"sector": {Enabled: true, Values: []string{"B"}},
		}, []int{2}},
		{"nil range is unbounded", Selection{
			"downtime": {Enabled: true},
		}, []int{0, 1, 2}},
		{"unknown ids are ignored", Selection{
			"ghost": {Enabled: true, Values: []string{"nothing"}},
		}, []int{0, 1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := Apply(ds.All(), schema, reg, tt.sel)
			require.NoError(t, err)
			assert.Equal(t, tt.rows, view.Rows())
		})
	}
}

func TestApply_EmptyResult(t *testing.T) {
	ds := sample(t)
	schema := Introspect(ds)
	reg := sampleRegistry(t)

	t.Run("empty categorical set keeps nothing", func(t *testing.T) {
		view, err := Apply(ds.All(), schema, reg, Selection{"sector": {Enabled: true, Values: []string{}}})
		assert.ErrorIs(t, err, ErrEmptyResult)
		assert.True(t, view.Empty())
	})

	t.Run("range outside the data", func(t *testing.T) {
		view, err := Apply(ds.All(), schema, reg, Selection{"cost": {Enabled: true, Range: &Range{Min: 1000, Max: 2000}}})
		assert.ErrorIs(t, err, ErrEmptyResult)
		assert.Zero(t, view.Len())
	})
}

func TestApply_Properties(t *testing.T) {
	ds := sample(t)
	schema := Introspect(ds)
	reg := sampleRegistry(t)

	sel := Selection{
		"cost":     {Enabled: true, Range: &Range{Min: 60, Max: 400}},
		"downtime": {Enabled: true, Range: &Range{Min: 1, Max: 2}},
	}
	view, err := Apply(ds.All(), schema, reg, sel)
	require.NoError(t, err)

	// every surviving row satisfies every enabled filter
	for i := 0; i < view.Len(); i++ {
		c, _ := view.Value(i, "Custo").Float()
		d, _ := view.Value(i, "Parado").Float()
		assert.True(t, sel["cost"].Range.Contains(c))
		assert.True(t, sel["downtime"].Range.Contains(d))
	}

	// applying again changes nothing
	again, err := Apply(view, schema, reg, sel)
	require.NoError(t, err)
	assert.Equal(t, view.Rows(), again.Rows())

	// enabling one more filter never grows the result
	narrower := sel.Clone()
	narrower["sector"] = FilterState{Enabled: true, Values: []string{"A"}}
	fewer, _ := Apply(ds.All(), schema, reg, narrower)
	assert.LessOrEqual(t, fewer.Len(), view.Len())
}

func TestApply_SkipsMismatchedFilters(t *testing.T) {
	ds := sample(t)
	reg, err := NewRegistry(
		FilterSpec{ID: "model", Column: "Modelo"},
		FilterSpec{ID: "sector", Column: "Setor"},
	)
	require.NoError(t, err)
	schema := Introspect(ds)

	active, skipped := reg.Resolve(schema)
	require.Len(t, active, 1)
	assert.Equal(t, "sector", active[0].ID)
	assert.Equal(t, []FilterSpec{{ID: "model", Column: "Modelo"}}, skipped)

	view, err := Apply(ds.All(), schema, reg, Selection{
		"model":  {Enabled: true, Values: []string{"M-1"}},
		"sector": {Enabled: true, Values: []string{"A"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, view.Rows())
}

func TestApply_MissingValuesNeverPass(t *testing.T) {
	ds, err := NewDataset(
		Column{Name: "Setor", Values: []Value{Text("A"), Missing()}},
		Column{Name: "Custo", Values: []Value{Missing(), Number(10)}},
	)
	require.NoError(t, err)
	reg, err := NewRegistry(FilterSpec{ID: "sector", Column: "Setor"}, FilterSpec{ID: "cost", Column: "Custo"})
	require.NoError(t, err)
	schema := Introspect(ds)

	view, err := Apply(ds.All(), schema, reg, Selection{"cost": {Enabled: true}})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, view.Rows())

	view, err = Apply(ds.All(), schema, reg, Selection{"sector": {Enabled: true, Values: []string{"A", ""}}})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, view.Rows())
}

func TestSelectionStore(t *testing.T) {
	ds := sample(t)
	store := NewSelectionStore(sampleRegistry(t), Introspect(ds))

	t.Run("defaults are disabled and cover the data", func(t *testing.T) {
		st, ok := store.State("cost")
		require.True(t, ok)
		assert.False(t, st.Enabled)
		assert.Equal(t, &Range{Min: 50, Max: 300}, st.Range)

		st, ok = store.State("sector")
		require.True(t, ok)
		assert.Equal(t, []string{"A", "B"}, st.Values)
	})

	t.Run("toggling keeps the stored value", func(t *testing.T) {
		require.NoError(t, store.SetRange("cost", Range{Min: 60, Max: 300}))
		require.NoError(t, store.SetEnabled("cost", true))
		require.NoError(t, store.SetEnabled("cost", false))
		require.NoError(t, store.SetEnabled("cost", true))

		st, _ := store.State("cost")
		assert.True(t, st.Enabled)
		assert.Equal(t, &Range{Min: 60, Max: 300}, st.Range)
	})

	t.Run("snapshot is independent", func(t *testing.T) {
		snap := store.Snapshot()
		snap["cost"].Range.Min = 0
		st, _ := store.State("cost")
		assert.InDelta(t, 60.0, st.Range.Min, 1e-9)
	})

	t.Run("reset restores the default", func(t *testing.T) {
		require.NoError(t, store.Reset("cost"))
		st, _ := store.State("cost")
		def, err := store.Default("cost")
		require.NoError(t, err)
		assert.Equal(t, def, st)
	})

	t.Run("errors", func(t *testing.T) {
		assert.ErrorIs(t, store.SetEnabled("ghost", true), ErrUnknownFilter)
		assert.ErrorIs(t, store.SetRange("sector", Range{}), ErrWrongFilterKind)
		assert.ErrorIs(t, store.SetValues("cost", []string{"1"}), ErrWrongFilterKind)
		assert.ErrorIs(t, store.SetRange("cost", Range{Min: 2, Max: 1}), ErrInvalidRange)
	})
}

func TestSelectionStore_UnfilterableColumn(t *testing.T) {
	ds := sample(t)
	reg, err := NewRegistry(FilterSpec{ID: "model", Column: "Modelo"})
	require.NoError(t, err)
	store := NewSelectionStore(reg, Introspect(ds))

	_, ok := store.State("model")
	assert.False(t, ok)
	assert.ErrorIs(t, store.SetEnabled("model", true), ErrNotFilterable)
	assert.Empty(t, store.Snapshot())
}

func TestSelection_EnabledIDs(t *testing.T) {
	sel := Selection{
		"b": {Enabled: true},
		"a": {Enabled: true},
		"c": {},
	}
	assert.Equal(t, []string{"a", "b"}, sel.EnabledIDs())
}

func TestSelectionStore_Put(t *testing.T) {
	ds := sample(t)
	store := NewSelectionStore(sampleRegistry(t), Introspect(ds))
	before := store.Snapshot()

	assert.ErrorIs(t, store.Put("cost", FilterState{Enabled: true, Range: &Range{Min: 60, Max: 300}, Values: []string{"x"}}), ErrWrongFilterKind)
	assert.ErrorIs(t, store.Put("cost", FilterState{Enabled: true, Range: &Range{Min: 9, Max: 1}}), ErrInvalidRange)
	assert.ErrorIs(t, store.Put("sector", FilterState{Range: &Range{}}), ErrWrongFilterKind)
	assert.ErrorIs(t, store.Put("ghost", FilterState{}), ErrUnknownFilter)
	assert.Equal(t, before, store.Snapshot(), "rejected states are not stored")

	values := []string{"B"}
	require.NoError(t, store.Put("sector", FilterState{Enabled: true, Values: values}))
	values[0] = "A"

	st, _ := store.State("sector")
	assert.Equal(t, FilterState{Enabled: true, Values: []string{"B"}}, st)
}
