package engine

import (
	"math"
	"sort"
)

// ColumnType is the semantic type of a column.
type ColumnType int

const (
	Categorical ColumnType = iota
	Numeric
	Temporal
)

func (t ColumnType) String() string {
	switch t {
	case Numeric:
		return "numeric"
	case Temporal:
		return "temporal"
	default:
		return "categorical"
	}
}

func (t ColumnType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Filterable reports whether filters can target a column of this type.
func (t ColumnType) Filterable() bool {
	return t != Temporal
}

// ColumnInfo is what the introspector learned about one column.
type ColumnInfo struct {
	Name    string     `json:"name"`
	Type    ColumnType `json:"type"`
	Missing int        `json:"missing"`

	// Numeric columns only; nil otherwise.
	Bounds *Range `json:"bounds,omitempty"`

	// Categorical columns only, sorted.
	Distinct []string `json:"distinct,omitempty"`
}

// HasBounds reports whether the column has an observed numeric range.
func (c ColumnInfo) HasBounds() bool {
	return c.Bounds != nil
}

// Schema is the introspected type of every column of a Dataset.
type Schema struct {
	columns []ColumnInfo
	index   map[string]int
}

// Introspect classifies every column of ds. A column is Numeric when every
// non-missing value coerces to a number, Temporal when its values were parsed
// as timestamps at load, Categorical otherwise.
func Introspect(ds *Dataset) Schema {
	s := Schema{index: make(map[string]int, len(ds.names))}
	for c, name := range ds.names {
		s.index[name] = len(s.columns)
		s.columns = append(s.columns, inspectColumn(name, ds.cells[c]))
	}
	return s
}

func inspectColumn(name string, values []Value) ColumnInfo {
	info := ColumnInfo{Name: name}

	present, numeric, temporal := 0, 0, 0
	for _, v := range values {
		switch v.Kind() {
		case KindMissing:
			info.Missing++
			continue
		case KindTime:
			temporal++
		}
		present++
		if _, ok := v.Float(); ok {
			numeric++
		}
	}

	switch {
	case present > 0 && temporal == present:
		info.Type = Temporal
	case present > 0 && numeric == present:
		info.Type = Numeric
		info.Bounds = numericBounds(values)
	default:
		info.Type = Categorical
		info.Distinct = distinctSorted(values)
	}

	return info
}

func numericBounds(values []Value) *Range {
	var b *Range
	for _, v := range values {
		f, ok := v.Float()
		if !ok {
			continue
		}
		if b == nil {
			b = &Range{Min: f, Max: f}
			continue
		}
		b.Min = math.Min(b.Min, f)
		b.Max = math.Max(b.Max, f)
	}
	return b
}

func distinctSorted(values []Value) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, v := range values {
		if v.IsMissing() {
			continue
		}
		key := v.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// Column returns the introspected info for name.
func (s Schema) Column(name string) (ColumnInfo, bool) {
	i, ok := s.index[name]
	if !ok {
		return ColumnInfo{}, false
	}
	return s.columns[i], true
}

// Type returns the column type; ok is false for unknown columns.
func (s Schema) Type(name string) (ColumnType, bool) {
	c, ok := s.Column(name)
	return c.Type, ok
}

// Distinct returns the sorted distinct values of a categorical column.
func (s Schema) Distinct(name string) []string {
	c, _ := s.Column(name)
	out := make([]string, len(c.Distinct))
	copy(out, c.Distinct)
	return out
}

// Columns returns every column in dataset order.
func (s Schema) Columns() []ColumnInfo {
	out := make([]ColumnInfo, len(s.columns))
	copy(out, s.columns)
	return out
}
