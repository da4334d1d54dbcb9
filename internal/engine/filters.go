package engine

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrEmptyResult     = errors.New("no rows match the selected filters")
	ErrUnknownFilter   = errors.New("unknown filter")
	ErrDuplicateFilter = errors.New("duplicate filter id")
	ErrInvalidFilter   = errors.New("filter needs an id and a column")
	ErrNotFilterable   = errors.New("filter column is missing or not filterable")
	ErrWrongFilterKind = errors.New("value does not match the filter's column type")
	ErrInvalidRange    = errors.New("range min is greater than max")
)

// FilterSpec declares one filter: an id and the column it targets.
type FilterSpec struct {
	ID     string `yaml:"id" json:"id"`
	Column string `yaml:"column" json:"column"`
}

// Registry is the fixed, ordered list of declared filters.
type Registry struct {
	specs []FilterSpec
	index map[string]int
}

// NewRegistry validates specs and keeps their order.
func NewRegistry(specs ...FilterSpec) (*Registry, error) {
	r := &Registry{
		specs: make([]FilterSpec, 0, len(specs)),
		index: make(map[string]int, len(specs)),
	}
	for _, s := range specs {
		if s.ID == "" || s.Column == "" {
			return nil, fmt.Errorf("%w: %+v", ErrInvalidFilter, s)
		}
		if _, dup := r.index[s.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateFilter, s.ID)
		}
		r.index[s.ID] = len(r.specs)
		r.specs = append(r.specs, s)
	}
	return r, nil
}

// Specs returns the declared filters in order.
func (r *Registry) Specs() []FilterSpec {
	out := make([]FilterSpec, len(r.specs))
	copy(out, r.specs)
	return out
}

func (r *Registry) Lookup(id string) (FilterSpec, bool) {
	i, ok := r.index[id]
	if !ok {
		return FilterSpec{}, false
	}
	return r.specs[i], true
}

// Resolve pairs every declared filter with its column type. Filters whose
// column is absent from the schema, or is temporal, come back in skipped.
func (r *Registry) Resolve(schema Schema) (active []ResolvedFilter, skipped []FilterSpec) {
	for _, s := range r.specs {
		t, ok := schema.Type(s.Column)
		if !ok || !t.Filterable() {
			skipped = append(skipped, s)
			continue
		}
		active = append(active, ResolvedFilter{FilterSpec: s, Type: t})
	}
	return active, skipped
}

// ResolvedFilter is a declared filter whose column exists and can be filtered.
type ResolvedFilter struct {
	FilterSpec
	Type ColumnType
}

// Range is a closed numeric interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r Range) Contains(f float64) bool {
	return f >= r.Min && f <= r.Max
}

// FilterState is the enabled flag and chosen value of one filter.
// Range is used by numeric filters, Values by categorical ones.
type FilterState struct {
	Enabled bool     `json:"enabled"`
	Range   *Range   `json:"range,omitempty"`
	Values  []string `json:"values,omitempty"`
}

func (s FilterState) clone() FilterState {
	out := FilterState{Enabled: s.Enabled}
	if s.Range != nil {
		r := *s.Range
		out.Range = &r
	}
	if s.Values != nil {
		out.Values = make([]string, len(s.Values))
		copy(out.Values, s.Values)
	}
	return out
}

// Selection maps filter ids to their state. Entries for ids the registry
// does not know are ignored.
type Selection map[string]FilterState

// Clone returns a deep copy.
func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	for id, st := range s {
		out[id] = st.clone()
	}
	return out
}

// EnabledIDs returns the ids of enabled entries, sorted.
func (s Selection) EnabledIDs() []string {
	ids := make([]string, 0, len(s))
	for id, st := range s {
		if st.Enabled {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Apply narrows view by every enabled filter of the selection, in registry
// order. Numeric filters keep rows inside the closed range, a nil range
// meaning unbounded; missing values never pass. Categorical filters keep rows
// whose value is in the selected set, and an empty set keeps nothing.
// Filters on unknown or temporal columns are skipped.
//
// An empty result is returned together with ErrEmptyResult.
func Apply(view View, schema Schema, reg *Registry, sel Selection) (View, error) {
	active, _ := reg.Resolve(schema)

	out := view
	for _, f := range active {
		st, ok := sel[f.ID]
		if !ok || !st.Enabled {
			continue
		}
		out = out.subset(filterRows(out, f, st))
	}

	if out.Empty() {
		return out, ErrEmptyResult
	}
	return out, nil
}

func filterRows(view View, f ResolvedFilter, st FilterState) []int {
	keep := make([]int, 0, view.Len())

	switch f.Type {
	case Numeric:
		rng := Range{Min: math.Inf(-1), Max: math.Inf(1)}
		if st.Range != nil {
			rng = *st.Range
		}
		for i := 0; i < view.Len(); i++ {
			if v, ok := view.Value(i, f.Column).Float(); ok && rng.Contains(v) {
				keep = append(keep, view.Row(i))
			}
		}

	case Categorical:
		allowed := make(map[string]struct{}, len(st.Values))
		for _, v := range st.Values {
			allowed[v] = struct{}{}
		}
		for i := 0; i < view.Len(); i++ {
			v := view.Value(i, f.Column)
			if v.IsMissing() {
				continue
			}
			if _, ok := allowed[v.String()]; ok {
				keep = append(keep, view.Row(i))
			}
		}
	}

	return keep
}

// SelectionStore keeps the state of every filterable registry entry, keyed by
// filter id. Enabling or disabling a filter never touches its stored value.
// It is not safe for concurrent use.
type SelectionStore struct {
	schema   Schema
	registry *Registry
	states   map[string]FilterState
}

// NewSelectionStore starts every filter disabled, with a value that lets all
// rows through: the column's full observed range or its full distinct set.
func NewSelectionStore(reg *Registry, schema Schema) *SelectionStore {
	s := &SelectionStore{
		schema:   schema,
		registry: reg,
		states:   make(map[string]FilterState),
	}
	active, _ := reg.Resolve(schema)
	for _, f := range active {
		s.states[f.ID] = defaultState(schema, f)
	}
	return s
}

func defaultState(schema Schema, f ResolvedFilter) FilterState {
	info, _ := schema.Column(f.Column)
	if f.Type == Numeric {
		if info.Bounds == nil {
			return FilterState{}
		}
		r := *info.Bounds
		return FilterState{Range: &r}
	}
	return FilterState{Values: schema.Distinct(f.Column)}
}

// Default returns the initial state of a filter.
func (s *SelectionStore) Default(id string) (FilterState, error) {
	f, err := s.resolve(id)
	if err != nil {
		return FilterState{}, err
	}
	return defaultState(s.schema, f), nil
}

// State returns the stored state of a filter.
func (s *SelectionStore) State(id string) (FilterState, bool) {
	st, ok := s.states[id]
	if !ok {
		return FilterState{}, false
	}
	return st.clone(), true
}

func (s *SelectionStore) SetEnabled(id string, enabled bool) error {
	if _, err := s.resolve(id); err != nil {
		return err
	}
	st := s.states[id]
	st.Enabled = enabled
	s.states[id] = st
	return nil
}

func (s *SelectionStore) SetRange(id string, rng Range) error {
	f, err := s.resolve(id)
	if err != nil {
		return err
	}
	if f.Type != Numeric {
		return fmt.Errorf("%w: %q is %s", ErrWrongFilterKind, id, f.Type)
	}
	if rng.Min > rng.Max {
		return fmt.Errorf("%w: [%g, %g]", ErrInvalidRange, rng.Min, rng.Max)
	}
	st := s.states[id]
	st.Range = &rng
	s.states[id] = st
	return nil
}

func (s *SelectionStore) SetValues(id string, values []string) error {
	f, err := s.resolve(id)
	if err != nil {
		return err
	}
	if f.Type != Categorical {
		return fmt.Errorf("%w: %q is %s", ErrWrongFilterKind, id, f.Type)
	}
	st := s.states[id]
	st.Values = make([]string, len(values))
	copy(st.Values, values)
	s.states[id] = st
	return nil
}

// Put replaces the whole state of a filter. Nothing is stored unless the
// state fits the filter's type: a numeric filter takes no values and a
// categorical one takes no range.
func (s *SelectionStore) Put(id string, st FilterState) error {
	f, err := s.resolve(id)
	if err != nil {
		return err
	}
	switch f.Type {
	case Numeric:
		if st.Values != nil {
			return fmt.Errorf("%w: %q is %s", ErrWrongFilterKind, id, f.Type)
		}
		if st.Range != nil && st.Range.Min > st.Range.Max {
			return fmt.Errorf("%w: [%g, %g]", ErrInvalidRange, st.Range.Min, st.Range.Max)
		}
	case Categorical:
		if st.Range != nil {
			return fmt.Errorf("%w: %q is %s", ErrWrongFilterKind, id, f.Type)
		}
	}
	s.states[id] = st.clone()
	return nil
}

// Reset restores a filter to its initial state.
func (s *SelectionStore) Reset(id string) error {
	d, err := s.Default(id)
	if err != nil {
		return err
	}
	s.states[id] = d
	return nil
}

// Snapshot returns an independent copy of the stored selection.
func (s *SelectionStore) Snapshot() Selection {
	return Selection(s.states).Clone()
}

func (s *SelectionStore) resolve(id string) (ResolvedFilter, error) {
	spec, ok := s.registry.Lookup(id)
	if !ok {
		return ResolvedFilter{}, fmt.Errorf("%w: %q", ErrUnknownFilter, id)
	}
	t, ok := s.schema.Type(spec.Column)
	if !ok || !t.Filterable() {
		return ResolvedFilter{}, fmt.Errorf("%w: %q (%s)", ErrNotFilterable, id, spec.Column)
	}
	return ResolvedFilter{FilterSpec: spec, Type: t}, nil
}
