package engine

import (
	"sort"
)

// BlankLabel is the group key of rows whose grouping value is missing.
const BlankLabel = "(blank)"

// Group is one aggregate row keyed by a single grouping value.
type Group struct {
	Key   string
	Value float64
	Count int
}

// PairGroup is one aggregate row keyed by two grouping values.
type PairGroup struct {
	A, B  string
	Value float64
	Count int
}

func groupKey(v Value) string {
	if v.IsMissing() {
		return BlankLabel
	}
	return v.String()
}

// measure reads a numeric cell, missing counting as zero.
func measure(view View, i int, column string) float64 {
	f, _ := view.Value(i, column).Float()
	return f
}

// Sum totals a numeric column. Missing values count as zero.
func Sum(view View, column string) float64 {
	var total float64
	for i := 0; i < view.Len(); i++ {
		total += measure(view, i, column)
	}
	return total
}

// Mean averages the non-missing values of a numeric column.
// ok is false when there is nothing to average.
func Mean(view View, column string) (mean float64, ok bool) {
	var total float64
	n := 0
	for i := 0; i < view.Len(); i++ {
		if f, ok := view.Value(i, column).Float(); ok {
			total += f
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return total / float64(n), true
}

// CountDistinct counts the distinct non-missing values of a column.
func CountDistinct(view View, column string) int {
	seen := make(map[string]struct{})
	for i := 0; i < view.Len(); i++ {
		v := view.Value(i, column)
		if v.IsMissing() {
			continue
		}
		seen[v.String()] = struct{}{}
	}
	return len(seen)
}

// SumBy sums measure per distinct value of key. Groups come out in the order
// their key is first met; rows with a missing key form the BlankLabel group,
// so the groups always add up to Sum.
func SumBy(view View, key, measureCol string) []Group {
	return sumBy(view, key, measureCol, true)
}

// SumByKnown is SumBy without the BlankLabel group: rows with a missing key
// are left out.
func SumByKnown(view View, key, measureCol string) []Group {
	return sumBy(view, key, measureCol, false)
}

func sumBy(view View, key, measureCol string, keepBlank bool) []Group {
	index := make(map[string]int)
	groups := make([]Group, 0)

	for i := 0; i < view.Len(); i++ {
		v := view.Value(i, key)
		if v.IsMissing() && !keepBlank {
			continue
		}
		k := groupKey(v)
		g, ok := index[k]
		if !ok {
			g = len(groups)
			index[k] = g
			groups = append(groups, Group{Key: k})
		}
		if measureCol != "" {
			groups[g].Value += measure(view, i, measureCol)
		}
		groups[g].Count++
	}

	return groups
}

// Frequency counts rows per distinct value of column, most frequent first.
// Ties keep first-encounter order. Missing values are not counted.
func Frequency(view View, column string) []Group {
	groups := SumByKnown(view, column, "")
	for i := range groups {
		groups[i].Value = float64(groups[i].Count)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Count > groups[j].Count })
	return groups
}

// SortGroupsByKey orders groups by key, ascending.
func SortGroupsByKey(groups []Group) {
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
}

// TopNBy ranks the values of key by their summed measure, largest first, and
// keeps at most n. Ties keep first-encounter order. Rows with a missing key
// are left out.
func TopNBy(view View, key, measureCol string, n int) []Group {
	groups := SumByKnown(view, key, measureCol)
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value > groups[j].Value })
	if n >= 0 && len(groups) > n {
		groups = groups[:n]
	}
	return groups
}

// SumBy2 sums measure per (a, b) pair, ordered by a then b. Rows missing
// either key are left out. With an empty measure column it only counts rows.
func SumBy2(view View, a, b, measureCol string) []PairGroup {
	type pair struct{ a, b string }
	index := make(map[pair]int)
	groups := make([]PairGroup, 0)

	for i := 0; i < view.Len(); i++ {
		va, vb := view.Value(i, a), view.Value(i, b)
		if va.IsMissing() || vb.IsMissing() {
			continue
		}
		k := pair{va.String(), vb.String()}
		g, ok := index[k]
		if !ok {
			g = len(groups)
			index[k] = g
			groups = append(groups, PairGroup{A: k.a, B: k.b})
		}
		if measureCol != "" {
			groups[g].Value += measure(view, i, measureCol)
		}
		groups[g].Count++
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].A != groups[j].A {
			return groups[i].A < groups[j].A
		}
		return groups[i].B < groups[j].B
	})
	return groups
}

// CountBy2 counts rows per (a, b) pair, ordered by a then b.
func CountBy2(view View, a, b string) []PairGroup {
	groups := SumBy2(view, a, b, "")
	for i := range groups {
		groups[i].Value = float64(groups[i].Count)
	}
	return groups
}

// TopNBreakdown sums measure per (key, sub) pair, keeping only pairs whose key
// is among the top n values of key by summed measure.
func TopNBreakdown(view View, key, sub, measureCol string, n int) []PairGroup {
	top := TopNBy(view, key, measureCol, n)
	keep := make(map[string]struct{}, len(top))
	for _, g := range top {
		keep[g.Key] = struct{}{}
	}

	all := SumBy2(view, key, sub, measureCol)
	out := make([]PairGroup, 0, len(all))
	for _, g := range all {
		if _, ok := keep[g.A]; ok {
			out = append(out, g)
		}
	}
	return out
}

// TopRows returns the n rows with the largest measure, largest first.
// Rows with a missing measure sort last; ties keep view order.
func TopRows(view View, measureCol string, n int) View {
	type ranked struct {
		row     int
		value   float64
		present bool
	}

	rows := make([]ranked, view.Len())
	for i := range rows {
		f, ok := view.Value(i, measureCol).Float()
		rows[i] = ranked{row: view.Row(i), value: f, present: ok}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].present != rows[j].present {
			return rows[i].present
		}
		return rows[i].value > rows[j].value
	})

	if n >= 0 && len(rows) > n {
		rows = rows[:n]
	}

	keep := make([]int, len(rows))
	for i, r := range rows {
		keep[i] = r.row
	}
	return view.subset(keep)
}
