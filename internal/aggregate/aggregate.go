// Package aggregate groups flattened rows into the shapes tables and charts expect.
package aggregate

import (
	"sort"
)

// Series is the chart payload: one line per name, one value per label.
type Series struct {
	Labels []string `json:"labels"`
	Series []Line   `json:"series"`
}

type Line struct {
	Name string    `json:"name"`
	Data []float64 `json:"data"`
}

// SumBy sums val over rows grouped by key.
func SumBy[T any](rows []T, key func(T) string, val func(T) int) map[string]int {
	out := make(map[string]int)
	for _, r := range rows {
		out[key(r)] += val(r)
	}
	return out
}

// AverageBy averages val over rows grouped by key.
func AverageBy[T any](rows []T, key func(T) string, val func(T) int) map[string]float64 {
	sums := make(map[string]int)
	counts := make(map[string]int)
	for _, r := range rows {
		k := key(r)
		sums[k] += val(r)
		counts[k]++
	}
	out := make(map[string]float64, len(sums))
	for k, s := range sums {
		out[k] = float64(s) / float64(counts[k])
	}
	return out
}

// Table is a pivot of rows by two keys.
type Table struct {
	Rows    []string `json:"rows"`
	Columns []string `json:"columns"`
	Cells   [][]int  `json:"cells"`
	RowSum  []int    `json:"row_sum"`
	ColSum  []int    `json:"col_sum"`
}

// Pivot builds a table of summed values. columnOrder fixes the order of known
// columns; unknown columns follow in ascending order.
func Pivot[T any](rows []T, rowKey, colKey func(T) string, val func(T) int, columnOrder []string) Table {
	cells := make(map[string]map[string]int)
	rowSet := make(map[string]struct{})
	colSet := make(map[string]struct{})

	for _, r := range rows {
		rk, ck := rowKey(r), colKey(r)
		if cells[rk] == nil {
			cells[rk] = make(map[string]int)
		}
		cells[rk][ck] += val(r)
		rowSet[rk] = struct{}{}
		colSet[ck] = struct{}{}
	}

	t := Table{
		Rows:    sortedSet(rowSet),
		Columns: ordered(colSet, columnOrder),
	}
	t.Cells = make([][]int, len(t.Rows))
	t.RowSum = make([]int, len(t.Rows))
	t.ColSum = make([]int, len(t.Columns))
	for i, rk := range t.Rows {
		t.Cells[i] = make([]int, len(t.Columns))
		for j, ck := range t.Columns {
			v := cells[rk][ck]
			t.Cells[i][j] = v
			t.RowSum[i] += v
			t.ColSum[j] += v
		}
	}
	return t
}

// ToSeries turns a pivot into chart lines: one line per table row, labels are the columns.
func (t Table) ToSeries() Series {
	s := Series{Labels: t.Columns, Series: make([]Line, 0, len(t.Rows))}
	for i, name := range t.Rows {
		data := make([]float64, len(t.Columns))
		for j, v := range t.Cells[i] {
			data[j] = float64(v)
		}
		s.Series = append(s.Series, Line{Name: name, Data: data})
	}
	return s
}

// SingleSeries builds a one-line chart from grouped sums or averages.
func SingleSeries[N int | float64](name string, sums map[string]N, order []string) Series {
	set := make(map[string]struct{}, len(sums))
	for k := range sums {
		set[k] = struct{}{}
	}
	labels := ordered(set, order)
	data := make([]float64, len(labels))
	for i, l := range labels {
		data[i] = float64(sums[l])
	}
	return Series{Labels: labels, Series: []Line{{Name: name, Data: data}}}
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func ordered(set map[string]struct{}, order []string) []string {
	out := make([]string, 0, len(set))
	seen := make(map[string]struct{}, len(set))
	for _, k := range order {
		if _, ok := set[k]; ok {
			if _, dup := seen[k]; !dup {
				out = append(out, k)
				seen[k] = struct{}{}
			}
		}
	}
	var rest []string
	for k := range set {
		if _, ok := seen[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
