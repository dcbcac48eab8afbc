package tree

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Leaf is a terminal value found while walking a decoded subtree.
type Leaf struct {
	Path  Path
	Value any
}

// Walk visits every leaf under node in key order. Maps are inner nodes,
// everything else (numbers, strings, arrays) is a leaf.
// Returning false from fn stops the walk.
func Walk(node any, fn func(Leaf) bool) {
	walk(Path{}, node, fn)
}

func walk(prefix Path, node any, fn func(Leaf) bool) bool {
	m, ok := node.(map[string]any)
	if !ok {
		if node == nil {
			return true
		}
		return fn(Leaf{Path: prefix, Value: node})
	}

	for _, k := range SortedKeys(m) {
		child := make(Path, len(prefix), len(prefix)+1)
		copy(child, prefix)
		if !walk(append(child, k), m[k], fn) {
			return false
		}
	}
	return true
}

// Leaves collects the leaves for which keep returns true.
func Leaves(node any, keep func(Leaf) bool) []Leaf {
	var out []Leaf
	Walk(node, func(l Leaf) bool {
		if keep == nil || keep(l) {
			out = append(out, l)
		}
		return true
	})
	return out
}

// SortedKeys returns map keys in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Number resolves a decoded leaf to an integer quantity.
// Strings holding integers are accepted, as some upload paths stored them that way.
func Number(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil {
				return 0, false
			}
			return int(f), true
		}
		return int(i), true
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}

// Decode re-encodes a decoded subtree into a typed destination.
func Decode(node any, dst any) error {
	raw, err := json.Marshal(node)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
