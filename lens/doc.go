// Package lens addresses sub-values of a nested state tree by path.
//
// A state tree is made of map[string]any, []any and scalar leaves. A Lens is
// compiled once from its path into a list of steps; View walks the steps and
// reports an absent node as undefined instead of failing, Set rebuilds only
// the containers along the path so untouched branches stay shared with the
// previous tree.
//
//	l := lens.Make("counters", 0, "count")
//	v, ok := lens.View(l, state)
//	next := lens.Over(l, func(v any) any { return v.(int) + 1 }, state)
package lens
