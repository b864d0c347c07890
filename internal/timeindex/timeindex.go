// Package timeindex resolves a query time against a monotonically ordered
// sequence of timestamped items under two policies: most-recent-at-or-before
// (tracking frames) and interval containment (timeline steps).
//
// Both indexes cache the last resolved position. During normal playback the
// query time only moves forward a little, so the next answer is almost
// always the cached index or its successor; arbitrary seeks fall back to a
// full search over the sorted keys.
package timeindex

import "sort"

// Index answers most-recent-at-or-before queries over a non-decreasing
// sequence of keys. Not safe for concurrent use.
type Index struct {
	keys   []float64
	cursor int
}

func New(keys []float64) *Index {
	return &Index{keys: keys, cursor: -1}
}

func (ix *Index) Len() int {
	return len(ix.keys)
}

// AtOrBefore returns the index of the last key <= t, or false when every
// key is greater than t.
func (ix *Index) AtOrBefore(t float64) (int, bool) {
	n := len(ix.keys)
	if n == 0 {
		return 0, false
	}

	// Fast path: the cached position still answers the query, or the
	// clock advanced by exactly one item.
	if c := ix.cursor; c >= 0 && c < n && ix.keys[c] <= t {
		if c == n-1 || ix.keys[c+1] > t {
			return c, true
		}
		if c+1 < n && ix.keys[c+1] <= t && (c+2 >= n || ix.keys[c+2] > t) {
			ix.cursor = c + 1
			return c + 1, true
		}
	}

	// Seek or first query: binary search for the first key past t.
	i := sort.Search(n, func(k int) bool { return ix.keys[k] > t })
	if i == 0 {
		ix.cursor = -1
		return 0, false
	}
	ix.cursor = i - 1
	return i - 1, true
}

// Interval is one half-open [Start, End) span. Callers materialize absent
// ends before building the index (next start, or +Inf for the last span).
type Interval struct {
	Start float64
	End   float64
}

func (iv Interval) contains(t float64) bool {
	return iv.Start <= t && t < iv.End
}

// IntervalIndex answers containment queries over intervals ordered by
// non-decreasing Start. Not safe for concurrent use.
type IntervalIndex struct {
	spans  []Interval
	cursor int
}

func NewIntervals(spans []Interval) *IntervalIndex {
	return &IntervalIndex{spans: spans, cursor: -1}
}

func (ix *IntervalIndex) Len() int {
	return len(ix.spans)
}

// Start returns the start of span i.
func (ix *IntervalIndex) Start(i int) float64 {
	return ix.spans[i].Start
}

// Containing returns the lowest index whose interval contains t, or false
// when no interval does. Overlaps are not assumed away: when the fast path
// misses, the scan restarts from the front so the first containing
// interval in index order wins.
func (ix *IntervalIndex) Containing(t float64) (int, bool) {
	n := len(ix.spans)
	if n == 0 {
		return 0, false
	}

	if c := ix.cursor; c >= 0 && c < n {
		if ix.spans[c].contains(t) {
			return c, true
		}
		if c+1 < n && ix.spans[c+1].contains(t) {
			ix.cursor = c + 1
			return c + 1, true
		}
	}

	for i, span := range ix.spans {
		if span.contains(t) {
			ix.cursor = i
			return i, true
		}
		if span.Start > t {
			break
		}
	}
	ix.cursor = -1
	return 0, false
}

// LastStartedAt returns the index of the last span whose Start <= t, or
// false when t precedes every span. This backs the sticky last-step rule.
func (ix *IntervalIndex) LastStartedAt(t float64) (int, bool) {
	n := len(ix.spans)
	if n == 0 {
		return 0, false
	}
	i := sort.Search(n, func(k int) bool { return ix.spans[k].Start > t })
	if i == 0 {
		return 0, false
	}
	return i - 1, true
}
