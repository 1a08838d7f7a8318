package availability

import "sort"

// Interval is a half-open [Start, End) window in minutes from midnight.
type Interval struct {
	Start int
	End   int
}

// Empty reports whether the interval contains no time.
func (iv Interval) Empty() bool {
	return iv.End <= iv.Start
}

// Contains reports whether [start, end) fits entirely inside iv.
func (iv Interval) Contains(start, end int) bool {
	return start >= iv.Start && end <= iv.End
}

func overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// intersect returns the overlap of two intervals, possibly empty.
func intersect(a, b Interval) Interval {
	iv := Interval{Start: max(a.Start, b.Start), End: min(a.End, b.End)}
	if iv.Empty() {
		return Interval{}
	}
	return iv
}

// Subtract removes the cut window from every interval in set, splitting
// intervals the cut lands inside. The result stays sorted and disjoint if
// the input was.
func Subtract(set []Interval, cut Interval) []Interval {
	if cut.Empty() {
		return set
	}
	var out []Interval
	for _, iv := range set {
		if !overlaps(iv, cut) {
			out = append(out, iv)
			continue
		}
		if left := (Interval{Start: iv.Start, End: min(iv.End, cut.Start)}); !left.Empty() {
			out = append(out, left)
		}
		if right := (Interval{Start: max(iv.Start, cut.End), End: iv.End}); !right.Empty() {
			out = append(out, right)
		}
	}
	return out
}

// SubtractAll removes every cut window from the set.
func SubtractAll(set []Interval, cuts []Interval) []Interval {
	for _, cut := range cuts {
		set = Subtract(set, cut)
	}
	return set
}

// Intersect returns the pairwise overlap of two interval sets, sorted
// ascending by start.
func Intersect(a, b []Interval) []Interval {
	var out []Interval
	for _, x := range a {
		for _, y := range b {
			if iv := intersect(x, y); !iv.Empty() {
				out = append(out, iv)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}
