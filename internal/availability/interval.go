package availability

import (
	"sort"
	"time"
)

// TimeRange is the half-open interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

func (r TimeRange) Empty() bool {
	return !r.End.After(r.Start)
}

// Contains reports whether [start, start+d) lies inside r.
func (r TimeRange) Contains(start time.Time, d time.Duration) bool {
	return !start.Before(r.Start) && !start.Add(d).After(r.End)
}

func (r TimeRange) Overlaps(o TimeRange) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

func sortRanges(rs []TimeRange) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].Start.Equal(rs[j].Start) {
			return rs[i].Start.Before(rs[j].Start)
		}
		return rs[i].End.Before(rs[j].End)
	})
}

// Merge returns the maximal disjoint ranges covering rs, sorted by start.
// Overlapping and touching ranges are joined; empty ranges are dropped.
func Merge(rs []TimeRange) []TimeRange {
	in := make([]TimeRange, 0, len(rs))
	for _, r := range rs {
		if !r.Empty() {
			in = append(in, r)
		}
	}
	sortRanges(in)

	var out []TimeRange
	for _, r := range in {
		if n := len(out); n > 0 && !r.Start.After(out[n-1].End) {
			if r.End.After(out[n-1].End) {
				out[n-1].End = r.End
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

// Subtract removes busy from windows. windows must be merged; busy may
// overlap and be unsorted.
func Subtract(windows, busy []TimeRange) []TimeRange {
	blocked := Merge(busy)

	var free []TimeRange
	for _, w := range windows {
		cur := w.Start
		for _, b := range blocked {
			if !b.End.After(cur) {
				continue
			}
			if !b.Start.Before(w.End) {
				break
			}
			if b.Start.After(cur) {
				free = append(free, TimeRange{Start: cur, End: b.Start})
			}
			cur = b.End
			if !cur.Before(w.End) {
				break
			}
		}
		if cur.Before(w.End) {
			free = append(free, TimeRange{Start: cur, End: w.End})
		}
	}
	return free
}

// Candidates emits start, start+step, ... for every range while the whole
// duration still fits inside that range.
func Candidates(rs []TimeRange, duration, step time.Duration) []time.Time {
	if duration <= 0 || step <= 0 {
		return nil
	}
	var out []time.Time
	for _, r := range rs {
		for t := r.Start; !t.Add(duration).After(r.End); t = t.Add(step) {
			out = append(out, t)
		}
	}
	return out
}
