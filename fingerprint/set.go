package fingerprint

import "sort"

// Set is the processed set: every Fingerprint whose variants were produced
// during one run. A Set is built by one goroutine and only read afterwards;
// concurrent producers each build their own Set and the results are merged
// with Union once all of them have finished.
type Set map[Fingerprint]struct{}

// NewSet returns a Set holding fps.
func NewSet(fps ...Fingerprint) Set {
	s := make(Set, len(fps))
	for _, fp := range fps {
		s.Add(fp)
	}
	return s
}

// Add inserts fp.
func (s Set) Add(fp Fingerprint) {
	s[fp] = struct{}{}
}

// Has reports whether fp is in the set. A nil Set contains nothing.
func (s Set) Has(fp Fingerprint) bool {
	_, ok := s[fp]
	return ok
}

// Len returns the number of distinct fingerprints.
func (s Set) Len() int {
	return len(s)
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []Fingerprint {
	out := make([]Fingerprint, 0, len(s))
	for fp := range s {
		out = append(out, fp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Union returns a new Set holding the members of every input set.
func Union(sets ...Set) Set {
	n := 0
	for _, s := range sets {
		n += len(s)
	}
	out := make(Set, n)
	for _, s := range sets {
		for fp := range s {
			out[fp] = struct{}{}
		}
	}
	return out
}
