package profile

// ValidateTimeBase checks that every series has the same length as the time
// base and that the valid time values are strictly increasing and unique.
// Missing time samples are skipped when comparing neighbours, so a gap
// cannot hide a backwards step.
func ValidateTimeBase(time []float64, series ...[]float64) error {
	if len(time) == 0 {
		return &ValidationError{Field: "time", Reason: ReasonEmpty}
	}
	for _, s := range series {
		if len(s) != len(time) {
			return &ValidationError{Field: "series", Reason: ReasonLengthMismatch}
		}
	}

	// Ordering is reported before uniqueness so [0,2,1,1] says "not
	// increasing" rather than "not unique".
	prev, seen := 0.0, false
	duplicate := false
	for _, t := range time {
		if IsMissing(t) {
			continue
		}
		if seen {
			d := t - prev
			if d < 0 {
				return &ValidationError{Field: "time", Reason: ReasonNotIncreasing}
			}
			if d == 0 {
				duplicate = true
			}
		}
		prev, seen = t, true
	}
	if duplicate {
		return &ValidationError{Field: "time", Reason: ReasonNotUnique}
	}
	return nil
}

// ValidIndices returns the indices at which time and every listed series
// hold a non-missing value.
func ValidIndices(time []float64, series ...[]float64) []int {
	idx := make([]int, 0, len(time))
outer:
	for i, t := range time {
		if IsMissing(t) {
			continue
		}
		for _, s := range series {
			if IsMissing(s[i]) {
				continue outer
			}
		}
		idx = append(idx, i)
	}
	return idx
}

// Gather returns s[idx[0]], s[idx[1]], ...
func Gather(s []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for j, i := range idx {
		out[j] = s[i]
	}
	return out
}
