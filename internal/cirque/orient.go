package cirque

// NeedsFlip reports whether a profile runs from high to low elevation. Equal endpoint
// elevations also count as needing a flip so that every profile has one canonical
// direction.
func NeedsFlip(p Profile) bool {
	if len(p.Samples) < 2 {
		return false
	}
	return p.Samples[0].Elevation >= p.Samples[len(p.Samples)-1].Elevation
}

// Normalize returns the profile ordered from low to high elevation. Reversed profiles get
// their distances remapped so that they still start at zero and never decrease. A
// profile already running low to high keeps its sample slice as is. The result is marked
// Oriented, a bookkeeping flag that makes later calls return it unchanged.
func Normalize(p Profile) Profile {
	if p.Oriented {
		return p
	}
	out := p
	out.Oriented = true
	if !NeedsFlip(p) {
		return out
	}

	n := len(p.Samples)
	total := p.Samples[n-1].Distance
	flipped := make([]Sample, n)
	for i, s := range p.Samples {
		s.Distance = total - s.Distance
		flipped[n-1-i] = s
	}
	out.Samples = flipped
	return out
}

// NormalizeAll orients every profile and reports how many had to be flipped
func NormalizeAll(profiles []Profile) ([]Profile, int) {
	out := make([]Profile, len(profiles))
	flipped := 0
	for i, p := range profiles {
		if !p.Oriented && NeedsFlip(p) {
			flipped++
		}
		out[i] = Normalize(p)
	}
	return out, flipped
}
