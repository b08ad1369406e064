package vendorconsent

// VendorRange is a run of vendor ids. The start and end bounds here are inclusive.
type VendorRange struct {
	Start int
	End   int
}

func (r VendorRange) Len() int {
	return r.End - r.Start + 1
}

func (r VendorRange) Contains(id int) bool {
	return r.Start <= id && r.End >= id
}

// Ranges scans ids 1..maxVendorID and returns, in ascending order, the maximal runs of ids
// whose membership in allowed differs from defaultConsent.
func Ranges(maxVendorID int, allowed []int, defaultConsent bool) []VendorRange {
	isAllowed := membership(allowed)

	var ranges []VendorRange
	start := 0
	for id := 1; id <= maxVendorID; id++ {
		differs := isAllowed[id] != defaultConsent
		switch {
		case differs && start == 0:
			start = id
		case !differs && start != 0:
			ranges = append(ranges, VendorRange{Start: start, End: id - 1})
			start = 0
		}
	}
	if start != 0 {
		ranges = append(ranges, VendorRange{Start: start, End: maxVendorID})
	}
	return ranges
}

// complement returns the ids of [0, maxVendorID) which no range contains, without 0.
//
// The upper bound is exclusive, so maxVendorID is never part of the result. Tokens written by
// existing encoders with a true default depend on this.
func complement(maxVendorID int, ranges []VendorRange) []int {
	// depth[id] counts the ranges opening at id minus those closed before it.
	depth := make([]int, maxVendorID+2)
	for _, r := range ranges {
		if r.Start > r.End || r.End < 1 || r.Start > maxVendorID {
			continue
		}
		depth[max(r.Start, 1)]++
		depth[min(r.End, maxVendorID)+1]--
	}

	ids := make([]int, 0, maxVendorID)
	open := 0
	for id := 1; id < maxVendorID; id++ {
		open += depth[id]
		if open == 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

func enumerate(ranges []VendorRange) []int {
	seen := make(map[int]bool)
	var ids []int
	for _, r := range ranges {
		for id := r.Start; id <= r.End; id++ {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}
