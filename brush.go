package diversity

// NotFound is the index ResolveRange reports when a bound can't be found.
// It is kept apart from -1, which is a resolved nucleotide Stop when the
// first position past the gene is at index 0.
const NotFound = -2

// Range is a pair of inclusive indexes into a profile.
type Range struct {
	Start int `json:"startIndex"`
	Stop  int `json:"stopIndex"`
}

// Clamp replaces NotFound bounds with the matching end of a profile of
// length n, so that an unresolved bound means no restriction. A gene with no
// position in the profile, which resolves to Stop before Start, also means
// no restriction.
func (r Range) Clamp(n int) Range {
	if r.Start == NotFound {
		r.Start = 0
	}
	if r.Stop == NotFound {
		r.Stop = n - 1
	}
	if r.Stop < r.Start {
		return Range{Start: 0, Stop: n - 1}
	}
	return r
}

// ResolveRange finds the index bounds of gene within a filtered, sorted
// profile. A nil gene or AllGenes selects the whole profile.
//
// For nucleotides Start is the first index whose position is strictly
// greater than gene.StartPosition, and Stop is one less than the first index
// whose position is strictly greater than gene.EndPosition. For amino acids
// Start and Stop are the first and last index whose gene is gene.Name.
// Bounds that can't be found are NotFound.
func ResolveRange(gene *Gene, profile []PositionEntropy, unit SequenceType) Range {
	if gene == nil || gene.IsAll() {
		return Range{Start: 0, Stop: len(profile) - 1}
	}
	if unit == AminoAcid {
		r := Range{Start: NotFound, Stop: NotFound}
		for i, p := range profile {
			if p.Gene != gene.Name {
				continue
			}
			if r.Start == NotFound {
				r.Start = i
			}
			r.Stop = i
		}
		return r
	}
	r := Range{
		Start: firstAfter(profile, gene.StartPosition),
		Stop:  firstAfter(profile, gene.EndPosition),
	}
	if r.Stop != NotFound {
		r.Stop--
	}
	return r
}

func firstAfter(profile []PositionEntropy, pos int) int {
	for i, p := range profile {
		if p.Index > pos {
			return i
		}
	}
	return NotFound
}
