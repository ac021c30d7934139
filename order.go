package diversity

import "sort"

// SortByGenomicOrder stable-sorts an amino acid profile by the declaration
// order of each position's gene in ref, then by codon. Genes missing from
// the table sort after all declared genes, by name. The slice is sorted in
// place and returned.
func SortByGenomicOrder(ref *Reference, positions []PositionEntropy) []PositionEntropy {
	unknown := len(ref.Genes)
	rank := func(p PositionEntropy) int {
		if idx, ok := ref.GeneOrder(p.Gene); ok {
			return idx
		}
		return unknown
	}
	sort.SliceStable(positions, func(i, j int) bool {
		ri, rj := rank(positions[i]), rank(positions[j])
		if ri != rj {
			return ri < rj
		}
		if ri == unknown && positions[i].Gene != positions[j].Gene {
			return positions[i].Gene < positions[j].Gene
		}
		return positions[i].Index < positions[j].Index
	})
	return positions
}

// SortByPosition stable-sorts a nucleotide profile by coordinate. Profiles
// built with IncludeUnobserved are already in this order.
func SortByPosition(positions []PositionEntropy) []PositionEntropy {
	sort.SliceStable(positions, func(i, j int) bool {
		return positions[i].Index < positions[j].Index
	})
	return positions
}
