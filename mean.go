package diversity

// MeanEntropy is the average entropy over the profile, or 0 for an empty
// profile.
func MeanEntropy(profile []PositionEntropy) float64 {
	if len(profile) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range profile {
		sum += p.Entropy
	}
	return sum / float64(len(profile))
}

// GeneMeanEntropy is the average entropy per reference position of gene.
// The numerator sums the profile positions inside the gene (nucleotides:
// StartPosition <= position <= EndPosition, amino acids: same gene name, or
// every position for AllGenes). The denominator comes from the reference
// alone: EndPosition-StartPosition for nucleotides, the summed amino acid
// sequence length of the matching genes for amino acids. Positions missing
// from the profile therefore dilute the mean. A gene of reference length 0
// has mean 0.
func GeneMeanEntropy(ref *Reference, profile []PositionEntropy, unit SequenceType, gene Gene) float64 {
	sum := 0.0
	var count int
	if unit == AminoAcid {
		for _, p := range profile {
			if gene.IsAll() || p.Gene == gene.Name {
				sum += p.Entropy
			}
		}
		for _, g := range ref.Genes {
			if gene.IsAll() || g.Name == gene.Name {
				count += len(g.AASeq)
			}
		}
	} else {
		for _, p := range profile {
			if gene.StartPosition <= p.Index && p.Index <= gene.EndPosition {
				sum += p.Entropy
			}
		}
		count = gene.EndPosition - gene.StartPosition
	}
	if count <= 0 {
		return 0
	}
	return sum / float64(count)
}

// FilterByEntropy returns the positions whose entropy is at least
// threshold, keeping their order.
func FilterByEntropy(profile []PositionEntropy, threshold float64) []PositionEntropy {
	out := make([]PositionEntropy, 0, len(profile))
	for _, p := range profile {
		if p.Entropy >= threshold {
			out = append(out, p)
		}
	}
	return out
}
