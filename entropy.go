package diversity

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/pkg/errors"
)

// MutationRecord is the fraction of sequences in a selection which carry one
// mutation.
type MutationRecord struct {
	Mutation   string  `json:"mutation"`
	Proportion float64 `json:"proportion"`
}

// MarshalJSON encodes a non-finite proportion as null.
func (p PositionProportion) MarshalJSON() ([]byte, error) {
	type plain PositionProportion
	return json.Marshal(struct {
		plain
		Proportion *float64 `json:"proportion"`
	}{plain(p), FiniteOrNull(p.Proportion)})
}

// Reference row tags. The nucleotide tag is a bare "ref", amino acid rows
// are labeled "<original> (ref)".
const (
	nucRefTag = "ref"
	aaRefTag  = " (ref)"
)

// PositionProportion is one row of the distribution at a position: either an
// observed mutation or the inferred reference remainder.
type PositionProportion struct {
	Position   string  `json:"position"`
	Mutation   string  `json:"mutation,omitempty"`
	Original   string  `json:"original,omitempty"`
	Proportion float64 `json:"proportion"`
}

// PositionEntropy is the distribution at one position and its Shannon
// entropy in nats. Gene is empty for nucleotide positions.
type PositionEntropy struct {
	Position    string               `json:"position"`
	Gene        string               `json:"gene,omitempty"`
	Index       int                  `json:"index"`
	Original    string               `json:"original,omitempty"`
	Proportions []PositionProportion `json:"proportions"`
	Entropy     float64              `json:"entropy"`
}

// MarshalJSON encodes the NaN entropy of a position whose proportions sum
// past 1 as null, leaving the rest of the profile intact.
func (p PositionEntropy) MarshalJSON() ([]byte, error) {
	type plain PositionEntropy
	return json.Marshal(struct {
		plain
		Entropy *float64 `json:"entropy"`
	}{plain(p), FiniteOrNull(p.Entropy)})
}

// EntropyOptions control which rows and positions enter a profile.
type EntropyOptions struct {
	// IncludeDeletions keeps records whose mutated base is '-'.
	IncludeDeletions bool
	// IncludeUnobserved adds every reference position, observed or not.
	IncludeUnobserved bool
}

// ComputeEntropy groups the records of one snapshot by position, infers the
// reference remainder at every position and computes each position's
// entropy. Positions come out in the order they were first seen; amino acid
// profiles need SortByGenomicOrder before display.
//
// Proportions summing past 1 are not corrected: the negative remainder row
// is kept and the entropy of that position becomes NaN.
func ComputeEntropy(ref *Reference, records []MutationRecord, unit SequenceType, opts EntropyOptions) ([]PositionEntropy, error) {
	var positions []PositionEntropy
	index := make(map[string]int)

	if opts.IncludeUnobserved {
		positions = prepopulate(ref, unit)
		for i, p := range positions {
			index[p.Position] = i
		}
	}

	for i, rec := range records {
		m, err := Decode(rec.Mutation, unit)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding record %d", i)
		}
		if m.IsDeletion() && !opts.IncludeDeletions {
			continue
		}
		key := m.Key()
		idx, ok := index[key]
		if !ok {
			idx = len(positions)
			index[key] = idx
			positions = append(positions, PositionEntropy{
				Position: key,
				Gene:     m.Gene,
				Index:    m.Position,
				Original: string(m.Original),
			})
		}
		positions[idx].Proportions = append(positions[idx].Proportions, PositionProportion{
			Position:   key,
			Mutation:   string(m.Mutated),
			Original:   string(m.Original),
			Proportion: rec.Proportion,
		})
	}

	for i := range positions {
		addRemainder(&positions[i], unit)
		positions[i].Entropy = entropy(positions[i].Proportions)
	}
	return positions, nil
}

// prepopulate returns one empty position per reference coordinate (or per
// codon of every gene), tagged with its reference base.
func prepopulate(ref *Reference, unit SequenceType) []PositionEntropy {
	if unit == AminoAcid {
		var positions []PositionEntropy
		for _, g := range ref.Genes {
			for i := 0; i < len(g.AASeq); i++ {
				orig := g.AASeq[i : i+1]
				positions = append(positions, PositionEntropy{
					Position: g.Name + ":" + orig + strconv.Itoa(i+1),
					Gene:     g.Name,
					Index:    i + 1,
					Original: orig,
				})
			}
		}
		return positions
	}
	positions := make([]PositionEntropy, ref.GenomeLength)
	for i := range positions {
		positions[i] = PositionEntropy{
			Position: strconv.Itoa(i + 1),
			Index:    i + 1,
			Original: ref.Base(i + 1),
		}
	}
	return positions
}

// addRemainder appends the inferred reference row when the observed
// proportions don't sum to exactly 1, then drops rows with proportion 0.
func addRemainder(p *PositionEntropy, unit SequenceType) {
	sum := 0.0
	for _, pp := range p.Proportions {
		sum += pp.Proportion
	}
	remainder := 1 - sum
	if remainder != 0 {
		tag := nucRefTag
		if unit == AminoAcid {
			tag = p.Original + aaRefTag
		}
		p.Proportions = append(p.Proportions, PositionProportion{
			Position:   p.Position,
			Mutation:   tag,
			Original:   p.Original,
			Proportion: remainder,
		})
	}
	kept := p.Proportions[:0]
	for _, pp := range p.Proportions {
		if pp.Proportion != 0 {
			kept = append(kept, pp)
		}
	}
	p.Proportions = kept
}

// entropy is -sum(p ln p) over the rows.
func entropy(rows []PositionProportion) float64 {
	h := 0.0
	for _, r := range rows {
		h -= r.Proportion * math.Log(r.Proportion)
	}
	return h
}
