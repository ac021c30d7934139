package diversity

import "testing"

func nucProfile(positions ...int) []PositionEntropy {
	profile := make([]PositionEntropy, len(positions))
	for i, pos := range positions {
		profile[i] = PositionEntropy{Index: pos}
	}
	return profile
}

func TestResolveRangeAll(t *testing.T) {
	ref := testReference(t)
	all, _ := ref.Gene(AllGenes)
	profile := nucProfile(1, 4, 9, 15)
	for _, unit := range []SequenceType{Nucleotide, AminoAcid} {
		if r := ResolveRange(&all, profile, unit); r != (Range{0, 3}) {
			t.Fatalf("All in %s: expected {0 3}, got %+v", unit, r)
		}
		if r := ResolveRange(nil, profile, unit); r != (Range{0, 3}) {
			t.Fatalf("nil gene in %s: expected {0 3}, got %+v", unit, r)
		}
	}
}

func TestResolveRangeNucleotide(t *testing.T) {
	tests := []struct {
		name    string
		gene    Gene
		profile []PositionEntropy
		exp     Range
	}{
		{
			name:    "inside",
			gene:    Gene{Name: "S", StartPosition: 5, EndPosition: 12},
			profile: nucProfile(1, 4, 6, 9, 12, 13, 20),
			exp:     Range{Start: 2, Stop: 4},
		},
		{
			name:    "start boundary is excluded",
			gene:    Gene{Name: "S", StartPosition: 4, EndPosition: 12},
			profile: nucProfile(1, 4, 6, 9, 12, 13, 20),
			exp:     Range{Start: 2, Stop: 4},
		},
		{
			name:    "nothing after the gene",
			gene:    Gene{Name: "S", StartPosition: 5, EndPosition: 30},
			profile: nucProfile(1, 4, 6, 9),
			exp:     Range{Start: 2, Stop: NotFound},
		},
		{
			name:    "before every position",
			gene:    Gene{Name: "S", StartPosition: 0, EndPosition: 3},
			profile: nucProfile(4, 6, 9),
			exp:     Range{Start: 0, Stop: -1},
		},
		{
			name:    "between positions",
			gene:    Gene{Name: "S", StartPosition: 5, EndPosition: 5},
			profile: nucProfile(1, 4, 6, 9),
			exp:     Range{Start: 2, Stop: 1},
		},
		{
			name:    "nothing after the start",
			gene:    Gene{Name: "S", StartPosition: 50, EndPosition: 60},
			profile: nucProfile(1, 4, 6, 9),
			exp:     Range{Start: NotFound, Stop: NotFound},
		},
		{
			name:    "empty profile",
			gene:    Gene{Name: "S", StartPosition: 5, EndPosition: 12},
			profile: nil,
			exp:     Range{Start: NotFound, Stop: NotFound},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := ResolveRange(&test.gene, test.profile, Nucleotide)
			if r != test.exp {
				t.Fatalf("expected %+v, got %+v", test.exp, r)
			}
		})
	}
}

func TestResolveRangeAminoAcid(t *testing.T) {
	profile := []PositionEntropy{
		{Gene: "S", Index: 1}, {Gene: "S", Index: 5}, {Gene: "E", Index: 2}, {Gene: "E", Index: 3}, {Gene: "N", Index: 1},
	}
	if r := ResolveRange(&Gene{Name: "E"}, profile, AminoAcid); r != (Range{2, 3}) {
		t.Fatalf("expected {2 3}, got %+v", r)
	}
	if r := ResolveRange(&Gene{Name: "M"}, profile, AminoAcid); r != (Range{NotFound, NotFound}) {
		t.Fatalf("expected not found, got %+v", r)
	}
}

func TestResolveRangeNoPositionsClamped(t *testing.T) {
	profile := nucProfile(4, 6, 9)
	for _, gene := range []Gene{
		{Name: "S", StartPosition: 0, EndPosition: 3},
		{Name: "S", StartPosition: 6, EndPosition: 8},
		{Name: "S", StartPosition: 10, EndPosition: 12},
	} {
		r := ResolveRange(&gene, profile, Nucleotide).Clamp(len(profile))
		if r != (Range{0, 2}) {
			t.Errorf("gene %d-%d: expected the whole profile, got %+v", gene.StartPosition, gene.EndPosition, r)
		}
	}
}

func TestRangeClamp(t *testing.T) {
	tests := []struct {
		in  Range
		n   int
		exp Range
	}{
		{in: Range{NotFound, NotFound}, n: 7, exp: Range{0, 6}},
		{in: Range{2, NotFound}, n: 7, exp: Range{2, 6}},
		{in: Range{2, 4}, n: 7, exp: Range{2, 4}},
		{in: Range{0, -1}, n: 3, exp: Range{0, 2}},
		{in: Range{2, 1}, n: 4, exp: Range{0, 3}},
		{in: Range{0, 0}, n: 3, exp: Range{0, 0}},
		{in: Range{NotFound, NotFound}, n: 0, exp: Range{0, -1}},
	}
	for _, test := range tests {
		if got := test.in.Clamp(test.n); got != test.exp {
			t.Errorf("clamping %+v to %d: expected %+v, got %+v", test.in, test.n, test.exp, got)
		}
	}
}
