package diversity

import (
	"math"
	"testing"
)

const tolerance = 1e-12

func near(a, b float64) bool { return math.Abs(a-b) < tolerance }

func findPosition(t *testing.T, profile []PositionEntropy, key string) PositionEntropy {
	t.Helper()
	for _, p := range profile {
		if p.Position == key {
			return p
		}
	}
	t.Fatalf("position %s not in profile", key)
	return PositionEntropy{}
}

func TestComputeEntropyReferenceRemainder(t *testing.T) {
	ref := testReference(t)
	profile, err := ComputeEntropy(ref, []MutationRecord{
		{Mutation: "A100T", Proportion: 0.3},
		{Mutation: "A100C", Proportion: 0.2},
	}, Nucleotide, EntropyOptions{})
	if err != nil {
		t.Fatalf("computing entropy: %v", err)
	}
	if len(profile) != 1 {
		t.Fatalf("expected one position, got %d", len(profile))
	}
	p := profile[0]
	exp := -(0.3*math.Log(0.3) + 0.2*math.Log(0.2) + 0.5*math.Log(0.5))
	if !near(p.Entropy, exp) {
		t.Fatalf("expected entropy %v, got %v", exp, p.Entropy)
	}
	if len(p.Proportions) != 3 {
		t.Fatalf("expected 3 rows, got %+v", p.Proportions)
	}
	last := p.Proportions[2]
	if last.Mutation != "ref" || !near(last.Proportion, 0.5) || last.Original != "A" {
		t.Fatalf("unexpected reference row %+v", last)
	}
}

func TestComputeEntropyProportionsSumToOne(t *testing.T) {
	ref := testReference(t)
	recs := []MutationRecord{
		{Mutation: "C2T", Proportion: 0.125},
		{Mutation: "G3A", Proportion: 0.5},
		{Mutation: "G3T", Proportion: 0.25},
		{Mutation: "T4A", Proportion: 1},
		{Mutation: "A5G", Proportion: 0},
	}
	profile, err := ComputeEntropy(ref, recs, Nucleotide, EntropyOptions{})
	if err != nil {
		t.Fatalf("computing entropy: %v", err)
	}
	for _, p := range profile {
		sum := 0.0
		for _, pp := range p.Proportions {
			sum += pp.Proportion
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("position %s sums to %v", p.Position, sum)
		}
	}
	if p := findPosition(t, profile, "4"); p.Entropy != 0 || len(p.Proportions) != 1 {
		t.Fatalf("fixed position should have entropy 0 and one row, got %+v", p)
	}
	if p := findPosition(t, profile, "5"); p.Entropy != 0 || len(p.Proportions) != 1 || p.Proportions[0].Mutation != "ref" {
		t.Fatalf("zero proportion row should be dropped leaving the reference, got %+v", p)
	}
}

func TestComputeEntropyOrder(t *testing.T) {
	ref := testReference(t)
	profile, err := ComputeEntropy(ref, []MutationRecord{
		{Mutation: "C10T", Proportion: 0.1},
		{Mutation: "A1G", Proportion: 0.1},
		{Mutation: "C10A", Proportion: 0.1},
	}, Nucleotide, EntropyOptions{})
	if err != nil {
		t.Fatalf("computing entropy: %v", err)
	}
	if len(profile) != 2 || profile[0].Position != "10" || profile[1].Position != "1" {
		t.Fatalf("expected first-seen order [10 1], got %+v", profile)
	}
}

func TestComputeEntropyDeletions(t *testing.T) {
	ref := testReference(t)
	recs := []MutationRecord{
		{Mutation: "G7-", Proportion: 0.4},
		{Mutation: "G7A", Proportion: 0.1},
		{Mutation: "A9-", Proportion: 0.2},
	}
	without, err := ComputeEntropy(ref, recs, Nucleotide, EntropyOptions{})
	if err != nil {
		t.Fatalf("computing entropy: %v", err)
	}
	if len(without) != 1 || without[0].Position != "7" || len(without[0].Proportions) != 2 {
		t.Fatalf("deletions should be dropped, got %+v", without)
	}
	with, err := ComputeEntropy(ref, recs, Nucleotide, EntropyOptions{IncludeDeletions: true})
	if err != nil {
		t.Fatalf("computing entropy: %v", err)
	}
	if len(with) != 2 {
		t.Fatalf("deletions should be kept, got %+v", with)
	}
	p := findPosition(t, with, "7")
	exp := -(0.4*math.Log(0.4) + 0.1*math.Log(0.1) + 0.5*math.Log(0.5))
	if !near(p.Entropy, exp) {
		t.Fatalf("expected entropy %v, got %v", exp, p.Entropy)
	}
}

func TestComputeEntropyUnobservedNucleotides(t *testing.T) {
	ref := testReference(t)
	profile, err := ComputeEntropy(ref, []MutationRecord{{Mutation: "C6T", Proportion: 0.5}}, Nucleotide, EntropyOptions{IncludeUnobserved: true})
	if err != nil {
		t.Fatalf("computing entropy: %v", err)
	}
	if len(profile) != ref.GenomeLength {
		t.Fatalf("expected %d positions, got %d", ref.GenomeLength, len(profile))
	}
	for i, p := range profile {
		if p.Index != i+1 {
			t.Fatalf("position %d out of order: %+v", i, p)
		}
		if p.Original != ref.Base(i+1) {
			t.Fatalf("position %d has original %s, expected %s", i+1, p.Original, ref.Base(i+1))
		}
		if p.Index == 6 {
			if !near(p.Entropy, math.Ln2) {
				t.Fatalf("expected ln 2 at position 6, got %v", p.Entropy)
			}
			continue
		}
		if p.Entropy != 0 || len(p.Proportions) != 1 || p.Proportions[0].Proportion != 1 {
			t.Fatalf("unobserved position should be all reference, got %+v", p)
		}
	}
}

func TestComputeEntropyAminoAcids(t *testing.T) {
	ref := testReference(t)
	profile, err := ComputeEntropy(ref, []MutationRecord{
		{Mutation: "E:A2T", Proportion: 0.25},
		{Mutation: "S:K2N", Proportion: 0.5},
	}, AminoAcid, EntropyOptions{IncludeUnobserved: true})
	if err != nil {
		t.Fatalf("computing entropy: %v", err)
	}
	if len(profile) != 6 {
		t.Fatalf("expected one position per codon, got %d", len(profile))
	}
	exp := []string{"S:M1", "S:K2", "S:V3", "E:L1", "E:A2", "E:F3"}
	for i, p := range profile {
		if p.Position != exp[i] {
			t.Fatalf("position %d: expected %s, got %s", i, exp[i], p.Position)
		}
	}
	ea2 := findPosition(t, profile, "E:A2")
	if len(ea2.Proportions) != 2 || ea2.Proportions[1].Mutation != "A (ref)" || ea2.Proportions[1].Proportion != 0.75 {
		t.Fatalf("unexpected E:A2 rows %+v", ea2.Proportions)
	}
	if ea2.Gene != "E" || ea2.Index != 2 {
		t.Fatalf("unexpected E:A2 gene/index %s/%d", ea2.Gene, ea2.Index)
	}
}

func TestComputeEntropyNegativeRemainder(t *testing.T) {
	ref := testReference(t)
	profile, err := ComputeEntropy(ref, []MutationRecord{
		{Mutation: "A1G", Proportion: 0.7},
		{Mutation: "A1T", Proportion: 0.5},
	}, Nucleotide, EntropyOptions{})
	if err != nil {
		t.Fatalf("computing entropy: %v", err)
	}
	p := profile[0]
	if len(p.Proportions) != 3 || p.Proportions[2].Proportion >= 0 {
		t.Fatalf("expected a negative reference row, got %+v", p.Proportions)
	}
	if !math.IsNaN(p.Entropy) {
		t.Fatalf("expected NaN entropy, got %v", p.Entropy)
	}
}

func TestComputeEntropyMalformed(t *testing.T) {
	ref := testReference(t)
	_, err := ComputeEntropy(ref, []MutationRecord{
		{Mutation: "A1G", Proportion: 0.1},
		{Mutation: "S:D614G", Proportion: 0.1},
	}, Nucleotide, EntropyOptions{})
	if err == nil {
		t.Fatal("expected an error for an amino acid code in a nucleotide snapshot")
	}
	if !IsMalformedCode(err) {
		t.Fatalf("expected MalformedCodeError cause, got %v", err)
	}
}
