package diversity

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"
)

func TestJSONSink(t *testing.T) {
	buf := &bytes.Buffer{}
	sink := NewJSONSink(buf, false)
	res := &Result{
		Unit:        "nuc",
		Profile:     []PositionEntropy{{Position: "6", Index: 6, Entropy: math.Ln2}},
		Range:       Range{Start: 0, Stop: 0},
		MeanEntropy: math.Ln2,
		Series:      []SeriesRow{{Day: day("2021-01-04"), Values: map[string]float64{"S": 0.1}}},
	}
	if err := sink.Write(res); err != nil {
		t.Fatalf("writing: %v", err)
	}
	var got struct {
		Unit     string                   `json:"sequenceType"`
		Range    Range                    `json:"range"`
		Profile  []map[string]interface{} `json:"positionEntropy"`
		TimeData []map[string]float64     `json:"timeData"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decoding %s: %v", buf, err)
	}
	if got.Unit != "nuc" || len(got.Profile) != 1 || got.TimeData[0]["day"] != 1609718400000 {
		t.Fatalf("unexpected document %s", buf)
	}
}

func TestJSONSinkNonFinite(t *testing.T) {
	// 0.33 + 0.56 + 0.11 sums just past 1 in float64.
	records := []MutationRecord{
		{Mutation: "A1G", Proportion: 0.33},
		{Mutation: "A1C", Proportion: 0.56},
		{Mutation: "A1T", Proportion: 0.11},
		{Mutation: "C2T", Proportion: 0.5},
	}
	profile, err := ComputeEntropy(testReference(t), records, Nucleotide, EntropyOptions{})
	if err != nil {
		t.Fatalf("computing entropy: %v", err)
	}
	if len(profile) != 2 || !math.IsNaN(profile[0].Entropy) {
		t.Fatalf("expected a NaN entropy at position 1, got %+v", profile)
	}
	res := &Result{
		Unit:        "nuc",
		Profile:     profile,
		Range:       Range{Start: 0, Stop: 1},
		MeanEntropy: MeanEntropy(profile),
		Series:      []SeriesRow{{Day: day("2021-01-04"), Values: map[string]float64{"All": math.NaN(), "S": 0.1}}},
	}

	buf := &bytes.Buffer{}
	if err := NewJSONSink(buf, true).Write(res); err != nil {
		t.Fatalf("writing: %v", err)
	}
	var got struct {
		Profile []struct {
			Position string   `json:"position"`
			Entropy  *float64 `json:"entropy"`
		} `json:"positionEntropy"`
		MeanEntropy *float64                 `json:"meanEntropy"`
		TimeData    []map[string]interface{} `json:"timeData"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decoding %s: %v", buf, err)
	}
	if len(got.Profile) != 2 || got.Profile[0].Position != "1" || got.Profile[0].Entropy != nil {
		t.Fatalf("expected a null entropy at position 1, got %s", buf)
	}
	if got.Profile[1].Entropy == nil || math.Abs(*got.Profile[1].Entropy-math.Ln2) > 1e-12 {
		t.Fatalf("expected ln 2 at position 2, got %s", buf)
	}
	if got.MeanEntropy != nil {
		t.Fatalf("expected a null mean, got %v", *got.MeanEntropy)
	}
	if v, ok := got.TimeData[0]["All"]; !ok || v != nil {
		t.Fatalf("expected a null All value, got %s", buf)
	}
	if got.TimeData[0]["S"] != 0.1 {
		t.Fatalf("unexpected S value in %s", buf)
	}
}

func TestFiniteOrNull(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if FiniteOrNull(f) != nil {
			t.Errorf("expected nil for %v", f)
		}
	}
	if p := FiniteOrNull(-0.5); p == nil || *p != -0.5 {
		t.Errorf("expected -0.5 to be kept, got %v", p)
	}
}
