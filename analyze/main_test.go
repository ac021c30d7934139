package analyze_test

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pilosa/diversity"
	"github.com/pilosa/diversity/analyze"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("making dir: %v", err)
	}
	if err := ioutil.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestMainRun(t *testing.T) {
	d, err := ioutil.TempDir("", "analyzemain")
	if err != nil {
		t.Fatalf("getting temp dir: %v", err)
	}
	defer os.RemoveAll(d)

	ref := writeFile(t, d, "reference.json", `{"nucSeq": "ACGTACGTACGTACGTACGT", "genes": [
		{"name": "S", "startPosition": 2, "endPosition": 10, "aaSeq": "MKV"},
		{"name": "E", "startPosition": 11, "endPosition": 19, "aaSeq": "LAF"}
	]}`)
	writeFile(t, d, "snapshots/aa/2021-01-04_2021-01-17.json", `[{"mutation": "E:A2T", "proportion": 0.5}, {"mutation": "S:K2N", "proportion": 0.25}]`)
	writeFile(t, d, "snapshots/aa/2021-01-04_2021-01-10.csv", "mutation,proportion\nS:K2N,0.5\n")
	writeFile(t, d, "snapshots/aa/2021-01-11_2021-01-17.json", `{"data": [{"mutation": "E:A2T", "proportion": 0.5}]}`)

	out := &bytes.Buffer{}
	logs := &bytes.Buffer{}
	m := analyze.NewMain()
	m.Source = "file"
	m.Dir = filepath.Join(d, "snapshots")
	m.Reference = ref
	m.Unit = "aa"
	m.Gene = "E"
	m.Genes = []string{"S", "E"}
	m.From = "2021-01-04"
	m.To = "2021-01-17"
	m.LevelCache = filepath.Join(d, "cache")
	m.Stdout = out
	m.Stderr = logs

	if err := m.Run(); err != nil {
		t.Fatalf("running: %v", err)
	}
	var res struct {
		Unit     string                      `json:"sequenceType"`
		Profile  []diversity.PositionEntropy `json:"positionEntropy"`
		Range    diversity.Range             `json:"range"`
		TimeData []map[string]float64        `json:"timeData"`
	}
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("decoding output %s: %v", out, err)
	}
	if res.Unit != "aa" || len(res.Profile) != 2 {
		t.Fatalf("unexpected result %s", out)
	}
	if res.Profile[0].Position != "S:K2" || res.Profile[1].Position != "E:A2" {
		t.Fatalf("expected genomic order, got %s", out)
	}
	if res.Range != (diversity.Range{Start: 1, Stop: 1}) {
		t.Fatalf("expected E at index 1, got %+v", res.Range)
	}
	if len(res.TimeData) != 2 || res.TimeData[0]["S"] == 0 || res.TimeData[0]["E"] != 0 || res.TimeData[1]["E"] == 0 {
		t.Fatalf("unexpected series %s", out)
	}
	if !strings.Contains(logs.String(), "aa: 2 positions") {
		t.Fatalf("expected a summary log line, got %q", logs.String())
	}

	// A second run is served from the cache even without snapshots.
	if err := os.RemoveAll(filepath.Join(d, "snapshots", "aa")); err != nil {
		t.Fatalf("removing snapshots: %v", err)
	}
	out.Reset()
	if err := m.Run(); err != nil {
		t.Fatalf("running from cache: %v", err)
	}
	if !strings.Contains(out.String(), `"E:A2"`) {
		t.Fatalf("unexpected cached output %s", out)
	}
}

func TestMainRequest(t *testing.T) {
	tests := []struct {
		name   string
		set    func(m *analyze.Main)
		expErr string
		check  func(t *testing.T, req diversity.Request)
	}{
		{
			name: "weeks",
			set:  func(m *analyze.Main) { m.From, m.To = "2021-01-06", "2021-01-18" },
			check: func(t *testing.T, req diversity.Request) {
				if len(req.Weeks) != 3 || req.Selector.DateRange == nil || req.Selector.DateRange.String() != "2021-01-06_2021-01-18" {
					t.Fatalf("unexpected request %+v", req)
				}
			},
		},
		{
			name: "filters",
			set:  func(m *analyze.Main) { m.Filters = []string{"country=Switzerland", "pangoLineage=B.1.1.7"} },
			check: func(t *testing.T, req diversity.Request) {
				if req.Selector.String() != "country=Switzerland&pangoLineage=B.1.1.7" || req.Weeks != nil {
					t.Fatalf("unexpected request %+v", req)
				}
			},
		},
		{name: "bad filter", set: func(m *analyze.Main) { m.Filters = []string{"country"} }, expErr: "not key=value"},
		{name: "bad unit", set: func(m *analyze.Main) { m.Unit = "protein" }, expErr: "unknown sequence type"},
		{name: "half range", set: func(m *analyze.Main) { m.From = "2021-01-06" }, expErr: "given together"},
		{name: "inverted range", set: func(m *analyze.Main) { m.From, m.To = "2021-01-18", "2021-01-06" }, expErr: "is before"},
		{name: "bad date", set: func(m *analyze.Main) { m.From, m.To = "2021-1-6", "2021-01-18" }, expErr: "parsing from"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m := analyze.NewMain()
			test.set(m)
			req, err := m.Request()
			if test.expErr != "" {
				if err == nil || !strings.Contains(err.Error(), test.expErr) {
					t.Fatalf("unmatched errs exp/got\n%s\n%v", test.expErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("building request: %v", err)
			}
			test.check(t, req)
		})
	}
}

func TestMainErrors(t *testing.T) {
	m := analyze.NewMain()
	m.Stderr = ioutil.Discard
	if err := m.Run(); err == nil || !strings.Contains(err.Error(), "reference file is required") {
		t.Fatalf("expected missing reference error, got %v", err)
	}
	m.Source = "ftp"
	if _, err := m.NewSource(); err == nil {
		t.Fatal("expected unknown source error")
	}
	m.Source = "kafka"
	if _, err := m.NewSource(); err == nil || !strings.Contains(err.Error(), "needs snapshot hosts") {
		t.Fatalf("expected missing snapshot hosts error, got %v", err)
	}
}
