package file

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pilosa/diversity"
	"github.com/pkg/errors"
)

func mustTempDir(t *testing.T, prefix string) string {
	t.Helper()
	d, err := ioutil.TempDir("", prefix)
	if err != nil {
		t.Fatal("getting temp dir")
	}
	return d
}

func mustFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("making dir: %v", err)
	}
	if err := ioutil.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestSource(t *testing.T) {
	d := mustTempDir(t, "testfilesource")
	defer os.RemoveAll(d)
	mustFile(t, d, "nuc/all.json", `{"data": [{"mutation": "A23403G", "proportion": 0.98}]}`)
	mustFile(t, d, "nuc/2021-03-01_2021-03-07.csv", "mutation,proportion\nC3037T,0.5\nG21765-,0.25\n")
	mustFile(t, d, "aa/all.json", `[{"mutation": "S:D614G", "proportion": 0.98}]`)
	mustFile(t, d, "aa/2021-03-01_2021-03-07.json", `[{"mutation": "S:D614G"}]`)

	src, err := NewSource(d)
	if err != nil {
		t.Fatalf("getting source: %v", err)
	}
	ctx := context.Background()

	recs, err := src.Proportions(ctx, diversity.Nucleotide, diversity.Selector{Filters: map[string]string{"country": "ignored"}})
	if err != nil || len(recs) != 1 || recs[0].Mutation != "A23403G" {
		t.Fatalf("unexpected nuc/all: %+v %v", recs, err)
	}

	from := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	week := diversity.Selector{}.WithDateRange(diversity.DateRange{From: from, To: from.AddDate(0, 0, 6)})
	recs, err = src.Proportions(ctx, diversity.Nucleotide, week)
	if err != nil || len(recs) != 2 || recs[1].Mutation != "G21765-" || recs[1].Proportion != 0.25 {
		t.Fatalf("unexpected csv week: %+v %v", recs, err)
	}

	recs, err = src.Proportions(ctx, diversity.AminoAcid, diversity.Selector{})
	if err != nil || len(recs) != 1 || recs[0].Mutation != "S:D614G" {
		t.Fatalf("unexpected aa/all: %+v %v", recs, err)
	}

	if _, err := src.Proportions(ctx, diversity.AminoAcid, week); err == nil {
		t.Fatal("expected a decoding error")
	}

	next := diversity.Selector{}.WithDateRange(diversity.DateRange{From: from.AddDate(0, 0, 7), To: from.AddDate(0, 0, 13)})
	if _, err := src.Proportions(ctx, diversity.Nucleotide, next); errors.Cause(err) != diversity.ErrSnapshotNotFound {
		t.Fatalf("expected snapshot not found, got %v", err)
	}
}

func TestNewSourceErrors(t *testing.T) {
	d := mustTempDir(t, "testfilesource")
	defer os.RemoveAll(d)
	mustFile(t, d, "plain", "")
	if _, err := NewSource(filepath.Join(d, "plain")); err == nil {
		t.Fatal("expected an error for a regular file")
	}
	if _, err := NewSource(filepath.Join(d, "missing")); err == nil {
		t.Fatal("expected an error for a missing directory")
	}
}
