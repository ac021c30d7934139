package leveldb_test

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/pilosa/diversity"
	"github.com/pilosa/diversity/leveldb"
	"github.com/pilosa/diversity/mock"
)

func TestCache(t *testing.T) {
	d, err := ioutil.TempDir("", "levelcache")
	if err != nil {
		t.Fatalf("getting temp dir: %v", err)
	}
	defer os.RemoveAll(d)
	dir := filepath.Join(d, "cache")

	c, err := leveldb.NewCache(dir)
	if err != nil {
		t.Fatalf("opening cache: %v", err)
	}
	src := mock.NewSource()
	sel := diversity.Selector{Filters: map[string]string{"country": "Germany"}}
	src.Add(diversity.AminoAcid, sel, []diversity.MutationRecord{{Mutation: "N:R203K", Proportion: 0.3}})

	cs := diversity.NewCachingSource(src, c)
	for i := 0; i < 2; i++ {
		recs, err := cs.Proportions(context.Background(), diversity.AminoAcid, sel)
		if err != nil || len(recs) != 1 || recs[0].Mutation != "N:R203K" {
			t.Fatalf("call %d: unexpected records %+v %v", i, recs, err)
		}
	}
	if n := src.Calls(diversity.AminoAcid, sel); n != 1 {
		t.Fatalf("expected one fetch, got %d", n)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("closing: %v", err)
	}

	c, err = leveldb.NewCache(dir)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer c.Close()
	val, ok, err := c.Get(diversity.CacheKey(diversity.AminoAcid, sel))
	if err != nil || !ok || len(val) == 0 {
		t.Fatalf("expected the snapshot to persist, got %q %v %v", val, ok, err)
	}
	if _, ok, err := c.Get([]byte("missing")); ok || err != nil {
		t.Fatalf("expected a miss, got %v %v", ok, err)
	}
}
