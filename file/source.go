// Package file provides a diversity.Source which reads snapshots from a
// directory tree laid out by diversity.SnapshotName, e.g.
//
//	snapshots/nuc/all.json
//	snapshots/nuc/2021-03-01_2021-03-07.csv
//	snapshots/aa/all.json
package file

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pilosa/diversity"
	"github.com/pilosa/diversity/csv"
	"github.com/pilosa/diversity/json"
	"github.com/pkg/errors"
)

// Source is a diversity.Source backed by files on disk. Each directory holds
// a single pre-filtered selection, so selector filters are ignored.
type Source struct {
	dir string
}

// NewSource gets a Source reading from dir, which must exist.
func NewSource(dir string) (*Source, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrap(err, "statting snapshot directory")
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%s is not a directory", dir)
	}
	return &Source{dir: dir}, nil
}

// decoders are tried in order for each snapshot name.
var decoders = []struct {
	ext    string
	decode func(io.Reader) ([]diversity.MutationRecord, error)
}{
	{ext: ".json", decode: json.ReadAll},
	{ext: ".csv", decode: func(r io.Reader) ([]diversity.MutationRecord, error) { return csv.ReadAll(r) }},
}

// Proportions implements diversity.Source. A selection without a file
// returns a wrapped diversity.ErrSnapshotNotFound.
func (s *Source) Proportions(ctx context.Context, unit diversity.SequenceType, sel diversity.Selector) ([]diversity.MutationRecord, error) {
	name := filepath.Join(s.dir, filepath.FromSlash(diversity.SnapshotName(unit, sel)))
	for _, d := range decoders {
		f, err := os.Open(name + d.ext)
		if os.IsNotExist(err) {
			continue
		} else if err != nil {
			return nil, errors.Wrap(err, "opening snapshot")
		}
		recs, err := d.decode(f)
		f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "decoding %s", f.Name())
		}
		return recs, nil
	}
	return nil, errors.Wrapf(diversity.ErrSnapshotNotFound, "no %s.json or .csv", name)
}
