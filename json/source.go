// Package json decodes mutation proportion payloads. It accepts a LAPIS
// style envelope ({"data": [...]}), a bare array of records, or a stream of
// records (JSON lines), in any mix.
package json

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/pilosa/diversity"
	"github.com/pkg/errors"
)

// Source returns mutation records one at a time from a stream.
type Source struct {
	dec     *json.Decoder
	pending []diversity.MutationRecord
}

// NewSource gets a Source reading from r.
func NewSource(r io.Reader) *Source {
	return &Source{
		dec: json.NewDecoder(r),
	}
}

// envelope covers both a service response and a single record.
type envelope struct {
	Data   *[]record     `json:"data"`
	Errors []interface{} `json:"errors"`

	record
}

// record accepts the fields a service may add next to mutation and
// proportion (e.g. count).
type record struct {
	Mutation   string   `json:"mutation"`
	Proportion *float64 `json:"proportion"`
}

func (r record) toMutation(n int) (diversity.MutationRecord, error) {
	if r.Mutation == "" || r.Proportion == nil {
		return diversity.MutationRecord{}, errors.Errorf("record %d needs mutation and proportion", n)
	}
	return diversity.MutationRecord{Mutation: r.Mutation, Proportion: *r.Proportion}, nil
}

// Record returns the next record, or io.EOF when the stream is exhausted.
func (s *Source) Record() (diversity.MutationRecord, error) {
	for len(s.pending) == 0 {
		var raw json.RawMessage
		if err := s.dec.Decode(&raw); err != nil {
			return diversity.MutationRecord{}, err
		}
		recs, err := decodeValue(raw)
		if err != nil {
			return diversity.MutationRecord{}, err
		}
		s.pending = recs
	}
	rec := s.pending[0]
	s.pending = s.pending[1:]
	return rec, nil
}

func decodeValue(raw json.RawMessage) ([]diversity.MutationRecord, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	switch raw[0] {
	case '[':
		var arr []record
		if err := json.Unmarshal(raw, &arr); err != nil {
			return nil, errors.Wrap(err, "decoding array")
		}
		return convert(arr)
	case '{':
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, errors.Wrap(err, "decoding object")
		}
		if len(env.Errors) > 0 {
			return nil, errors.Errorf("service reported errors: %v", env.Errors)
		}
		if env.Data != nil {
			return convert(*env.Data)
		}
		rec, err := env.record.toMutation(0)
		if err != nil {
			return nil, err
		}
		return []diversity.MutationRecord{rec}, nil
	default:
		return nil, errors.Errorf("unexpected JSON value starting with %q", raw[0])
	}
}

func convert(arr []record) ([]diversity.MutationRecord, error) {
	recs := make([]diversity.MutationRecord, len(arr))
	for i, r := range arr {
		rec, err := r.toMutation(i)
		if err != nil {
			return nil, err
		}
		recs[i] = rec
	}
	return recs, nil
}

// ReadAll decodes every record in r.
func ReadAll(r io.Reader) ([]diversity.MutationRecord, error) {
	s := NewSource(r)
	var recs []diversity.MutationRecord
	for {
		rec, err := s.Record()
		if err == io.EOF {
			return recs, nil
		} else if err != nil {
			return nil, errors.Wrapf(err, "reading record %d", len(recs))
		}
		recs = append(recs, rec)
	}
}
