// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

// Package csv decodes mutation proportion tables. The first line is a header
// naming the columns; the mutation and proportion columns are required, any
// others (e.g. count) are ignored.
package csv

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/pilosa/diversity"
	"github.com/pkg/errors"
)

// Source returns mutation records one row at a time. It is not safe for
// concurrent use.
type Source struct {
	r             *csv.Reader
	mutationCol   string
	proportionCol string

	header        []string
	mutIdx, prIdx int
	line          int
}

// NewSource gets a Source reading from r. Column names can be changed with
// Options, e.g.
//
// src := NewSource(f, WithColumns("nucMutation", "frequency"))
func NewSource(r io.Reader, options ...Option) *Source {
	src := &Source{
		r:             csv.NewReader(r),
		mutationCol:   "mutation",
		proportionCol: "proportion",
	}
	src.r.FieldsPerRecord = -1
	src.r.TrimLeadingSpace = true
	for _, opt := range options {
		opt(src)
	}
	return src
}

// Option is a functional option to pass to NewSource.
type Option func(*Source)

// WithColumns returns an Option which sets the header names of the mutation
// and proportion columns.
func WithColumns(mutation, proportion string) Option {
	return func(s *Source) {
		s.mutationCol = mutation
		s.proportionCol = proportion
	}
}

// WithComma returns an Option which sets the field delimiter, e.g. '\t'.
func WithComma(c rune) Option {
	return func(s *Source) {
		s.r.Comma = c
	}
}

// Record returns the next record, or io.EOF after the last row. Blank lines
// are skipped.
func (s *Source) Record() (diversity.MutationRecord, error) {
	if s.header == nil {
		if err := s.readHeader(); err != nil {
			return diversity.MutationRecord{}, err
		}
	}
	row, err := s.r.Read()
	if err != nil {
		if err == io.EOF {
			return diversity.MutationRecord{}, err
		}
		return diversity.MutationRecord{}, errors.Wrap(err, "reading row")
	}
	s.line++
	return s.parseRow(row)
}

func (s *Source) readHeader() error {
	header, err := s.r.Read()
	if err == io.EOF {
		return err
	} else if err != nil {
		return errors.Wrap(err, "reading header")
	}
	s.line = 1
	if err := validateHeader(header); err != nil {
		return errors.Wrap(err, "validating header")
	}
	s.mutIdx, s.prIdx = -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case s.mutationCol:
			s.mutIdx = i
		case s.proportionCol:
			s.prIdx = i
		}
	}
	if s.mutIdx < 0 || s.prIdx < 0 {
		return errors.Errorf("header %v needs '%s' and '%s' columns", header, s.mutationCol, s.proportionCol)
	}
	s.header = header
	return nil
}

func (s *Source) parseRow(row []string) (diversity.MutationRecord, error) {
	if len(row) <= s.mutIdx || len(row) <= s.prIdx {
		return diversity.MutationRecord{}, errors.Errorf("line %d: header/row len mismatch: %d vs %d", s.line, len(s.header), len(row))
	}
	p, err := strconv.ParseFloat(strings.TrimSpace(row[s.prIdx]), 64)
	if err != nil {
		return diversity.MutationRecord{}, errors.Wrapf(err, "line %d: parsing proportion", s.line)
	}
	return diversity.MutationRecord{
		Mutation:   strings.TrimSpace(row[s.mutIdx]),
		Proportion: p,
	}, nil
}

func validateHeader(header []string) error {
	fields := make(map[string]int)
	for i, h := range header {
		if h == "" {
			return errors.Errorf("header contains empty string at %d: %v", i, header)
		}
		if pos, exists := fields[h]; exists {
			return errors.Errorf("%s appeared at both %d and %d in header", h, pos, i)
		}
		fields[h] = i
	}
	return nil
}

// ReadAll decodes every row in r. An empty input has no records.
func ReadAll(r io.Reader, options ...Option) ([]diversity.MutationRecord, error) {
	s := NewSource(r, options...)
	var recs []diversity.MutationRecord
	for {
		rec, err := s.Record()
		if err == io.EOF {
			return recs, nil
		} else if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
}
