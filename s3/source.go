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

// Package s3 provides a diversity.Source which reads snapshot objects from
// an S3 bucket, keyed <prefix><unit>/all.json or <prefix><unit>/<from>_<to>.json
// (or .csv).
package s3

import (
	"context"
	"io"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pilosa/diversity"
	"github.com/pilosa/diversity/csv"
	"github.com/pilosa/diversity/json"
	"github.com/pkg/errors"
)

// SrcOption is a functional option type for s3.Source.
type SrcOption func(s *Source)

// OptSrcBucket is a SrcOption which sets the S3 bucket for a Source.
func OptSrcBucket(bucket string) SrcOption {
	return func(s *Source) {
		s.bucket = bucket
	}
}

// OptSrcRegion is a SrcOption which sets the AWS region for a Source.
func OptSrcRegion(region string) SrcOption {
	return func(s *Source) {
		s.region = region
	}
}

// OptSrcPrefix is a SrcOption which puts every key under prefix.
func OptSrcPrefix(prefix string) SrcOption {
	return func(s *Source) {
		s.prefix = prefix
	}
}

// OptSrcClient is a SrcOption which sets the S3 client instead of creating
// one from a new session.
func OptSrcClient(c s3iface.S3API) SrcOption {
	return func(s *Source) {
		s.s3 = c
	}
}

// Source is a diversity.Source which reads snapshots from S3. Selector
// filters are ignored; a prefix holds one pre-filtered selection.
type Source struct {
	bucket string
	prefix string
	region string

	s3 s3iface.S3API
}

// NewSource returns a new Source with the options applied.
func NewSource(opts ...SrcOption) (*Source, error) {
	s := &Source{}
	for _, opt := range opts {
		opt(s)
	}
	if s.bucket == "" {
		return nil, errors.New("s3 source needs a bucket")
	}
	if s.s3 == nil {
		sess, err := session.NewSession(&aws.Config{
			Region: aws.String(s.region)},
		)
		if err != nil {
			return nil, errors.Wrap(err, "getting new session")
		}
		s.s3 = s3.New(sess)
	}
	return s, nil
}

// Keys returns the object keys tried, in order, for a selection.
func (s *Source) Keys(unit diversity.SequenceType, sel diversity.Selector) []string {
	base := path.Join(s.prefix, diversity.SnapshotName(unit, sel))
	return []string{base + ".json", base + ".csv"}
}

// Proportions implements diversity.Source. If none of the keys exist it
// returns a wrapped diversity.ErrSnapshotNotFound.
func (s *Source) Proportions(ctx context.Context, unit diversity.SequenceType, sel diversity.Selector) ([]diversity.MutationRecord, error) {
	keys := s.Keys(unit, sel)
	for _, key := range keys {
		result, err := s.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if isNoSuchKey(err) {
			continue
		} else if err != nil {
			return nil, errors.Wrapf(err, "fetching %s", key)
		}
		recs, err := decode(key, result.Body)
		result.Body.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "decoding %s", key)
		}
		return recs, nil
	}
	return nil, errors.Wrapf(diversity.ErrSnapshotNotFound, "s3://%s/%s", s.bucket, keys[0])
}

func decode(key string, r io.Reader) ([]diversity.MutationRecord, error) {
	if path.Ext(key) == ".csv" {
		return csv.ReadAll(r)
	}
	return json.ReadAll(r)
}

func isNoSuchKey(err error) bool {
	aerr, ok := err.(awserr.Error)
	return ok && aerr.Code() == s3.ErrCodeNoSuchKey
}
