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

// Package lapis provides a diversity.Source which queries a LAPIS style
// sample API for mutation proportions.
package lapis

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pilosa/diversity"
	"github.com/pilosa/diversity/json"
	"github.com/pkg/errors"
)

// Source implements diversity.Source by issuing GET requests to
// <base>/sample/nuc-mutations or <base>/sample/aa-mutations. It is safe for
// concurrent use.
type Source struct {
	base          *url.URL
	client        *http.Client
	accessKey     string
	minProportion float64
	maxRetries    int
	backoff       time.Duration
	log           diversity.Logger
}

// Option is a functional option type for Source.
type Option func(s *Source)

// WithClient is an option for Source which makes it use the given HTTP
// client.
func WithClient(c *http.Client) Option {
	return func(s *Source) {
		s.client = c
	}
}

// WithAccessKey is an option for Source which adds an accessKey parameter to
// every request, for services that restrict open data.
func WithAccessKey(key string) Option {
	return func(s *Source) {
		s.accessKey = key
	}
}

// WithMinProportion is an option for Source which asks the service to leave
// out mutations below p. The service default applies when p is 0.
func WithMinProportion(p float64) Option {
	return func(s *Source) {
		s.minProportion = p
	}
}

// WithMaxRetries is an option for Source which sets how many times a request
// is tried before giving up. Only transport errors and 5xx responses are
// retried.
func WithMaxRetries(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithBackoff is an option for Source which sets the pause before the first
// retry. It doubles on every further retry.
func WithBackoff(d time.Duration) Option {
	return func(s *Source) {
		s.backoff = d
	}
}

// WithLogger is an option for Source which logs requests at debug level.
func WithLogger(l diversity.Logger) Option {
	return func(s *Source) {
		s.log = l
	}
}

// NewSource gets a Source for the service at baseURL, e.g.
// https://lapis.cov-spectrum.org/open/v1.
func NewSource(baseURL string, opts ...Option) (*Source, error) {
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parsing base URL")
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.Errorf("base URL '%s' needs an http or https scheme", baseURL)
	}
	s := &Source{
		base:       base,
		client:     &http.Client{Timeout: time.Minute},
		maxRetries: 3,
		backoff:    time.Second,
		log:        diversity.NopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// URL builds the request URL for a selection.
func (s *Source) URL(unit diversity.SequenceType, sel diversity.Selector) (string, error) {
	var endpoint string
	switch unit {
	case diversity.Nucleotide:
		endpoint = "nuc-mutations"
	case diversity.AminoAcid:
		endpoint = "aa-mutations"
	default:
		return "", errors.Wrapf(diversity.ErrUnknownSequenceType, "'%s'", unit)
	}
	u := *s.base
	u.Path = u.Path + "/sample/" + endpoint
	q := url.Values{}
	for k, v := range sel.Filters {
		q.Set(k, v)
	}
	if sel.DateRange != nil {
		q.Set("dateFrom", sel.DateRange.From.Format(diversity.DayLayout))
		q.Set("dateTo", sel.DateRange.To.Format(diversity.DayLayout))
	}
	if s.minProportion > 0 {
		q.Set("minProportion", strconv.FormatFloat(s.minProportion, 'g', -1, 64))
	}
	if s.accessKey != "" {
		q.Set("accessKey", s.accessKey)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Proportions implements diversity.Source.
func (s *Source) Proportions(ctx context.Context, unit diversity.SequenceType, sel diversity.Selector) ([]diversity.MutationRecord, error) {
	u, err := s.URL(unit, sel)
	if err != nil {
		return nil, err
	}
	wait := s.backoff
	for try := 1; ; try++ {
		recs, retry, err := s.get(ctx, u)
		if err == nil {
			return recs, nil
		}
		if !retry || try >= s.maxRetries {
			return nil, errors.Wrapf(err, "getting %s %s, tried %d times", unit, sel, try)
		}
		s.log.Debugf("retrying %s after %v: %v", sel, wait, err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		wait *= 2
	}
}

// get does a single request. retry reports whether a failure may be
// transient.
func (s *Source) get(ctx context.Context, u string) (recs []diversity.MutationRecord, retry bool, err error) {
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, false, errors.Wrap(err, "building request")
	}
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")
	s.log.Debugf("GET %s", u)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, errors.Wrap(err, "doing request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode >= 500, statusError(resp)
	}
	recs, err = json.ReadAll(resp.Body)
	if err != nil {
		return nil, false, errors.Wrap(err, "decoding response")
	}
	return recs, false, nil
}

func statusError(resp *http.Response) error {
	body, _ := ioutil.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(body))
	err := errors.Errorf("unexpected status %s: %s", resp.Status, msg)
	if resp.StatusCode == http.StatusNotFound {
		return errors.Wrap(diversity.ErrSnapshotNotFound, err.Error())
	}
	return err
}

// String gets the base URL.
func (s *Source) String() string {
	return fmt.Sprintf("lapis(%s)", s.base)
}
