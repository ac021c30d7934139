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

package kafka

import (
	"bytes"
	"context"
	"io/ioutil"
	"log"
	"sync"
	"time"

	"github.com/Shopify/sarama"
	cluster "github.com/bsm/sarama-cluster"
	"github.com/pilosa/diversity"
	"github.com/pilosa/diversity/json"
	"github.com/pkg/errors"
)

// Consumer is the part of a *cluster.Consumer a Source reads from.
type Consumer interface {
	Messages() <-chan *sarama.ConsumerMessage
	MarkOffset(msg *sarama.ConsumerMessage, metadata string)
	Close() error
}

var _ diversity.Source = &Source{}

// Source is a diversity.Source fed by a snapshot topic. Each message is
// keyed by diversity.SnapshotName and holds one snapshot in any form
// json.ReadAll accepts; a later message for a name replaces the earlier
// one, so the topic may be compacted. Like the file source, one topic
// holds one pre-filtered selection and selector filters are ignored.
type Source struct {
	idle time.Duration
	log  diversity.Logger

	consumer Consumer

	mu        sync.Mutex
	snapshots map[string][]byte
	last      time.Time
	done      bool
}

// SourceOption configures a Source.
type SourceOption func(s *Source)

// OptSrcIdle sets how long Proportions waits for a missing snapshot after
// the last message before reporting it not found.
func OptSrcIdle(d time.Duration) SourceOption {
	return func(s *Source) {
		s.idle = d
	}
}

// OptSrcLogger sets the logger for consumer errors and rebalances.
func OptSrcLogger(l diversity.Logger) SourceOption {
	return func(s *Source) {
		s.log = l
	}
}

// NewSource joins the consumer group reading topic from the oldest offset.
func NewSource(hosts []string, topic, group string, opts ...SourceOption) (*Source, error) {
	sarama.Logger = log.New(ioutil.Discard, "", 0)
	config := cluster.NewConfig()
	config.Config.Version = sarama.V0_10_0_0
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Group.Return.Notifications = true

	consumer, err := cluster.NewConsumer(hosts, group, []string{topic}, config)
	if err != nil {
		return nil, errors.Wrap(err, "getting new consumer")
	}
	s := NewSourceWithConsumer(consumer, opts...)
	go func() {
		for err := range consumer.Errors() {
			s.log.Printf("consuming snapshots: %v", err)
		}
	}()
	go func() {
		for ntf := range consumer.Notifications() {
			s.log.Debugf("rebalanced: %+v", ntf)
		}
	}()
	return s, nil
}

// NewSourceWithConsumer gets a Source reading from consumer and starts
// consuming.
func NewSourceWithConsumer(consumer Consumer, opts ...SourceOption) *Source {
	s := &Source{
		idle:      5 * time.Second,
		log:       diversity.NopLogger{},
		consumer:  consumer,
		snapshots: make(map[string][]byte),
		last:      time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.consume()
	return s
}

func (s *Source) consume() {
	for msg := range s.consumer.Messages() {
		s.mu.Lock()
		s.snapshots[string(msg.Key)] = msg.Value
		s.last = time.Now()
		s.mu.Unlock()
		s.consumer.MarkOffset(msg, "")
	}
	s.mu.Lock()
	s.done = true
	s.mu.Unlock()
}

// Proportions implements diversity.Source. It waits until the snapshot has
// been consumed, or until nothing has arrived for the idle time, in which
// case it returns a wrapped diversity.ErrSnapshotNotFound.
func (s *Source) Proportions(ctx context.Context, unit diversity.SequenceType, sel diversity.Selector) ([]diversity.MutationRecord, error) {
	name := diversity.SnapshotName(unit, sel)
	poll := s.idle / 10
	if poll < time.Millisecond {
		poll = time.Millisecond
	} else if poll > 50*time.Millisecond {
		poll = 50 * time.Millisecond
	}
	for {
		s.mu.Lock()
		value, ok := s.snapshots[name]
		settled := s.done || time.Since(s.last) >= s.idle
		s.mu.Unlock()
		if ok {
			recs, err := json.ReadAll(bytes.NewReader(value))
			return recs, errors.Wrapf(err, "decoding snapshot %s", name)
		}
		if settled {
			return nil, errors.Wrapf(diversity.ErrSnapshotNotFound, "no message keyed %s", name)
		}
		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "waiting for snapshot %s", name)
		case <-time.After(poll):
		}
	}
}

// Close closes the consumer.
func (s *Source) Close() error {
	return errors.Wrap(s.consumer.Close(), "closing kafka consumer")
}
