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

// Package kafka provides a diversity.Sink which publishes analysis results
// to a Kafka topic, one JSON message per chart element, and a
// diversity.Source which consumes snapshots from a topic.
package kafka

import (
	"encoding/json"

	"github.com/Shopify/sarama"
	"github.com/pilosa/diversity"
	"github.com/pkg/errors"
)

// Message kinds.
const (
	KindSummary  = "summary"
	KindPosition = "position"
	KindWeek     = "week"
)

var _ diversity.Sink = &Sink{}

// Sink implements diversity.Sink with a synchronous producer. Every message
// of one Result shares the same key so they land on the same partition in
// order.
type Sink struct {
	Topic string
	// Key identifies the analysis, e.g. the selector.
	Key string

	producer sarama.SyncProducer
}

// NewSink connects a producer to hosts.
func NewSink(hosts []string, topic, key string) (*Sink, error) {
	conf := sarama.NewConfig()
	conf.Version = sarama.V0_10_0_0
	conf.Producer.Return.Successes = true
	conf.Producer.RequiredAcks = sarama.WaitForAll
	producer, err := sarama.NewSyncProducer(hosts, conf)
	if err != nil {
		return nil, errors.Wrap(err, "getting new producer")
	}
	return NewSinkWithProducer(producer, topic, key), nil
}

// NewSinkWithProducer gets a Sink which sends through producer.
func NewSinkWithProducer(producer sarama.SyncProducer, topic, key string) *Sink {
	return &Sink{Topic: topic, Key: key, producer: producer}
}

// Write implements diversity.Sink.
func (s *Sink) Write(res *diversity.Result) error {
	msgs, err := Messages(s.Topic, s.Key, res)
	if err != nil {
		return err
	}
	for i, msg := range msgs {
		if _, _, err := s.producer.SendMessage(msg); err != nil {
			return errors.Wrapf(err, "sending message %d of %d", i+1, len(msgs))
		}
	}
	return nil
}

// Close closes the producer.
func (s *Sink) Close() error {
	return errors.Wrap(s.producer.Close(), "closing kafka producer")
}

type summary struct {
	Kind        string          `json:"kind"`
	Unit        string          `json:"sequenceType"`
	Positions   int             `json:"positions"`
	Range       diversity.Range `json:"range"`
	MeanEntropy *float64        `json:"meanEntropy"`
	Weeks       int             `json:"weeks"`
}

type position struct {
	Kind        string                         `json:"kind"`
	Position    string                         `json:"position"`
	Gene        string                         `json:"gene,omitempty"`
	Index       int                            `json:"index"`
	Original    string                         `json:"original,omitempty"`
	Proportions []diversity.PositionProportion `json:"proportions"`
	Entropy     *float64                       `json:"entropy"`
}

type week struct {
	Kind string              `json:"kind"`
	Row  diversity.SeriesRow `json:"row"`
}

// Messages builds the messages for a Result: one summary, then one per
// profile position, then one per series row. NaN values are sent as null.
func Messages(topic, key string, res *diversity.Result) ([]*sarama.ProducerMessage, error) {
	values := make([]interface{}, 0, 1+len(res.Profile)+len(res.Series))
	values = append(values, summary{
		Kind:        KindSummary,
		Unit:        res.Unit,
		Positions:   len(res.Profile),
		Range:       res.Range,
		MeanEntropy: diversity.FiniteOrNull(res.MeanEntropy),
		Weeks:       len(res.Series),
	})
	for _, p := range res.Profile {
		values = append(values, position{
			Kind:        KindPosition,
			Position:    p.Position,
			Gene:        p.Gene,
			Index:       p.Index,
			Original:    p.Original,
			Proportions: p.Proportions,
			Entropy:     diversity.FiniteOrNull(p.Entropy),
		})
	}
	for _, r := range res.Series {
		values = append(values, week{Kind: KindWeek, Row: r})
	}

	msgs := make([]*sarama.ProducerMessage, len(values))
	for i, v := range values {
		buf, err := json.Marshal(v)
		if err != nil {
			return nil, errors.Wrapf(err, "encoding message %d", i)
		}
		msgs[i] = &sarama.ProducerMessage{
			Topic: topic,
			Key:   sarama.StringEncoder(key),
			Value: sarama.ByteEncoder(buf),
		}
	}
	return msgs, nil
}
