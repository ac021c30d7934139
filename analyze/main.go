// Package analyze holds the configuration and wiring for running one
// diversity analysis from the command line.
package analyze

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pilosa/diversity"
	"github.com/pilosa/diversity/boltdb"
	"github.com/pilosa/diversity/file"
	"github.com/pilosa/diversity/kafka"
	"github.com/pilosa/diversity/lapis"
	"github.com/pilosa/diversity/leveldb"
	"github.com/pilosa/diversity/s3"
	"github.com/pilosa/diversity/termstat"
	"github.com/pilosa/pilosa/logger"
	"github.com/pkg/errors"
)

// Main contains the configuration for one analysis.
type Main struct {
	Source        string   `help:"Where snapshots come from: lapis, file, s3 or kafka."`
	URL           string   `help:"Base URL of the LAPIS service (lapis source)."`
	AccessKey     string   `help:"LAPIS access key for restricted data."`
	MinProportion float64  `help:"Ask LAPIS to leave out mutations below this proportion. 0 uses the service default."`
	Retries       int      `help:"Attempts per LAPIS request."`
	Dir           string   `help:"Snapshot directory (file source)."`
	Bucket        string   `help:"S3 bucket name (s3 source)."`
	Region        string   `help:"AWS region to use."`
	Prefix        string   `help:"Prefix of the snapshot keys in the S3 bucket."`
	SnapshotHosts []string `help:"Kafka brokers holding the snapshot topic (kafka source)."`
	SnapshotTopic string   `help:"Kafka topic whose messages are snapshots keyed by name."`
	Group         string   `help:"Kafka consumer group for the snapshot topic."`
	Idle          int      `help:"Seconds to wait for a snapshot missing from the topic."`
	Reference     string   `help:"JSON file with the reference sequence and gene table."`
	GenomeLength  int      `help:"Genome length; 0 takes the length of the reference sequence."`
	Unit          string   `help:"Sequence type: nuc or aa."`
	Gene          string   `help:"Gene whose positions are highlighted in the profile. Empty or All means the whole genome."`
	Genes         []string `help:"Genes of the weekly series. Empty means All."`
	From          string   `help:"First day of the selection (YYYY-MM-DD)."`
	To            string   `help:"Last day of the selection (YYYY-MM-DD)."`
	Filters       []string `help:"Extra selection filters as key=value, e.g. country=Switzerland."`
	Deletions     bool     `help:"Count deletions as mutations."`
	Unobserved    bool     `help:"Include positions without any observed mutation."`
	Threshold     float64  `help:"Leave positions with lower entropy out of the profile."`
	DropLastWeek  bool     `help:"Leave the final, usually partial, week out of the series."`
	BoltCache     string   `help:"Cache snapshots in this BoltDB file."`
	LevelCache    string   `help:"Cache snapshots in this LevelDB directory."`
	KafkaHosts    []string `help:"Publish the result to these Kafka brokers instead of stdout."`
	KafkaTopic    string   `help:"Kafka topic for results."`
	Concurrency   int      `help:"Number of snapshots fetched at once."`
	Timeout       int      `help:"Give up on the whole analysis after this many seconds. 0 means never."`
	Indent        bool     `help:"Pretty print the JSON result."`
	Stats         bool     `help:"Print fetch and compute stats to stderr."`
	LogPath       string   `help:"Log file to write to. Empty means stderr."`
	Verbose       bool     `help:"Enable verbose logging."`

	Stdout io.Writer `flag:"-"`
	Stderr io.Writer `flag:"-"`

	log     diversity.Logger
	closers []io.Closer
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		Source:        "lapis",
		URL:           "https://lapis.cov-spectrum.org/open/v1",
		Retries:       3,
		Region:        "us-east-1",
		SnapshotTopic: "snapshots",
		Group:         "diversity",
		Idle:          5,
		Unit:          "nuc",
		Gene:          diversity.AllGenes,
		KafkaTopic:    "diversity",
		Concurrency:   8,
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
	}
}

// Run runs the analysis and writes the result to the configured sink.
func (m *Main) Run() (err error) {
	defer func() {
		for i := len(m.closers) - 1; i >= 0; i-- {
			if cerr := m.closers[i].Close(); cerr != nil && err == nil {
				err = errors.Wrap(cerr, "closing")
			}
		}
		m.closers = nil
	}()

	if err := m.setupLog(); err != nil {
		return err
	}
	req, err := m.Request()
	if err != nil {
		return errors.Wrap(err, "validating configuration")
	}
	ref, err := m.loadReference()
	if err != nil {
		return err
	}
	src, err := m.NewSource()
	if err != nil {
		return errors.Wrap(err, "getting source")
	}
	src, err = m.wrapCache(src)
	if err != nil {
		return errors.Wrap(err, "opening cache")
	}
	sink, err := m.newSink(string(diversity.CacheKey(req.Unit, req.Selector)))
	if err != nil {
		return errors.Wrap(err, "getting sink")
	}

	a := diversity.NewAnalyzer(src, ref)
	a.Concurrency = m.Concurrency
	a.Log = m.log
	if m.Stats {
		stats := termstat.NewCollector(m.Stderr, 2*time.Second)
		m.closers = append(m.closers, stats)
		a.Stats = stats
	}

	ctx := context.Background()
	if m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(m.Timeout)*time.Second)
		defer cancel()
	}
	start := time.Now()
	res, err := a.Run(ctx, req)
	if err != nil {
		return errors.Wrap(err, "analyzing")
	}
	m.log.Debugf("analysis took %v", time.Since(start))
	return errors.Wrap(sink.Write(res), "writing result")
}

func (m *Main) setupLog() error {
	logOut := m.Stderr
	if m.LogPath != "" {
		f, err := os.OpenFile(m.LogPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return errors.Wrap(err, "opening log file")
		}
		m.closers = append(m.closers, f)
		logOut = f
	}
	if m.Verbose {
		m.log = logger.NewVerboseLogger(logOut)
	} else {
		m.log = logger.NewStandardLogger(logOut)
	}
	return nil
}

// Request builds the analysis request from the configuration.
func (m *Main) Request() (diversity.Request, error) {
	unit, err := diversity.ParseSequenceType(m.Unit)
	if err != nil {
		return diversity.Request{}, err
	}
	req := diversity.Request{
		Unit:              unit,
		Gene:              m.Gene,
		Genes:             m.Genes,
		IncludeDeletions:  m.Deletions,
		IncludeUnobserved: m.Unobserved,
		Threshold:         m.Threshold,
		DropLastWeek:      m.DropLastWeek,
	}
	if len(m.Filters) > 0 {
		req.Selector.Filters = make(map[string]string, len(m.Filters))
		for _, f := range m.Filters {
			kv := strings.SplitN(f, "=", 2)
			if len(kv) != 2 || kv[0] == "" {
				return diversity.Request{}, errors.Errorf("filter '%s' is not key=value", f)
			}
			req.Selector.Filters[kv[0]] = kv[1]
		}
	}
	if m.From == "" && m.To == "" {
		return req, nil
	}
	if m.From == "" || m.To == "" {
		return diversity.Request{}, errors.New("from and to must be given together")
	}
	from, err := time.Parse(diversity.DayLayout, m.From)
	if err != nil {
		return diversity.Request{}, errors.Wrap(err, "parsing from")
	}
	to, err := time.Parse(diversity.DayLayout, m.To)
	if err != nil {
		return diversity.Request{}, errors.Wrap(err, "parsing to")
	}
	if to.Before(from) {
		return diversity.Request{}, errors.Errorf("to %s is before from %s", m.To, m.From)
	}
	req.Selector = req.Selector.WithDateRange(diversity.DateRange{From: from, To: to})
	req.Weeks = diversity.Weeks(from, to)
	return req, nil
}

func (m *Main) loadReference() (*diversity.Reference, error) {
	if m.Reference == "" {
		return nil, errors.New("a reference file is required")
	}
	f, err := os.Open(m.Reference)
	if err != nil {
		return nil, errors.Wrap(err, "opening reference")
	}
	defer f.Close()
	ref, err := diversity.LoadReference(f, m.GenomeLength)
	return ref, errors.Wrapf(err, "loading reference %s", m.Reference)
}

// NewSource builds the configured snapshot source.
func (m *Main) NewSource() (diversity.Source, error) {
	switch m.Source {
	case "lapis":
		return lapis.NewSource(m.URL,
			lapis.WithAccessKey(m.AccessKey),
			lapis.WithMinProportion(m.MinProportion),
			lapis.WithMaxRetries(m.Retries),
			lapis.WithLogger(m.logger()),
		)
	case "file":
		return file.NewSource(m.Dir)
	case "s3":
		return s3.NewSource(s3.OptSrcBucket(m.Bucket), s3.OptSrcRegion(m.Region), s3.OptSrcPrefix(m.Prefix))
	case "kafka":
		if len(m.SnapshotHosts) == 0 {
			return nil, errors.New("the kafka source needs snapshot hosts")
		}
		src, err := kafka.NewSource(m.SnapshotHosts, m.SnapshotTopic, m.Group,
			kafka.OptSrcIdle(time.Duration(m.Idle)*time.Second),
			kafka.OptSrcLogger(m.logger()),
		)
		if err != nil {
			return nil, err
		}
		m.closers = append(m.closers, src)
		return src, nil
	default:
		return nil, errors.Errorf("unknown source '%s', use lapis, file, s3 or kafka", m.Source)
	}
}

func (m *Main) wrapCache(src diversity.Source) (diversity.Source, error) {
	var c diversity.Cache
	var err error
	switch {
	case m.BoltCache != "" && m.LevelCache != "":
		return nil, errors.New("use either a bolt or a leveldb cache, not both")
	case m.BoltCache != "":
		c, err = boltdb.NewCache(m.BoltCache)
	case m.LevelCache != "":
		c, err = leveldb.NewCache(m.LevelCache)
	default:
		return src, nil
	}
	if err != nil {
		return nil, err
	}
	m.closers = append(m.closers, c)
	cs := diversity.NewCachingSource(src, c)
	cs.Log = m.logger()
	return cs, nil
}

func (m *Main) newSink(key string) (diversity.Sink, error) {
	if len(m.KafkaHosts) == 0 {
		return diversity.NewJSONSink(m.Stdout, m.Indent), nil
	}
	sink, err := kafka.NewSink(m.KafkaHosts, m.KafkaTopic, key)
	if err != nil {
		return nil, err
	}
	m.closers = append(m.closers, sink)
	return sink, nil
}

func (m *Main) logger() diversity.Logger {
	if m.log == nil {
		return diversity.NopLogger{}
	}
	return m.log
}
