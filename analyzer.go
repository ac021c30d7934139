package diversity

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Request describes one diversity analysis.
type Request struct {
	Selector Selector
	Unit     SequenceType

	// Weeks are the week boundaries of the time series. Each is fetched as
	// its own snapshot.
	Weeks []DateRange

	// Gene focuses the position range; empty or AllGenes means the whole
	// profile.
	Gene string
	// Genes are the genes of the time series; empty means AllGenes.
	Genes []string

	IncludeDeletions  bool
	IncludeUnobserved bool
	// Threshold is the minimum entropy of a position in Result.Profile.
	Threshold    float64
	DropLastWeek bool
}

// Result is everything the presentation layer needs for one Request.
type Result struct {
	Unit string `json:"sequenceType"`
	// Profile is the whole-range profile, sorted and filtered by Threshold.
	Profile []PositionEntropy `json:"positionEntropy"`
	// Range is the focused gene's bounds within Profile.
	Range Range `json:"range"`
	// MeanEntropy is the mean over the unfiltered whole-range profile.
	MeanEntropy float64     `json:"meanEntropy"`
	Series      []SeriesRow `json:"timeData"`
}

// MarshalJSON encodes a NaN MeanEntropy as null.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	return json.Marshal(struct {
		plain
		MeanEntropy *float64 `json:"meanEntropy"`
	}{plain(r), FiniteOrNull(r.MeanEntropy)})
}

// Analyzer fetches snapshots from a Source and turns them into a Result.
type Analyzer struct {
	Source      Source
	Reference   *Reference
	Concurrency int
	Log         Logger
	Stats       Statter
}

// NewAnalyzer gets an Analyzer with default concurrency, no logging and no
// stats.
func NewAnalyzer(src Source, ref *Reference) *Analyzer {
	return &Analyzer{
		Source:      src,
		Reference:   ref,
		Concurrency: 8,
		Log:         NopLogger{},
		Stats:       NopStatter{},
	}
}

// Run fetches the whole-range snapshot and every week, then computes the
// profile, its focused range and the multi-gene weekly series.
func (a *Analyzer) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Unit == Unspecified {
		return nil, errors.New("request needs a sequence type")
	}
	if a.Log == nil || a.Stats == nil {
		return nil, errors.New("analyzer needs a Logger and a Statter, use NewAnalyzer")
	}
	focus, genes, err := a.resolveGenes(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	whole, weeks, err := a.fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	a.Stats.Timing("fetch", time.Since(start), 1)

	start = time.Now()
	profile, err := ComputeEntropy(a.Reference, whole, req.Unit, EntropyOptions{
		IncludeDeletions:  req.IncludeDeletions,
		IncludeUnobserved: req.IncludeUnobserved,
	})
	if err != nil {
		return nil, errors.Wrap(err, "computing whole range entropy")
	}
	if req.Unit == AminoAcid {
		SortByGenomicOrder(a.Reference, profile)
	} else {
		SortByPosition(profile)
	}
	mean := MeanEntropy(profile)
	a.Stats.Count("positions", int64(len(profile)), 1)
	a.Stats.Gauge("mean_entropy", mean, 1)

	filtered := FilterByEntropy(profile, req.Threshold)
	rng := ResolveRange(focus, filtered, req.Unit).Clamp(len(filtered))

	series, err := MultiGeneSeries(a.Reference, weeks, req.Unit, genes, SeriesOptions{
		IncludeDeletions: req.IncludeDeletions,
		DropLastWeek:     req.DropLastWeek,
	})
	if err != nil {
		return nil, errors.Wrap(err, "computing weekly series")
	}
	a.Stats.Timing("compute", time.Since(start), 1)
	a.Log.Printf("%s: %d positions (%d above %g), mean entropy %.6f, %d weeks", req.Unit, len(profile), len(filtered), req.Threshold, mean, len(series))

	return &Result{
		Unit:        req.Unit.String(),
		Profile:     filtered,
		Range:       rng,
		MeanEntropy: mean,
		Series:      series,
	}, nil
}

func (a *Analyzer) resolveGenes(req Request) (focus *Gene, genes []Gene, err error) {
	if req.Gene != "" {
		g, err := a.Reference.Gene(req.Gene)
		if err != nil {
			return nil, nil, errors.Wrap(err, "resolving focus gene")
		}
		focus = &g
	}
	names := req.Genes
	if len(names) == 0 {
		names = []string{AllGenes}
	}
	for _, name := range names {
		g, err := a.Reference.Gene(name)
		if err != nil {
			return nil, nil, errors.Wrap(err, "resolving series gene")
		}
		genes = append(genes, g)
	}
	return focus, genes, nil
}

// fetch gets the whole-range snapshot and all weeks, with at most
// Concurrency requests in flight.
func (a *Analyzer) fetch(ctx context.Context, req Request) ([]MutationRecord, []WeekSnapshot, error) {
	concurrency := a.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	eg, ctx := errgroup.WithContext(ctx)

	get := func(sel Selector, dst *[]MutationRecord, what string) {
		eg.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			defer func() { <-sem }()
			a.Log.Debugf("fetching %s %s", req.Unit, what)
			recs, err := a.Source.Proportions(ctx, req.Unit, sel)
			if err != nil {
				return errors.Wrapf(err, "fetching %s", what)
			}
			a.Stats.Count("snapshots", 1, 1)
			a.Stats.Count("records", int64(len(recs)), 1)
			*dst = recs
			return nil
		})
	}

	var whole []MutationRecord
	get(req.Selector, &whole, "whole range")
	weeks := make([]WeekSnapshot, len(req.Weeks))
	for i, w := range req.Weeks {
		weeks[i].Week = w
		get(req.Selector.WithDateRange(w), &weeks[i].Records, "week "+w.From.Format(DayLayout))
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	return whole, weeks, nil
}
