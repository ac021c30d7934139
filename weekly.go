package diversity

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/pkg/errors"
)

// DayLayout is the calendar day format used in selectors and snapshot names.
const DayLayout = "2006-01-02"

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	From time.Time `json:"dateFrom"`
	To   time.Time `json:"dateTo"`
}

// String renders the range as "<from>_<to>".
func (d DateRange) String() string {
	return d.From.Format(DayLayout) + "_" + d.To.Format(DayLayout)
}

// Weeks partitions [from, to] into ISO weeks, Monday through Sunday. The
// first week starts on the Monday on or before from, the last one contains
// to.
func Weeks(from, to time.Time) []DateRange {
	from = truncateDay(from)
	to = truncateDay(to)
	offset := (int(from.Weekday()) + 6) % 7 // days since Monday
	monday := from.AddDate(0, 0, -offset)
	var weeks []DateRange
	for !monday.After(to) {
		weeks = append(weeks, DateRange{From: monday, To: monday.AddDate(0, 0, 6)})
		monday = monday.AddDate(0, 0, 7)
	}
	return weeks
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekSnapshot holds the records fetched for one week.
type WeekSnapshot struct {
	Week    DateRange
	Records []MutationRecord
}

// WeekEntropy is the mean entropy of one week.
type WeekEntropy struct {
	Week        DateRange `json:"week"`
	MeanEntropy float64   `json:"meanEntropy"`
}

// WeeklyMeanEntropy computes the gene-scoped mean entropy of every week.
// The result is in chronological order of the week labels, whatever order
// the snapshots arrived in.
func WeeklyMeanEntropy(ref *Reference, weeks []WeekSnapshot, unit SequenceType, gene Gene, includeDeletions bool) ([]WeekEntropy, error) {
	sorted := make([]WeekSnapshot, len(weeks))
	copy(sorted, weeks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Week.From.Before(sorted[j].Week.From)
	})

	means := make([]WeekEntropy, 0, len(sorted))
	for _, w := range sorted {
		profile, err := ComputeEntropy(ref, w.Records, unit, EntropyOptions{IncludeDeletions: includeDeletions})
		if err != nil {
			return nil, errors.Wrapf(err, "computing entropy for week %s", w.Week)
		}
		means = append(means, WeekEntropy{
			Week:        w.Week,
			MeanEntropy: GeneMeanEntropy(ref, profile, unit, gene),
		})
	}
	return means, nil
}

// SeriesRow is one point of a multi-gene time series: the start of a week
// and the mean entropy of each gene which has a value that week.
type SeriesRow struct {
	Day    time.Time
	Values map[string]float64
}

// MarshalJSON renders the row as {"day": <unix millis>, "<gene>": value, ...}.
// A NaN mean is written as null.
func (r SeriesRow) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(r.Values)+1)
	for gene, v := range r.Values {
		m[gene] = FiniteOrNull(v)
	}
	m["day"] = r.Day.UnixNano() / int64(time.Millisecond)
	return json.Marshal(m)
}

// MergeSeries joins per-gene series on the start of each week. A gene
// without a value in some week is absent from that row's Values. Rows are
// in chronological order.
func MergeSeries(series map[string][]WeekEntropy) []SeriesRow {
	rows := make(map[int64]*SeriesRow)
	for gene, s := range series {
		for _, w := range s {
			key := w.Week.From.Unix()
			row, ok := rows[key]
			if !ok {
				row = &SeriesRow{Day: w.Week.From, Values: make(map[string]float64)}
				rows[key] = row
			}
			row.Values[gene] = w.MeanEntropy
		}
	}
	out := make([]SeriesRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out
}

// SeriesOptions control MultiGeneSeries.
type SeriesOptions struct {
	IncludeDeletions bool
	// DropLastWeek leaves out the final, usually partial, week of every
	// gene's series.
	DropLastWeek bool
}

// MultiGeneSeries builds one weekly series per gene and merges them.
func MultiGeneSeries(ref *Reference, weeks []WeekSnapshot, unit SequenceType, genes []Gene, opts SeriesOptions) ([]SeriesRow, error) {
	series := make(map[string][]WeekEntropy, len(genes))
	for _, g := range genes {
		s, err := WeeklyMeanEntropy(ref, weeks, unit, g, opts.IncludeDeletions)
		if err != nil {
			return nil, errors.Wrapf(err, "gene %s", g.Name)
		}
		if opts.DropLastWeek && len(s) > 0 {
			s = s[:len(s)-1]
		}
		series[g.Name] = s
	}
	return MergeSeries(series), nil
}
