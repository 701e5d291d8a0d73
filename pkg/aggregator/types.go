package aggregator

import (
	"sort"
	"strconv"
	"time"
)

// OverallLabel is the key of the aggregate-of-everything bucket inside a
// DataPoint view. Every cumulative view is expected to carry it.
const OverallLabel = ""

// DataPoint is one aggregated window of test measurements as produced by the
// upstream aggregation pipeline. Cumulative holds all-time totals per label,
// Current holds the last window only. Reporters in this repo only ever read
// the most recently delivered DataPoint.
type DataPoint struct {
	Timestamp  time.Time          `json:"ts"`
	Cumulative map[string]*KPISet `json:"cumulative"`
	Current    map[string]*KPISet `json:"current"`
}

// KPISet is the statistics bundle for a single label.
type KPISet struct {
	Samples   int64 `json:"samples"`
	Successes int64 `json:"successes"`
	Failures  int64 `json:"failures"`

	AvgResponseTime float64 `json:"avg_rt"`
	AvgLatency      float64 `json:"avg_lt"`
	AvgConnectTime  float64 `json:"avg_ct"`

	// Percentiles maps percentile rank to a response time value. Keys are
	// numeric strings ("90", "99.9") and must be compared numerically.
	Percentiles map[string]float64 `json:"perc,omitempty"`

	Errors []*ErrorEntry `json:"errors,omitempty"`
}

// ErrorEntry is one distinct error signature observed for a label, with a
// per-URL breakdown of where the occurrences came from.
type ErrorEntry struct {
	ResponseCode string           `json:"rc"`
	Message      string           `json:"msg"`
	Count        int64            `json:"cnt"`
	URLs         map[string]int64 `json:"urls,omitempty"`
}

// Listener receives every aggregated window as it is produced.
type Listener interface {
	AggregatedSecond(data *DataPoint)
}

// Overall returns the aggregate-of-everything KPISet of the cumulative view,
// or nil if the view does not carry one.
func (d *DataPoint) Overall() *KPISet {
	if d == nil {
		return nil
	}
	return d.Cumulative[OverallLabel]
}

// SortedPercentileKeys returns the percentile ranks of the given map ordered
// ascending by numeric value, so "9" sorts before "10" and "99.9" after "99".
// Keys that do not parse as numbers sort first, among themselves by string.
func SortedPercentileKeys(percentiles map[string]float64) []string {
	keys := make([]string, 0, len(percentiles))
	for key := range percentiles {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		left, leftErr := strconv.ParseFloat(keys[i], 64)
		right, rightErr := strconv.ParseFloat(keys[j], 64)
		if leftErr != nil || rightErr != nil {
			if leftErr != nil && rightErr != nil {
				return keys[i] < keys[j]
			}
			return leftErr != nil
		}
		return left < right
	})
	return keys
}
