package reporting

import (
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/utils/clock"

	"github.com/astaqc/taurus/pkg/aggregator"
)

// FinalStatusConfig holds the per-instance toggles of the summary reporter.
type FinalStatusConfig struct {
	TestDuration bool
	Summary      bool
	Percentiles  bool
	FailedLabels bool
}

// DefaultFinalStatusConfig matches the documented defaults: everything on
// except the failed-labels breakdown.
func DefaultFinalStatusConfig() FinalStatusConfig {
	return FinalStatusConfig{
		TestDuration: true,
		Summary:      true,
		Percentiles:  true,
		FailedLabels: false,
	}
}

// FinalStatus logs short end-of-run statistics to the operational log. It
// keeps only the latest aggregated window and does all work in PostProcess.
type FinalStatus struct {
	config FinalStatusConfig
	log    *logrus.Entry
	clock  clock.PassiveClock

	startTime  time.Time
	lastSecond *aggregator.DataPoint
}

func NewFinalStatus(config FinalStatusConfig, log *logrus.Entry, clk clock.PassiveClock) *FinalStatus {
	return &FinalStatus{
		config: config,
		log:    log,
		clock:  clk,
	}
}

var _ aggregator.Listener = &FinalStatus{}

func (s *FinalStatus) Prepare() error {
	return nil
}

func (s *FinalStatus) StartUp() error {
	s.startTime = s.clock.Now()
	return nil
}

// AggregatedSecond keeps the latest window, discarding the previous one.
func (s *FinalStatus) AggregatedSecond(data *aggregator.DataPoint) {
	s.lastSecond = data
}

// PostProcess logs the enabled report sections. A run that never produced a
// single aggregated window only reports its duration.
func (s *FinalStatus) PostProcess() error {
	endTime := s.clock.Now()

	if s.config.TestDuration {
		s.log.Infof("Test duration: %s", formatDuration(s.startTime, endTime))
	}

	if s.lastSecond == nil {
		return nil
	}

	if overall := s.lastSecond.Overall(); overall != nil {
		if s.config.Summary {
			s.reportSamplesCount(overall)
		}
		if s.config.Percentiles {
			s.reportPercentiles(overall)
		}
	}

	if s.config.FailedLabels {
		s.reportFailedLabels(s.lastSecond.Cumulative)
	}
	return nil
}

func (s *FinalStatus) reportSamplesCount(overall *aggregator.KPISet) {
	// an empty run is a valid terminal state, report it as 0% failures
	errRate := 0.0
	if overall.Samples > 0 {
		errRate = 100 * float64(overall.Failures) / float64(overall.Samples)
	}
	s.log.Infof("Samples count: %d, %.2f%% failures", overall.Samples, errRate)
}

func (s *FinalStatus) reportPercentiles(overall *aggregator.KPISet) {
	s.log.Infof("Average times: total %.3f, latency %.3f, connect %.3f",
		overall.AvgResponseTime, overall.AvgLatency, overall.AvgConnectTime)

	for _, key := range aggregator.SortedPercentileKeys(overall.Percentiles) {
		rank, err := strconv.ParseFloat(key, 64)
		if err != nil {
			s.log.Infof("Percentile %s%%: %.3f", key, overall.Percentiles[key])
			continue
		}
		s.log.Infof("Percentile %.1f%%: %.3f", rank, overall.Percentiles[key])
	}
}

func (s *FinalStatus) reportFailedLabels(cumulative map[string]*aggregator.KPISet) {
	for _, label := range sets.StringKeySet(cumulative).List() {
		if label == aggregator.OverallLabel {
			continue
		}
		if failed := cumulative[label].Failures; failed > 0 {
			s.log.Infof("%d failed samples: %s", failed, label)
		}
	}
}

// formatDuration renders the elapsed wall clock time as H:MM:SS, with a day
// count prefixed for runs longer than a day. Both endpoints are truncated to
// whole seconds before differencing, dropping sub-second precision.
func formatDuration(start, end time.Time) string {
	seconds := end.Unix() - start.Unix()
	days := seconds / 86400
	seconds -= days * 86400
	hours := seconds / 3600
	seconds -= hours * 3600
	minutes := seconds / 60
	seconds -= minutes * 60

	hms := fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	switch {
	case days == 1:
		return fmt.Sprintf("1 day, %s", hms)
	case days > 1:
		return fmt.Sprintf("%d days, %s", days, hms)
	default:
		return hms
	}
}
