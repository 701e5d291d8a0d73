package reporting

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/astaqc/taurus/pkg/aggregator"
	"github.com/astaqc/taurus/pkg/engine"
	"github.com/astaqc/taurus/pkg/junit"
	"github.com/astaqc/taurus/pkg/passfail"
)

const (
	// DataSourceSampleLabels renders one report entry per sample label.
	DataSourceSampleLabels = "sample-labels"
	// DataSourcePassFail renders one report entry per evaluated criterion.
	DataSourcePassFail = "pass-fail"

	// defaultClassName labels report entries when no remote report info
	// supplies a test name. Doubles as the suite's package attribute.
	defaultClassName = "taurus"

	maxURLsHardCap = 50

	reportFilePrefix = "xunit"
	reportFileSuffix = ".xml"
)

// CriteriaProvider is implemented by pass/fail evaluators that can hand over
// their criteria together with the evaluated outcome.
type CriteriaProvider interface {
	Criteria() []passfail.Criterion
}

// JUnitConfig holds the per-instance options of the JUnit XML reporter.
type JUnitConfig struct {
	// Filename is the explicit output path. When empty, a fresh artifact
	// path is requested from the engine during Prepare.
	Filename string
	// DataSource selects the rendering mode, one of DataSourceSampleLabels
	// or DataSourcePassFail.
	DataSource string
	// MaxURLs caps how many error signatures the summary entry breaks
	// down. Hard-capped at 50.
	MaxURLs int
}

func DefaultJUnitConfig() JUnitConfig {
	return JUnitConfig{
		DataSource: DataSourceSampleLabels,
		MaxURLs:    20,
	}
}

// JUnitXML builds a JUnit XML report document out of the last aggregated
// window (or externally evaluated pass/fail criteria) and persists it once,
// at run end. Collaborators are injected at construction; a nil or empty
// slice means the collaborator is absent, which is normal.
type JUnitXML struct {
	config JUnitConfig
	log    *logrus.Entry
	engine *engine.Engine

	reportInfoProviders []engine.ReportInfoProvider
	criteriaProviders   []CriteriaProvider

	reportPath string
	lastSecond *aggregator.DataPoint
}

func NewJUnitXML(config JUnitConfig, log *logrus.Entry, eng *engine.Engine,
	reportInfoProviders []engine.ReportInfoProvider, criteriaProviders []CriteriaProvider) *JUnitXML {
	return &JUnitXML{
		config:              config,
		log:                 log,
		engine:              eng,
		reportInfoProviders: reportInfoProviders,
		criteriaProviders:   criteriaProviders,
	}
}

var _ aggregator.Listener = &JUnitXML{}

// Prepare validates the options and resolves the output path.
func (r *JUnitXML) Prepare() error {
	switch r.config.DataSource {
	case DataSourceSampleLabels, DataSourcePassFail:
	default:
		return fmt.Errorf("unsupported data source: %s", r.config.DataSource)
	}

	if r.config.MaxURLs > maxURLsHardCap {
		r.log.Warningf("Limiting urls count in summary report to %d", maxURLsHardCap)
		r.config.MaxURLs = maxURLsHardCap
	}

	if r.config.Filename != "" {
		r.reportPath = r.config.Filename
		return nil
	}
	path, err := r.engine.CreateArtifact(reportFilePrefix, reportFileSuffix)
	if err != nil {
		return err
	}
	r.reportPath = path
	return nil
}

func (r *JUnitXML) StartUp() error {
	return nil
}

// AggregatedSecond keeps the latest window, discarding the previous one.
func (r *JUnitXML) AggregatedSecond(data *aggregator.DataPoint) {
	r.lastSecond = data
}

// PostProcess renders the configured report mode and writes it out.
func (r *JUnitXML) PostProcess() error {
	var suite *junit.TestSuite
	switch r.config.DataSource {
	case DataSourceSampleLabels:
		if r.lastSecond == nil {
			r.log.Info("No aggregated results received, skipping JUnit XML report")
			return nil
		}
		suite = r.processSampleLabels()
	case DataSourcePassFail:
		suite = r.processPassFail()
	default:
		return fmt.Errorf("unsupported data source: %s", r.config.DataSource)
	}

	return junit.Write(r.log, r.reportPath, suite)
}

// reportInfo gathers (URL, test name) pairs from every injected provider.
// More than one pair is ambiguous: the first one wins, with a warning.
func (r *JUnitXML) reportInfo() []engine.ReportInfo {
	var infos []engine.ReportInfo
	for _, provider := range r.reportInfoProviders {
		infos = append(infos, provider.ReportInfo()...)
	}
	if len(infos) > 1 {
		r.log.Warning("More than one remote report source found")
	}
	return infos
}

func (r *JUnitXML) processSampleLabels() *junit.TestSuite {
	cumulative := r.lastSecond.Cumulative
	overall := cumulative[aggregator.OverallLabel]
	if overall == nil {
		overall = &aggregator.KPISet{}
	}

	infos := r.reportInfo()
	className := defaultClassName
	if len(infos) > 0 && infos[0].TestName != "" {
		className = infos[0].TestName
	}
	var reportURLs []string
	for _, info := range infos {
		if info.URL != "" {
			reportURLs = append(reportURLs, info.URL)
		}
	}

	suite := &junit.TestSuite{Name: "sample_labels", Package: defaultClassName}
	suite.TestCases = append(suite.TestCases, r.summaryTestCase(overall, reportURLs))

	for _, label := range sets.StringKeySet(cumulative).List() {
		if label == aggregator.OverallLabel {
			continue
		}
		testCase := &junit.TestCase{ClassName: className, Name: label}
		for _, errEntry := range cumulative[label].Errors {
			testCase.Errors = append(testCase.Errors, &junit.ErrorOutput{
				Message: errEntry.ResponseCode,
				Type:    errEntry.Message,
				Output:  fmt.Sprintf("total errors of this type:%d", errEntry.Count),
			})
		}
		suite.TestCases = append(suite.TestCases, testCase)
	}
	return suite
}

// summaryTestCase builds the synthetic first entry carrying overall counts,
// remote report links and the per-signature error breakdown. It is marked
// skipped since it holds statistics rather than a verdict.
func (r *JUnitXML) summaryTestCase(overall *aggregator.KPISet, reportURLs []string) *junit.TestCase {
	var body strings.Builder
	fmt.Fprintf(&body, "Success: %d, Sample count: %d, Failures: %d, Errors: %d\n",
		overall.Successes, overall.Samples, overall.Failures, countErrors(overall))
	for _, url := range reportURLs {
		fmt.Fprintf(&body, "Remote report link: %s\n", url)
	}
	body.WriteString(r.urlsErrors(overall))

	return &junit.TestCase{
		ClassName:   defaultClassName,
		Name:        "summary_report",
		SkipMessage: &junit.SkipMessage{},
		SystemOut:   body.String(),
	}
}

// countErrors sums per-URL occurrence counts over every error signature,
// not the number of distinct signatures.
func countErrors(overall *aggregator.KPISet) int64 {
	var count int64
	for _, errEntry := range overall.Errors {
		for _, urlCount := range errEntry.URLs {
			count += urlCount
		}
	}
	return count
}

// urlsErrors renders the error signature breakdown of the summary entry,
// truncated at MaxURLs signatures.
func (r *JUnitXML) urlsErrors(overall *aggregator.KPISet) string {
	var out strings.Builder
	for i, errEntry := range overall.Errors {
		if i >= r.config.MaxURLs {
			break
		}
		fmt.Fprintf(&out, "Error code: %s, Message: %s, count: %d\n",
			errEntry.ResponseCode, errEntry.Message, errEntry.Count)
		for _, url := range sets.StringKeySet(errEntry.URLs).List() {
			fmt.Fprintf(&out, "URL: %s, Error count %d\n", url, errEntry.URLs[url])
		}
	}
	return out.String()
}

func (r *JUnitXML) processPassFail() *junit.TestSuite {
	var criteria []passfail.Criterion
	for _, provider := range r.criteriaProviders {
		criteria = append(criteria, provider.Criteria()...)
	}

	infos := r.reportInfo()
	className := defaultClassName
	if len(infos) > 0 && infos[0].TestName != "" {
		className = infos[0].TestName
	}

	suite := &junit.TestSuite{Name: "pass_fail", Package: defaultClassName}
	for _, criterion := range criteria {
		testCase := &junit.TestCase{ClassName: className, Name: criterion.DisplayName()}
		if criterion.Triggered && criterion.Fail {
			testCase.Errors = append(testCase.Errors, &junit.ErrorOutput{
				Type:    "pass/fail criteria triggered",
				Message: "",
			})
		}
		suite.TestCases = append(suite.TestCases, testCase)
	}
	return suite
}
