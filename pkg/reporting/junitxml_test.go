package reporting

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	testlog "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astaqc/taurus/pkg/aggregator"
	"github.com/astaqc/taurus/pkg/engine"
	"github.com/astaqc/taurus/pkg/junit"
	"github.com/astaqc/taurus/pkg/passfail"
)

func junitReporterForTest(t *testing.T, config JUnitConfig, infos []engine.ReportInfo, criteria []passfail.Criterion) (*JUnitXML, *testlog.Hook) {
	t.Helper()
	logger, hook := testlog.NewNullLogger()

	var reportInfoProviders []engine.ReportInfoProvider
	if infos != nil {
		reportInfoProviders = append(reportInfoProviders, &engine.StaticReportInfo{Info: infos})
	}
	var criteriaProviders []CriteriaProvider
	if criteria != nil {
		criteriaProviders = append(criteriaProviders, &passfail.StaticProvider{Items: criteria})
	}

	reporter := NewJUnitXML(config, logger.WithField("component", "junit-xml"),
		engine.New(t.TempDir()), reportInfoProviders, criteriaProviders)
	return reporter, hook
}

func labeledSnapshot() *aggregator.DataPoint {
	return &aggregator.DataPoint{
		Cumulative: map[string]*aggregator.KPISet{
			aggregator.OverallLabel: {
				Samples:   100,
				Successes: 90,
				Failures:  10,
				Errors: []*aggregator.ErrorEntry{
					{ResponseCode: "500", Message: "Internal Server Error", Count: 7, URLs: map[string]int64{"/cart": 4, "/pay": 3}},
					{ResponseCode: "404", Message: "Not Found", Count: 3, URLs: map[string]int64{"/cart": 3}},
				},
			},
			"checkout": {
				Samples:  40,
				Failures: 10,
				Errors: []*aggregator.ErrorEntry{
					{ResponseCode: "500", Message: "Internal Server Error", Count: 7, URLs: map[string]int64{"/cart": 7}},
				},
			},
			"browse": {Samples: 60, Successes: 60},
		},
	}
}

func parseReport(t *testing.T, path string) *junit.TestSuite {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	suite := &junit.TestSuite{}
	require.NoError(t, xml.Unmarshal(raw, suite))
	return suite
}

func TestJUnitXMLSampleLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xunit.xml")
	reporter, _ := junitReporterForTest(t,
		JUnitConfig{Filename: path, DataSource: DataSourceSampleLabels, MaxURLs: 20},
		[]engine.ReportInfo{{URL: "https://reports.example.com/run/7", TestName: "nightly-load"}},
		nil)

	require.NoError(t, reporter.Prepare())
	reporter.AggregatedSecond(labeledSnapshot())
	require.NoError(t, reporter.PostProcess())

	suite := parseReport(t, path)
	assert.Equal(t, "sample_labels", suite.Name)
	assert.Equal(t, "taurus", suite.Package)

	// one summary entry plus one entry per non-empty label
	require.Len(t, suite.TestCases, 3)

	summary := suite.TestCases[0]
	assert.Equal(t, "summary_report", summary.Name)
	assert.Equal(t, "taurus", summary.ClassName)
	require.NotNil(t, summary.SkipMessage)
	expectedBody := strings.Join([]string{
		"Success: 90, Sample count: 100, Failures: 10, Errors: 10",
		"Remote report link: https://reports.example.com/run/7",
		"Error code: 500, Message: Internal Server Error, count: 7",
		"URL: /cart, Error count 4",
		"URL: /pay, Error count 3",
		"Error code: 404, Message: Not Found, count: 3",
		"URL: /cart, Error count 3",
		"",
	}, "\n")
	if diff := cmp.Diff(expectedBody, summary.SystemOut); diff != "" {
		t.Errorf("unexpected summary body: %s", diff)
	}

	// labels come out alphabetically, classed by the remote test name
	assert.Equal(t, "browse", suite.TestCases[1].Name)
	assert.Equal(t, "nightly-load", suite.TestCases[1].ClassName)
	assert.Empty(t, suite.TestCases[1].Errors)

	checkout := suite.TestCases[2]
	assert.Equal(t, "checkout", checkout.Name)
	require.Len(t, checkout.Errors, 1)
	assert.Equal(t, "500", checkout.Errors[0].Message)
	assert.Equal(t, "Internal Server Error", checkout.Errors[0].Type)
	assert.Equal(t, "total errors of this type:7", checkout.Errors[0].Output)
}

func TestJUnitXMLSampleLabelsWithoutCollaborators(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xunit.xml")
	reporter, _ := junitReporterForTest(t,
		JUnitConfig{Filename: path, DataSource: DataSourceSampleLabels, MaxURLs: 20}, nil, nil)

	require.NoError(t, reporter.Prepare())
	reporter.AggregatedSecond(labeledSnapshot())
	require.NoError(t, reporter.PostProcess())

	suite := parseReport(t, path)
	for _, testCase := range suite.TestCases {
		assert.Equal(t, "taurus", testCase.ClassName)
	}
	assert.NotContains(t, suite.TestCases[0].SystemOut, "Remote report link")
}

func TestJUnitXMLTruncatesErrorSignatures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xunit.xml")
	reporter, _ := junitReporterForTest(t,
		JUnitConfig{Filename: path, DataSource: DataSourceSampleLabels, MaxURLs: 1}, nil, nil)

	require.NoError(t, reporter.Prepare())
	reporter.AggregatedSecond(labeledSnapshot())
	require.NoError(t, reporter.PostProcess())

	body := parseReport(t, path).TestCases[0].SystemOut
	assert.Contains(t, body, "Error code: 500")
	assert.NotContains(t, body, "Error code: 404")
}

func TestJUnitXMLMaxURLsHardCap(t *testing.T) {
	reporter, hook := junitReporterForTest(t,
		JUnitConfig{Filename: filepath.Join(t.TempDir(), "xunit.xml"), DataSource: DataSourceSampleLabels, MaxURLs: 100}, nil, nil)

	require.NoError(t, reporter.Prepare())
	assert.Equal(t, 50, reporter.config.MaxURLs)

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && strings.Contains(entry.Message, "Limiting urls count") {
			warned = true
		}
	}
	assert.True(t, warned, "expected a warning about the hard cap")
}

func TestJUnitXMLRejectsUnknownDataSource(t *testing.T) {
	reporter, _ := junitReporterForTest(t,
		JUnitConfig{Filename: filepath.Join(t.TempDir(), "xunit.xml"), DataSource: "labels", MaxURLs: 20}, nil, nil)
	assert.Error(t, reporter.Prepare())
}

func TestJUnitXMLSampleLabelsWithoutSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xunit.xml")
	reporter, _ := junitReporterForTest(t,
		JUnitConfig{Filename: path, DataSource: DataSourceSampleLabels, MaxURLs: 20}, nil, nil)

	require.NoError(t, reporter.Prepare())
	require.NoError(t, reporter.PostProcess())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "no report should be written without data")
}

func TestJUnitXMLPassFail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xunit.xml")
	criteria := []passfail.Criterion{
		{Subject: "avg-rt", Condition: ">", Threshold: "500ms", Triggered: true, Fail: true},
		{Subject: "failures", Label: "checkout", Condition: ">", Threshold: "1%", Timeframe: "30s"},
	}
	reporter, _ := junitReporterForTest(t,
		JUnitConfig{Filename: path, DataSource: DataSourcePassFail, MaxURLs: 20}, nil, criteria)

	require.NoError(t, reporter.Prepare())
	require.NoError(t, reporter.PostProcess())

	suite := parseReport(t, path)
	assert.Equal(t, "pass_fail", suite.Name)
	require.Len(t, suite.TestCases, 2)

	triggered := suite.TestCases[0]
	assert.Equal(t, "avg-rt>500ms", triggered.Name)
	require.Len(t, triggered.Errors, 1)
	assert.Equal(t, "pass/fail criteria triggered", triggered.Errors[0].Type)
	assert.Equal(t, "", triggered.Errors[0].Message)

	clean := suite.TestCases[1]
	assert.Equal(t, "failures of checkout>1% for 30s", clean.Name)
	assert.Empty(t, clean.Errors)
}

func TestJUnitXMLPassFailUsesRemoteTestName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xunit.xml")
	criteria := []passfail.Criterion{{Subject: "hits", Condition: "<", Threshold: "10"}}
	reporter, hook := junitReporterForTest(t,
		JUnitConfig{Filename: path, DataSource: DataSourcePassFail, MaxURLs: 20},
		[]engine.ReportInfo{
			{URL: "https://reports.example.com/run/7", TestName: "nightly-load"},
			{URL: "https://reports.example.com/run/8", TestName: "other"},
		},
		criteria)

	require.NoError(t, reporter.Prepare())
	require.NoError(t, reporter.PostProcess())

	suite := parseReport(t, path)
	require.Len(t, suite.TestCases, 1)
	assert.Equal(t, "nightly-load", suite.TestCases[0].ClassName)

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && strings.Contains(entry.Message, "More than one remote report source") {
			warned = true
		}
	}
	assert.True(t, warned, "expected an ambiguity warning")
}

func TestJUnitXMLResolvesArtifactPath(t *testing.T) {
	logger, _ := testlog.NewNullLogger()
	artifactsDir := filepath.Join(t.TempDir(), "artifacts")
	reporter := NewJUnitXML(
		JUnitConfig{DataSource: DataSourcePassFail, MaxURLs: 20},
		logger.WithField("component", "junit-xml"),
		engine.New(artifactsDir), nil,
		[]CriteriaProvider{&passfail.StaticProvider{Items: []passfail.Criterion{{Subject: "hits", Condition: "<", Threshold: "10"}}}})

	require.NoError(t, reporter.Prepare())
	require.NoError(t, reporter.PostProcess())

	_, err := os.Stat(filepath.Join(artifactsDir, "xunit.xml"))
	assert.NoError(t, err)
}
