package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/utils/clock"

	"github.com/astaqc/taurus/pkg/aggregator"
	"github.com/astaqc/taurus/pkg/engine"
	"github.com/astaqc/taurus/pkg/passfail"
)

type ReportFlags struct {
	ResultsPath  string
	ArtifactsDir string

	XUnitFile  string
	DataSource string
	MaxURLs    int

	CriteriaPath   string
	ReportURL      string
	ReportTestName string

	TestDuration bool
	Summary      bool
	Percentiles  bool
	FailedLabels bool
}

func NewReportFlags() *ReportFlags {
	finalStatus := DefaultFinalStatusConfig()
	junitConfig := DefaultJUnitConfig()
	return &ReportFlags{
		ArtifactsDir: "taurus-artifacts",
		DataSource:   junitConfig.DataSource,
		MaxURLs:      junitConfig.MaxURLs,
		TestDuration: finalStatus.TestDuration,
		Summary:      finalStatus.Summary,
		Percentiles:  finalStatus.Percentiles,
		FailedLabels: finalStatus.FailedLabels,
	}
}

func (f *ReportFlags) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.ResultsPath, "results", f.ResultsPath, "Path to the aggregated results file, one JSON data point per aggregation window.")
	fs.StringVar(&f.ArtifactsDir, "artifacts-dir", f.ArtifactsDir, "The directory to place generated report files in.")

	fs.StringVar(&f.XUnitFile, "xunit-file", f.XUnitFile, "Explicit path of the JUnit XML report. Defaults to a fresh file under --artifacts-dir.")
	fs.StringVar(&f.DataSource, "data-source", f.DataSource, fmt.Sprintf("JUnit XML rendering mode, one of %q or %q.", DataSourceSampleLabels, DataSourcePassFail))
	fs.IntVar(&f.MaxURLs, "max-urls", f.MaxURLs, "How many error signatures the summary report breaks down, capped at 50.")

	fs.StringVar(&f.CriteriaPath, "criteria", f.CriteriaPath, "Optional path to a YAML file of evaluated pass/fail criteria.")
	fs.StringVar(&f.ReportURL, "report-url", f.ReportURL, "Optional remote report URL, used for labeling only.")
	fs.StringVar(&f.ReportTestName, "report-test-name", f.ReportTestName, "Optional remote test name, used as the report class name.")

	fs.BoolVar(&f.TestDuration, "test-duration", f.TestDuration, "Log the test wall clock duration.")
	fs.BoolVar(&f.Summary, "summary", f.Summary, "Log overall sample count and failure rate.")
	fs.BoolVar(&f.Percentiles, "percentiles", f.Percentiles, "Log average times and percentile values.")
	fs.BoolVar(&f.FailedLabels, "failed-labels", f.FailedLabels, "Log per-label failed sample counts.")
}

// Validate checks to see if the user-input is likely to produce functional runtime options
func (f *ReportFlags) Validate() error {
	if len(f.ResultsPath) == 0 {
		return fmt.Errorf("missing --results: the aggregated results file to report on")
	}
	if f.DataSource != DataSourceSampleLabels && f.DataSource != DataSourcePassFail {
		return fmt.Errorf("unsupported data source: %s", f.DataSource)
	}
	if f.MaxURLs < 0 {
		return fmt.Errorf("--max-urls must not be negative")
	}
	return nil
}

// ToOptions goes from the user input to the runtime values needed to run the
// command. Expect unit tests on the options, not on the flags.
func (f *ReportFlags) ToOptions() (*ReportOptions, error) {
	eng := engine.New(f.ArtifactsDir)

	var reportInfoProviders []engine.ReportInfoProvider
	if f.ReportURL != "" || f.ReportTestName != "" {
		reportInfoProviders = append(reportInfoProviders, &engine.StaticReportInfo{
			Info: []engine.ReportInfo{{URL: f.ReportURL, TestName: f.ReportTestName}},
		})
	}

	var criteriaProviders []CriteriaProvider
	if f.CriteriaPath != "" {
		criteria, err := passfail.LoadCriteria(f.CriteriaPath)
		if err != nil {
			return nil, err
		}
		criteriaProviders = append(criteriaProviders, &passfail.StaticProvider{Items: criteria})
	}

	finalStatus := NewFinalStatus(
		FinalStatusConfig{
			TestDuration: f.TestDuration,
			Summary:      f.Summary,
			Percentiles:  f.Percentiles,
			FailedLabels: f.FailedLabels,
		},
		logrus.WithField("component", "final-status"),
		clock.RealClock{},
	)
	junitXML := NewJUnitXML(
		JUnitConfig{
			Filename:   f.XUnitFile,
			DataSource: f.DataSource,
			MaxURLs:    f.MaxURLs,
		},
		logrus.WithField("component", "junit-xml"),
		eng,
		reportInfoProviders,
		criteriaProviders,
	)

	return &ReportOptions{
		log:         logrus.WithField("component", "taurus-report"),
		resultsPath: f.ResultsPath,
		finalStatus: finalStatus,
		junitXML:    junitXML,
	}, nil
}

// ReportOptions drives one finalization pass: replay the aggregated results
// through both reporters, then let each render its report.
type ReportOptions struct {
	log         *logrus.Entry
	resultsPath string

	finalStatus *FinalStatus
	junitXML    *JUnitXML
}

func (o *ReportOptions) Run(ctx context.Context) error {
	// a failing reporter must not keep its siblings from running
	var errs []error
	var active []engine.Reporter
	for _, reporter := range []engine.Reporter{o.finalStatus, o.junitXML} {
		if err := reporter.Prepare(); err != nil {
			o.log.WithError(err).Error("Reporter failed to prepare")
			errs = append(errs, err)
			continue
		}
		if err := reporter.StartUp(); err != nil {
			o.log.WithError(err).Error("Reporter failed to start up")
			errs = append(errs, err)
			continue
		}
		active = append(active, reporter)
	}

	var listeners []aggregator.Listener
	for _, reporter := range active {
		if listener, ok := reporter.(aggregator.Listener); ok {
			listeners = append(listeners, listener)
		}
	}
	if err := o.replayResults(ctx, listeners); err != nil {
		return utilerrors.NewAggregate(append(errs, err))
	}

	for _, reporter := range active {
		if err := reporter.PostProcess(); err != nil {
			o.log.WithError(err).Error("Reporter failed to finalize")
			errs = append(errs, err)
		}
	}
	return utilerrors.NewAggregate(errs)
}

func (o *ReportOptions) replayResults(ctx context.Context, listeners []aggregator.Listener) error {
	file, err := os.Open(o.resultsPath)
	if err != nil {
		return errors.Wrapf(err, "could not open results file %s", o.resultsPath)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		point := &aggregator.DataPoint{}
		if err := decoder.Decode(point); err == io.EOF {
			break
		} else if err != nil {
			return errors.Wrapf(err, "could not parse results file %s", o.resultsPath)
		}
		for _, listener := range listeners {
			listener.AggregatedSecond(point)
		}
	}
	return nil
}

func NewReportCommand() *cobra.Command {
	f := NewReportFlags()

	cmd := &cobra.Command{
		Use:          "taurus-report",
		Long:         `Render end-of-run reports out of aggregated load test results: a console summary and a JUnit XML file for CI consumption.`,
		SilenceUsage: true,

		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if err := f.Validate(); err != nil {
				logrus.WithError(err).Fatal("Flags are invalid")
			}
			o, err := f.ToOptions()
			if err != nil {
				logrus.WithError(err).Fatal("Failed to build runtime options")
			}

			if err := o.Run(ctx); err != nil {
				logrus.WithError(err).Fatal("Command failed")
			}

			return nil
		},

		Args: cobra.NoArgs,
	}

	f.BindFlags(cmd.Flags())

	return cmd
}
