// taurus-report renders end-of-run reports out of aggregated load test
// results: a short console summary and a JUnit XML file for CI systems.
package main

import (
	goflag "flag"
	"os"

	"github.com/spf13/pflag"

	"github.com/astaqc/taurus/pkg/reporting"
)

func main() {
	cmd := reporting.NewReportCommand()
	pflag.CommandLine.AddGoFlagSet(goflag.CommandLine)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
