package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Reporter is the lifecycle contract the run engine drives. Prepare runs
// before the test starts, StartUp when it starts, and PostProcess exactly
// once after the run has finished.
type Reporter interface {
	Prepare() error
	StartUp() error
	PostProcess() error
}

// ReportInfo is one (results URL, test name) pair exposed by a remote
// reporting integration. Both fields are used for labeling output only.
type ReportInfo struct {
	URL      string
	TestName string
}

// ReportInfoProvider is implemented by collaborators that know where the
// run's results were uploaded. Providers are handed to reporters at
// construction time, never discovered by inspecting a shared registry.
type ReportInfoProvider interface {
	ReportInfo() []ReportInfo
}

// StaticReportInfo serves a fixed set of report info pairs, for runs whose
// remote report location is known up front.
type StaticReportInfo struct {
	Info []ReportInfo
}

func (s *StaticReportInfo) ReportInfo() []ReportInfo {
	return s.Info
}

// Engine owns the artifacts directory of a run and hands out fresh file
// paths inside it.
type Engine struct {
	ArtifactsDir string
}

func New(artifactsDir string) *Engine {
	return &Engine{ArtifactsDir: artifactsDir}
}

// CreateArtifact returns a path under the artifacts directory that no file
// occupies yet, creating the directory if needed. The run is single threaded,
// so the check-then-use gap is not a concern here.
func (e *Engine) CreateArtifact(prefix, suffix string) (string, error) {
	if err := os.MkdirAll(e.ArtifactsDir, 0755); err != nil {
		return "", errors.Wrapf(err, "could not create artifacts dir %s", e.ArtifactsDir)
	}

	candidate := filepath.Join(e.ArtifactsDir, prefix+suffix)
	for i := 1; ; i++ {
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
		candidate = filepath.Join(e.ArtifactsDir, fmt.Sprintf("%s-%d%s", prefix, i, suffix))
	}
}
