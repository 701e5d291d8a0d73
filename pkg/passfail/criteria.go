package passfail

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Criterion is one externally evaluated pass/fail rule together with its
// outcome. This package never evaluates anything; the evaluator that owns the
// rule fills Triggered and Fail before the run finalizes.
type Criterion struct {
	Subject   string `yaml:"subject" json:"subject"`
	Label     string `yaml:"label,omitempty" json:"label,omitempty"`
	Condition string `yaml:"condition" json:"condition"`
	Threshold string `yaml:"threshold" json:"threshold"`
	Timeframe string `yaml:"timeframe,omitempty" json:"timeframe,omitempty"`
	Triggered bool   `yaml:"triggered" json:"triggered"`
	Fail      bool   `yaml:"fail" json:"fail"`
}

// DisplayName renders the criterion the way it shows up in reports:
// "avg-rt of checkout>500ms for 30s", with the "of <label>" part dropped for
// the overall bucket and the "for <timeframe>" part dropped when unset.
func (c Criterion) DisplayName() string {
	name := fmt.Sprintf("%s%s%s", c.Subject, c.Condition, c.Threshold)
	if c.Label != "" {
		name = fmt.Sprintf("%s of %s%s%s", c.Subject, c.Label, c.Condition, c.Threshold)
	}
	if c.Timeframe != "" {
		name = fmt.Sprintf("%s for %s", name, c.Timeframe)
	}
	return name
}

// LoadCriteria reads evaluated criteria from a YAML file.
func LoadCriteria(path string) ([]Criterion, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read criteria file %s", path)
	}
	var criteria []Criterion
	if err := yaml.Unmarshal(raw, &criteria); err != nil {
		return nil, errors.Wrapf(err, "could not parse criteria file %s", path)
	}
	return criteria, nil
}

// StaticProvider exposes a fixed criteria list through the provider contract.
type StaticProvider struct {
	Items []Criterion
}

func (p *StaticProvider) Criteria() []Criterion {
	return p.Items
}
