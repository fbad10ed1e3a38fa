// Package testutil provides shared test infrastructure for the network
// simulator: the golden scenario dataset and tolerance assertions.
package testutil

import (
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// GoldenDataset represents the structure of testdata/goldendataset.yaml.
type GoldenDataset struct {
	Tests []GoldenTestCase `yaml:"tests"`
}

// GoldenTestCase is one scenario with the metrics it must reproduce. The
// scenario is kept as a raw node so this package stays independent of the
// packages under test.
type GoldenTestCase struct {
	Name     string        `yaml:"name"`
	Scenario yaml.Node     `yaml:"scenario"`
	Metrics  GoldenMetrics `yaml:"metrics"`
}

// GoldenMetrics are the expected run-level results of a golden scenario.
type GoldenMetrics struct {
	Generated   uint64 `yaml:"generated"`
	Delivered   uint64 `yaml:"delivered"`
	TTLDropped  uint64 `yaml:"ttl_dropped"`
	LinkDropped uint64 `yaml:"link_dropped"`

	MeanDelay           float64 `yaml:"mean_delay"`
	MeanLinkUtilization float64 `yaml:"mean_link_utilization"`
}

// LoadGoldenDataset reads testdata/goldendataset.yaml at the repository root,
// located from this file's path so it works from any package's test binary.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	data, err := os.ReadFile(goldenPath(t))
	require.NoError(t, err, "read golden dataset")

	dataset := &GoldenDataset{}
	require.NoError(t, yaml.Unmarshal(data, dataset), "parse golden dataset")
	require.NotEmpty(t, dataset.Tests, "golden dataset has no cases")
	return dataset
}

func goldenPath(t *testing.T) string {
	_, self, _, ok := runtime.Caller(0)
	require.True(t, ok, "locate testutil source")
	return filepath.Join(filepath.Dir(self), "..", "..", "..", "testdata", "goldendataset.yaml")
}

// AssertFloat64Equal fails t when want and got differ by more than relTol
// relative to the larger magnitude. Two zeros are equal.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	scale := math.Max(math.Abs(want), math.Abs(got))
	if scale == 0 {
		return
	}
	assert.LessOrEqualf(t, math.Abs(want-got)/scale, relTol, "%s: got %v, want %v", name, got, want)
}
