package cmd

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/qcnsim/qcnsim/sim/netsim"
)

const testScenario = `
seed: 11
horizon: 20
nodes: [a, b]
links:
  - from: a
    to: b
    bandwidth: 1000
    delay: 0.5
generators:
  - kind: constant
    interval: 1
    size: 125
    source: a
    destination: b
`

func writeTestScenario(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testScenario), 0644))
	return path
}

// newFlagCommand returns a command carrying the scenario flags, parsed from args.
func newFlagCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "test"}
	addScenarioFlags(c)
	require.NoError(t, c.Flags().Parse(args))
	return c
}

func TestLoadScenario_UnsetFlags_KeepScenarioValues(t *testing.T) {
	// GIVEN a scenario with seed 11 and horizon 20, and no overriding flags
	c := newFlagCommand(t, "--config", writeTestScenario(t))

	// WHEN it is loaded
	sc, err := loadScenario(c)

	// THEN the flag defaults do not overwrite the file
	require.NoError(t, err)
	assert.Equal(t, int64(11), sc.Seed)
	assert.Equal(t, 20.0, sc.Horizon)
	assert.Equal(t, "", sc.TraceLevel)
}

func TestLoadScenario_ChangedFlags_Override(t *testing.T) {
	c := newFlagCommand(t, "--config", writeTestScenario(t), "--seed", "99", "--horizon", "5", "--trace", "decisions")

	sc, err := loadScenario(c)

	require.NoError(t, err)
	assert.Equal(t, int64(99), sc.Seed)
	assert.Equal(t, 5.0, sc.Horizon)
	assert.Equal(t, "decisions", sc.TraceLevel)
}

func TestLoadScenario_InvalidOverride_Fails(t *testing.T) {
	c := newFlagCommand(t, "--config", writeTestScenario(t), "--horizon", "-1")

	_, err := loadScenario(c)

	assert.Error(t, err)
}

func TestRunCommand_WritesReportAndMetrics(t *testing.T) {
	// GIVEN report and metrics destinations
	dir := t.TempDir()
	report := filepath.Join(dir, "report.yaml")
	prom := filepath.Join(dir, "metrics.prom")

	// WHEN the run command executes
	rootCmd.SetArgs([]string{"run", "--config", writeTestScenario(t), "--log", "error",
		"--report", report, "--metrics-file", prom})
	require.NoError(t, rootCmd.Execute())

	// THEN the report decodes with the scenario's seed
	data, err := os.ReadFile(report)
	require.NoError(t, err)
	var got netsim.Report
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, int64(11), got.Seed)
	assert.Equal(t, 20.0, got.EndTime)
	assert.Positive(t, got.Delivered)

	// AND the metrics file carries the simulation gauges
	text, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(text), `qcnsim_facility_utilization{facility="a->b"}`)
	assert.Contains(t, string(text), "qcnsim_delivered_pdus")
}

func TestPrintSummary_WritesYAML(t *testing.T) {
	// GIVEN a summary
	s := netsim.Summarize([]*netsim.Report{{Delivered: 3}, {Delivered: 5}})

	// Capture stdout
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	// WHEN it is printed
	perr := printSummary(s)

	// Restore stdout and read captured output
	_ = w.Close()
	os.Stdout = old
	out, _ := io.ReadAll(r)

	// THEN the YAML carries the run count and the delivered estimate
	require.NoError(t, perr)
	assert.Contains(t, string(out), "runs: 2")
	assert.Contains(t, string(out), "mean: 4")
}
