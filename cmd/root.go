package cmd

import (
	"context"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/qcnsim/qcnsim/sim/metrics"
	"github.com/qcnsim/qcnsim/sim/netsim"
)

var (
	// CLI flags shared by run and replicate
	scenarioPath string  // Path to the scenario YAML
	seed         int64   // Seed overriding the scenario's
	horizon      float64 // Simulation horizon overriding the scenario's
	logLevel     string  // Log verbosity level
	traceLevel   string  // Decision trace level overriding the scenario's

	// CLI flags for run
	reportPath  string // Where to write the YAML report; stdout when empty
	metricsPath string // Where to write Prometheus text-format metrics
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "qcnsim",
	Short: "Discrete-event simulator for queueing and communication networks",
}

// runCmd executes one simulation of a scenario
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a network scenario once",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		sc, err := loadScenario(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		logrus.Infof("Starting simulation of %s: seed=%d, horizon=%g, warmup=%g",
			scenarioPath, sc.Seed, sc.Horizon, sc.Warmup)
		startTime := time.Now()

		s, err := netsim.NewSimulator(sc)
		if err != nil {
			logrus.Fatalf("Cannot build simulation: %v", err)
		}
		report, err := s.Run(context.Background())
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		logrus.Infof("Simulation complete in %s.", time.Since(startTime))

		if err := writeReport(report, reportPath); err != nil {
			logrus.Fatalf("%v", err)
		}
		if metricsPath != "" {
			if err := writeMetrics(report, metricsPath); err != nil {
				logrus.Fatalf("%v", err)
			}
		}
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// loadScenario reads --config and applies the flags the user set explicitly.
func loadScenario(cmd *cobra.Command) (*netsim.Scenario, error) {
	sc, err := netsim.LoadScenario(scenarioPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("seed") {
		sc.Seed = seed
	}
	if flags.Changed("horizon") {
		sc.Horizon = horizon
	}
	if flags.Changed("trace") {
		sc.TraceLevel = traceLevel
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

// writeReport writes the report to path, or to stdout when path is empty.
func writeReport(r *netsim.Report, path string) error {
	if path == "" {
		return r.WriteYAML(os.Stdout)
	}
	if err := r.SaveYAML(path); err != nil {
		return err
	}
	logrus.Infof("Report written to %s", path)
	return nil
}

// writeMetrics exports the report to a Prometheus text file.
func writeMetrics(r *netsim.Report, path string) error {
	reg := prometheus.NewRegistry()
	c, err := metrics.NewCollector(reg)
	if err != nil {
		return err
	}
	r.Export(c)
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return err
	}
	logrus.Infof("Metrics written to %s", path)
	return nil
}

func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&scenarioPath, "config", "scenario.yaml", "Path to the scenario YAML file")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Seed for all random streams (overrides the scenario)")
	cmd.Flags().Float64Var(&horizon, "horizon", 1000, "Simulation horizon (overrides the scenario)")
	cmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	cmd.Flags().StringVar(&traceLevel, "trace", "none", "Decision trace level: none, decisions (overrides the scenario)")
}

// init sets up CLI flags and subcommands
func init() {
	addScenarioFlags(runCmd)
	runCmd.Flags().StringVar(&reportPath, "report", "", "Write the YAML report to this file instead of stdout")
	runCmd.Flags().StringVar(&metricsPath, "metrics-file", "", "Write Prometheus text-format metrics to this file")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
