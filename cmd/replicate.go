package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/qcnsim/qcnsim/sim/netsim"
)

var (
	// CLI flags for replicate
	runs     int // Number of independent replications
	parallel int // Replications running at once
)

// replicateCmd runs independent replications and summarizes them
var replicateCmd = &cobra.Command{
	Use:   "replicate",
	Short: "Run independent replications of a scenario and summarize them",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		if runs < 1 {
			logrus.Fatalf("--runs must be >= 1, got %d", runs)
		}
		sc, err := loadScenario(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		logrus.Infof("Replicating %s: %d runs, seeds %d..%d, %d in parallel",
			scenarioPath, runs, sc.Seed, sc.Seed+int64(runs)-1, parallel)

		reports, err := netsim.RunReplications(context.Background(), sc, netsim.Seeds(sc.Seed, runs), parallel)
		if err != nil {
			logrus.Fatalf("Replications failed: %v", err)
		}
		if err := printSummary(netsim.Summarize(reports)); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// printSummary writes the replication summary to stdout as YAML.
func printSummary(s netsim.Summary) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("YAML marshal failed: %w", err)
	}
	_, err = os.Stdout.Write(data)
	return err
}

func init() {
	addScenarioFlags(replicateCmd)
	replicateCmd.Flags().IntVar(&runs, "runs", 10, "Number of independent replications")
	replicateCmd.Flags().IntVar(&parallel, "parallel", 4, "Replications running at once (0 for no limit)")

	rootCmd.AddCommand(replicateCmd)
}
