package netsim

import (
	"testing"

	"github.com/qcnsim/qcnsim/sim/internal/testutil"
)

func TestSimulator_GoldenDataset(t *testing.T) {
	dataset := testutil.LoadGoldenDataset(t)
	if len(dataset.Tests) == 0 {
		t.Fatal("golden dataset has no tests")
	}

	for _, tc := range dataset.Tests {
		t.Run(tc.Name, func(t *testing.T) {
			var sc Scenario
			if err := tc.Scenario.Decode(&sc); err != nil {
				t.Fatalf("decoding scenario: %v", err)
			}

			r := run(t, &sc)

			want := tc.Metrics
			if r.Generated != want.Generated {
				t.Errorf("generated: got %d, want %d", r.Generated, want.Generated)
			}
			if r.Delivered != want.Delivered {
				t.Errorf("delivered: got %d, want %d", r.Delivered, want.Delivered)
			}
			if r.TTLDropped != want.TTLDropped {
				t.Errorf("ttl_dropped: got %d, want %d", r.TTLDropped, want.TTLDropped)
			}
			if r.LinkDropped != want.LinkDropped {
				t.Errorf("link_dropped: got %d, want %d", r.LinkDropped, want.LinkDropped)
			}
			testutil.AssertFloat64Equal(t, "mean_delay", want.MeanDelay, r.MeanDelay, 1e-9)
			testutil.AssertFloat64Equal(t, "mean_link_utilization", want.MeanLinkUtilization, r.MeanLinkUtilization, 1e-9)
		})
	}
}
