package trace

import (
	"testing"
)

func TestSimulationTrace_RecordAdmission_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for decisions
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN an admission record is recorded
	st.RecordAdmission(AdmissionRecord{
		Facility: "a->b",
		ItemID:   1,
		Clock:    1.5,
		Admitted: true,
		Outcome:  "PUT_IN_SERVICE",
	})

	// THEN the trace contains one admission record with correct data
	if len(st.Admissions) != 1 {
		t.Fatalf("expected 1 admission, got %d", len(st.Admissions))
	}
	if st.Admissions[0].Facility != "a->b" {
		t.Errorf("expected facility a->b, got %s", st.Admissions[0].Facility)
	}
	if !st.Admissions[0].Admitted {
		t.Error("expected admitted=true")
	}
}

func TestSimulationTrace_RecordForwarding_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for decisions
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN a forwarding record is recorded
	st.RecordForwarding(ForwardingRecord{
		Node:    "a",
		ItemID:  7,
		Clock:   2,
		Outcome: OutcomeRouteUpdated,
		NextHop: "b",
		TTL:     127,
	})

	// THEN the trace contains one forwarding record with correct data
	if len(st.Forwardings) != 1 {
		t.Fatalf("expected 1 forwarding, got %d", len(st.Forwardings))
	}
	if st.Forwardings[0].NextHop != "b" {
		t.Errorf("expected next hop b, got %s", st.Forwardings[0].NextHop)
	}
}

func TestSimulationTrace_NilTrace_RecordIsNoOp(t *testing.T) {
	var st *SimulationTrace

	// must not panic
	st.RecordAdmission(AdmissionRecord{Facility: "x"})
	st.RecordForwarding(ForwardingRecord{Node: "x"})
}

func TestIsValidTraceLevel(t *testing.T) {
	tests := []struct {
		level string
		want  bool
	}{
		{"none", true},
		{"decisions", true},
		{"", true},
		{"verbose", false},
	}
	for _, tt := range tests {
		if got := IsValidTraceLevel(tt.level); got != tt.want {
			t.Errorf("IsValidTraceLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestTraceConfig_Enabled(t *testing.T) {
	if (TraceConfig{Level: TraceLevelNone}).Enabled() {
		t.Error("none must be disabled")
	}
	if (TraceConfig{}).Enabled() {
		t.Error("empty level must be disabled")
	}
	if !(TraceConfig{Level: TraceLevelDecisions}).Enabled() {
		t.Error("decisions must be enabled")
	}
}
