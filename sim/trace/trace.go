package trace

import "slices"

// TraceLevel selects what a run records. The empty level means none.
type TraceLevel string

const (
	TraceLevelNone      TraceLevel = "none"
	// TraceLevelDecisions records every link admission and every node
	// forwarding outcome.
	TraceLevelDecisions TraceLevel = "decisions"
)

// IsValidTraceLevel accepts "", "none" and "decisions".
func IsValidTraceLevel(level string) bool {
	return slices.Contains([]TraceLevel{"", TraceLevelNone, TraceLevelDecisions}, TraceLevel(level))
}

type TraceConfig struct {
	Level TraceLevel
}

func (c TraceConfig) Enabled() bool {
	return c.Level == TraceLevelDecisions
}

// SimulationTrace accumulates records in simulated-time order. A nil
// *SimulationTrace accepts and discards records, so the driver can call
// it unconditionally when tracing is off.
type SimulationTrace struct {
	Config      TraceConfig
	Admissions  []AdmissionRecord
	Forwardings []ForwardingRecord
}

func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{Config: config, Admissions: []AdmissionRecord{}, Forwardings: []ForwardingRecord{}}
}

func (st *SimulationTrace) RecordAdmission(record AdmissionRecord) {
	if st != nil {
		st.Admissions = append(st.Admissions, record)
	}
}

func (st *SimulationTrace) RecordForwarding(record ForwardingRecord) {
	if st != nil {
		st.Forwardings = append(st.Forwardings, record)
	}
}
