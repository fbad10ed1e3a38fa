// Package trace provides decision-trace recording for network simulations.
// This package has no dependencies on sim/ or its sub-packages; it stores pure data types.
package trace

// AdmissionRecord captures the outcome of one service request at a facility.
type AdmissionRecord struct {
	Facility string
	ItemID   uint64
	Clock    float64
	Admitted bool
	Outcome  string // facility result name, e.g. ENQUEUED
}

// ForwardingRecord captures one ProcessAndForward decision at a node.
type ForwardingRecord struct {
	Node    string
	ItemID  uint64
	Clock   float64
	Outcome string // node result name, e.g. ROUTE_UPDATED
	NextHop string // empty unless the item was forwarded
	TTL     int    // remaining TTL after the decision; -1 for plain tokens
}
