// Package sim provides the discrete-event simulation kernel for qcnsim.
//
// # Reading Guide
//
// Start with these files to understand the kernel:
//   - event.go: Event kinds and the immutable Event value
//   - scheduler.go: the time-ordered event chain and the clock
//   - facility.go: multi-server resources with a priority queue and usage statistics
//   - node.go: forwarding of tokens and PDUs along explicit routes
//
// # Architecture
//
// The kernel is single-threaded. A Scheduler owns the event chain and a
// Globals value owns the clock, token ids and the partitioned RNG. Facilities
// and nodes hold a pointer to the scheduler they post events into.
//
// Collaborators built on the kernel live in sub-packages:
//   - sim/link/: simplex links (transmission facility plus propagation delay)
//   - sim/traffic/: traffic generators driven by gonum distributions
//   - sim/topology/: node and link registry with shortest-path routing
//   - sim/netsim/: scenario loading, the event loop and reports
//   - sim/metrics/: Prometheus export of facility and node statistics
//   - sim/trace/: per-decision trace records
//
// Events carry an Entity payload. Entity is a closed set (Token, PDU,
// Facility, Node, Message) compared by pointer identity.
package sim
