package sim

import "errors"

var (
	// ErrEmptyChain is returned by Cause when no event is pending.
	ErrEmptyChain = errors.New("event chain is empty")
	// ErrTokenNotFound is returned when releasing an item that no server holds.
	ErrTokenNotFound = errors.New("token not in service")
	// ErrNotImplemented is returned by Preempt on facilities without a preemption policy.
	ErrNotImplemented = errors.New("operation not implemented")
	// ErrRouteNotFound is returned when a node cannot determine a next hop.
	ErrRouteNotFound = errors.New("no next hop")
	// ErrRouteInconsistent is returned when an explicit route cannot make progress.
	ErrRouteInconsistent = errors.New("route inconsistent")
)

// FacilityResult is the outcome of a facility operation.
type FacilityResult int

const (
	FacilityPutInService FacilityResult = iota
	FacilityEnqueued
	FacilityQueueFullDropped
	FacilityDown
	FacilityReleasedDequeued
	FacilityReleasedQueueEmpty
	FacilityTokenNotFound
	FacilityNotImplemented
)

var facilityResultNames = map[FacilityResult]string{
	FacilityPutInService:       "PUT_IN_SERVICE",
	FacilityEnqueued:           "ENQUEUED",
	FacilityQueueFullDropped:   "QUEUE_FULL_DROPPED",
	FacilityDown:               "FACILITY_DOWN",
	FacilityReleasedDequeued:   "RELEASED_DEQUEUED_SCHEDULED",
	FacilityReleasedQueueEmpty: "RELEASED_QUEUE_EMPTY",
	FacilityTokenNotFound:      "TOKEN_NOT_FOUND",
	FacilityNotImplemented:     "NOT_IMPLEMENTED",
}

func (r FacilityResult) String() string {
	if name, ok := facilityResultNames[r]; ok {
		return name
	}
	return "UNKNOWN"
}

// Admitted reports whether the item now occupies a server or a queue slot.
func (r FacilityResult) Admitted() bool {
	return r == FacilityPutInService || r == FacilityEnqueued
}

// NodeResult is the outcome of Node.ProcessAndForward.
type NodeResult int

const (
	NodeRouteUpdated NodeResult = iota
	NodeFinalDestination
	NodeTTLExceeded
	NodeRouteNotFound
	NodeRouteInconsistent
)

var nodeResultNames = map[NodeResult]string{
	NodeRouteUpdated:      "ROUTE_UPDATED",
	NodeFinalDestination:  "FINAL_DESTINATION",
	NodeTTLExceeded:       "TTL_EXCEEDED",
	NodeRouteNotFound:     "ROUTE_NOT_FOUND",
	NodeRouteInconsistent: "ROUTE_INCONSISTENT",
}

func (r NodeResult) String() string {
	if name, ok := nodeResultNames[r]; ok {
		return name
	}
	return "UNKNOWN"
}
