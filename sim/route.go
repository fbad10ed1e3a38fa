package sim

// Route is an explicit hop list with a read cursor, plus the hops actually
// visited when recording is enabled.
type Route struct {
	explicit []Entity
	cursor   int
	recorded []Entity
}

// NewRoute copies path into a fresh route with the cursor at the start.
func NewRoute(path []Entity) Route {
	return Route{explicit: append([]Entity(nil), path...)}
}

// NextHop returns the hop under the cursor and advances it. Once the end is
// reached the last hop is returned on every call. An empty route yields nil.
func (r *Route) NextHop() Entity {
	if len(r.explicit) == 0 {
		return nil
	}
	if r.cursor >= len(r.explicit) {
		return r.explicit[len(r.explicit)-1]
	}
	hop := r.explicit[r.cursor]
	r.cursor++
	return hop
}

// Len returns the number of explicit hops.
func (r *Route) Len() int {
	return len(r.explicit)
}

// Explicit returns a copy of the explicit hop list.
func (r *Route) Explicit() []Entity {
	return append([]Entity(nil), r.explicit...)
}

// Recorded returns a copy of the visited hops.
func (r *Route) Recorded() []Entity {
	return append([]Entity(nil), r.recorded...)
}

func (r *Route) lastRecorded() Entity {
	if len(r.recorded) == 0 {
		return nil
	}
	return r.recorded[len(r.recorded)-1]
}
