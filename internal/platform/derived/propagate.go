package derived

// Propagator pushes a successful upstream payload into independently held
// state. It derives its writes from the payload alone.
type Propagator[P any] func(P)

// Forward copies view(payload) into dst.
func Forward[P, V any](dst *Value[V], view func(P) V) Propagator[P] {
	return func(p P) {
		dst.Set(view(p))
	}
}

// Aggregate replaces dst wholesale with the keys extracted from the
// payload. An empty payload empties dst.
func Aggregate[P any, K comparable](dst *Set[K], extract func(P) []K) Propagator[P] {
	return func(p P) {
		dst.ReplaceAll(extract(p))
	}
}

// Chain runs each non-nil propagator in order.
func Chain[P any](ps ...Propagator[P]) Propagator[P] {
	return func(p P) {
		for _, fn := range ps {
			if fn != nil {
				fn(p)
			}
		}
	}
}

// Identity is the view for forwarding a payload unchanged.
func Identity[P any](p P) P { return p }
