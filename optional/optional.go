package optional

// Optional is a container which may or may not hold a value of type T.
type Optional[T any] struct {
	value    T
	hasValue bool
}

// Set stores val in the optional.
func (o *Optional[T]) Set(val T) {
	o.value = val
	o.hasValue = true
}

// Get returns the stored value. It panics when no value has been set so
// callers must check HasValue first.
func (o *Optional[T]) Get() T {
	if !o.hasValue {
		panic("trying to get the value of an empty optional")
	}
	return o.value
}

// HasValue returns true once a value has been stored with Set.
func (o *Optional[T]) HasValue() bool {
	return o.hasValue
}
