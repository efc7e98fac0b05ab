package loader

// State is a tile's position in the load state machine.
type State int

const (
	// StateUnknown means the id is not tracked.
	StateUnknown State = iota
	StateQueued
	StateLoading
	StateLoaded
	StateError
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transition happens without a retry.
func (s State) Terminal() bool {
	return s == StateLoaded || s == StateError
}
