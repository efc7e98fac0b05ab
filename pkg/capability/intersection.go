package capability

import (
	"github.com/matzehuels/tiledgallery/pkg/errors"
)

// ErrUnavailable is returned by factories whose capability is missing in the
// host environment.
var ErrUnavailable = errors.New(errors.ErrCodeCapabilityUnavailable, "intersection observer unavailable")

// Entry reports one element's intersection state.
type Entry struct {
	ID           string
	Intersecting bool
	Ratio        float64 // visible fraction of the element, 0..1
}

// IntersectionOptions mirrors the observer options of a browser host.
type IntersectionOptions struct {
	RootMargin Margin
	Threshold  float64
}

// IntersectionObserver watches registered targets and reports entries to the
// callback supplied at construction.
type IntersectionObserver interface {
	// Observe starts watching target under id. Observing an id twice
	// replaces its target.
	Observe(id string, target any) error

	// Unobserve stops watching id. Unknown ids are ignored.
	Unobserve(id string)

	// Disconnect stops watching everything.
	Disconnect()
}

// IntersectionFactory creates an observer that delivers entries to callback.
// Factories for absent capabilities return ErrUnavailable.
type IntersectionFactory func(opts IntersectionOptions, callback func([]Entry)) (IntersectionObserver, error)

// Unavailable is the factory for hosts without viewport intersection.
func Unavailable(IntersectionOptions, func([]Entry)) (IntersectionObserver, error) {
	return nil, ErrUnavailable
}
