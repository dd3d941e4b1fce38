// Package party defines the identity and input types participants in a
// Lagrange interpolation run are addressed and keyed by.
package party

import (
	"fmt"
	"sort"

	"github.com/shardmesh/lagrange/pkg/group"
)

// ID identifies a participant. IDs are dense: a run of N participants
// uses IDs 0..N-1. This matches the wire frame's sender_id field, which
// is a uint16.
type ID uint16

// String implements fmt.Stringer.
func (id ID) String() string { return fmt.Sprintf("p%d", uint16(id)) }

// Sorted returns a copy of ids sorted ascending.
func Sorted(ids []ID) []ID {
	out := make([]ID, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PrivatePoint is a participant's input: a point (x, y) on the shared
// polynomial. x is the participant's public evaluation abscissa, distinct
// across all participants in a run; y is the participant's private
// scalar.
type PrivatePoint struct {
	X *group.Scalar
	Y *group.Scalar
}

// DistinctAbscissas reports whether every point in points has a distinct,
// nonzero X value, the invariant §3 requires of a valid run's inputs.
func DistinctAbscissas(points map[ID]PrivatePoint) bool {
	seen := make(map[string]bool, len(points))
	for _, pt := range points {
		if pt.X.IsZero() {
			return false
		}
		key := pt.X.Big().String()
		if seen[key] {
			return false
		}
		seen[key] = true
	}
	return true
}
