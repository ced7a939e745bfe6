package singleton

// Lifetime is the reclamation class of a singleton.
type Lifetime int

const (
	// ShortLived instances are released by Sweep and rebuilt on next access.
	ShortLived Lifetime = iota

	// LongLived instances survive Sweep. Only Destroy removes them.
	LongLived
)

// String returns the lifetime name used in logs, metrics and events.
func (l Lifetime) String() string {
	switch l {
	case ShortLived:
		return "short_lived"
	case LongLived:
		return "long_lived"
	default:
		return "unknown"
	}
}

// SurvivesSweep reports whether instances of this lifetime outlive a sweep.
func (l Lifetime) SurvivesSweep() bool {
	return l == LongLived
}
