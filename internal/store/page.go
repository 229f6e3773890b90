package store

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Limits bounds the page size accepted by List operations.
type Limits struct {
	Default int
	Max     int
}

// DefaultLimits returns limit 100, capped at 1000.
func DefaultLimits() Limits {
	return Limits{Default: DefaultLimit, Max: MaxLimit}
}

// Page selects a window of rows in creation order.
type Page struct {
	Offset int
	Limit  int
}

// normalize clamps the page: negative offset to 0, missing limit to the
// default and oversized limit to the maximum.
func (p Page) normalize(l Limits) Page {
	if l.Default <= 0 {
		l.Default = DefaultLimit
	}
	if l.Max < l.Default {
		l.Max = l.Default
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = l.Default
	}
	if p.Limit > l.Max {
		p.Limit = l.Max
	}
	return p
}
