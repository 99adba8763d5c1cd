package compdex

// SearchOption bounds one FindComparables call. Unset bounds take the
// configured defaults.
type SearchOption interface {
	applySearch(*searchConfig)
}

// searchOptionFunc adapts a function to the SearchOption interface.
type searchOptionFunc func(*searchConfig)

func (f searchOptionFunc) applySearch(c *searchConfig) { f(c) }

type searchConfig struct {
	radiusMiles   float64
	maxAgeDays    int
	minScore      *float64
	maxComps      int
	lenientFactor float64
}

// Radius limits candidates to this many miles from the subject.
func Radius(miles float64) SearchOption {
	return searchOptionFunc(func(c *searchConfig) {
		c.radiusMiles = miles
	})
}

// MaxAgeDays drops sales older than this many days.
func MaxAgeDays(days int) SearchOption {
	return searchOptionFunc(func(c *searchConfig) {
		c.maxAgeDays = days
	})
}

// MinScore drops candidates scoring below s. MinScore(0) keeps every
// candidate within the other bounds.
func MinScore(s float64) SearchOption {
	return searchOptionFunc(func(c *searchConfig) {
		c.minScore = &s
	})
}

// MaxComps caps the number of comparables returned.
func MaxComps(n int) SearchOption {
	return searchOptionFunc(func(c *searchConfig) {
		c.maxComps = n
	})
}

// LenientFactor scales MinScore for subjects missing bedrooms, bathrooms
// or list price.
func LenientFactor(f float64) SearchOption {
	return searchOptionFunc(func(c *searchConfig) {
		c.lenientFactor = f
	})
}
