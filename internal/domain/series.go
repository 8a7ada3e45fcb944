package domain

import (
	"math"
)

// Series is an ordered run of daily observations. Invariants enforced at
// construction: at least one row, strictly increasing dates, finite positive
// levels for both columns.
type Series struct {
	obs []Observation
}

// NewSeries validates the observations and wraps them. The slice is not
// copied; callers hand over ownership.
func NewSeries(obs []Observation) (*Series, error) {
	if len(obs) == 0 {
		return nil, NewDataError("series", "no observations")
	}
	for i, o := range obs {
		if o.Date.IsZero() {
			return nil, NewDataError("series", "row %d has no date", i)
		}
		if !isFinitePositive(o.SP500) {
			return nil, NewDataErrorAt("series", o.Date, "sp500 close %v is not a positive finite number", o.SP500)
		}
		if !isFinitePositive(o.VIX) {
			return nil, NewDataErrorAt("series", o.Date, "vix close %v is not a positive finite number", o.VIX)
		}
		if i == 0 {
			continue
		}
		prev := obs[i-1].Date
		if o.Date.Equal(prev) {
			return nil, NewDataErrorAt("series", o.Date, "duplicate date")
		}
		if o.Date.Before(prev) {
			return nil, NewDataErrorAt("series", o.Date, "dates not strictly increasing (previous %s)", prev)
		}
	}
	return &Series{obs: obs}, nil
}

func isFinitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// Len returns the number of trading days.
func (s *Series) Len() int {
	return len(s.obs)
}

// At returns the i-th observation.
func (s *Series) At(i int) Observation {
	return s.obs[i]
}

// First returns the earliest observation.
func (s *Series) First() Observation {
	return s.obs[0]
}

// Last returns the latest observation.
func (s *Series) Last() Observation {
	return s.obs[len(s.obs)-1]
}

// Dates returns the trading days in order.
func (s *Series) Dates() []Date {
	out := make([]Date, len(s.obs))
	for i, o := range s.obs {
		out[i] = o.Date
	}
	return out
}

// Closes returns the index closes in date order.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.obs))
	for i, o := range s.obs {
		out[i] = o.SP500
	}
	return out
}

// VIX returns the volatility index closes in date order.
func (s *Series) VIX() []float64 {
	out := make([]float64, len(s.obs))
	for i, o := range s.obs {
		out[i] = o.VIX
	}
	return out
}

// Slice returns the sub-series with from <= date <= to. Zero bounds are open.
func (s *Series) Slice(from, to Date) (*Series, error) {
	lo := 0
	if !from.IsZero() {
		for lo < len(s.obs) && s.obs[lo].Date.Before(from) {
			lo++
		}
	}
	hi := len(s.obs)
	if !to.IsZero() {
		for hi > lo && s.obs[hi-1].Date.After(to) {
			hi--
		}
	}
	if lo == hi {
		return nil, NewDataError("slice", "no observations between %s and %s", from, to)
	}
	// Already validated; skip re-checking invariants.
	return &Series{obs: s.obs[lo:hi]}, nil
}

// Returns computes simple daily percentage changes of the index close.
// The result has length Len()-1; entry i covers day i+1.
func (s *Series) Returns() []float64 {
	if len(s.obs) < 2 {
		return nil
	}
	out := make([]float64, len(s.obs)-1)
	for i := 1; i < len(s.obs); i++ {
		out[i-1] = s.obs[i].SP500/s.obs[i-1].SP500 - 1
	}
	return out
}
