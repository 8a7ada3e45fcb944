// Package signal carries dated value series between the pipeline stages and
// combines the price signal with the regime exposure. Alignment is enforced,
// never repaired: stages refuse mismatched dates instead of reindexing.
package signal

import (
	"math"

	"regimerun/internal/domain"
)

// Series is a dated run of values produced by one pipeline stage. Warmup
// entries are NaN; downstream stages trim them explicitly.
type Series struct {
	Dates  []domain.Date
	Values []float64
}

// NewSeries pairs dates with values, rejecting length mismatches.
func NewSeries(dates []domain.Date, values []float64) (*Series, error) {
	if len(dates) != len(values) {
		return nil, domain.NewDataError("signal", "dates (%d) and values (%d) differ in length", len(dates), len(values))
	}
	if len(dates) == 0 {
		return nil, domain.NewDataError("signal", "empty series")
	}
	return &Series{Dates: dates, Values: values}, nil
}

// Len returns the number of entries.
func (s *Series) Len() int {
	return len(s.Values)
}

// Warmup returns the index of the first usable (non-NaN) value, or Len()
// when every entry is warmup.
func (s *Series) Warmup() int {
	for i, v := range s.Values {
		if !math.IsNaN(v) {
			return i
		}
	}
	return len(s.Values)
}

// Constant builds a series holding the same value on every date, used for
// the buy-and-hold and price-only exposure legs.
func Constant(dates []domain.Date, value float64) *Series {
	values := make([]float64, len(dates))
	for i := range values {
		values[i] = value
	}
	return &Series{Dates: append([]domain.Date(nil), dates...), Values: values}
}

// Combine multiplies two aligned series element-wise. The inputs must share
// identical dates in identical order; anything else is a data error naming
// the first mismatch. NaN in either input stays NaN in the output.
func Combine(price, exposure *Series) (*Series, error) {
	if price.Len() != exposure.Len() {
		return nil, domain.NewDataError("combine", "series lengths differ: %d vs %d", price.Len(), exposure.Len())
	}
	out := make([]float64, price.Len())
	for i := range price.Values {
		if !price.Dates[i].Equal(exposure.Dates[i]) {
			return nil, domain.NewDataErrorAt("combine", price.Dates[i],
				"date mismatch at index %d: %s vs %s", i, price.Dates[i], exposure.Dates[i])
		}
		out[i] = price.Values[i] * exposure.Values[i]
	}
	return &Series{Dates: price.Dates, Values: out}, nil
}

// Align inner-joins two series on date, preserving order. Callers that need
// alignment do it explicitly before combining.
func Align(a, b *Series) (*Series, *Series, error) {
	inB := make(map[domain.Date]int, b.Len())
	for i, d := range b.Dates {
		inB[d] = i
	}

	var dates []domain.Date
	var av, bv []float64
	for i, d := range a.Dates {
		j, ok := inB[d]
		if !ok {
			continue
		}
		dates = append(dates, d)
		av = append(av, a.Values[i])
		bv = append(bv, b.Values[j])
	}
	if len(dates) == 0 {
		return nil, nil, domain.NewDataError("align", "series share no dates")
	}
	return &Series{Dates: dates, Values: av}, &Series{Dates: dates, Values: bv}, nil
}

// Trim drops the first n entries of the series.
func (s *Series) Trim(n int) *Series {
	if n <= 0 {
		return s
	}
	if n >= s.Len() {
		return &Series{}
	}
	return &Series{Dates: s.Dates[n:], Values: s.Values[n:]}
}
