package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2020-03-16")
	require.NoError(t, err)
	assert.Equal(t, "2020-03-16", d.String())
	assert.Equal(t, time.Date(2020, 3, 16, 0, 0, 0, 0, time.UTC), d.Time())

	_, err = ParseDate("16/03/2020")
	assert.Error(t, err)
}

func TestDateOrdering(t *testing.T) {
	a := NewDate(2020, 1, 2)
	b := NewDate(2020, 1, 3)

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.True(t, a.Equal(NewDate(2020, 1, 2)))
	assert.False(t, a.Equal(b))
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2021, 12, 31)

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2021-12-31"`, string(raw))

	var back Date
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, d.Equal(back))

	assert.Error(t, json.Unmarshal([]byte(`123`), &back))
}

func TestDateCSVRoundTrip(t *testing.T) {
	d := NewDate(2019, 7, 4)

	s, err := d.MarshalCSV()
	require.NoError(t, err)
	assert.Equal(t, "2019-07-04", s)

	var back Date
	require.NoError(t, back.UnmarshalCSV(s))
	assert.True(t, d.Equal(back))
}

func TestRegimeString(t *testing.T) {
	assert.Equal(t, "low", RegimeLow.String())
	assert.Equal(t, "medium", RegimeMedium.String())
	assert.Equal(t, "high", RegimeHigh.String())
	assert.Equal(t, "unknown", Regime(99).String())
}

func TestParseRegime(t *testing.T) {
	for _, r := range Regimes() {
		parsed, err := ParseRegime(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, parsed)
	}

	_, err := ParseRegime("extreme")
	assert.Error(t, err)
}

func TestRegimeJSON(t *testing.T) {
	raw, err := json.Marshal(RegimeHigh)
	require.NoError(t, err)
	assert.Equal(t, `"high"`, string(raw))

	var back Regime
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, RegimeHigh, back)
}
