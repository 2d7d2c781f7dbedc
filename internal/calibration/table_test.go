package calibration

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "fuel-station-monitor/pkg/errors"
)

func sampleTable(t *testing.T) *Table {
	t.Helper()
	table, err := NewTable([]Point{
		{Measurement: 300, Volume: 900},
		{Measurement: 100, Volume: 50},
		{Measurement: 200, Volume: 400},
	})
	require.NoError(t, err)
	return table
}

func TestNewTableSortsAndDropsDuplicates(t *testing.T) {
	table, err := NewTable([]Point{
		{Measurement: 20, Volume: 5},
		{Measurement: 10, Volume: 1},
		{Measurement: 20, Volume: 99},
	})
	require.NoError(t, err)

	assert.Equal(t, []Point{{10, 1}, {20, 5}}, table.Points)
	assert.Equal(t, 20.0, table.MaxMeasurement())
}

func TestNewTableRejectsEmpty(t *testing.T) {
	_, err := NewTable(nil)
	assert.ErrorIs(t, err, apperrors.ErrParse)
}

func TestConvert(t *testing.T) {
	table := sampleTable(t)

	cases := []struct {
		name string
		mm   float64
		want float64
	}{
		{"zero", 0, 0},
		{"below first point scales from origin", 50, 25},
		{"first point", 100, 50},
		{"interpolated", 150, 225},
		{"interior point", 200, 400},
		{"upper segment", 250, 650},
		{"last point", 300, 900},
		{"above last point clamps", 450, 900},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := table.Convert(tc.mm)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestConvertIsMonotone(t *testing.T) {
	table := sampleTable(t)

	prev := -1.0
	for mm := 0.0; mm <= 400; mm += 0.5 {
		v, err := table.Convert(mm)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v, prev, "mm=%v", mm)
		prev = v
	}
}

func TestConvertErrors(t *testing.T) {
	table := sampleTable(t)

	for _, mm := range []float64{math.NaN(), -1, math.Inf(1)} {
		_, err := table.Convert(mm)
		assert.ErrorIs(t, err, apperrors.ErrConversion)
	}

	var empty *Table
	_, err := empty.Convert(10)
	assert.ErrorIs(t, err, apperrors.ErrConversion)
}

func TestConvertReferenceCharts(t *testing.T) {
	linear, err := NewTable([]Point{{0, 0}, {10, 100}, {20, 180}})
	require.NoError(t, err)

	for mm, want := range map[float64]float64{5: 50, 15: 140, 25: 180} {
		got, err := linear.Convert(mm)
		require.NoError(t, err)
		assert.InDelta(t, want, got, 1e-9, "mm=%v", mm)
	}
	_, err = linear.Convert(-1)
	assert.Error(t, err)

	offset, err := NewTable([]Point{{103.26, 50}, {200, 1000}})
	require.NoError(t, err)

	got, err := offset.Convert(50)
	require.NoError(t, err)
	assert.InDelta(t, 50*50/103.26, got, 1e-9)
	assert.InDelta(t, 24.21, got, 0.01)
}
