package calibration

import (
	"math"
	"sort"
	"time"

	apperrors "fuel-station-monitor/pkg/errors"
)

// Point maps a dip measurement in millimetres to a volume in litres.
type Point struct {
	Measurement float64 `json:"mm"`
	Volume      float64 `json:"liters"`
}

// Table is an ordered dip chart. Measurements are strictly increasing.
type Table struct {
	Points   []Point
	Source   string
	LoadedAt time.Time
}

// NewTable sorts points by measurement and keeps the first point for a repeated measurement.
func NewTable(points []Point) (*Table, error) {
	if len(points) == 0 {
		return nil, apperrors.NewParseError("dip_chart", "", "no calibration points", nil)
	}

	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Measurement < sorted[j].Measurement
	})

	unique := sorted[:1]
	for _, p := range sorted[1:] {
		if p.Measurement == unique[len(unique)-1].Measurement {
			continue
		}
		unique = append(unique, p)
	}

	return &Table{Points: unique}, nil
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Points)
}

// MaxMeasurement is the largest measurement in the chart.
func (t *Table) MaxMeasurement() float64 {
	if t.Len() == 0 {
		return 0
	}
	return t.Points[len(t.Points)-1].Measurement
}

// Convert maps a measurement to a volume. Readings below the first point scale linearly
// from zero, readings above the last point clamp to its volume.
func (t *Table) Convert(measurement float64) (float64, error) {
	if math.IsNaN(measurement) || math.IsInf(measurement, 0) {
		return 0, apperrors.NewConversionError(measurement, "measurement is not a finite number")
	}
	if measurement < 0 {
		return 0, apperrors.NewConversionError(measurement, "negative measurement")
	}
	if t.Len() == 0 {
		return 0, apperrors.NewConversionError(measurement, "empty calibration table")
	}

	first := t.Points[0]
	last := t.Points[len(t.Points)-1]

	if measurement <= first.Measurement {
		if first.Measurement == 0 {
			return first.Volume, nil
		}
		return first.Volume * measurement / first.Measurement, nil
	}
	if measurement >= last.Measurement {
		return last.Volume, nil
	}

	// first index with Measurement >= measurement; guaranteed in (0, len).
	i := sort.Search(len(t.Points), func(i int) bool {
		return t.Points[i].Measurement >= measurement
	})
	hi := t.Points[i]
	if hi.Measurement == measurement {
		return hi.Volume, nil
	}
	lo := t.Points[i-1]

	ratio := (measurement - lo.Measurement) / (hi.Measurement - lo.Measurement)
	return lo.Volume + ratio*(hi.Volume-lo.Volume), nil
}
