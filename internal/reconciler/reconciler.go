package reconciler

import (
	"context"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fuel-station-monitor/internal/calibration"
	"fuel-station-monitor/internal/dedup"
	"fuel-station-monitor/internal/domain/station"
	apperrors "fuel-station-monitor/pkg/errors"
)

// Outcome says what happened to a single reading.
type Outcome int

const (
	Applied Outcome = iota
	Suppressed
	Rejected
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Suppressed:
		return "duplicate"
	case Rejected:
		return "validation"
	case Failed:
		return "storage"
	}
	return "unknown"
}

// TableProvider resolves the dip chart configured for a tank.
type TableProvider interface {
	GetTable(ctx context.Context, ref calibration.TankRef) (*calibration.Table, error)
}

// LivenessTracker records that a nozzle reported itself online.
type LivenessTracker interface {
	Touch(nozzleID, dispenserID string)
}

type Thresholds struct {
	MinProductLevelMm float64
	MinWaterLevelMm   float64
	MaxDecimal        float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinProductLevelMm: 103.26,
		MinWaterLevelMm:   41.69,
		MaxDecimal:        9999999999999.99,
	}
}

type Dependencies struct {
	Dispensers   station.DispenserRepository
	Nozzles      station.NozzleRepository
	Tanks        station.TankRepository
	Transactions station.TransactionRepository
	Calibration  TableProvider
	Dedup        dedup.Deduplicator
	Liveness     LivenessTracker
}

// Reconciler applies parsed readings to the stored state of nozzles, dispensers and tanks.
type Reconciler struct {
	dispensers   station.DispenserRepository
	nozzles      station.NozzleRepository
	tanks        station.TankRepository
	transactions station.TransactionRepository
	calibration  TableProvider
	dedup        dedup.Deduplicator
	liveness     LivenessTracker

	thresholds Thresholds
	maxDecimal decimal.Decimal
	locks      *keyedMutex
	now        func() time.Time
	logger     *zap.Logger
}

func New(deps Dependencies, thresholds Thresholds, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		dispensers:   deps.Dispensers,
		nozzles:      deps.Nozzles,
		tanks:        deps.Tanks,
		transactions: deps.Transactions,
		calibration:  deps.Calibration,
		dedup:        deps.Dedup,
		liveness:     deps.Liveness,
		thresholds:   thresholds,
		maxDecimal:   decimal.NewFromFloat(thresholds.MaxDecimal),
		locks:        newKeyedMutex(),
		now:          time.Now,
		logger:       logger.Named("reconciler"),
	}
}

// SetLiveness attaches the tracker after construction; the monitor itself marks
// nozzles offline through the reconciler.
func (r *Reconciler) SetLiveness(l LivenessTracker) {
	r.liveness = l
}

// clampDecimal rounds to two places and bounds v to the storable DECIMAL range.
func (r *Reconciler) clampDecimal(field string, v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperrors.NewValidationError(field, v, "value is not a finite number")
	}

	d := decimal.NewFromFloat(v).Round(2)
	if d.GreaterThan(r.maxDecimal) {
		d = r.maxDecimal
	} else if d.LessThan(r.maxDecimal.Neg()) {
		d = r.maxDecimal.Neg()
	}
	out, _ := d.Float64()
	return out, nil
}

// duplicate reports whether an identical update was written within the dedup window.
func (r *Reconciler) duplicate(key string, payload any) bool {
	return r.dedup != nil && r.dedup.Seen(key, payload)
}

// applied records a successful write so identical redeliveries are suppressed.
// Failed writes are never recorded.
func (r *Reconciler) applied(key string, payload any) {
	if r.dedup != nil {
		r.dedup.Record(key, payload)
	}
}

func finite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return apperrors.NewValidationError(field, v, "value is not a finite number")
	}
	return nil
}
