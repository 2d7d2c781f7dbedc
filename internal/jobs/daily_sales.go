package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fuel-station-monitor/internal/domain/station"
)

// DailySalesJob keeps every nozzle's total_sales_today aligned with the local day.
// It writes straight to the repository, so its updates are never suppressed.
type DailySalesJob struct {
	nozzles      station.NozzleRepository
	transactions station.TransactionRepository
	loc          *time.Location
	now          func() time.Time
	after        func(time.Duration) <-chan time.Time
	logger       *zap.Logger
}

func NewDailySalesJob(nozzles station.NozzleRepository, transactions station.TransactionRepository, loc *time.Location, logger *zap.Logger) *DailySalesJob {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DailySalesJob{
		nozzles:      nozzles,
		transactions: transactions,
		loc:          loc,
		now:          time.Now,
		after:        time.After,
		logger:       logger.Named("daily_sales"),
	}
}

// StartOfDay returns local midnight of the day containing t.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// NextMidnight returns the first local midnight strictly after t.
func NextMidnight(t time.Time, loc *time.Location) time.Time {
	start := StartOfDay(t, loc)
	return time.Date(start.Year(), start.Month(), start.Day()+1, 0, 0, 0, 0, loc)
}

// Initialize zeroes every nozzle and then seeds today's totals from the
// transaction records.
func (j *DailySalesJob) Initialize(ctx context.Context) error {
	if _, err := j.nozzles.ResetSalesToday(ctx); err != nil {
		return fmt.Errorf("reset daily sales: %w", err)
	}

	now := j.now()
	from := StartOfDay(now, j.loc)
	to := NextMidnight(now, j.loc)

	totals, err := j.transactions.SumAmountsByNozzle(ctx, from, to)
	if err != nil {
		return fmt.Errorf("sum today's transactions: %w", err)
	}

	seeded := 0
	for key, total := range totals {
		if err := j.nozzles.SetSalesToday(ctx, key, total); err != nil {
			j.logger.Warn("Failed to seed daily sales",
				zap.String("nozzle", key.String()),
				zap.Float64("total", total),
				zap.Error(err),
			)
			continue
		}
		seeded++
	}

	j.logger.Info("Daily sales initialized",
		zap.Time("from", from),
		zap.Int("nozzles_seeded", seeded),
	)
	return nil
}

// Reset zeroes total_sales_today on every nozzle.
func (j *DailySalesJob) Reset(ctx context.Context) {
	n, err := j.nozzles.ResetSalesToday(ctx)
	if err != nil {
		j.logger.Error("Failed to reset daily sales", zap.Error(err))
		return
	}
	j.logger.Info("Daily sales reset", zap.Int64("nozzles", n))
}

// Run resets at every local midnight until ctx is done. The wait is re-armed
// after each reset, so days that are 23 or 25 hours long still end at midnight.
func (j *DailySalesJob) Run(ctx context.Context) {
	next := NextMidnight(j.now(), j.loc)
	j.logger.Info("Daily sales job started", zap.Time("next_reset", next))

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("Daily sales job stopped")
			return
		case <-j.after(next.Sub(j.now())):
			j.Reset(ctx)
		}

		// a timer firing a little early must not schedule the same midnight again
		now := j.now()
		if now.Before(next) {
			now = next
		}
		next = NextMidnight(now, j.loc)
	}
}
