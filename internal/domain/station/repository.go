package station

import (
	"context"
	"time"
)

type DispenserRepository interface {
	GetByID(ctx context.Context, dispenserID string) (*Dispenser, error)
	GetByAddress(ctx context.Context, address string) (*Dispenser, error)
	List(ctx context.Context) ([]*Dispenser, error)
	UpdateIRLock(ctx context.Context, dispenserID string, status int) error
	UpdateConnection(ctx context.Context, dispenserID string, connected bool, at time.Time) error
}

type NozzleRepository interface {
	Get(ctx context.Context, dispenserID, nozzleID string) (*Nozzle, error)
	ListByDispenser(ctx context.Context, dispenserID string) ([]*Nozzle, error)
	Update(ctx context.Context, dispenserID, nozzleID string, update NozzleUpdate) error
	// AddSalesToday atomically increments total_sales_today, capped at ceiling, and returns the new total.
	AddSalesToday(ctx context.Context, dispenserID, nozzleID string, amount, ceiling float64) (float64, error)
	SetOfflineByDispenser(ctx context.Context, dispenserID string) (int64, error)
	ResetSalesToday(ctx context.Context) (int64, error)
	SetSalesToday(ctx context.Context, key NozzleKey, total float64) error
	AppendHistory(ctx context.Context, nozzle *Nozzle) error
}

type TankRepository interface {
	Get(ctx context.Context, tankID, address string) (*Tank, error)
	GetByAddress(ctx context.Context, address string) (*Tank, error)
	List(ctx context.Context) ([]*Tank, error)
	Update(ctx context.Context, tankID, address string, update TankUpdate, at time.Time) error
	// UpdateConnection records a session change. A disconnect also sets status to TankStatusOffline.
	UpdateConnection(ctx context.Context, tankID, address string, connected bool, at time.Time) error
}

type TransactionRepository interface {
	Create(ctx context.Context, tx *Transaction) error
	SumAmountsByNozzle(ctx context.Context, from, to time.Time) (map[NozzleKey]float64, error)
}
