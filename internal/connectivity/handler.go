package connectivity

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"fuel-station-monitor/internal/domain/station"
	"fuel-station-monitor/internal/notify"
)

// Handler applies broker session open/close events to dispensers and tanks.
// These writes are never deduplicated.
type Handler struct {
	dispensers station.DispenserRepository
	nozzles    station.NozzleRepository
	tanks      station.TankRepository
	notifier   notify.Notifier
	logger     *zap.Logger
}

func NewHandler(
	dispensers station.DispenserRepository,
	nozzles station.NozzleRepository,
	tanks station.TankRepository,
	notifier notify.Notifier,
	logger *zap.Logger,
) *Handler {
	if notifier == nil {
		notifier = notify.Nop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		dispensers: dispensers,
		nozzles:    nozzles,
		tanks:      tanks,
		notifier:   notifier,
		logger:     logger.Named("connectivity"),
	}
}

func (h *Handler) Handle(ctx context.Context, ev station.ConnectionEvent) error {
	var err error
	switch ev.Class {
	case station.ClassDispenser:
		err = h.handleDispenser(ctx, ev)
	case station.ClassTank:
		err = h.handleTank(ctx, ev)
	default:
		return fmt.Errorf("%w: %q", station.ErrUnknownClass, ev.Class)
	}
	if err != nil {
		return err
	}

	state, level := "disconnected", notify.LevelError
	if ev.Connected {
		state, level = "connected", notify.LevelSuccess
	}
	h.notifier.Notify(notify.NewSystem(
		"Connectivity Alert",
		fmt.Sprintf("Device %s %s", ev.ClientID, state),
		level,
		map[string]any{"client_id": ev.ClientID, "address": ev.Address, "at": ev.At},
	))
	return nil
}

func (h *Handler) handleDispenser(ctx context.Context, ev station.ConnectionEvent) error {
	dispenser, err := h.dispensers.GetByAddress(ctx, ev.Address)
	if err != nil {
		return fmt.Errorf("resolve dispenser %s: %w", ev.Address, err)
	}

	if err := h.dispensers.UpdateConnection(ctx, dispenser.DispenserID, ev.Connected, ev.At); err != nil {
		return fmt.Errorf("update dispenser %s connection: %w", dispenser.DispenserID, err)
	}

	if !ev.Connected {
		n, err := h.nozzles.SetOfflineByDispenser(ctx, dispenser.DispenserID)
		if err != nil {
			return fmt.Errorf("set nozzles offline for dispenser %s: %w", dispenser.DispenserID, err)
		}
		h.logger.Info("Dispenser disconnected, nozzles set offline",
			zap.String("dispenser_id", dispenser.DispenserID),
			zap.Int64("nozzles", n),
			zap.Time("at", ev.At),
		)
		return nil
	}

	h.logger.Info("Dispenser connected",
		zap.String("dispenser_id", dispenser.DispenserID),
		zap.Time("at", ev.At),
	)
	return nil
}

func (h *Handler) handleTank(ctx context.Context, ev station.ConnectionEvent) error {
	tank, err := h.tanks.GetByAddress(ctx, ev.Address)
	if err != nil {
		return fmt.Errorf("resolve tank %s: %w", ev.Address, err)
	}

	if err := h.tanks.UpdateConnection(ctx, tank.TankID, tank.Address, ev.Connected, ev.At); err != nil {
		return fmt.Errorf("update tank %s connection: %w", tank.TankID, err)
	}

	h.logger.Info("Tank connection changed",
		zap.String("tank_id", tank.TankID),
		zap.String("address", tank.Address),
		zap.Bool("connected", ev.Connected),
		zap.Time("at", ev.At),
	)
	return nil
}
