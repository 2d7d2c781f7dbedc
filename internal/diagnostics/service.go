package diagnostics

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fuel-station-monitor/internal/domain/station"
	"fuel-station-monitor/internal/notify"
	"fuel-station-monitor/pkg/utils"
)

const maxErrorText = 512

// Entry is one persisted diagnostics row.
type Entry struct {
	DeviceType station.DeviceClass
	Address    string
	Kind       Kind
	Payload    Status
	ReceivedAt time.Time
}

type Repository interface {
	SaveNetworkStatus(ctx context.Context, entry *Entry) error
	SaveDeviceInfo(ctx context.Context, entry *Entry) error
	SaveDeviceError(ctx context.Context, entry *Entry) error
}

// Service records controller diagnostics in the in-memory registry and appends
// the persistent kinds to history tables.
type Service struct {
	registry *Registry
	repo     Repository
	notifier notify.Notifier
	logger   *zap.Logger
}

func NewService(registry *Registry, repo Repository, notifier notify.Notifier, logger *zap.Logger) *Service {
	if notifier == nil {
		notifier = notify.Nop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		registry: registry,
		repo:     repo,
		notifier: notifier,
		logger:   logger.Named("diagnostics"),
	}
}

func (s *Service) Registry() *Registry {
	return s.registry
}

// Record stores a status report. Storage failures are returned after the
// in-memory registry has already been updated.
func (s *Service) Record(ctx context.Context, class station.DeviceClass, address string, status Status) error {
	if e, ok := status.(DeviceError); ok {
		e.Message = utils.SanitizeDeviceText(e.Message, maxErrorText)
		status = e
	}

	device := DeviceKey(class, address)
	s.registry.Record(device, status)

	entry := &Entry{
		DeviceType: class,
		Address:    address,
		Kind:       status.Kind(),
		Payload:    status,
		ReceivedAt: time.Now().UTC(),
	}

	var err error
	switch st := status.(type) {
	case GSMStatus, WiFiStatus, MQTTStatus, PowerCycle:
		err = s.repo.SaveNetworkStatus(ctx, entry)
	case DeviceInfo:
		err = s.repo.SaveDeviceInfo(ctx, entry)
	case DeviceError:
		err = s.repo.SaveDeviceError(ctx, entry)
		s.logger.Warn("Device reported error",
			zap.String("device", device),
			zap.String("error_message", st.Message),
		)
	case ConnectionState:
		s.notifyConnection(device, st)
	}

	if err != nil {
		return fmt.Errorf("persist %s for %s: %w", status.Kind(), device, err)
	}
	return nil
}

func (s *Service) notifyConnection(device string, st ConnectionState) {
	level := notify.LevelInfo
	switch {
	case st.Connected():
		level = notify.LevelSuccess
	case st.Disconnected():
		level = notify.LevelError
	}

	s.notifier.Notify(notify.NewSystem(
		"Connectivity Status",
		fmt.Sprintf("Device %s: %s", device, st.Status),
		level,
		map[string]any{"device": device, "medium": st.Medium},
	))
}
