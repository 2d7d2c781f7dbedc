package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"fuel-station-monitor/internal/domain/station"
	pkgmqtt "fuel-station-monitor/pkg/mqtt"
)

// LivenessSeeder starts tracking a nozzle that is not tracked yet.
type LivenessSeeder interface {
	Seed(nozzleID, dispenserID string) bool
}

// MQTTIngestionConfig describes the MQTT connection and subscription parameters.
type MQTTIngestionConfig struct {
	ClientConfig *pkgmqtt.Config
	QoS          byte
	// ResyncTimeout bounds the device listing done after each (re)connect.
	ResyncTimeout time.Duration
}

type MQTTIngestionDeps struct {
	Dispensers station.DispenserRepository
	Tanks      station.TankRepository
	Nozzles    station.NozzleRepository
	Liveness   LivenessSeeder
}

// MQTTIngestionClient wires MQTT messages into the ingestion processor and keeps
// the broker subscriptions in line with provisioned devices.
type MQTTIngestionClient struct {
	cfg           *MQTTIngestionConfig
	client        *pkgmqtt.Client
	processor     *Processor
	subscriptions *SubscriptionManager
	deps          MQTTIngestionDeps

	mu      sync.Mutex
	started bool
	logger  *zap.Logger
}

// NewMQTTIngestionClient builds a new MQTT client for ingestion.
func NewMQTTIngestionClient(cfg *MQTTIngestionConfig, processor *Processor, deps MQTTIngestionDeps, logger *zap.Logger) (*MQTTIngestionClient, error) {
	if cfg == nil || cfg.ClientConfig == nil {
		return nil, errors.New("mqtt ingestion config is not configured")
	}
	if processor == nil {
		return nil, errors.New("processor is required")
	}
	if deps.Dispensers == nil || deps.Tanks == nil || deps.Nozzles == nil {
		return nil, errors.New("device repositories are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := pkgmqtt.NewClient(cfg.ClientConfig, logger)
	c := newIngestionClient(cfg, client, processor, deps, logger)
	client.OnConnect(c.onConnect)
	return c, nil
}

func newIngestionClient(cfg *MQTTIngestionConfig, transport Transport, processor *Processor, deps MQTTIngestionDeps, logger *zap.Logger) *MQTTIngestionClient {
	c := &MQTTIngestionClient{
		cfg:       cfg,
		processor: processor,
		deps:      deps,
		logger:    logger.Named("ingestion"),
	}
	if client, ok := transport.(*pkgmqtt.Client); ok {
		c.client = client
	}
	c.subscriptions = NewSubscriptionManager(transport, processor.Scheme(), cfg.QoS, processor.Enqueue, logger)
	return c
}

func (c *MQTTIngestionClient) Subscriptions() *SubscriptionManager {
	return c.subscriptions
}

// Connected reports whether the broker session is up.
func (c *MQTTIngestionClient) Connected() bool {
	return c.client != nil && c.client.IsConnected()
}

// Start establishes the MQTT connection. Subscriptions are issued by the
// connect hook, which also runs after every automatic reconnect.
func (c *MQTTIngestionClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return nil
	}

	if err := c.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	c.started = true
	return nil
}

// Stop unsubscribes and disconnects from the broker.
func (c *MQTTIngestionClient) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return
	}

	if c.client.IsConnected() {
		if err := c.subscriptions.UnsubscribeAll(); err != nil {
			c.logger.Warn("Failed to unsubscribe from MQTT topics", zap.Error(err))
		}
	}

	c.client.Disconnect()
	c.started = false
}

func (c *MQTTIngestionClient) onConnect() {
	timeout := c.cfg.ResyncTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := c.Resync(ctx); err != nil {
		c.logger.Error("Subscription resync failed", zap.Error(err))
	}
}

// Resync subscribes every provisioned dispenser and tank and seeds liveness
// tracking for every provisioned nozzle.
func (c *MQTTIngestionClient) Resync(ctx context.Context) error {
	dispensers, err := c.deps.Dispensers.List(ctx)
	if err != nil {
		return fmt.Errorf("list dispensers: %w", err)
	}
	tanks, err := c.deps.Tanks.List(ctx)
	if err != nil {
		return fmt.Errorf("list tanks: %w", err)
	}

	refs := make([]DeviceRef, 0, len(dispensers)+len(tanks))
	for _, d := range dispensers {
		refs = append(refs, DeviceRef{Class: station.ClassDispenser, Address: d.Address})
	}
	for _, t := range tanks {
		refs = append(refs, DeviceRef{Class: station.ClassTank, Address: t.Address})
	}
	subscribed := c.subscriptions.Resync(refs)

	seeded := 0
	if c.deps.Liveness != nil {
		for _, d := range dispensers {
			nozzles, err := c.deps.Nozzles.ListByDispenser(ctx, d.DispenserID)
			if err != nil {
				c.logger.Warn("Failed to list nozzles for liveness seeding",
					zap.String("dispenser_id", d.DispenserID),
					zap.Error(err),
				)
				continue
			}
			for _, n := range nozzles {
				if c.deps.Liveness.Seed(n.NozzleID, n.DispenserID) {
					seeded++
				}
			}
		}
	}

	c.logger.Info("Subscriptions resynced",
		zap.Int("dispensers", len(dispensers)),
		zap.Int("tanks", len(tanks)),
		zap.Int("topics", subscribed),
		zap.Int("liveness_seeded", seeded),
	)
	return nil
}
