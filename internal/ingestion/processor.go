package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"fuel-station-monitor/internal/diagnostics"
	"fuel-station-monitor/internal/domain/station"
	"fuel-station-monitor/internal/reconciler"
	apperrors "fuel-station-monitor/pkg/errors"
)

// StateApplier is the reconciler surface the processor drives.
type StateApplier interface {
	ApplyNozzleStatus(ctx context.Context, dispenserID, nozzleID string, status int) (reconciler.Outcome, error)
	ApplyNozzleField(ctx context.Context, dispenserID, nozzleID string, field reconciler.NozzleField, value float64) (reconciler.Outcome, error)
	ApplyDispenserIRLock(ctx context.Context, dispenserID string, status int) (reconciler.Outcome, error)
	ApplyTransactionBatch(ctx context.Context, dispenserID, nozzleID string, batch []station.Transaction) (reconciler.Outcome, error)
	ApplyTankStatus(ctx context.Context, tankID, address string, status int) (reconciler.Outcome, error)
	ApplyTankTemperature(ctx context.Context, tankID, address string, celsius float64) (reconciler.Outcome, error)
	ApplyProductLevel(ctx context.Context, tankID, address string, mm float64) (reconciler.Outcome, error)
	ApplyWaterLevel(ctx context.Context, tankID, address string, mm float64) (reconciler.Outcome, error)
}

// ConnectionHandler applies broker connect/disconnect alerts.
type ConnectionHandler interface {
	Handle(ctx context.Context, ev station.ConnectionEvent) error
}

// StatusRecorder stores structured diagnostics reports.
type StatusRecorder interface {
	Record(ctx context.Context, class station.DeviceClass, address string, status diagnostics.Status) error
}

// DispenserLookup resolves a bus address to its dispenser record.
type DispenserLookup interface {
	GetByAddress(ctx context.Context, address string) (*station.Dispenser, error)
}

// nozzleFields maps parsed numeric fields onto the nozzle columns they set.
var nozzleFields = map[Field]reconciler.NozzleField{
	FieldPricePerLiter: reconciler.FieldPricePerLiter,
	FieldTotalQuantity: reconciler.FieldTotalQuantity,
	FieldTotalAmount:   reconciler.FieldTotalAmount,
	FieldLockUnlock:    reconciler.FieldLockUnlock,
	FieldKeypadLock:    reconciler.FieldKeypadLock,
}

type ProcessorConfig struct {
	Workers int
	// BufferSize is shared evenly between the workers' queues.
	BufferSize int
	ConnPrefix string
}

type ProcessorDeps struct {
	State        StateApplier
	Dispensers   DispenserLookup
	Connectivity ConnectionHandler
	Diagnostics  StatusRecorder
	Collector    *Collector
}

type inbound struct {
	topic   string
	payload []byte
}

// Processor classifies, parses and applies device messages on a pool of workers.
// Each topic always lands on the same worker so one device's messages are applied in order.
type Processor struct {
	scheme       TopicScheme
	parser       *Parser
	state        StateApplier
	dispensers   DispenserLookup
	connectivity ConnectionHandler
	diagnostics  StatusRecorder
	collector    *Collector

	queues []chan inbound

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex

	metrics *MetricsTracker
	logger  *zap.Logger
}

func NewProcessor(cfg ProcessorConfig, deps ProcessorDeps, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if deps.Collector == nil {
		deps.Collector = NewCollector()
	}

	ctx, cancel := context.WithCancel(context.Background())

	// One queue per worker; Enqueue picks the queue from the topic hash
	perWorker := cfg.BufferSize / cfg.Workers
	if perWorker == 0 {
		perWorker = 1
	}
	queues := make([]chan inbound, cfg.Workers)
	for i := range queues {
		queues[i] = make(chan inbound, perWorker)
	}

	return &Processor{
		scheme:       NewTopicScheme(cfg.ConnPrefix),
		parser:       NewParser(),
		state:        deps.State,
		dispensers:   deps.Dispensers,
		connectivity: deps.Connectivity,
		diagnostics:  deps.Diagnostics,
		collector:    deps.Collector,
		queues:       queues,
		ctx:          ctx,
		cancel:       cancel,
		metrics:      NewMetricsTracker(),
		logger:       logger.Named("processor"),
	}
}

func (p *Processor) Scheme() TopicScheme {
	return p.scheme
}

func (p *Processor) Metrics() *MetricsTracker {
	return p.metrics
}

func (p *Processor) Collector() *Collector {
	return p.collector
}

// Start starts the processor workers
func (p *Processor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	for i, q := range p.queues {
		p.wg.Add(1)
		go p.worker(i, q)
	}

	p.logger.Info("Processor started",
		zap.Int("workers", len(p.queues)),
		zap.Int("buffer_per_worker", cap(p.queues[0])),
	)
}

// Stop stops the workers after they drain what is already buffered.
func (p *Processor) Stop() {
	p.logger.Info("Stopping processor...")
	p.cancel()
	p.wg.Wait()
	p.logger.Info("Processor stopped")
}

// Enqueue hands a message to its worker without blocking. A full buffer drops the message.
func (p *Processor) Enqueue(topic string, payload []byte) {
	if p.ctx.Err() != nil {
		return
	}

	q := p.queues[xxhash.Sum64String(topic)%uint64(len(p.queues))]
	// paho may reuse the payload buffer after the callback returns
	msg := inbound{topic: topic, payload: append([]byte(nil), payload...)}

	select {
	case q <- msg:
		p.metrics.Update(func(m *IngestMetrics) {
			m.MessagesReceived++
			m.BufferSize = p.bufferDepth()
		})
		p.collector.SetBufferDepth(p.bufferDepth())
	default:
		p.logger.Warn("Ingestion buffer full, dropping message",
			zap.String("topic", topic),
			zap.String("reason", ReasonBufferFull),
		)
		p.collector.Dropped(ReasonBufferFull)
		p.metrics.Update(func(m *IngestMetrics) {
			m.MessagesReceived++
			m.MessagesDropped++
		})
	}
}

func (p *Processor) bufferDepth() int {
	n := 0
	for _, q := range p.queues {
		n += len(q)
	}
	return n
}

func (p *Processor) worker(id int, q chan inbound) {
	defer p.wg.Done()

	p.logger.Debug("Worker started", zap.Int("worker", id))

	for {
		select {
		case msg := <-q:
			p.handle(p.ctx, msg)
		case <-p.ctx.Done():
			// Messages already accepted are applied; nothing cancels a single application.
			drain := context.WithoutCancel(p.ctx)
			for {
				select {
				case msg := <-q:
					p.handle(drain, msg)
				default:
					return
				}
			}
		}
	}
}

func (p *Processor) handle(ctx context.Context, msg inbound) {
	start := time.Now()
	_ = p.process(ctx, msg.topic, msg.payload)

	p.metrics.Update(func(m *IngestMetrics) {
		m.observe(time.Since(start), time.Now())
		m.BufferSize = p.bufferDepth()
	})
	p.collector.SetBufferDepth(p.bufferDepth())
}

// HandleMessage processes one message synchronously. The returned error has
// already been logged and counted.
func (p *Processor) HandleMessage(ctx context.Context, topic string, payload []byte) error {
	p.metrics.Update(func(m *IngestMetrics) { m.MessagesReceived++ })

	start := time.Now()
	err := p.process(ctx, topic, payload)
	p.metrics.Update(func(m *IngestMetrics) { m.observe(time.Since(start), time.Now()) })
	return err
}

func (p *Processor) process(ctx context.Context, topic string, payload []byte) error {
	// Classify the topic into device class and address
	route, err := p.scheme.Classify(topic)
	if err != nil {
		return p.drop(topic, payload, ReasonParse, err)
	}

	if route.Kind == RouteConnection {
		return p.processConnection(ctx, route, topic, payload)
	}

	// Decode and validate the telemetry envelope
	env, err := DecodeEnvelope(payload)
	if err != nil {
		return p.drop(topic, payload, ReasonParse, err)
	}
	msgType, err := ValidateEnvelope(env)
	if err != nil {
		return p.drop(topic, payload, ReasonParse, err)
	}
	p.collector.Received(string(route.Class), strconv.Itoa(msgType))

	// Parse the message body for its (class, msg_type) pair
	parsed, err := p.parser.ParsePayload(route.Class, msgType, env.Text())
	if err != nil {
		return p.drop(topic, payload, ReasonParse, err)
	}

	// Route the typed payload to the component that owns it
	switch m := parsed.(type) {
	case Unhandled:
		p.logger.Info("Unhandled message type",
			zap.String("topic", topic),
			zap.String("class", string(m.Class)),
			zap.Int("msg_type", m.MsgType),
			zap.String("reason", ReasonUnhandled),
		)
		p.collector.Dropped(ReasonUnhandled)
		p.metrics.Update(func(im *IngestMetrics) { im.Unhandled++ })
		return nil
	case NumericReading:
		if route.Class == station.ClassTank {
			return p.applyTankReading(ctx, route, env, m, topic, payload)
		}
		return p.applyDispenserReading(ctx, route, env, m, topic, payload)
	case TransactionBatch:
		return p.applyTransactions(ctx, route, env, m, topic, payload)
	case StructuredStatus:
		return p.record(ctx, route, m.Status, topic, payload)
	case DeviceErrorReport:
		return p.record(ctx, route, diagnostics.DeviceError{Message: m.Message, ReceivedAt: time.Now()}, topic, payload)
	}
	return p.drop(topic, payload, ReasonUnhandled, fmt.Errorf("%w: %T", apperrors.ErrUnhandled, parsed))
}

func (p *Processor) applyDispenserReading(ctx context.Context, route Route, env *Envelope, m NumericReading, topic string, payload []byte) error {
	dispenser, err := p.dispensers.GetByAddress(ctx, route.Address)
	if err != nil {
		return p.drop(topic, payload, reasonFor(err), err)
	}

	// IR lock is dispenser-wide, every other field belongs to one nozzle
	if m.Field == FieldIRLock {
		outcome, err := p.state.ApplyDispenserIRLock(ctx, dispenser.DispenserID, int(m.Value))
		return p.settle(topic, payload, outcome, err)
	}

	nozzleID, err := env.NozzleRef(route.Address)
	if err != nil {
		return p.drop(topic, payload, ReasonParse, err)
	}

	var outcome reconciler.Outcome
	if m.Field == FieldNozzleStatus {
		outcome, err = p.state.ApplyNozzleStatus(ctx, dispenser.DispenserID, nozzleID, int(m.Value))
	} else {
		field, ok := nozzleFields[m.Field]
		if !ok {
			return p.drop(topic, payload, ReasonUnhandled, fmt.Errorf("%w: field %s", apperrors.ErrUnhandled, m.Field))
		}
		outcome, err = p.state.ApplyNozzleField(ctx, dispenser.DispenserID, nozzleID, field, m.Value)
	}
	return p.settle(topic, payload, outcome, err)
}

func (p *Processor) applyTankReading(ctx context.Context, route Route, env *Envelope, m NumericReading, topic string, payload []byte) error {
	tankID, err := env.TankID()
	if err != nil {
		return p.drop(topic, payload, ReasonParse, err)
	}

	var outcome reconciler.Outcome
	switch m.Field {
	case FieldTankStatus:
		outcome, err = p.state.ApplyTankStatus(ctx, tankID, route.Address, int(m.Value))
	case FieldProductLevelMm:
		outcome, err = p.state.ApplyProductLevel(ctx, tankID, route.Address, m.Value)
	case FieldWaterLevelMm:
		outcome, err = p.state.ApplyWaterLevel(ctx, tankID, route.Address, m.Value)
	case FieldTemperature:
		outcome, err = p.state.ApplyTankTemperature(ctx, tankID, route.Address, m.Value)
	default:
		return p.drop(topic, payload, ReasonUnhandled, fmt.Errorf("%w: field %s", apperrors.ErrUnhandled, m.Field))
	}
	return p.settle(topic, payload, outcome, err)
}

func (p *Processor) applyTransactions(ctx context.Context, route Route, env *Envelope, m TransactionBatch, topic string, payload []byte) error {
	if len(m.Skipped) > 0 {
		p.logger.Warn("Skipped malformed transactions",
			zap.String("topic", topic),
			zap.Strings("triples", m.Skipped),
		)
	}

	dispenser, err := p.dispensers.GetByAddress(ctx, route.Address)
	if err != nil {
		return p.drop(topic, payload, reasonFor(err), err)
	}
	nozzleID, err := env.NozzleRef(route.Address)
	if err != nil {
		return p.drop(topic, payload, ReasonParse, err)
	}

	outcome, err := p.state.ApplyTransactionBatch(ctx, dispenser.DispenserID, nozzleID, m.Transactions)
	return p.settle(topic, payload, outcome, err)
}

func (p *Processor) record(ctx context.Context, route Route, status diagnostics.Status, topic string, payload []byte) error {
	if err := p.diagnostics.Record(ctx, route.Class, route.Address, status); err != nil {
		return p.drop(topic, payload, ReasonStorage, err)
	}
	p.collector.Outcome(reconciler.Applied.String())
	return nil
}

func (p *Processor) processConnection(ctx context.Context, route Route, topic string, payload []byte) error {
	p.collector.Received(string(route.Class), "connection")

	alert, err := p.parser.ParseConnectionAlert(route, payload)
	if err != nil {
		return p.drop(topic, payload, ReasonParse, err)
	}

	if err := p.connectivity.Handle(ctx, alert.Event); err != nil {
		return p.drop(topic, payload, reasonFor(err), err)
	}
	p.collector.Connectivity(string(alert.Event.Class), alert.Event.Connected)
	return nil
}

// settle logs and counts a reconciler outcome.
func (p *Processor) settle(topic string, payload []byte, outcome reconciler.Outcome, err error) error {
	p.collector.Outcome(outcome.String())

	switch outcome {
	case reconciler.Applied:
		return nil
	case reconciler.Suppressed:
		p.logger.Debug("Duplicate reading suppressed",
			zap.String("topic", topic),
			zap.String("reason", ReasonDuplicate),
		)
		p.collector.Dropped(ReasonDuplicate)
		p.metrics.Update(func(m *IngestMetrics) { m.Suppressed++ })
		return nil
	case reconciler.Rejected:
		if err == nil {
			err = apperrors.ErrValidation
		}
		return p.drop(topic, payload, ReasonValidation, err)
	default:
		if err == nil {
			err = errors.New("storage write failed")
		}
		return p.drop(topic, payload, reasonFor(err), err)
	}
}

// drop logs a message that produced no state change, at the level its reason warrants.
func (p *Processor) drop(topic string, payload []byte, reason string, err error) error {
	fields := []zap.Field{
		zap.String("topic", topic),
		zap.ByteString("payload", payload),
		zap.String("reason", reason),
		zap.Error(err),
	}

	switch reason {
	case ReasonStorage:
		p.logger.Error("Failed to apply message", fields...)
	case ReasonUnhandled:
		p.logger.Info("Message not handled", fields...)
	case ReasonValidation:
		p.logger.Warn("Reading rejected", fields...)
	default:
		p.logger.Warn("Dropping message", fields...)
	}

	p.collector.Dropped(reason)
	p.metrics.Update(func(m *IngestMetrics) {
		m.MessagesDropped++
		switch reason {
		case ReasonValidation:
			m.Rejected++
		case ReasonStorage:
			m.StorageFailures++
		case ReasonUnhandled:
			m.Unhandled++
		}
	})
	return err
}

// reasonFor maps an apply error onto the drop reason it is counted under.
func reasonFor(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrDispenserNotFound), errors.Is(err, apperrors.ErrTankNotFound),
		errors.Is(err, apperrors.ErrNozzleNotFound):
		return ReasonUnknown
	case errors.Is(err, apperrors.ErrValidation):
		return ReasonValidation
	case errors.Is(err, apperrors.ErrParse), errors.Is(err, station.ErrUnknownClass):
		return ReasonParse
	}
	return ReasonStorage
}
