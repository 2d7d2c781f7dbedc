package ingestion

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"fuel-station-monitor/internal/domain/station"
	pkgmqtt "fuel-station-monitor/pkg/mqtt"
)

//go:generate mockgen -destination=mock_transport_test.go -package=ingestion . Transport

// Transport is the broker surface subscriptions are issued against.
type Transport interface {
	Subscribe(topic string, qos byte, handler pkgmqtt.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// DeviceRef names one provisioned controller.
type DeviceRef struct {
	Class   station.DeviceClass `json:"class"`
	Address string              `json:"address"`
}

// SubscriptionManager tracks which topics are subscribed so repeated requests are no-ops.
type SubscriptionManager struct {
	transport Transport
	scheme    TopicScheme
	qos       byte
	handler   pkgmqtt.MessageHandler

	mu     sync.Mutex
	topics map[string]struct{}
	logger *zap.Logger
}

func NewSubscriptionManager(transport Transport, scheme TopicScheme, qos byte, handler pkgmqtt.MessageHandler, logger *zap.Logger) *SubscriptionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionManager{
		transport: transport,
		scheme:    scheme,
		qos:       qos,
		handler:   handler,
		topics:    make(map[string]struct{}),
		logger:    logger.Named("subscriptions"),
	}
}

// Subscribe issues a subscription unless the topic is already tracked.
func (s *SubscriptionManager) Subscribe(topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribeLocked(topic)
}

func (s *SubscriptionManager) subscribeLocked(topic string) error {
	if _, ok := s.topics[topic]; ok {
		return nil
	}
	if err := s.transport.Subscribe(topic, s.qos, s.handler); err != nil {
		s.logger.Error("Subscribe failed", zap.String("topic", topic), zap.Error(err))
		return err
	}
	s.topics[topic] = struct{}{}
	s.logger.Info("Subscribed", zap.String("topic", topic))
	return nil
}

// Unsubscribe drops a tracked topic. Untracked topics are ignored.
func (s *SubscriptionManager) Unsubscribe(topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.topics[topic]; !ok {
		return nil
	}
	if err := s.transport.Unsubscribe(topic); err != nil {
		s.logger.Error("Unsubscribe failed", zap.String("topic", topic), zap.Error(err))
		return err
	}
	delete(s.topics, topic)
	s.logger.Info("Unsubscribed", zap.String("topic", topic))
	return nil
}

// DeviceTopics returns the telemetry and connection topics of a device.
func (s *SubscriptionManager) DeviceTopics(ref DeviceRef) ([]string, error) {
	telemetry, err := s.scheme.TelemetryTopic(ref.Class, ref.Address)
	if err != nil {
		return nil, err
	}
	conn, err := s.scheme.ConnectionTopic(ref.Class, ref.Address)
	if err != nil {
		return nil, err
	}
	return []string{telemetry, conn}, nil
}

// AddDevice subscribes both topics of a device. Every topic is attempted; the
// first failure is returned.
func (s *SubscriptionManager) AddDevice(ref DeviceRef) error {
	topics, err := s.DeviceTopics(ref)
	if err != nil {
		return err
	}

	var first error
	for _, t := range topics {
		if err := s.Subscribe(t); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (s *SubscriptionManager) RemoveDevice(ref DeviceRef) error {
	topics, err := s.DeviceTopics(ref)
	if err != nil {
		return err
	}

	var first error
	for _, t := range topics {
		if err := s.Unsubscribe(t); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Resync forgets what the broker session held and subscribes every given device
// plus any topic tracked before. It returns how many topics are now subscribed.
func (s *SubscriptionManager) Resync(refs []DeviceRef) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[string]struct{}, len(s.topics)+2*len(refs))
	for t := range s.topics {
		want[t] = struct{}{}
	}
	for _, ref := range refs {
		topics, err := s.DeviceTopics(ref)
		if err != nil {
			s.logger.Warn("Skipping device with invalid address",
				zap.String("class", string(ref.Class)),
				zap.String("address", ref.Address),
				zap.Error(err),
			)
			continue
		}
		for _, t := range topics {
			want[t] = struct{}{}
		}
	}

	s.topics = make(map[string]struct{}, len(want))
	for _, t := range sortedKeys(want) {
		_ = s.subscribeLocked(t)
	}
	return len(s.topics)
}

// Topics lists tracked topics in order.
func (s *SubscriptionManager) Topics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.topics)
}

// UnsubscribeAll releases every tracked topic in one request.
func (s *SubscriptionManager) UnsubscribeAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.topics) == 0 {
		return nil
	}
	if err := s.transport.Unsubscribe(sortedKeys(s.topics)...); err != nil {
		return err
	}
	s.topics = make(map[string]struct{})
	return nil
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
