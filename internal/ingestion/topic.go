package ingestion

import (
	"fmt"
	"strings"

	"fuel-station-monitor/internal/domain/station"
	apperrors "fuel-station-monitor/pkg/errors"
)

// RouteKind separates device telemetry from broker session notices.
type RouteKind int

const (
	RouteTelemetry RouteKind = iota
	RouteConnection
)

// Route is the result of classifying an inbound topic.
type Route struct {
	Kind    RouteKind
	Class   station.DeviceClass
	Address string
	// ClientID is the broker client id carried by connection topics.
	ClientID string
}

// TopicScheme knows the topic grammar: S{addr} and T{addr} for telemetry and
// {connPrefix}/{D|T}{addr} for session notices.
type TopicScheme struct {
	ConnPrefix string
}

func NewTopicScheme(connPrefix string) TopicScheme {
	return TopicScheme{ConnPrefix: strings.TrimSuffix(connPrefix, "/")}
}

// Classify maps a topic to its device class and padded address.
func (s TopicScheme) Classify(topic string) (Route, error) {
	if s.ConnPrefix != "" && strings.HasPrefix(topic, s.ConnPrefix+"/") {
		clientID := strings.TrimPrefix(topic, s.ConnPrefix+"/")
		class, address, err := ParseClientID(clientID)
		if err != nil {
			return Route{}, err
		}
		return Route{Kind: RouteConnection, Class: class, Address: address, ClientID: class.ClientPrefix() + address}, nil
	}

	if len(topic) < 2 {
		return Route{}, apperrors.NewParseError("topic", topic, "topic too short", nil)
	}

	var class station.DeviceClass
	switch topic[0] {
	case 'S':
		class = station.ClassDispenser
	case 'T':
		class = station.ClassTank
	default:
		return Route{}, apperrors.NewParseError("topic", topic, "unknown class tag", nil)
	}

	address, err := station.NormalizeAddress(topic[1:])
	if err != nil {
		return Route{}, apperrors.NewParseError("topic", topic, "invalid address", err)
	}
	return Route{Kind: RouteTelemetry, Class: class, Address: address}, nil
}

// ParseClientID splits a broker client id such as D00001 or T00042.
func ParseClientID(clientID string) (station.DeviceClass, string, error) {
	clientID = strings.TrimSpace(clientID)
	if len(clientID) < 2 {
		return "", "", apperrors.NewParseError("client_id", clientID, "client id too short", nil)
	}

	var class station.DeviceClass
	switch clientID[0] {
	case 'D', 'd':
		class = station.ClassDispenser
	case 'T', 't':
		class = station.ClassTank
	default:
		return "", "", apperrors.NewParseError("client_id", clientID, "unknown class tag", nil)
	}

	address, err := station.NormalizeAddress(clientID[1:])
	if err != nil {
		return "", "", apperrors.NewParseError("client_id", clientID, "invalid address", err)
	}
	return class, address, nil
}

// TelemetryTopic is the topic a device publishes readings on.
func (s TopicScheme) TelemetryTopic(class station.DeviceClass, address string) (string, error) {
	addr, err := station.NormalizeAddress(address)
	if err != nil {
		return "", err
	}
	if !class.Valid() {
		return "", fmt.Errorf("%w: %q", station.ErrUnknownClass, class)
	}
	return class.TopicPrefix() + addr, nil
}

// ConnectionTopic is the topic the broker announces the device's session changes on.
func (s TopicScheme) ConnectionTopic(class station.DeviceClass, address string) (string, error) {
	addr, err := station.NormalizeAddress(address)
	if err != nil {
		return "", err
	}
	if !class.Valid() {
		return "", fmt.Errorf("%w: %q", station.ErrUnknownClass, class)
	}
	return s.ConnPrefix + "/" + class.ClientPrefix() + addr, nil
}
