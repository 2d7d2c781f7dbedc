package ingestion

import (
	"encoding/json"
	"strings"

	"fuel-station-monitor/internal/domain/station"
	apperrors "fuel-station-monitor/pkg/errors"
)

// connectionPayload is the broker's session notice body.
type connectionPayload struct {
	ClientID       flexString `json:"clientid"`
	Status         flexString `json:"status"`
	ConnectedAt    flexString `json:"connected_at"`
	DisconnectedAt flexString `json:"disconnected_at"`
}

// ParseConnectionAlert decodes a broker session notice. The client id in the body
// wins over the one in the topic; the transition time comes from the body and
// falls back to receipt time.
func (p *Parser) ParseConnectionAlert(route Route, payload []byte) (ConnectionAlert, error) {
	var body connectionPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return ConnectionAlert{}, apperrors.NewParseError("connection_alert", string(payload), "invalid JSON", err)
	}

	class, address := route.Class, route.Address
	clientID := body.ClientID.String()
	if clientID != "" {
		c, a, err := ParseClientID(clientID)
		if err != nil {
			return ConnectionAlert{}, err
		}
		class, address = c, a
	}

	connected, err := connectedFlag(body.Status.String())
	if err != nil {
		return ConnectionAlert{}, err
	}

	// Use the timestamp matching the transition being reported
	stamp := body.DisconnectedAt
	if connected {
		stamp = body.ConnectedAt
	}
	at, ok := parseEventTime(stamp)
	if !ok {
		at = p.now()
	}

	return ConnectionAlert{Event: station.ConnectionEvent{
		Class:     class,
		Address:   address,
		ClientID:  class.ClientPrefix() + address,
		Connected: connected,
		At:        at,
	}}, nil
}

// connectedFlag accepts the status spellings brokers and firmware use.
func connectedFlag(status string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "connected", "1", "true", "online":
		return true, nil
	case "disconnected", "0", "false", "offline":
		return false, nil
	}
	return false, apperrors.NewParseError("status", status, "unknown connection status", nil)
}
