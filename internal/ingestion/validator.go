package ingestion

import (
	"strconv"

	"fuel-station-monitor/internal/domain/station"
	apperrors "fuel-station-monitor/pkg/errors"
)

// ValidateEnvelope checks the fields every telemetry message needs and returns its message type.
func ValidateEnvelope(env *Envelope) (int, error) {
	req, ok := env.ReqType.Int()
	if !ok {
		return 0, apperrors.NewParseError("req_type", env.ReqType.String(), "req_type is required", nil)
	}
	if req != 0 {
		return 0, apperrors.NewParseError("req_type", env.ReqType.String(), "only req_type 0 is processed", nil)
	}

	msgType, ok := env.MsgType.Int()
	if !ok {
		return 0, apperrors.NewParseError("msg_type", env.MsgType.String(), "msg_type must be an integer", nil)
	}
	if msgType < 0 {
		return 0, apperrors.NewParseError("msg_type", env.MsgType.String(), "msg_type must be non-negative", nil)
	}

	if env.Text() == "" {
		return 0, apperrors.NewParseError("message", "", "message is required", nil)
	}
	return msgType, nil
}

// NozzleRef builds the nozzle id for a dispenser message on the given bus address.
func (e *Envelope) NozzleRef(address string) (string, error) {
	side, ok := e.SideLetter()
	if !ok {
		return "", apperrors.NewParseError("side", e.Side.String(), "side must be 0, 1, A or B", nil)
	}

	num, ok := e.NozNumber.Int()
	if !ok || num < 0 {
		return "", apperrors.NewParseError("noz_number", e.NozNumber.String(), "noz_number must be a non-negative integer", nil)
	}

	disAddr := e.DisAddr.String()
	if disAddr == "" {
		disAddr = station.ClassDispenser.ClientPrefix() + address
	}
	return station.NozzleID(disAddr, side, strconv.Itoa(num)), nil
}

// TankID is the tank identifier carried in atg_number.
func (e *Envelope) TankID() (string, error) {
	n, ok := e.ATGNumber.Int()
	if !ok || n < 0 {
		return "", apperrors.NewParseError("atg_number", e.ATGNumber.String(), "atg_number must be a non-negative integer", nil)
	}
	return strconv.Itoa(n), nil
}
