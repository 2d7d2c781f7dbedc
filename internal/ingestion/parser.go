package ingestion

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"fuel-station-monitor/internal/domain/station"
	apperrors "fuel-station-monitor/pkg/errors"
)

type dispatchKey struct {
	class   station.DeviceClass
	msgType int
}

// parseFunc parses one message body; raw is already trimmed.
type parseFunc func(p *Parser, raw string) (ParsedMessage, error)

// Message type tags mean different things per device class, so the table is
// keyed on both.
var dispatch = map[dispatchKey]parseFunc{
	{station.ClassDispenser, 0}:  integer(FieldNozzleStatus),
	{station.ClassDispenser, 1}:  number(FieldPricePerLiter),
	{station.ClassDispenser, 2}:  number(FieldTotalQuantity),
	{station.ClassDispenser, 3}:  number(FieldTotalAmount),
	{station.ClassDispenser, 4}:  integer(FieldLockUnlock),
	{station.ClassDispenser, 5}:  integer(FieldKeypadLock),
	{station.ClassDispenser, 6}:  integer(FieldIRLock),
	{station.ClassDispenser, 7}:  (*Parser).parseTransactions,
	{station.ClassDispenser, 8}:  (*Parser).parseDeviceError,
	{station.ClassDispenser, 10}: (*Parser).parseWireless,
	{station.ClassDispenser, 11}: (*Parser).parseMQTTStatus,
	{station.ClassDispenser, 12}: (*Parser).parsePowerCycle,
	{station.ClassDispenser, 13}: (*Parser).parseDeviceStatus,
	{station.ClassDispenser, 16}: (*Parser).parseDeviceInfo,

	{station.ClassTank, 0}:  integer(FieldTankStatus),
	{station.ClassTank, 1}:  number(FieldProductLevelMm),
	{station.ClassTank, 2}:  number(FieldWaterLevelMm),
	{station.ClassTank, 3}:  (*Parser).parseDeviceError,
	{station.ClassTank, 4}:  number(FieldTemperature),
	{station.ClassTank, 5}:  (*Parser).parseWireless,
	{station.ClassTank, 6}:  (*Parser).parseMQTTStatus,
	{station.ClassTank, 7}:  (*Parser).parsePowerCycle,
	{station.ClassTank, 8}:  (*Parser).parseDeviceStatus,
	{station.ClassTank, 11}: (*Parser).parseDeviceInfo,
}

// Parser turns message bodies into ParsedMessage values.
type Parser struct {
	now func() time.Time
}

func NewParser() *Parser {
	return &Parser{now: time.Now}
}

// ParsePayload decodes raw according to the (class, msgType) dispatch table.
// Unknown combinations return Unhandled and a nil error.
func (p *Parser) ParsePayload(class station.DeviceClass, msgType int, raw string) (ParsedMessage, error) {
	fn, ok := dispatch[dispatchKey{class: class, msgType: msgType}]
	if !ok {
		return Unhandled{Class: class, MsgType: msgType}, nil
	}
	return fn(p, strings.TrimSpace(raw))
}

// Handles reports whether the pair has a parser.
func Handles(class station.DeviceClass, msgType int) bool {
	_, ok := dispatch[dispatchKey{class: class, msgType: msgType}]
	return ok
}

// number parses a single decimal reading for field.
func number(field Field) parseFunc {
	return func(_ *Parser, raw string) (ParsedMessage, error) {
		v, err := parseFloat(string(field), raw)
		if err != nil {
			return nil, err
		}
		return NumericReading{Field: field, Value: v}, nil
	}
}

// integer parses status and flag codes; "1.0" is accepted, "1.5" is not.
func integer(field Field) parseFunc {
	return func(_ *Parser, raw string) (ParsedMessage, error) {
		v, err := parseFloat(string(field), raw)
		if err != nil {
			return nil, err
		}
		if v != math.Trunc(v) {
			return nil, apperrors.NewParseError(string(field), raw, "expected an integer", nil)
		}
		return NumericReading{Field: field, Value: v}, nil
	}
}

func parseFloat(field, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, apperrors.NewParseError(field, raw, "not a number", err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperrors.NewParseError(field, raw, "not a finite number", nil)
	}
	return v, nil
}

func (p *Parser) parseDeviceError(raw string) (ParsedMessage, error) {
	if raw == "" {
		return nil, apperrors.NewParseError("device_error", raw, "empty error message", nil)
	}
	return DeviceErrorReport{Message: raw}, nil
}

func (p *Parser) parseTransactions(raw string) (ParsedMessage, error) {
	txs, skipped := ParseTransactions(raw)
	if len(txs) == 0 {
		return nil, apperrors.NewParseError("transactions", raw, fmt.Sprintf("no valid triples (%d skipped)", len(skipped)), nil)
	}
	return TransactionBatch{Transactions: txs, Skipped: skipped}, nil
}

// parseWireless handles both GSM and WiFi reports; the body decides which.
func (p *Parser) parseWireless(raw string) (ParsedMessage, error) {
	st, err := parseWirelessStatus(raw, p.now())
	if err != nil {
		return nil, err
	}
	return StructuredStatus{Status: st}, nil
}

func (p *Parser) parseMQTTStatus(raw string) (ParsedMessage, error) {
	st, err := parseMQTTStatus(raw, p.now())
	if err != nil {
		return nil, err
	}
	return StructuredStatus{Status: st}, nil
}

// parsePowerCycle never fails: a missing status becomes Unknown and missing times stay nil.
func (p *Parser) parsePowerCycle(raw string) (ParsedMessage, error) {
	return StructuredStatus{Status: parsePowerCycle(raw, p.now())}, nil
}

func (p *Parser) parseDeviceStatus(raw string) (ParsedMessage, error) {
	st, err := parseConnectionState(raw, p.now())
	if err != nil {
		return nil, err
	}
	return StructuredStatus{Status: st}, nil
}

func (p *Parser) parseDeviceInfo(raw string) (ParsedMessage, error) {
	st, err := parseDeviceInfo(raw, p.now())
	if err != nil {
		return nil, err
	}
	return StructuredStatus{Status: st}, nil
}
