package station

import "errors"

var (
	ErrInvalidAddress = errors.New("invalid bus address")
	ErrUnknownClass   = errors.New("unknown device class")
)
