package domain

import "github.com/pkg/errors"

var (
	ErrInvalidRange        = errors.New("interval end precedes start")
	ErrInvalidDayCount     = errors.New("day count cannot be lower than one")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
)
