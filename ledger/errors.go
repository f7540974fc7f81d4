package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for non-positive prices or amounts,
	// bad directions and bad construction parameters. Nothing is mutated.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnknownSymbol also matches ErrInvalidArgument.
	ErrUnknownSymbol = fmt.Errorf("%w: unknown symbol", ErrInvalidArgument)

	ErrMissingPrice      = errors.New("missing price")
	ErrInvariantViolated = errors.New("ledger invariant violated")
)
