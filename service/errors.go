package service

import (
	"errors"
	"fmt"
)

// Error categories. Handlers classify errors with errors.Is against these.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
)

// State errors
var (
	ErrMarketResolved     = fmt.Errorf("%w: market already resolved", ErrConflict)
	ErrMarketClosed       = fmt.Errorf("%w: market is closed for betting", ErrConflict)
	ErrInsufficientBudget = fmt.Errorf("%w: insufficient vouch budget", ErrConflict)
	ErrAlreadyExists      = fmt.Errorf("%w: already exists", ErrConflict)
	ErrLockHeld           = fmt.Errorf("%w: operation already in progress", ErrConflict)
	ErrNotFriends         = fmt.Errorf("%w: users are not friends", ErrForbidden)
)
