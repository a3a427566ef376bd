package domain

import "errors"

var (
	ErrNotFound          = errors.New("payment not found")
	ErrInvalidMessage    = errors.New("invalid message")
	ErrDataInconsistency = errors.New("data inconsistency between message and store")
	ErrPaymentTerminal   = errors.New("payment already in terminal state")
)
