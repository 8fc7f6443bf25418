package domain

import "errors"

var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrDuplicateReference  = errors.New("duplicate reference")
	ErrProviderRejected    = errors.New("provider rejected request")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInternalFault       = errors.New("internal fault")

	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrSelfTransfer      = errors.New("cannot transfer to self")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrInvalidCurrency   = errors.New("invalid currency")
	ErrUnconfirmed       = errors.New("transaction outcome unconfirmed")
	ErrForbidden         = errors.New("forbidden")
	ErrProposalDecided   = errors.New("proposal already decided")
)
