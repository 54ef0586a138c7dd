package aucerrors

import "errors"

// Business-rule errors surfaced to callers of auction operations. The HTTP
// layer maps these to status codes with errors.Is.
var (
	ErrValidation = errors.New("invalid or missing input")
	ErrScheduling = errors.New("invalid auction schedule")
	ErrConflict   = errors.New("seller already has an open auction")
	ErrNotActive  = errors.New("auction is not active")
	ErrNotEnded   = errors.New("auction has not ended")
	ErrBidTooLow  = errors.New("bid amount too low")
	ErrNotFound   = errors.New("not found")
)
