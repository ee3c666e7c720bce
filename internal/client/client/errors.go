package client

import "errors"

var (
	ErrUnavailable     = errors.New("identity provider unavailable")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrAccountExists   = errors.New("account already exists")
	ErrMalformedReply  = errors.New("malformed provider reply")
)
