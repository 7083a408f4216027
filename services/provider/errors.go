package provider

import "errors"

var (
	ErrProviderNotFound = errors.New("provider not found")
	ErrInvalidInput     = errors.New("invalid provider input")
)
