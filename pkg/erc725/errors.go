package erc725

import "errors"

var (
	ErrUnknownKey     = errors.New("erc725: unknown data key")
	ErrInvalidKeyName = errors.New("erc725: invalid key name")
	ErrDynamicPart    = errors.New("erc725: invalid dynamic key part")
	ErrInvalidValue   = errors.New("erc725: invalid value")
)
