package vm

import "errors"

var (
	ErrInvalidAddress  = errors.New("invalid address")
	ErrUnmappedMemory  = errors.New("unmapped memory")
	ErrNotMetadata     = errors.New("address does not hold metadata")
	ErrInvalidIndex    = errors.New("index out of range")
	ErrInvalidConstant = errors.New("invalid constant pool entry")
	ErrTypeMismatch    = errors.New("value type mismatch")
)
