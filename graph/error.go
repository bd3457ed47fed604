package graph

import "golang.org/x/xerrors"

var (
	// ErrInvalidValue is returned when a wire value cannot be decoded
	// into any of the GunValue variants.
	ErrInvalidValue = xerrors.New("invalid value")
)
