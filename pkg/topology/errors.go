package topology

import "errors"

var (
	ErrUnresolvedReference  = errors.New("unresolved reference")
	ErrDuplicateResource    = errors.New("duplicate resource")
	ErrUnknownAttribute     = errors.New("unknown attribute")
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
