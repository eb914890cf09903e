package farmerr

import "errors"

var (
	ErrFarmRequired     = errors.New("farm id required")
	ErrInvalidQuestion  = errors.New("question must not be empty")
	ErrModelUnavailable = errors.New("language model unavailable")
)
