package palette

import "errors"

// ErrInvalidArgument is returned for structurally invalid input or parameters.
var ErrInvalidArgument = errors.New("invalid argument")
