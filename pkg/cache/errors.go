package cache

import "errors"

// ErrInvalidURL is returned when a Redis URL cannot be parsed.
var ErrInvalidURL = errors.New("invalid cache url")
