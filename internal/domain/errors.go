package domain

import "errors"

// ErrUnauthorized marks a 401-class failure: no identity, or a token that is missing, invalid or expired.
var ErrUnauthorized = errors.New("unauthorized")
