package service

import "errors"

// ErrForbidden is returned when a caller acts on a resource owned by another
// company.
var ErrForbidden = errors.New("resource belongs to another company")
