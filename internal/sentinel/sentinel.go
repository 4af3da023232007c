// Package sentinel holds errors shared between stores and the services above
// them. Stores return them, possibly wrapped; services translate them into
// domain errors once.
package sentinel

import "errors"

// ErrNotFound reports a lookup that matched no row or key.
var ErrNotFound = errors.New("not found")
