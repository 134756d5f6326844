// file: internal/catalog/errors.go
// version: 1.0.0
// guid: 7e374c2a-16f2-4211-ac9d-03b1b5bf41a3

package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrNoConnection means the catalog service could not be reached.
	ErrNoConnection = errors.New("catalog: no connection")
	// ErrBadRequest means the service rejected the request or returned a
	// response that could not be decoded.
	ErrBadRequest = errors.New("catalog: bad request")
	// ErrNotFound means the id is confirmed absent upstream.
	ErrNotFound = errors.New("catalog: not found")
)

// ErrorKind classifies catalog failures for callers that decide whether to
// retry later.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindNoConnection
	KindBadRequest
	KindNotFound
	KindOther
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNoConnection:
		return "no_connection"
	case KindBadRequest:
		return "bad_request"
	case KindNotFound:
		return "not_found"
	default:
		return "error"
	}
}

// Kind maps an error onto its ErrorKind.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNoConnection):
		return KindNoConnection
	case errors.Is(err, ErrBadRequest):
		return KindBadRequest
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindOther
	}
}

func notFound(id int) error {
	return fmt.Errorf("anime %d: %w", id, ErrNotFound)
}
