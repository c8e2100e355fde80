package pdn

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedTag is returned for a tag line that does not match `[Name "value"]`.
	ErrMalformedTag = errors.New("malformed tag")
	// ErrMovesWithoutGame is returned when a move block precedes every tag line.
	ErrMovesWithoutGame = errors.New("moves without game")
	// ErrInvalidSquareIndex is returned for a position descriptor outside 1-50 or not numeric.
	ErrInvalidSquareIndex = errors.New("invalid square index")
)

// ParseError describes where a document failed to parse.
type ParseError struct {
	Kind  error
	Line  int    // 1-based line of the offending token, 0 if unknown
	Token string // offending token or field
	Err   error  // underlying cause, if any
}

func (e *ParseError) Error() string {
	msg := e.Kind.Error()
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	if e.Token != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Token)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the error kind and the cause to errors.Is.
func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns a short label for the error kind, used for metrics.
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrMalformedTag):
		return "malformed_tag"
	case errors.Is(err, ErrMovesWithoutGame):
		return "moves_without_game"
	case errors.Is(err, ErrInvalidSquareIndex):
		return "invalid_square_index"
	default:
		return "other"
	}
}
