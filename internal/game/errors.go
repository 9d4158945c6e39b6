package game

import "fmt"

// ErrorKind tags a rejection so transports can map it without parsing
// the reason text.
type ErrorKind string

const (
	KindNotFound     ErrorKind = "not_found"
	KindForbidden    ErrorKind = "forbidden"
	KindConflict     ErrorKind = "conflict"
	KindExhausted    ErrorKind = "exhausted"
	KindInvalidInput ErrorKind = "invalid_input"
)

// Error is a rejected-action response. Validation always precedes
// mutation, so receiving an Error means session state is unchanged.
type Error struct {
	Kind   ErrorKind
	Reason string
}

func (e *Error) Error() string { return e.Reason }

var (
	ErrSessionNotFound = &Error{Kind: KindNotFound, Reason: "session not found"}
	ErrPlayerNotFound  = &Error{Kind: KindNotFound, Reason: "player not found"}
)

func notFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Reason: fmt.Sprintf(format, args...)}
}

func forbiddenf(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Reason: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Reason: fmt.Sprintf(format, args...)}
}

func exhaustedf(format string, args ...any) *Error {
	return &Error{Kind: KindExhausted, Reason: fmt.Sprintf(format, args...)}
}

func invalidf(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Reason: fmt.Sprintf(format, args...)}
}
