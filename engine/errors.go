package engine

import "fmt"

// Kind enumerates the error kinds from spec §7. The core never
// discards an error; every failure path returns one of these, wrapped
// with context, the same shape as the teacher's services/errors.go
// sentinel list but carrying a Kind for programmatic dispatch at the
// HTTP boundary (api/helpers.go's mapEngineError maps Kind -> HTTP status).
type Kind string

const (
	KindInvalidInput                  Kind = "invalid_input"
	KindInvalidOpponent                Kind = "invalid_opponent"
	KindInvalidScore                   Kind = "invalid_score"
	KindInvalidResult                  Kind = "invalid_result"
	KindInvalidTransition              Kind = "invalid_transition"
	KindCannotResetDownstreamCompleted Kind = "cannot_reset_downstream_completed"
	KindUseMatchGameUpdate             Kind = "use_match_game_update"
	KindNotFound                       Kind = "not_found"
	KindStorageError                   Kind = "storage_error"
)

// Error is the engine's typed error, wrapping a Kind plus a message
// and optional underlying cause so errors.Is/errors.As keep working
// through the engine -> manager -> HTTP boundary.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, engine.KindX) style checks work by comparing
// Kind when the target is also an *Error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapStorage(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindStorageError, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func ErrNotFound(what string, id int) *Error {
	return newErr(KindNotFound, "%s %d not found", what, id)
}

func ErrInvalidInput(format string, args ...any) *Error {
	return newErr(KindInvalidInput, format, args...)
}

func ErrInvalidOpponent(format string, args ...any) *Error {
	return newErr(KindInvalidOpponent, format, args...)
}

func ErrInvalidScore(format string, args ...any) *Error {
	return newErr(KindInvalidScore, format, args...)
}

func ErrInvalidResult(format string, args ...any) *Error {
	return newErr(KindInvalidResult, format, args...)
}

func ErrInvalidTransition(format string, args ...any) *Error {
	return newErr(KindInvalidTransition, format, args...)
}

func ErrCannotResetDownstreamCompleted(matchID int) *Error {
	return newErr(KindCannotResetDownstreamCompleted, "match %d has a completed downstream match; reset it first", matchID)
}

func ErrUseMatchGameUpdate(matchID int) *Error {
	return newErr(KindUseMatchGameUpdate, "match %d has child games; update.matchGame instead", matchID)
}
