package errors

import (
	"github.com/pkg/errors"
)

// Kind classifies a business failure so callers can map it to a transport status
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindAuthorization
	KindNotFound
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindConflict:
		return "conflict"
	case KindAuthorization:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindUnavailable:
		return "service_unavailable"
	default:
		return "internal_error"
	}
}

// ClanError is an expected business-rule violation. Message is safe to show to the caller.
type ClanError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (e *ClanError) Error() string {
	return e.Message
}

// Validation reports malformed or missing input
func Validation(message string) error {
	return &ClanError{Kind: KindValidation, Message: message}
}

// Conflict reports a uniqueness or state collision
func Conflict(message string) error {
	return &ClanError{Kind: KindConflict, Message: message}
}

// Unauthorized reports that the caller lacks the required ownership or privilege
func Unauthorized(message string) error {
	return &ClanError{Kind: KindAuthorization, Message: message}
}

// NotFound reports a missing clan, user or request
func NotFound(message string) error {
	return &ClanError{Kind: KindNotFound, Message: message}
}

// Unavailable reports a feature this deployment runs without
func Unavailable(message string) error {
	return &ClanError{Kind: KindUnavailable, Message: message}
}

// KindOf returns the kind of the first ClanError in err's chain
func KindOf(err error) Kind {
	var clanErr *ClanError
	if errors.As(err, &clanErr) {
		return clanErr.Kind
	}
	return KindUnknown
}

// GetClanError extracts the business error from err's chain
func GetClanError(err error) (*ClanError, bool) {
	var clanErr *ClanError
	if errors.As(err, &clanErr) {
		return clanErr, true
	}
	return nil, false
}

func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}

func IsAuthorization(err error) bool {
	return KindOf(err) == KindAuthorization
}

func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

func IsUnavailable(err error) bool {
	return KindOf(err) == KindUnavailable
}
