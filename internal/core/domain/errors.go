package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Credential and registration errors.
var (
	ErrUserNotFound       = errors.New("user does not exist")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("access forbidden")
	ErrPasswordTooLong    = errors.New("password exceeds 72 bytes")
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// Token errors.
var (
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenUnsupported      = errors.New("token unsupported")
	ErrTokenInvalidArgument  = errors.New("token empty")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
)

// Storage errors.
var (
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrDocumentNotFound = errors.New("document not found")
)

// InsertFailure attributes a failed write to its position in a batch.
type InsertFailure struct {
	Index int
	Err   error
}

// BatchInsertError is returned by InsertMany when one or more documents could
// not be written. Documents not listed were stored.
type BatchInsertError struct {
	Failures []InsertFailure
}

func (e *BatchInsertError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("[%d] %v", f.Index, f.Err))
	}
	return fmt.Sprintf("insert many: %d failed: %s", len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap exposes the per-document errors to errors.Is and errors.As.
func (e *BatchInsertError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Failed reports whether the document at index was rejected.
func (e *BatchInsertError) Failed(index int) bool {
	for _, f := range e.Failures {
		if f.Index == index {
			return true
		}
	}
	return false
}
