package phrases

import (
	"errors"
	"fmt"
)

// Sentinel errors. Stores return these directly; the catalog wraps them in
// the typed errors below, which still match with errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrDuplicateRule = errors.New("phrase already exists")
	ErrNotFound      = errors.New("phrase not found")
)

// ValidationError reports malformed input to a catalog mutation or to a
// simplification request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// DuplicateRuleError reports an add whose original phrase is already present.
type DuplicateRuleError struct {
	Original string
}

func (e *DuplicateRuleError) Error() string {
	return fmt.Sprintf("phrase %q already exists", e.Original)
}

// Is lets errors.Is(err, ErrDuplicateRule) match.
func (e *DuplicateRuleError) Is(target error) bool { return target == ErrDuplicateRule }

// NotFoundError reports a remove for an unknown rule ID.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("phrase %q not found", e.ID)
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
