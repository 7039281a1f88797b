// Package errors provides structured error types for the regraft engine.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the rewriting core, CLI and API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention mirroring the layers
// of the engine:
//   - GRAPH_*: primitive mutation failures on a single typed graph
//   - HOMOMORPHISM_*: mapping validity violations
//   - CATEGORY_*: precondition violations of the categorical operators
//   - RULE_*: illegal rule edits
//   - HIERARCHY_*: hierarchy consistency violations
//   - TYPING_*: contradictory or under-specified rewrite typings
//
// All failures are fail-fast: a single violation aborts the whole operation
// and leaves the structure it was issued against unchanged.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeMissingNode, "node %q does not exist", id)
//	if errors.Is(err, errors.ErrCodeMissingNode) {
//	    // Handle missing node
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidTyping, origErr, "typing %s->%s", s, t)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Graph structure errors (primitive mutations)
	ErrCodeDuplicateNode Code = "GRAPH_DUPLICATE_NODE"
	ErrCodeMissingNode   Code = "GRAPH_MISSING_NODE"
	ErrCodeDuplicateEdge Code = "GRAPH_DUPLICATE_EDGE"
	ErrCodeMissingEdge   Code = "GRAPH_MISSING_EDGE"
	ErrCodeInvalidGraph  Code = "GRAPH_INVALID"

	// Homomorphism validity errors
	ErrCodeNotTotal         Code = "HOMOMORPHISM_NOT_TOTAL"
	ErrCodeInvalidImage     Code = "HOMOMORPHISM_INVALID_IMAGE"
	ErrCodeEdgeNotPreserved Code = "HOMOMORPHISM_EDGE_NOT_PRESERVED"
	ErrCodeAttrsNotSubset   Code = "HOMOMORPHISM_ATTRS_NOT_SUBSET"

	// Category operator precondition errors
	ErrCodeDomainMismatch   Code = "CATEGORY_DOMAIN_MISMATCH"
	ErrCodeCodomainMismatch Code = "CATEGORY_CODOMAIN_MISMATCH"
	ErrCodeNotMonic         Code = "CATEGORY_NOT_MONIC"

	// Rule construction errors
	ErrCodeRuleNodeRemoved   Code = "RULE_NODE_ALREADY_REMOVED"
	ErrCodeRuleUnknownNode   Code = "RULE_UNKNOWN_NODE"
	ErrCodeRuleDuplicate     Code = "RULE_DUPLICATE_ELEMENT"
	ErrCodeRuleMissingEdge   Code = "RULE_MISSING_EDGE"
	ErrCodeRuleInvalidScript Code = "RULE_INVALID_SCRIPT"

	// Hierarchy consistency errors
	ErrCodeDuplicateID       Code = "HIERARCHY_DUPLICATE_ID"
	ErrCodeUnknownID         Code = "HIERARCHY_UNKNOWN_ID"
	ErrCodeCycle             Code = "HIERARCHY_CYCLE"
	ErrCodeNonCommuting      Code = "HIERARCHY_NON_COMMUTING_PATHS"
	ErrCodeInvalidTyping     Code = "HIERARCHY_INVALID_TYPING"
	ErrCodeDuplicateRelation Code = "HIERARCHY_DUPLICATE_RELATION"
	ErrCodeUnknownRelation   Code = "HIERARCHY_UNKNOWN_RELATION"
	ErrCodeTotalityViolation Code = "HIERARCHY_TOTALITY_VIOLATION"

	// Rewrite typing errors
	ErrCodeContradictingTyping  Code = "TYPING_CONTRADICTION"
	ErrCodeUnderspecifiedTyping Code = "TYPING_UNDERSPECIFIED"
	ErrCodeInvalidInstance      Code = "TYPING_INVALID_INSTANCE"

	// Everything else
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeInternal     Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsGraphError reports whether err is a primitive graph mutation failure.
func IsGraphError(err error) bool {
	switch GetCode(err) {
	case ErrCodeDuplicateNode, ErrCodeMissingNode, ErrCodeDuplicateEdge, ErrCodeMissingEdge, ErrCodeInvalidGraph:
		return true
	}
	return false
}

// IsHomomorphismError reports whether err is a mapping validity failure.
func IsHomomorphismError(err error) bool {
	switch GetCode(err) {
	case ErrCodeNotTotal, ErrCodeInvalidImage, ErrCodeEdgeNotPreserved, ErrCodeAttrsNotSubset:
		return true
	}
	return false
}

// IsConsistencyError reports whether err is a hierarchy consistency failure.
func IsConsistencyError(err error) bool {
	switch GetCode(err) {
	case ErrCodeCycle, ErrCodeNonCommuting, ErrCodeInvalidTyping,
		ErrCodeTotalityViolation, ErrCodeDuplicateRelation:
		return true
	}
	return false
}
