package core

// error_messages.go maps errors to user-facing messages with a code for
// support reference.
//
// Codes:
//
//	CRM001 - Not found: the requested record does not exist
//	CRM002 - Duplicate: a customer with this email already exists
//	CRM003 - Invalid transition: the deal cannot move to that stage
//	CRM004 - Validation: the input is missing or malformed
//	CRM005 - Storage unavailable: the database could not be reached
//	CRM006 - Import busy: another import is running
//	CRM007 - File too large: the upload exceeds the size limit
//	CRM008 - Request cancelled
//	CRM009 - Request timeout
//	CRM010 - Rate limited
//	ERR000 - Anything else
//
// Domain errors are matched with errors.Is first; driver and transport
// errors are then matched by message pattern, case-insensitively.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorKind maps an error category, matched with errors.Is, to a message.
type errorKind struct {
	target error
	msg    UserMessage
}

var errorKinds = []errorKind{
	{ErrNotFound, UserMessage{
		Message: "The requested record was not found",
		Action:  "Check the id and try again",
		Code:    "CRM001",
	}},
	{ErrDuplicate, UserMessage{
		Message: "A customer with this email already exists",
		Action:  "Use a different email or update the existing customer",
		Code:    "CRM002",
	}},
	{ErrInvalidTransition, UserMessage{
		Message: "The deal cannot move to that stage",
		Action:  "Move the deal through one of the allowed stages",
		Code:    "CRM003",
	}},
	{ErrValidation, UserMessage{
		Message: "Some input is missing or invalid",
		Action:  "Correct the highlighted field and try again",
		Code:    "CRM004",
	}},
	{ErrTooManyImports, UserMessage{
		Message: "Another import is in progress",
		Action:  "Please wait a moment and try again",
		Code:    "CRM006",
	}},
	{context.Canceled, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "CRM008",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "CRM009",
	}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var storageUnavailable = UserMessage{
	Message: "The database is unavailable",
	Action:  "Please try again in a few moments",
	Code:    "CRM005",
}

// errorPatterns are checked in order after errorKinds; the first match wins.
var errorPatterns = []errorPattern{
	{"connection refused", storageUnavailable},
	{"connection reset", storageUnavailable},
	{"deadlock", storageUnavailable},
	{"too large", UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the file into smaller files",
		Code:    "CRM007",
	}},
	{"timeout", UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "CRM009",
	}},
	{"rate limit", UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "CRM010",
	}},
}

// defaultMessage is returned when nothing matches (ERR000). Support staff
// should check the logs for the original error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message.
//
// Example:
//
//	_, err := svc.MoveDealToStage(ctx, id, "WON")
//	msg := MapError(err)
//	// msg.Code == "CRM003" when the move is not allowed
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	if errors.Is(err, ErrIO) {
		return storageUnavailable
	}
	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original error for logging
	User      UserMessage // Message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
