package service

import "errors"

// Domain error kinds. Handlers translate these into transport status codes;
// nothing below the façade ever builds an HTTP response.
var (
	// ErrUnauthorized indicates no valid caller identity.
	ErrUnauthorized = errors.New("authentication required")
	// ErrForbidden indicates the caller is authenticated but acting on someone
	// else's resource or lacks a capability.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation wraps messages that name the violated constraint.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates two concurrent writers raced on the same
	// transition; callers should retry.
	ErrConflict = errors.New("conflicting concurrent update")

	// ErrTestNotFound indicates the test id could not be resolved.
	ErrTestNotFound = errors.New("test not found")
	// ErrBlockNotFound indicates the test block id could not be resolved.
	ErrBlockNotFound = errors.New("test block not found")
	// ErrSubmissionNotFound indicates the submission id could not be resolved.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrCommentNotFound indicates the comment id could not be resolved.
	ErrCommentNotFound = errors.New("comment not found")
)
