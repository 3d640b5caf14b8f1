// Package common defines shared constants, sentinel errors and small helpers
// used across reelkeeper components. Callers should use errors.Is to match
// the error values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal = errors.New("internal error")

	// Login errors. Missing user and wrong password are never distinguished.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Bearer token errors. Malformed, badly signed, unknown subject and
	// revoked tokens all collapse into ErrInvalidToken.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// ErrAccountDisabled is returned when identity was proven but the
	// account is blocked by policy.
	ErrAccountDisabled = errors.New("account disabled")

	// Validation errors.
	ErrorValidation = errors.New("validation error")
)
