package shared

import "errors"

var (
	// ErrUnauthenticated indicates the request carries no usable session.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrPermissionDenied indicates the caller lacks a required permission.
	ErrPermissionDenied = errors.New("permission denied")
)
