package models

import "errors"

var (
	// ErrInvalidInput is returned for malformed requests, including an invalid input feature vector.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNameTaken is returned when a non-guest identity already owns the display name.
	ErrNameTaken = errors.New("display name already taken")

	// ErrNoMatch is returned by strict face login when nothing clears the threshold.
	ErrNoMatch = errors.New("no matching identity")

	ErrNotFound = errors.New("identity not found")

	// ErrInvalidCredentials covers unknown names, guests and wrong secrets alike.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrDependencyTimeout     = errors.New("dependency timeout")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
