package models

import (
	"errors"
	"fmt"
)

// Domain error taxonomy. Controllers map these to HTTP status codes;
// anything outside the taxonomy is treated as an infrastructure failure.

type NotFoundError string

func (e NotFoundError) Error() string { return string(e) + " not found" }

type ForbiddenError string

func (e ForbiddenError) Error() string { return string(e) }

type ConflictError string

func (e ConflictError) Error() string { return string(e) }

type ValidationError string

func (e ValidationError) Error() string { return string(e) }

// GatewayError wraps a failure from the external payment processor. It is
// recoverable: the payment is marked FAILED and the customer may retry.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string { return fmt.Sprintf("payment gateway %s: %v", e.Op, e.Err) }
func (e *GatewayError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

func IsForbidden(err error) bool {
	var f ForbiddenError
	return errors.As(err, &f)
}

func IsConflict(err error) bool {
	var c ConflictError
	return errors.As(err, &c)
}

func IsValidation(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}

func IsGatewayError(err error) bool {
	var g *GatewayError
	return errors.As(err, &g)
}
