package vault

import (
	"errors"
	"fmt"
)

// Kind groups engine errors by how callers should react.
type Kind string

const (
	KindNotFound Kind = "not_found"
	KindIO       Kind = "io_error"
	KindInvalid  Kind = "invalid_argument"
	KindInternal Kind = "internal"
)

// Error is a classified engine error.
type Error struct {
	kind Kind
	code int
	err  error
}

func (e Error) Error() string {
	if e.err == nil {
		return string(e.kind)
	}
	return e.err.Error()
}

func (e Error) Unwrap() error {
	return e.err
}

// Kind returns the error class.
func (e Error) Kind() Kind {
	return e.kind
}

// Code returns the numeric error code.
func (e Error) Code() int {
	return e.code
}

// IsNotFound reports whether err refers to a snapshot that does not exist.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// KindOf returns the Kind carried by err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindInternal
}

// CodeOf returns the numeric code carried by err, or ErrCodeInternal.
func CodeOf(err error) int {
	var e Error
	if errors.As(err, &e) && e.code != 0 {
		return e.code
	}
	return ErrCodeInternal
}

func notFoundCode(err error, code int) error {
	return Error{kind: KindNotFound, code: code, err: err}
}

func invalidArgument(err error, code int) error {
	return Error{kind: KindInvalid, code: code, err: err}
}

func ioError(err error) error {
	var e Error
	if errors.As(err, &e) {
		return err
	}
	return Error{kind: KindIO, code: ErrCodeIO, err: err}
}

func storeFailure(op string, err error) error {
	var e Error
	if errors.As(err, &e) {
		return err
	}
	return Error{kind: KindInternal, code: ErrCodeStoreFailure, err: fmt.Errorf("%s: %w", op, err)}
}

func internalError(err error) error {
	return Error{kind: KindInternal, code: ErrCodeInternal, err: err}
}
