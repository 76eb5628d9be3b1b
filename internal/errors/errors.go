package errors

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
)

// AppError is a classified application error.
type AppError struct {
	id    string
	msg   string
	code  codes.Code
	cause error
}

type Option func(*AppError)

func WithID(id string) Option {
	return func(e *AppError) { e.id = id }
}

func WithCode(code codes.Code) Option {
	return func(e *AppError) { e.code = code }
}

func WithCause(err error) Option {
	return func(e *AppError) { e.cause = err }
}

// New builds an AppError. The code defaults to codes.Internal.
func New(msg string, opts ...Option) error {
	e := &AppError{msg: msg, code: codes.Internal}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func Internal(msg string, opts ...Option) error {
	return New(msg, append(opts, WithCode(codes.Internal))...)
}

func InvalidArgument(msg string, opts ...Option) error {
	return New(msg, append(opts, WithCode(codes.InvalidArgument))...)
}

func NotFound(msg string, opts ...Option) error {
	return New(msg, append(opts, WithCode(codes.NotFound))...)
}

func AlreadyExists(msg string, opts ...Option) error {
	return New(msg, append(opts, WithCode(codes.AlreadyExists))...)
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s", e.msg, e.cause.Error())
	}
	return e.msg
}

func (e *AppError) Unwrap() error    { return e.cause }
func (e *AppError) ID() string       { return e.id }
func (e *AppError) Code() codes.Code { return e.code }

type coder interface{ Code() codes.Code }

type identified interface{ ID() string }

// Code returns the first classification found in the chain of err.
// Unclassified errors are codes.Unknown.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return codes.Unknown
}

// ID returns the first non-empty error id found in the chain of err.
func ID(err error) string {
	for err != nil {
		if i, ok := err.(identified); ok && i.ID() != "" {
			return i.ID()
		}
		err = errors.Unwrap(err)
	}
	return ""
}

// Details renders err with its id, code and the messages of its causes.
func Details(err error) string {
	if err == nil {
		return ""
	}
	var chain []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		if ae, ok := e.(*AppError); ok {
			chain = append(chain, ae.msg)
			continue
		}
		chain = append(chain, e.Error())
	}
	return fmt.Sprintf("id=%s code=%s: %s", ID(err), Code(err), strings.Join(chain, " <- "))
}

func Is(err, target error) bool     { return errors.Is(err, target) }
func As(err error, target any) bool { return errors.As(err, target) }
func Unwrap(err error) error        { return errors.Unwrap(err) }
