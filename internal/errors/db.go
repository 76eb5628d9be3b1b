package errors

import (
	"fmt"

	"google.golang.org/grpc/codes"
)

type DBError struct {
	Op      string
	Message string
}

func NewDBError(op, message string) *DBError {
	return &DBError{Op: op, Message: message}
}

func (e *DBError) Error() string {
	return fmt.Sprintf("db %s: %s", e.Op, e.Message)
}

func (e *DBError) ID() string       { return "store." + e.Op }
func (e *DBError) Code() codes.Code { return codes.Internal }

type DBInternalError struct {
	DBError
	Err error
}

func NewDBInternalError(op string, err error) error {
	return &DBInternalError{DBError: *NewDBError(op, err.Error()), Err: err}
}

func (e *DBInternalError) Unwrap() error { return e.Err }

type DBNotFoundError struct {
	DBError
}

func NewDBNotFoundError(op, message string) error {
	return &DBNotFoundError{DBError: *NewDBError(op, message)}
}

func (e *DBNotFoundError) Code() codes.Code { return codes.NotFound }

type DBUniqueViolationError struct {
	DBError
	Column string
}

func (e *DBUniqueViolationError) Code() codes.Code { return codes.AlreadyExists }

type DBForeignKeyViolationError struct {
	DBError
	ForeignKeyTable string
}

func (e *DBForeignKeyViolationError) Code() codes.Code { return codes.FailedPrecondition }
