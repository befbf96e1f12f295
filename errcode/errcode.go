package errcode

import (
	"context"
	"errors"

	"imucode-go/drivers/bmi270"
)

// Code is a stable, log-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK            Code = "ok"
	Busy          Code = "busy"
	InvalidParams Code = "invalid_params"
	UnknownBus    Code = "unknown_bus"
	UnknownPin    Code = "unknown_pin"
	Timeout       Code = "timeout"
	Canceled      Code = "canceled"

	Transport          Code = "transport"
	SizeMismatch       Code = "size_mismatch"
	WrongChip          Code = "wrong_chip"
	InitError          Code = "init_error"
	InvalidFrameHeader Code = "invalid_frame_header"
	IncompleteFrame    Code = "incomplete_frame"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		return s + ": " + e.Msg
	}
	if e.Err != nil {
		return s + ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Wrap attaches op and the driver-derived code to err. nil stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &E{C: MapDriverErr(err), Op: op, Err: err}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}

// MapDriverErr maps low-level driver errors to a Code. Errors that already
// carry a code keep it; anything unrecognised from the bus is Transport.
func MapDriverErr(err error) Code {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, bmi270.ErrInitTimeout):
		return Timeout
	case errors.Is(err, bmi270.ErrInitError), errors.Is(err, bmi270.ErrUploadIncomplete):
		return InitError
	case errors.Is(err, bmi270.ErrSizeMismatch):
		return SizeMismatch
	case errors.Is(err, bmi270.ErrWrongChip):
		return WrongChip
	case errors.Is(err, bmi270.ErrInvalidFrameHeader):
		return InvalidFrameHeader
	case errors.Is(err, bmi270.ErrIncompleteFrame):
		return IncompleteFrame
	case errors.Is(err, bmi270.ErrInvalidParam), errors.Is(err, bmi270.ErrBlobSize):
		return InvalidParams
	case errors.Is(err, context.Canceled):
		return Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return Timeout
	}
	if c := Of(err); c != Error {
		return c
	}
	// Bus faults and ErrInvalidLength.
	return Transport
}
