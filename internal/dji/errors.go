package dji

import (
	"errors"
	"fmt"
	"strings"
)

// Normalized error codes surfaced to the host.
var (
	ErrInvalidParameter = errors.New("INVALID_PARAMETER")
	ErrBusy             = errors.New("BUSY")
	ErrUnavailable      = errors.New("UNAVAILABLE")
	ErrTimeout          = errors.New("TIMEOUT")
	ErrInternal         = errors.New("INTERNAL")
)

var codes = []error{ErrInvalidParameter, ErrBusy, ErrUnavailable, ErrTimeout, ErrInternal}

// Error is an error reported by the vendor SDK. Description is the vendor's
// human readable text.
type Error struct {
	Description string
}

func (e *Error) Error() string {
	return e.Description
}

// Errorf builds a vendor Error.
func Errorf(format string, args ...any) *Error {
	return &Error{Description: fmt.Sprintf(format, args...)}
}

// OpError is the single error shape returned to the host: a static operation
// label, a normalized code and the underlying cause.
type OpError struct {
	Op   string
	Code error
	Err  error
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s error: %v", e.Op, e.Code)
	}
	return fmt.Sprintf("%s error: %v", e.Op, e.Err)
}

// Unwrap exposes both the normalized code and the cause to errors.Is/As.
func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Code}
	}
	return []error{e.Code, e.Err}
}

// NewOpError wraps cause under op with an explicit code.
func NewOpError(op string, code error, cause error) *OpError {
	return &OpError{Op: op, Code: code, Err: cause}
}

// Wrap normalizes a vendor callback error into an OpError. It returns nil
// when err is nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var opErr *OpError
	if errors.As(err, &opErr) {
		return err
	}
	for _, code := range codes {
		if errors.Is(err, code) {
			return &OpError{Op: op, Code: code, Err: err}
		}
	}
	return &OpError{Op: op, Code: Normalize(err), Err: err}
}

// CodeOf returns the normalized code carried by err, or ErrInternal.
func CodeOf(err error) error {
	for _, code := range codes {
		if errors.Is(err, code) {
			return code
		}
	}
	return ErrInternal
}

// tokenTable maps fragments of vendor error descriptions to codes. Matching
// is case-insensitive; the first table that matches wins and unknown
// descriptions map to ErrInternal.
//
// Extending: add the vendor's description fragment to the right slice and
// add a case to the errors test.
var tokenTable = []struct {
	code   error
	tokens []string
}{
	{
		code: ErrUnavailable,
		tokens: []string{
			"not connected",
			"disconnected",
			"no aircraft",
			"product is null",
			"could not get product",
			"not supported",
			"sdk not registered",
			"timeout",
			"timed out",
		},
	},
	{
		code: ErrBusy,
		tokens: []string{
			"busy",
			"executing",
			"in progress",
			"cannot be executed",
			"not in the right state",
			"already",
		},
	},
	{
		code: ErrInvalidParameter,
		tokens: []string{
			"invalid",
			"out of range",
			"too far",
			"too close",
			"too high",
			"too low",
			"parameter",
			"waypoint count",
		},
	},
}

// Normalize maps a vendor error to one of the normalized codes.
func Normalize(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	for _, row := range tokenTable {
		for _, token := range row.tokens {
			if strings.Contains(msg, token) {
				return row.code
			}
		}
	}
	return ErrInternal
}
