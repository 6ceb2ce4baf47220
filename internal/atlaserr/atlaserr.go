// Package atlaserr is the domain error taxonomy for the Atlas Scientific
// device driver. Every error the driver can produce is one of a fixed set
// of codes; callers use Of to recover the code from any error returned by
// internal/atlas, internal/protocol or internal/i2c.
package atlaserr

import (
	"fmt"
	"time"
)

// Code is a stable error identifier, comparable and allocation-free.
type Code string

func (c Code) Error() string { return string(c) }

const (
	NoDeviceAtAddressCode   Code = "no_device_at_address"
	UnsupportedDeviceCode   Code = "unsupported_device"
	ResponseSyntaxCode      Code = "response_syntax_error"
	DeviceNotReadyCode      Code = "device_not_ready"
	CommandRejectedCode     Code = "command_rejected"
	RequestValidationCode   Code = "request_validation_error"
	BusBusyCode             Code = "bus_busy"
	InternalCode            Code = "internal_error"
)

// E carries a code plus operation context and an optional wrapped cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return e.Op + ": " + e.Msg
	}
	if e.Err != nil {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op
}

func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

type coder interface{ Code() Code }

// Of extracts a Code from an error, defaulting to InternalCode for anything
// that doesn't carry one of ours.
func Of(err error) Code {
	if err == nil {
		return ""
	}
	if c, ok := err.(Code); ok {
		return c
	}
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return InternalCode
}

// Is reports whether err carries the given code.
func Is(err error, c Code) bool { return Of(err) == c }

func NoDeviceAtAddress(addr int) error {
	return &E{C: NoDeviceAtAddressCode, Op: "attach", Msg: fmt.Sprintf("no device responded at address %d", addr)}
}

func UnsupportedDevice(deviceType string) error {
	return &E{C: UnsupportedDeviceCode, Op: "capabilities.lookup", Msg: fmt.Sprintf("device type %q is not supported", deviceType)}
}

// ResponseSyntaxError carries the field name and a free-text reason, used by
// internal/protocol when a response can't be decoded the way a field access
// expects.
type ResponseSyntaxError struct {
	Field  string
	Reason string
}

func (e *ResponseSyntaxError) Error() string {
	return fmt.Sprintf("response syntax error: field %q: %s", e.Field, e.Reason)
}

func (e *ResponseSyntaxError) Code() Code { return ResponseSyntaxCode }

func DeviceNotReady(op string) error {
	return &E{C: DeviceNotReadyCode, Op: op, Msg: "device did not become ready within the retry schedule"}
}

func CommandRejected(cmd string) error {
	return &E{C: CommandRejectedCode, Op: "transact", Msg: fmt.Sprintf("device rejected command %q", cmd)}
}

func RequestValidation(reason string) error {
	return &E{C: RequestValidationCode, Op: "validate", Msg: reason}
}

func BusBusy(addr int, timeout time.Duration) error {
	return &E{C: BusBusyCode, Op: "session.acquire", Msg: fmt.Sprintf("address %d busy, timed out after %s", addr, timeout)}
}

func Internal(err error) error {
	return &E{C: InternalCode, Op: "internal", Err: err}
}
