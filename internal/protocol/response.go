// Package protocol decodes the Atlas Scientific wire format: a status byte
// followed by a NUL-terminated ASCII body of comma-separated fields.
package protocol

import (
	"bytes"
	"time"

	"atlas-scientific-service/internal/atlaserr"
)

// Status is the first byte of every response.
type Status byte

const (
	StatusOK        Status = 0x01
	StatusSyntax    Status = 0x02
	StatusNotReady  Status = 0xFE
	StatusAck       Status = 0xFF
)

func (s Status) known() bool {
	switch s {
	case StatusOK, StatusSyntax, StatusNotReady, StatusAck:
		return true
	default:
		return false
	}
}

// Response is a decoded reply: a status plus, for StatusOK, the
// comma-delimited fields of the ASCII body.
type Response struct {
	Status    Status
	Fields    []string
	Timestamp time.Time
}

// Parse decodes a raw chunk read from the bus. ts is stamped onto the
// response as its observation time (the codec never calls time.Now itself,
// so callers can inject a clock).
func Parse(raw []byte, ts time.Time) (*Response, error) {
	if len(raw) == 0 {
		return nil, &atlaserr.ResponseSyntaxError{Field: "status", Reason: "empty response"}
	}

	status := Status(raw[0])
	if !status.known() {
		return nil, &atlaserr.ResponseSyntaxError{Field: "status", Reason: "unrecognised status byte"}
	}

	resp := &Response{Status: status, Timestamp: ts}
	if status != StatusOK {
		return resp, nil
	}

	body := raw[1:]
	if i := bytes.IndexByte(body, 0x00); i >= 0 {
		body = body[:i]
	}
	for _, b := range body {
		if b >= 0x80 {
			return nil, &atlaserr.ResponseSyntaxError{Field: "body", Reason: "non-ascii byte in response"}
		}
	}

	if len(body) == 0 {
		resp.Fields = nil
		return resp, nil
	}

	fields := bytes.Split(body, []byte{','})
	resp.Fields = make([]string, len(fields))
	for i, f := range fields {
		resp.Fields[i] = string(f)
	}
	return resp, nil
}

// GetField returns the field at index, failing with a ResponseSyntaxError
// carrying name if index is out of range.
func (r *Response) GetField(name string, index int) (string, error) {
	if index < 0 || index >= len(r.Fields) {
		return "", &atlaserr.ResponseSyntaxError{Field: name, Reason: "expected field missing from response"}
	}
	return r.Fields[index], nil
}

// GetFields returns r.Fields[start:end]. end == -1 means "through the end of
// the slice". start beyond the number of fields is an error; end beyond the
// number of fields (or -1) is clamped, matching the "a response with fewer
// fields than requested yields an empty tail, not an error" edge case.
func (r *Response) GetFields(name string, start, end int) ([]string, error) {
	n := len(r.Fields)
	if start < 0 || start > n {
		return nil, &atlaserr.ResponseSyntaxError{Field: name, Reason: "expected fields missing from response"}
	}
	if end < 0 || end > n {
		end = n
	}
	if end < start {
		end = start
	}
	out := make([]string, end-start)
	copy(out, r.Fields[start:end])
	return out, nil
}
