package protocol

import (
	"strconv"
	"strings"

	"atlas-scientific-service/internal/atlaserr"
)

// ValueType is the closed set of wire-value kinds a capability can declare.
// Deliberately not made generic: the set is fixed by the device protocol,
// not something callers extend.
type ValueType string

const (
	ValueNone   ValueType = "none"
	ValueString ValueType = "string"
	ValueInt    ValueType = "int"
	ValueFloat  ValueType = "float"
	ValueBool   ValueType = "bool"
)

// Validate checks raw against t, returning the canonical wire representation
// to send (unchanged for everything but bool, which normalises to "1"/"0").
// An empty raw is only valid for ValueNone.
func (t ValueType) Validate(raw string) (string, error) {
	if raw == "" {
		if t == ValueNone || t == "" {
			return "", nil
		}
		return "", atlaserr.RequestValidation("missing value")
	}

	switch t {
	case ValueNone, "":
		return "", atlaserr.RequestValidation("value not permitted for this operation")
	case ValueString:
		return raw, nil
	case ValueInt:
		if _, err := strconv.Atoi(raw); err != nil {
			return "", atlaserr.RequestValidation("expected an integer value")
		}
		return raw, nil
	case ValueFloat:
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			return "", atlaserr.RequestValidation("expected a numeric value")
		}
		return raw, nil
	case ValueBool:
		switch strings.ToLower(raw) {
		case "true", "1", "yes":
			return "1", nil
		case "false", "0", "no":
			return "0", nil
		default:
			return "", atlaserr.RequestValidation("expected a boolean value")
		}
	default:
		return "", atlaserr.RequestValidation("unknown value type")
	}
}
