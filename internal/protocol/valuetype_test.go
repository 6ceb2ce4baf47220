package protocol

import (
	"testing"

	"atlas-scientific-service/internal/atlaserr"
)

func TestValidateNoneRejectsNonEmpty(t *testing.T) {
	if _, err := ValueNone.Validate("1"); atlaserr.Of(err) != atlaserr.RequestValidationCode {
		t.Fatalf("expected RequestValidationCode, got %v", err)
	}
}

func TestValidateNoneAcceptsEmpty(t *testing.T) {
	v, err := ValueNone.Validate("")
	if err != nil || v != "" {
		t.Fatalf("unexpected result: %q, %v", v, err)
	}
}

func TestValidateFloat(t *testing.T) {
	v, err := ValueFloat.Validate("7.0")
	if err != nil || v != "7.0" {
		t.Fatalf("unexpected result: %q, %v", v, err)
	}
	if _, err := ValueFloat.Validate("not-a-number"); atlaserr.Of(err) != atlaserr.RequestValidationCode {
		t.Fatalf("expected RequestValidationCode, got %v", err)
	}
}

func TestValidateIntRejectsFloat(t *testing.T) {
	if _, err := ValueInt.Validate("1.5"); atlaserr.Of(err) != atlaserr.RequestValidationCode {
		t.Fatalf("expected RequestValidationCode, got %v", err)
	}
}

func TestValidateBoolNormalises(t *testing.T) {
	cases := map[string]string{
		"true": "1", "1": "1", "yes": "1",
		"false": "0", "0": "0", "no": "0",
		"TRUE": "1",
	}
	for in, want := range cases {
		got, err := ValueBool.Validate(in)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", in, err)
		}
		if got != want {
			t.Errorf("Validate(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ValueBool.Validate("maybe"); atlaserr.Of(err) != atlaserr.RequestValidationCode {
		t.Fatalf("expected RequestValidationCode, got %v", err)
	}
}

func TestValidateEmptyRejectedForNonNoneTypes(t *testing.T) {
	for _, vt := range []ValueType{ValueString, ValueInt, ValueFloat, ValueBool} {
		if _, err := vt.Validate(""); atlaserr.Of(err) != atlaserr.RequestValidationCode {
			t.Errorf("%s: expected RequestValidationCode for empty value, got %v", vt, err)
		}
	}
}
