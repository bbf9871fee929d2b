package joincode

import (
	"strings"
	"testing"
)

func TestGenerate_InvalidLength(t *testing.T) {
	t.Parallel()

	if _, err := Generate(0); err == nil {
		t.Fatalf("expected error for invalid length")
	}
}

func TestGenerate_LengthAndAlphabet(t *testing.T) {
	t.Parallel()

	for i := 0; i < 200; i++ {
		code, err := Generate(Length)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !Valid(code) {
			t.Fatalf("generated code %q is not a valid join code", code)
		}
		if strings.ToUpper(code) != code {
			t.Fatalf("code %q is not upper case", code)
		}
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	if got := Normalize("  ab12cd "); got != "AB12CD" {
		t.Fatalf("Normalize = %q, want AB12CD", got)
	}
}

func TestValid(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"AB12CD":  true,
		"ab12cd":  false,
		"AB12C":   false,
		"AB12CDE": false,
		"AB-2CD":  false,
	}
	for in, want := range cases {
		if got := Valid(in); got != want {
			t.Fatalf("Valid(%q) = %v, want %v", in, got, want)
		}
	}
}
