package phone

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "+2348012345678", want: "+2348012345678"},
		{in: "2348012345678", want: "+2348012345678"},
		{in: " +234 801 234 5678 ", want: "+2348012345678"},
		{in: "+234-801-234-5678", want: "+2348012345678"},
		{in: "", wantErr: true},
		{in: "+234abc", wantErr: true},
		{in: "+12", wantErr: true},
		{in: "+12345678901234567890", wantErr: true},
	}
	for _, tc := range cases {
		got, err := Normalize(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("Normalize(%q): expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Normalize(%q): unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMaskHidesSubscriberDigits(t *testing.T) {
	masked := Mask("+2348012345678")
	if !strings.HasPrefix(masked, "+234") || !strings.HasSuffix(masked, "78") {
		t.Fatalf("unexpected mask shape: %q", masked)
	}
	if strings.Contains(masked, "80123456") {
		t.Fatalf("mask leaked subscriber digits: %q", masked)
	}
	if Mask("garbage!") != "***" {
		t.Fatalf("invalid input should mask fully, got %q", Mask("garbage!"))
	}
}

func TestHashIsStableAcrossFormats(t *testing.T) {
	a := Hash("+2348012345678")
	b := Hash("234 801 234 5678")
	if a != b {
		t.Fatalf("hash should be format independent: %q vs %q", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected sha256 hex digest, got %d chars", len(a))
	}
}
