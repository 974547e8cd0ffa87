package units

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestBytesToHuman(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{0, "0 B"},
		{1, "1.00 B"},
		{1000, "1000.00 B"},
		{1023, "1023.00 B"},
		{1024, "1.00 KiB"},
		{1536, "1.50 KiB"},
		{1000000, "976.56 KiB"},
		{2345637, "2.24 MiB"},
		{1 << 30, "1.00 GiB"},
		{5 << 40, "5.00 TiB"},
		{3 << 50, "3.00 PiB"},
	}
	for _, tt := range tests {
		if got := BytesToHuman(tt.in); got != tt.want {
			t.Errorf("BytesToHuman(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBytesToHumanRoundsHalfUp(t *testing.T) {
	// 1.125 KiB sits exactly on the rounding boundary.
	if got := BytesToHuman(1152); got != "1.13 KiB" {
		t.Errorf("BytesToHuman(1152) = %q, want %q", got, "1.13 KiB")
	}
}

func TestHumanToBytes(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"1B", 1},
		{"1.00 B", 1},
		{"1", 1},
		{"120.55 KiB", 123443},
		{"1000 KB", 1000000},
		{"1GB", 1000000000},
		{"1 gib", 1 << 30},
		{"2.5 MiB", 2621440},
		{"  42  ", 42},
		{"1 T B", 1000000000000},
		{"0.4 B", 0},
		{"0.5 B", 1},
	}
	for _, tt := range tests {
		got, err := HumanToBytes(tt.in)
		if err != nil {
			t.Errorf("HumanToBytes(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("HumanToBytes(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestHumanToBytesErrors(t *testing.T) {
	tests := []struct {
		in      string
		wantErr error
	}{
		{"", ErrInvalidNumber},
		{"abc", ErrInvalidNumber},
		{"1.2.3 MB", ErrInvalidNumber},
		{"-5 MB", ErrInvalidNumber},
		{"1e3", ErrInvalidNumber},
		{"2.5E+2 KiB", ErrInvalidNumber},
		{"16.01 EiB", ErrInvalidNumber},
		{"12 XB", ErrUnknownUnit},
		{"12 kibibytes", ErrUnknownUnit},
	}
	for _, tt := range tests {
		_, err := HumanToBytes(tt.in)
		if err == nil {
			t.Errorf("HumanToBytes(%q) expected error", tt.in)
			continue
		}
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("HumanToBytes(%q) error type = %T, want *ParseError", tt.in, err)
		}
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("HumanToBytes(%q) error = %v, want %v", tt.in, err, tt.wantErr)
		}
	}
}

func TestRoundTripBoundedError(t *testing.T) {
	check := func(n uint64) {
		t.Helper()
		back, err := HumanToBytes(BytesToHuman(n))
		if err != nil {
			t.Fatalf("round trip of %d: %v", n, err)
		}
		diff := math.Abs(float64(back) - float64(n))
		denom := math.Max(float64(n), 1)
		if diff/denom >= 0.005 {
			t.Errorf("round trip of %d gave %d (relative error %.5f)", n, back, diff/denom)
		}
	}

	for _, n := range []uint64{0, 1, 1023, 1024, 1025, 1048575, 1048576, 2345637, 1<<40 - 1, 1 << 50, 1<<64 - 1<<52, 16<<60 - 1<<50, math.MaxUint64} {
		check(n)
	}
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 5000; i++ {
		shift := uint(r.Intn(60))
		check(uint64(r.Int63n(1<<shift + 1)))
	}
}

func TestValidateHuman(t *testing.T) {
	if err := ValidateHuman(""); err != nil {
		t.Errorf("empty value should be accepted, got %v", err)
	}
	if err := ValidateHuman("4 GiB"); err != nil {
		t.Errorf("valid value rejected: %v", err)
	}
	if err := ValidateHuman("four gigs"); err == nil {
		t.Error("expected error for malformed value")
	}
}

func TestFormatMiB(t *testing.T) {
	if got := FormatMiB(2048); got != "2.00 GiB" {
		t.Errorf("FormatMiB(2048) = %q, want %q", got, "2.00 GiB")
	}
	if got := FormatMiB(0); got != "0 B" {
		t.Errorf("FormatMiB(0) = %q, want %q", got, "0 B")
	}
}

func TestBytesToMiB(t *testing.T) {
	tests := []struct {
		in   uint64
		want uint64
	}{
		{0, 0},
		{1 << 20, 1},
		{3 << 29, 1536},
		{1<<20 + 1<<19 - 1, 1},
		{1<<20 + 1<<19, 2},
	}
	for _, tt := range tests {
		if got := BytesToMiB(tt.in); got != tt.want {
			t.Errorf("BytesToMiB(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
