// Package units converts between raw byte counts and human-readable size strings.
package units

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

var (
	// ErrInvalidNumber is wrapped by ParseError when the numeric part is malformed.
	ErrInvalidNumber = errors.New("invalid number")
	// ErrUnknownUnit is wrapped by ParseError when the unit token is not recognized.
	ErrUnknownUnit = errors.New("unknown unit")
)

// ParseError reports a size string that HumanToBytes could not parse.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing size %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// binarySymbols are the unit labels used by BytesToHuman, indexed by power of 1024.
var binarySymbols = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}

// maxRoundingSlack is half of the last printed digit at the EiB scale.
const maxRoundingSlack = 0.005 * humanize.EiByte

// multipliers maps lower-cased unit tokens to their byte multiplier.
var multipliers = map[string]uint64{
	"":    1,
	"b":   1,
	"kb":  humanize.KByte,
	"mb":  humanize.MByte,
	"gb":  humanize.GByte,
	"tb":  humanize.TByte,
	"kib": humanize.KiByte,
	"mib": humanize.MiByte,
	"gib": humanize.GiByte,
	"tib": humanize.TiByte,
	"pb":  humanize.PByte,
	"eb":  humanize.EByte,
	"pib": humanize.PiByte,
	"eib": humanize.EiByte,
}

// BytesToHuman formats n using binary units with two decimals, e.g. "2.24 MiB".
// Zero is rendered as "0 B".
func BytesToHuman(n uint64) string {
	if n == 0 {
		return "0 B"
	}
	value := float64(n)
	unit := 0
	for value >= 1024 && unit < len(binarySymbols)-1 {
		value /= 1024
		unit++
	}
	return formatTwoDecimals(value) + " " + binarySymbols[unit]
}

// formatTwoDecimals rounds half up on the decimal value. Going through the
// shortest decimal representation first avoids binary artifacts such as
// 2.675 being stored as 2.67499999.
func formatTwoDecimals(v float64) string {
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(v, 'g', -1, 64))
	if !ok {
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
	// scaled = floor(v*100 + 1/2)
	scaled := new(big.Rat).Mul(r, big.NewRat(100, 1))
	scaled.Add(scaled, big.NewRat(1, 2))
	q := new(big.Int).Quo(scaled.Num(), scaled.Denom())
	whole, frac := new(big.Int).QuoRem(q, big.NewInt(100), new(big.Int))
	return fmt.Sprintf("%s.%02d", whole.String(), frac.Int64())
}

// HumanToBytes parses "<number>[space]<unit>" into a byte count rounded to the
// nearest byte. The unit is case-insensitive and defaults to bytes.
func HumanToBytes(s string) (uint64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, &ParseError{Input: s, Err: ErrInvalidNumber}
	}

	split := len(trimmed)
	for i, r := range trimmed {
		if !(r >= '0' && r <= '9') && r != '.' && r != '+' && r != '-' {
			split = i
			break
		}
	}
	// Exponent notation is not a decimal number.
	if rest := trimmed[split:]; len(rest) > 1 && (rest[0] == 'e' || rest[0] == 'E') && strings.ContainsRune("0123456789+-", rune(rest[1])) {
		return 0, &ParseError{Input: s, Err: ErrInvalidNumber}
	}
	numPart := trimmed[:split]
	unitPart := strings.ToLower(strings.Join(strings.Fields(trimmed[split:]), ""))

	num, err := strconv.ParseFloat(numPart, 64)
	if err != nil || num < 0 || math.IsNaN(num) || math.IsInf(num, 0) {
		return 0, &ParseError{Input: s, Err: ErrInvalidNumber}
	}
	mult, ok := multipliers[unitPart]
	if !ok {
		return 0, &ParseError{Input: s, Err: ErrUnknownUnit}
	}

	total := math.Round(num * float64(mult))
	if total >= math.MaxUint64 {
		// BytesToHuman prints the top of the range as "16.00 EiB", one
		// rounding step above the largest count.
		if total-math.MaxUint64 > maxRoundingSlack {
			return 0, &ParseError{Input: s, Err: ErrInvalidNumber}
		}
		return math.MaxUint64, nil
	}
	return uint64(total), nil
}

// ValidateHuman is a form-field validator. An empty value means "unset" and is accepted.
func ValidateHuman(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	_, err := HumanToBytes(s)
	return err
}

// FormatMiB renders a mebibyte count the same way as BytesToHuman.
func FormatMiB(mib uint64) string {
	return BytesToHuman(mib * humanize.MiByte)
}

// BytesToMiB converts a byte count to whole mebibytes, rounding half up.
func BytesToMiB(n uint64) uint64 {
	return n/humanize.MiByte + (n%humanize.MiByte)/(humanize.MiByte/2)
}
