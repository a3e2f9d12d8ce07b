package format

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

// DefaultDecimalPlaces is the display precision used for balances
const DefaultDecimalPlaces = 4

var weiPerEther = big.NewInt(params.Ether)

// ErrBelowOneWei is returned by ToWei for positive amounts that truncate to zero wei
var ErrBelowOneWei = errors.New("amount is smaller than 1 wei")

// plain decimals only: no sign, base prefix, exponent or fraction bar
var decimalPattern = regexp.MustCompile(`^\d*\.?\d+$`)

// ParseDecimal parses an unsigned plain decimal such as "12", "0.5" or ".25"
func ParseDecimal(s string) (*big.Rat, error) {
	s = strings.TrimSpace(s)
	if !decimalPattern.MatchString(s) {
		return nil, fmt.Errorf("invalid amount format: %q", s)
	}
	value, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("invalid amount format: %q", s)
	}
	return value, nil
}

// FormatEther converts a wei amount into an exact ether decimal string
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	ether := new(big.Rat).SetFrac(wei, weiPerEther)
	return trimZeros(ether.FloatString(18))
}

// ToWei converts an amount in ether into wei.
// Digits beyond 18 decimals are truncated, but a positive amount never becomes zero.
func ToWei(amount string) (*big.Int, error) {
	value, err := ParseDecimal(amount)
	if err != nil {
		return nil, err
	}

	value.Mul(value, new(big.Rat).SetInt(weiPerEther))

	// Quo truncates toward zero, which drops sub-wei digits
	wei := new(big.Int).Quo(value.Num(), value.Denom())
	if wei.Sign() == 0 && value.Sign() > 0 {
		return nil, fmt.Errorf("%w: %s", ErrBelowOneWei, strings.TrimSpace(amount))
	}
	return wei, nil
}

// ToFixedIfNecessary rounds value to the given number of decimal places and
// strips trailing zeros, and the decimal point when the result is whole.
func ToFixedIfNecessary(value string, decimalPlaces int) (string, error) {
	if decimalPlaces < 0 {
		return "", fmt.Errorf("decimal places cannot be negative: %d", decimalPlaces)
	}

	number, ok := new(big.Rat).SetString(strings.TrimSpace(value))
	if !ok {
		return "", fmt.Errorf("invalid number: %q", value)
	}

	// FloatString rounds halves away from zero
	return trimZeros(number.FloatString(decimalPlaces)), nil
}

// DisplayBalance formats a wei balance for display with the given precision
func DisplayBalance(wei *big.Int, decimalPlaces int) (string, error) {
	return ToFixedIfNecessary(FormatEther(wei), decimalPlaces)
}

func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return normalizeZero(s)
	}
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	return normalizeZero(s)
}

func normalizeZero(s string) string {
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}
