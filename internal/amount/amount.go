package amount

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	boterr "github.com/voidexchange/walletbot/internal/errors"
)

var decimalPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// ParsePositive validates free-text amount input against the available
// balance recorded at flow start. The returned value is > 0 and <= balance;
// every failure carries CodeValidation so callers re-prompt the same step.
func ParsePositive(input, availableBalance string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(input)
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, boterr.Wrap(boterr.CodeValidation, "amount must be a number", err)
	}
	if value.Sign() <= 0 {
		return decimal.Zero, boterr.New(boterr.CodeValidation, "amount must be greater than 0")
	}
	max, err := decimal.NewFromString(strings.TrimSpace(availableBalance))
	if err != nil {
		return decimal.Zero, boterr.Wrap(boterr.CodeValidation, "invalid available balance", err)
	}
	if value.GreaterThan(max) {
		return decimal.Zero, boterr.New(boterr.CodeValidation, "amount exceeds available balance")
	}
	return value, nil
}

// ToBaseUnits converts a decimal string to its smallest-unit integer
// representation, e.g. "1.5" with 9 decimals -> "1500000000".
func ToBaseUnits(decimalStr string, decimals int) (string, error) {
	if decimals < 0 {
		return "", boterr.New(boterr.CodeValidation, "decimals must be >= 0")
	}
	value := strings.TrimSpace(decimalStr)
	if !decimalPattern.MatchString(value) {
		return "", boterr.New(boterr.CodeValidation, "amount must be in decimal form like 1.23")
	}

	parts := strings.SplitN(value, ".", 2)
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if len(fracPart) > decimals {
		return "", boterr.New(boterr.CodeValidation, fmt.Sprintf("decimal precision exceeds token decimals (%d)", decimals))
	}

	fracPart = fracPart + strings.Repeat("0", decimals-len(fracPart))
	combined := strings.TrimLeft(intPart+fracPart, "0")
	if combined == "" {
		return "0", nil
	}
	if _, ok := new(big.Int).SetString(combined, 10); !ok {
		return "", boterr.New(boterr.CodeValidation, "invalid decimal amount")
	}
	return combined, nil
}

// FromBaseUnits converts a smallest-unit integer string back to a decimal
// string with trailing zeros trimmed, e.g. "1500000000" with 9 decimals ->
// "1.5". Invalid input renders as "0".
func FromBaseUnits(baseUnits string, decimals int) string {
	n := new(big.Int)
	if _, ok := n.SetString(strings.TrimSpace(baseUnits), 10); !ok {
		return "0"
	}
	if decimals == 0 {
		return n.String()
	}

	s := n.String()
	if len(s) <= decimals {
		pad := strings.Repeat("0", decimals-len(s)+1)
		s = pad + s
	}
	intPart := s[:len(s)-decimals]
	fracPart := strings.TrimRight(s[len(s)-decimals:], "0")
	if fracPart == "" {
		return intPart
	}
	return intPart + "." + fracPart
}
