package dex

import (
	"fmt"
	"strings"

	boterr "github.com/voidexchange/walletbot/internal/errors"
)

// NativeMint is the wrapped-SOL mint address used for the native asset.
const NativeMint = "So11111111111111111111111111111111111111112"

// mintDirectory maps the symbols offered in the swap menu to their mint
// addresses. Anything else goes through the custom-address path.
var mintDirectory = map[string]string{
	"SOL":  NativeMint,
	"USDC": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
	"BTC":  "6p6xgHyF7AeE6TZkSmFsko444wqoP15icUSqi2jfGiPN",
}

// MintAddress resolves a token symbol to its mint address.
func MintAddress(symbol string) (string, error) {
	mint, ok := mintDirectory[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return "", boterr.New(boterr.CodeUnsupported, fmt.Sprintf("unknown token symbol %q", symbol))
	}
	return mint, nil
}
