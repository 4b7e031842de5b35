package bot

import (
	"context"
	"strings"
	"testing"

	"github.com/voidexchange/walletbot/internal/dex"
	boterr "github.com/voidexchange/walletbot/internal/errors"
	"github.com/voidexchange/walletbot/internal/session"
)

const usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

func TestSwapFlowEndToEnd(t *testing.T) {
	f := newFixture(t)
	f.wallets.overview = solOverview()
	f.swaps.quote = dex.Quote{OutputAmount: "200000000"}
	f.swaps.meta = map[string]dex.TokenMetadata{
		usdcMint: {Symbol: "USDC", Name: "USD Coin", Decimals: 6},
	}
	ctx := context.Background()

	f.bot.HandleMessage(ctx, 1, btnSwap)
	rows := f.chat.lastInline()
	if len(rows) != 1 || rows[0][0].Data != "swap_from_0" {
		t.Fatalf("expected one swappable asset, got %+v", rows)
	}

	f.bot.HandleCallback(ctx, 1, "cb1", "swap_from_0")
	sess := f.bot.sessions.Get(1)
	if sess == nil || sess.Step != session.StepSelectSwapTo || sess.FromSymbol != "SOL" {
		t.Fatalf("unexpected session after source pick: %+v", sess)
	}
	if sess.FromMint != dex.NativeMint {
		t.Fatalf("unexpected source mint: %s", sess.FromMint)
	}
	// Target menu excludes the source and offers a custom entry.
	targets := f.chat.lastInline()
	for _, row := range targets {
		if strings.Contains(row[0].Text, "SOL") {
			t.Fatalf("source asset offered as target: %+v", targets)
		}
	}

	f.bot.HandleCallback(ctx, 1, "cb2", "swap_to_USDC")
	sess = f.bot.sessions.Get(1)
	if sess.Step != session.StepEnterSwapAmount || sess.ToSymbol != "USDC" || sess.ToTokenDecimals != 6 {
		t.Fatalf("unexpected session after target pick: %+v", sess)
	}

	f.bot.HandleMessage(ctx, 1, "2")
	f.swaps.mu.Lock()
	quotes := f.swaps.quoteCalls
	f.swaps.mu.Unlock()
	if len(quotes) != 1 {
		t.Fatalf("expected one quote call, got %d", len(quotes))
	}
	if quotes[0].inputMint != dex.NativeMint || quotes[0].outputMint != usdcMint || quotes[0].amount != "2000000000" {
		t.Fatalf("unexpected quote call: %+v", quotes[0])
	}
	sess = f.bot.sessions.Get(1)
	if sess.ExpectedOutput != "200" {
		t.Fatalf("expected output 200, got %s", sess.ExpectedOutput)
	}
	if sess.AmountBaseUnits != "2000000000" {
		t.Fatalf("expected smallest-unit amount on session, got %q", sess.AmountBaseUnits)
	}
	if !strings.Contains(f.chat.allText(), "1 SOL ≈ 100 USDC") {
		t.Fatalf("missing rate line:\n%s", f.chat.allText())
	}

	f.bot.HandleCallback(ctx, 1, "cb3", cbConfirmSwap)
	f.swaps.mu.Lock()
	execs := f.swaps.execCalls
	f.swaps.mu.Unlock()
	if len(execs) != 1 {
		t.Fatalf("expected one swap execution, got %d", len(execs))
	}
	if execs[0].amount != "2000000000" {
		t.Fatalf("swap must execute with the smallest-unit amount, got %s", execs[0].amount)
	}
	if !strings.Contains(f.chat.allText(), "solscan.io/tx/tx-abc") {
		t.Fatalf("missing explorer link:\n%s", f.chat.allText())
	}
	if f.bot.sessions.Get(1) != nil {
		t.Fatal("session must be cleared after execution")
	}
}

func TestSwapCustomTokenMetadataFallback(t *testing.T) {
	f := newFixture(t)
	f.swaps.metaErr = boterr.New(boterr.CodeBackend, "metadata unavailable")
	f.bot.sessions.Put(1, &session.Session{
		Step:         session.StepSelectSwapTo,
		FromSymbol:   "SOL",
		FromBalance:  "125",
		FromDecimals: 9,
		FromMint:     dex.NativeMint,
	})
	ctx := context.Background()

	f.bot.HandleCallback(ctx, 1, "cb", cbSwapToCustom)
	sess := f.bot.sessions.Get(1)
	if sess.Step != session.StepEnterSwapToAddr {
		t.Fatalf("expected mint-address step, got %+v", sess)
	}

	f.bot.HandleMessage(ctx, 1, testAddress)
	sess = f.bot.sessions.Get(1)
	if sess.Step != session.StepEnterSwapAmount {
		t.Fatalf("expected amount step, got %+v", sess)
	}
	if sess.ToMint != testAddress || sess.ToSymbol != "Custom Token" || sess.ToTokenDecimals != 9 {
		t.Fatalf("metadata fallback not applied: %+v", sess)
	}
}

func TestSwapCustomMintLengthValidation(t *testing.T) {
	f := newFixture(t)
	f.bot.sessions.Put(1, &session.Session{
		Step:         session.StepEnterSwapToAddr,
		FromSymbol:   "SOL",
		FromBalance:  "125",
		FromDecimals: 9,
		FromMint:     dex.NativeMint,
	})
	ctx := context.Background()

	for _, input := range []string{
		"abc",
		testAddress[:43],
		testAddress + "A",
		strings.Repeat("0", 44), // 0 is not a base58 character
	} {
		f.bot.HandleMessage(ctx, 1, input)
		sess := f.bot.sessions.Get(1)
		if sess == nil || sess.Step != session.StepEnterSwapToAddr || sess.ToMint != "" {
			t.Fatalf("input %q must keep the mint-address step: %+v", input, sess)
		}
	}
	if !strings.Contains(f.chat.allText(), "44-character") {
		t.Fatalf("expected mint length hint:\n%s", f.chat.allText())
	}
}

func TestSwapQuoteFailureRewindsToSourceSelection(t *testing.T) {
	f := newFixture(t)
	f.wallets.overview = solOverview()
	f.swaps.quoteErr = boterr.New(boterr.CodeBackend, "insufficient liquidity")
	f.bot.sessions.Put(1, &session.Session{
		Step:            session.StepEnterSwapAmount,
		FromSymbol:      "SOL",
		FromBalance:     "125",
		FromDecimals:    9,
		FromMint:        dex.NativeMint,
		ToMint:          usdcMint,
		ToSymbol:        "USDC",
		ToTokenDecimals: 6,
	})

	f.bot.HandleMessage(context.Background(), 1, "2")
	if !strings.Contains(f.chat.allText(), "insufficient liquidity") {
		t.Fatalf("expected aggregator message:\n%s", f.chat.allText())
	}
	sess := f.bot.sessions.Get(1)
	if sess == nil || sess.Step != session.StepSelectSwapFrom {
		t.Fatalf("expected rewind to source selection, got %+v", sess)
	}
	f.swaps.mu.Lock()
	defer f.swaps.mu.Unlock()
	if len(f.swaps.execCalls) != 0 {
		t.Fatal("quote failure must not execute a swap")
	}
}

func TestSwapExecutorClearsSessionOnFailure(t *testing.T) {
	f := newFixture(t)
	f.swaps.execErr = boterr.New(boterr.CodeBackend, "aggregator rejected the swap")
	f.bot.sessions.Put(1, &session.Session{
		Step:            session.StepEnterSwapAmount,
		FromSymbol:      "SOL",
		FromMint:        dex.NativeMint,
		ToMint:          usdcMint,
		ToSymbol:        "USDC",
		Amount:          "2",
		AmountBaseUnits: "2000000000",
	})

	f.bot.HandleCallback(context.Background(), 1, "cb", cbConfirmSwap)
	if f.bot.sessions.Get(1) != nil {
		t.Fatal("session must be cleared on execution failure")
	}
	if !strings.Contains(f.chat.allText(), "aggregator rejected the swap") {
		t.Fatalf("expected failure message:\n%s", f.chat.allText())
	}
}

func TestSwapAmountValidationReprompts(t *testing.T) {
	f := newFixture(t)
	f.bot.sessions.Put(1, &session.Session{
		Step:         session.StepEnterSwapAmount,
		FromSymbol:   "SOL",
		FromBalance:  "125",
		FromDecimals: 9,
		FromMint:     dex.NativeMint,
		ToMint:       usdcMint,
	})

	f.bot.HandleMessage(context.Background(), 1, "1000")
	sess := f.bot.sessions.Get(1)
	if sess == nil || sess.Step != session.StepEnterSwapAmount {
		t.Fatalf("excessive amount should keep the step: %+v", sess)
	}
	f.swaps.mu.Lock()
	defer f.swaps.mu.Unlock()
	if len(f.swaps.quoteCalls) != 0 {
		t.Fatal("invalid amount must not be quoted")
	}
}
