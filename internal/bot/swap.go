package bot

import (
	"context"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/voidexchange/walletbot/internal/amount"
	"github.com/voidexchange/walletbot/internal/dex"
	"github.com/voidexchange/walletbot/internal/session"
	"github.com/voidexchange/walletbot/internal/wallet"
)

// swapTargets are the symbols offered as named swap destinations.
var swapTargets = []string{"SOL", "USDC", "BTC"}

// mintPattern matches a full-length base58 mint address. Mints shorter
// than 44 characters exist but are not accepted here.
var mintPattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{44}$`)

// startSwapFlow offers the wallet's swappable assets, i.e. holdings with
// a positive balance and a known mint address.
func (b *Bot) startSwapFlow(ctx context.Context, chatID int64) {
	walletID, ok := b.requireWallet(ctx, chatID)
	if !ok {
		return
	}

	var balances []wallet.Balance
	var err error
	b.withLoading(chatID, "⏳ Loading your assets...", func() {
		balances, err = b.wallets.Overview(ctx, walletID)
	})
	if err != nil {
		b.logger.Error("wallet overview failed", "chat_id", chatID, "wallet_id", walletID, "error", err)
		b.say(chatID, "❌ Could not load your assets. Please try again.")
		return
	}

	refs := make(map[string]session.AssetRef)
	var rows [][]Button
	for _, bal := range balances {
		if !hasPositiveBalance(bal.AvailableBalance) {
			continue
		}
		if _, err := dex.MintAddress(bal.Asset.Symbol); err != nil {
			continue
		}
		key := fmt.Sprintf("%s%d", cbSwapFromPrefix, len(rows))
		refs[key] = session.AssetRef{
			ID:       bal.Asset.ID,
			Symbol:   bal.Asset.Symbol,
			Balance:  bal.AvailableBalance,
			Decimals: bal.Asset.Decimals,
		}
		label := fmt.Sprintf("%s %s — %s", tokenEmoji(bal.Asset.Symbol), bal.Asset.Symbol, bal.AvailableBalance)
		rows = append(rows, []Button{{Text: label, Data: key}})
	}
	if len(rows) == 0 {
		b.say(chatID, "🤷 Nothing to swap: no swappable assets with a balance.")
		return
	}

	b.sessions.PutSelections(chatID, refs)
	b.sessions.Put(chatID, &session.Session{Step: session.StepSelectSwapFrom})
	b.sayWithButtons(chatID, "🔄 Which asset would you like to swap from?", rows)
}

func (b *Bot) handleSwapFromSelected(chatID int64, key string) {
	ref, ok := b.sessions.ResolveSelection(chatID, key)
	if !ok {
		b.say(chatID, "⚠️ That menu is no longer active. Please start again.")
		return
	}
	mint, err := dex.MintAddress(ref.Symbol)
	if err != nil {
		b.logger.Warn("unsupported swap source", "chat_id", chatID, "symbol", ref.Symbol)
		b.say(chatID, fmt.Sprintf("⚠️ %s can't be swapped right now.", ref.Symbol))
		return
	}

	b.sessions.Put(chatID, &session.Session{
		Step:         session.StepSelectSwapTo,
		FromSymbol:   ref.Symbol,
		FromBalance:  ref.Balance,
		FromDecimals: ref.Decimals,
		FromMint:     mint,
	})

	var rows [][]Button
	for _, sym := range swapTargets {
		if sym == ref.Symbol {
			continue
		}
		rows = append(rows, []Button{{Text: fmt.Sprintf("%s %s", tokenEmoji(sym), sym), Data: cbSwapToPrefix + sym}})
	}
	rows = append(rows, []Button{{Text: "✏️ Custom token", Data: cbSwapToCustom}})
	b.sayWithButtons(chatID, fmt.Sprintf("Swap %s for what?", ref.Symbol), rows)
}

func (b *Bot) handleSwapToSelected(ctx context.Context, chatID int64, symbol string) {
	sess := b.sessions.Get(chatID)
	if sess == nil || sess.Step != session.StepSelectSwapTo {
		b.say(chatID, "⚠️ That menu is no longer active. Please start again.")
		return
	}
	mint, err := dex.MintAddress(symbol)
	if err != nil {
		b.say(chatID, fmt.Sprintf("⚠️ %s isn't available as a swap target.", symbol))
		return
	}
	b.resolveSwapTarget(ctx, chatID, sess, mint, symbol)
}

func (b *Bot) handleSwapToCustom(chatID int64) {
	sess := b.sessions.Get(chatID)
	if sess == nil || sess.Step != session.StepSelectSwapTo {
		b.say(chatID, "⚠️ That menu is no longer active. Please start again.")
		return
	}
	sess.Step = session.StepEnterSwapToAddr
	b.sessions.Put(chatID, sess)
	b.say(chatID, "✏️ Enter the mint address of the token you want to receive.")
}

func (b *Bot) handleSwapToAddressInput(ctx context.Context, chatID int64, sess *session.Session, text string) {
	if !mintPattern.MatchString(text) {
		b.say(chatID, "⚠️ That doesn't look like a valid mint address. Please enter a 44-character base58 mint address.")
		return
	}
	b.resolveSwapTarget(ctx, chatID, sess, text, "")
}

// resolveSwapTarget fetches target-token metadata and advances to the
// amount step. Metadata failures degrade to 9 decimals and a generic
// name rather than aborting the flow.
func (b *Bot) resolveSwapTarget(ctx context.Context, chatID int64, sess *session.Session, mint, fallbackSymbol string) {
	var meta dex.TokenMetadata
	var err error
	b.withLoading(chatID, "🔎 Fetching token info...", func() {
		meta, err = b.swaps.GetTokenMetadata(ctx, mint)
	})
	if err != nil {
		b.logger.Warn("token metadata lookup failed", "chat_id", chatID, "mint", mint, "error", err)
		meta = dex.TokenMetadata{Symbol: fallbackSymbol, Name: "Custom Token", Decimals: 9}
		if fallbackSymbol == "" {
			meta.Symbol = "Custom Token"
		}
	}

	sess.Step = session.StepEnterSwapAmount
	sess.ToMint = mint
	sess.ToSymbol = meta.Symbol
	sess.ToTokenName = meta.Name
	sess.ToTokenDecimals = meta.Decimals
	b.sessions.Put(chatID, sess)
	b.say(chatID, fmt.Sprintf("How much %s would you like to swap?\nAvailable: %s", sess.FromSymbol, sess.FromBalance))
}

// handleSwapAmountInput validates the amount, quotes the swap, and asks
// for confirmation. A failed quote rewinds the flow to the source
// selection step.
func (b *Bot) handleSwapAmountInput(ctx context.Context, chatID int64, sess *session.Session, text string) {
	parsed, err := amount.ParsePositive(text, sess.FromBalance)
	if err != nil {
		b.say(chatID, fmt.Sprintf("⚠️ %s\nPlease enter a valid amount (available: %s %s).", validationMessage(err), sess.FromBalance, sess.FromSymbol))
		return
	}
	sess.Amount = parsed.String()

	inputBase, err := amount.ToBaseUnits(sess.Amount, sess.FromDecimals)
	if err != nil {
		b.say(chatID, fmt.Sprintf("⚠️ %s", validationMessage(err)))
		return
	}
	sess.AmountBaseUnits = inputBase

	var quote dex.Quote
	b.withLoading(chatID, "💱 Getting a quote...", func() {
		quote, err = b.swaps.GetQuote(ctx, sess.FromMint, sess.ToMint, inputBase)
	})
	if err != nil {
		b.logger.Warn("swap quote failed", "chat_id", chatID, "error", err)
		b.say(chatID, fmt.Sprintf("❌ Couldn't get a quote: %s\nLet's pick again.", userMessage(err)))
		b.startSwapFlow(ctx, chatID)
		return
	}

	sess.ExpectedOutput = amount.FromBaseUnits(quote.OutputAmount, sess.ToTokenDecimals)
	b.sessions.Put(chatID, sess)

	summary := fmt.Sprintf("You are about to swap *%s %s* for ~*%s %s*", sess.Amount, sess.FromSymbol, sess.ExpectedOutput, sess.ToSymbol)
	if rate := swapRate(sess.Amount, sess.ExpectedOutput); rate != "" {
		summary += fmt.Sprintf("\n💱 1 %s ≈ %s %s", sess.FromSymbol, rate, sess.ToSymbol)
	}
	summary += "\n\nConfirm?"
	b.sayWithButtons(chatID, summary, [][]Button{{
		{Text: "✅ Confirm", Data: cbConfirmSwap},
		{Text: "❌ Cancel", Data: cbCancelSwap},
	}})
}

// executeSwap submits the swap with the same smallest-unit amount the
// quote was taken for. The session is cleared in both outcomes.
func (b *Bot) executeSwap(ctx context.Context, chatID int64) {
	sess := b.sessions.Get(chatID)
	defer func() {
		b.sessions.Delete(chatID)
		b.sessions.ClearSelections(chatID)
	}()

	if sess == nil || sess.AmountBaseUnits == "" || sess.FromMint == "" || sess.ToMint == "" {
		b.say(chatID, "⚠️ This confirmation is no longer active. Please start the swap again.")
		return
	}

	var result dex.SwapResult
	var err error
	b.withLoading(chatID, "⏳ Executing the swap...", func() {
		result, err = b.swaps.ExecuteSwap(ctx, sess.FromMint, sess.ToMint, sess.AmountBaseUnits)
	})
	if err != nil {
		b.logger.Error("swap execution failed", "chat_id", chatID, "error", err)
		b.say(chatID, fmt.Sprintf("❌ Swap failed: %s", userMessage(err)))
		b.showMainMenu(chatID)
		return
	}

	b.sayMarkdown(chatID, fmt.Sprintf(
		"✅ Swap submitted!\n🔁 %s %s → ~%s %s\n🔍 [View on Solscan](https://solscan.io/tx/%s)",
		sess.Amount, sess.FromSymbol, sess.ExpectedOutput, sess.ToSymbol, result.TxID))
	b.showMainMenu(chatID)
}

// swapRate renders the effective output per input unit, rounded to six
// places. Empty when either side fails to parse.
func swapRate(input, output string) string {
	in, err := decimal.NewFromString(input)
	if err != nil || !in.IsPositive() {
		return ""
	}
	out, err := decimal.NewFromString(output)
	if err != nil {
		return ""
	}
	return out.Div(in).Round(6).String()
}
