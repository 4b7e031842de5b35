package bot

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/voidexchange/walletbot/internal/amount"
	boterr "github.com/voidexchange/walletbot/internal/errors"
	"github.com/voidexchange/walletbot/internal/risk"
	"github.com/voidexchange/walletbot/internal/session"
	"github.com/voidexchange/walletbot/internal/wallet"
)

// Solana addresses are base58, 32 to 44 characters.
var addressPattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

// startSendFlow loads the wallet's assets and offers the ones with a
// positive available balance.
func (b *Bot) startSendFlow(ctx context.Context, chatID int64) {
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
		key := fmt.Sprintf("%s%d", cbAssetPrefix, len(rows))
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
		b.say(chatID, "🤷 Nothing to send: no assets with an available balance.")
		return
	}

	b.sessions.PutSelections(chatID, refs)
	b.sessions.Put(chatID, &session.Session{Step: session.StepSelectAsset})
	b.sayWithButtons(chatID, "💸 Which asset would you like to send?", rows)
}

func (b *Bot) handleAssetSelected(chatID int64, key string) {
	ref, ok := b.sessions.ResolveSelection(chatID, key)
	if !ok {
		b.say(chatID, "⚠️ That menu is no longer active. Please start again.")
		return
	}
	b.sessions.Put(chatID, &session.Session{
		Step:    session.StepEnterAmount,
		AssetID: ref.ID,
		Symbol:  ref.Symbol,
		Balance: ref.Balance,
	})
	b.say(chatID, fmt.Sprintf("How much %s would you like to send?\nAvailable: %s", ref.Symbol, ref.Balance))
}

// handleAmountInput validates the amount against the available balance;
// invalid input re-prompts without losing the step.
func (b *Bot) handleAmountInput(ctx context.Context, chatID int64, sess *session.Session, text string) {
	parsed, err := amount.ParsePositive(text, sess.Balance)
	if err != nil {
		b.say(chatID, fmt.Sprintf("⚠️ %s\nPlease enter a valid amount (available: %s %s).", validationMessage(err), sess.Balance, sess.Symbol))
		return
	}
	sess.Amount = parsed.String()
	sess.Step = session.StepEnterAddress
	b.sessions.Put(chatID, sess)
	b.say(chatID, fmt.Sprintf("📬 Where should the %s go? Enter the recipient address.", sess.Symbol))
}

// handleAddressInput validates the recipient address, screens it, and
// asks for confirmation.
func (b *Bot) handleAddressInput(ctx context.Context, chatID int64, sess *session.Session, text string) {
	if !addressPattern.MatchString(text) {
		b.say(chatID, "⚠️ That doesn't look like a valid address. Please enter a base58 address (32–44 characters).")
		return
	}
	sess.RecipientAddress = text
	b.sessions.Put(chatID, sess)

	var result risk.Result
	var err error
	b.withLoading(chatID, "🔍 Running a risk check on the address...", func() {
		result, err = b.risks.Check(ctx, text)
	})
	if err != nil {
		b.logger.Warn("risk check failed", "chat_id", chatID, "error", err)
		b.say(chatID, "⚠️ The risk check is unavailable right now. Proceed with caution.")
	} else {
		caption := fmt.Sprintf("🛡 Address risk: %s (score %.1f)", result.Category, result.Score)
		if result.EvidenceURL != "" {
			if err := b.chat.SendRemotePhoto(chatID, caption, result.EvidenceURL); err != nil {
				b.logger.Warn("send risk evidence failed", "chat_id", chatID, "error", err)
				b.say(chatID, caption)
			}
		} else {
			b.say(chatID, caption)
		}
	}

	b.sayWithButtons(chatID,
		fmt.Sprintf("You are about to send *%s %s* to:\n`%s`\n\nConfirm?", sess.Amount, sess.Symbol, sess.RecipientAddress),
		[][]Button{{
			{Text: "✅ Confirm", Data: cbConfirmSend},
			{Text: "❌ Cancel", Data: cbCancelSend},
		}})
}

// executeSend submits the withdrawal. The session is cleared in both
// outcomes so a retry always starts from a clean slate.
func (b *Bot) executeSend(ctx context.Context, chatID int64) {
	sess := b.sessions.Get(chatID)
	defer func() {
		b.sessions.Delete(chatID)
		b.sessions.ClearSelections(chatID)
	}()

	if sess == nil || sess.Amount == "" || sess.RecipientAddress == "" {
		b.say(chatID, "⚠️ This confirmation is no longer active. Please start the send again.")
		return
	}
	walletID := b.identity.CurrentWalletID()
	if walletID == "" {
		b.say(chatID, "🔐 Please connect your wallet first.")
		return
	}

	var wd wallet.Withdrawal
	var err error
	b.withLoading(chatID, "⏳ Submitting your withdrawal...", func() {
		wd, err = b.wallets.CreateWithdrawal(ctx, walletID, sess.AssetID, sess.Amount, sess.RecipientAddress)
	})
	if err != nil {
		b.logger.Error("withdrawal failed", "chat_id", chatID, "wallet_id", walletID, "error", err)
		b.say(chatID, fmt.Sprintf("❌ Withdrawal failed: %s", userMessage(err)))
		b.showMainMenu(chatID)
		return
	}

	b.sayMarkdown(chatID, fmt.Sprintf("✅ Withdrawal submitted!\n🆔 `%s`\n📋 Status: %s", wd.ID, wd.Status))
	b.showMainMenu(chatID)
}

func hasPositiveBalance(available string) bool {
	d, err := decimal.NewFromString(strings.TrimSpace(available))
	return err == nil && d.IsPositive()
}

// validationMessage extracts the user-facing text of a validation error.
func validationMessage(err error) string {
	if e, ok := boterr.As(err); ok && e.Code == boterr.CodeValidation {
		return e.Message
	}
	return "Invalid input."
}

// userMessage is the safe rendering of an executor error.
func userMessage(err error) string {
	if e, ok := boterr.As(err); ok {
		return e.Message
	}
	return "unexpected error"
}
