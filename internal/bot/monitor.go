package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/voidexchange/walletbot/internal/viz"
	"github.com/voidexchange/walletbot/internal/wallet"
)

// showWalletData renders the wallet overview: balance chart, allocation
// chart, and a per-asset breakdown sorted by USD value.
func (b *Bot) showWalletData(ctx context.Context, chatID int64) {
	walletID, ok := b.requireWallet(ctx, chatID)
	if !ok {
		return
	}

	var balances []wallet.Balance
	var err error
	b.withLoading(chatID, "⏳ Fetching wallet data...", func() {
		balances, err = b.wallets.Overview(ctx, walletID)
	})
	if err != nil {
		b.logger.Error("wallet overview failed", "chat_id", chatID, "wallet_id", walletID, "error", err)
		b.say(chatID, "❌ Could not load your wallet. Please try again.")
		return
	}
	if len(balances) == 0 {
		b.say(chatID, "🤷 This wallet holds no assets yet.")
		return
	}

	type holding struct {
		symbol  string
		balance string
		value   decimal.Decimal
	}
	holdings := make([]holding, 0, len(balances))
	total := decimal.Zero
	for _, bal := range balances {
		value, err := decimal.NewFromString(bal.ValueUSD)
		if err != nil {
			value = decimal.Zero
		}
		total = total.Add(value)
		holdings = append(holdings, holding{
			symbol:  bal.Asset.Symbol,
			balance: bal.AvailableBalance,
			value:   value,
		})
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].value.GreaterThan(holdings[j].value) })

	totalUSD, _ := total.Float64()
	if png, err := b.renderBalance(totalUSD); err != nil {
		b.logger.Warn("render balance chart failed", "chat_id", chatID, "error", err)
	} else {
		b.sendPhoto(chatID, fmt.Sprintf("💰 Total balance: $%s", total.Round(2).StringFixed(2)), png)
	}

	slices := make([]viz.AllocationSlice, 0, len(holdings))
	for _, h := range holdings {
		v, _ := h.value.Float64()
		slices = append(slices, viz.AllocationSlice{Symbol: h.symbol, Value: v})
	}
	if png, err := b.renderAllocation(slices); err != nil {
		b.logger.Warn("render allocation chart failed", "chat_id", chatID, "error", err)
	} else {
		b.sendPhoto(chatID, "📊 Portfolio allocation", png)
	}

	var sb strings.Builder
	sb.WriteString("*Your assets*\n\n")
	for _, h := range holdings {
		line := fmt.Sprintf("%s *%s*: %s ($%s", tokenEmoji(h.symbol), h.symbol, h.balance, h.value.Round(2).StringFixed(2))
		if total.IsPositive() {
			pct := h.value.Div(total).Mul(decimal.NewFromInt(100)).Round(1)
			line += fmt.Sprintf(", %s%%", pct.String())
		}
		sb.WriteString(line + ")\n")
	}
	b.sayMarkdown(chatID, sb.String())
}
