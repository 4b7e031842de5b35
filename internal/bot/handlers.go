package bot

import (
	"context"
	"strings"

	"github.com/voidexchange/walletbot/internal/session"
)

// HandleMessage processes one incoming text message. Slash commands win
// over everything, then the active session's step handler, then menu
// buttons; anything else outside a session is ignored.
func (b *Bot) HandleMessage(ctx context.Context, chatID int64, text string) {
	unlock := b.sessions.Lock(chatID)
	defer unlock()

	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	switch strings.SplitN(text, "@", 2)[0] {
	case "/start":
		b.handleStart(chatID)
		return
	case "/authenticate":
		b.handleConnect(ctx, chatID)
		return
	case "/reset":
		b.resetChat(chatID)
		b.identity.Logout()
		b.say(chatID, "♻️ Bot reset. All your data and session information has been cleared.")
		b.showMainMenu(chatID)
		return
	}

	if sess := b.sessions.Get(chatID); sess != nil {
		switch sess.Step {
		case session.StepEnterAmount:
			b.handleAmountInput(ctx, chatID, sess, text)
		case session.StepEnterAddress:
			b.handleAddressInput(ctx, chatID, sess, text)
		case session.StepEnterSwapToAddr:
			b.handleSwapToAddressInput(ctx, chatID, sess, text)
		case session.StepEnterSwapAmount:
			b.handleSwapAmountInput(ctx, chatID, sess, text)
		case session.StepSelectAsset, session.StepSelectSwapFrom, session.StepSelectSwapTo:
			b.say(chatID, "👆 Please pick an option from the buttons above.")
		default:
			b.fallbackReset(chatID)
		}
		return
	}

	switch text {
	case btnConnectWallet:
		b.handleConnect(ctx, chatID)
	case btnMonitorWallet:
		b.showWalletData(ctx, chatID)
	case btnSend:
		b.startSendFlow(ctx, chatID)
	case btnSwap:
		b.startSwapFlow(ctx, chatID)
	case btnChangeWallet:
		b.showWalletSelection(ctx, chatID, b.identity.CurrentWorkspaceID())
	case btnChooseWorkspace:
		b.showWorkspaceSelection(ctx, chatID)
	case btnLogout:
		b.handleLogout(chatID)
	case btnMainMenu:
		b.showMainMenu(chatID)
	default:
		// Free text outside a flow is noise.
	}
}

// HandleCallback processes one inline-keyboard press.
func (b *Bot) HandleCallback(ctx context.Context, chatID int64, callbackID, data string) {
	unlock := b.sessions.Lock(chatID)
	defer unlock()

	if err := b.chat.AnswerCallback(callbackID); err != nil {
		b.logger.Warn("answer callback failed", "chat_id", chatID, "error", err)
	}

	switch {
	case data == cbSwapToCustom:
		b.handleSwapToCustom(chatID)
	case strings.HasPrefix(data, cbAssetPrefix):
		b.handleAssetSelected(chatID, data)
	case strings.HasPrefix(data, cbSwapFromPrefix):
		b.handleSwapFromSelected(chatID, data)
	case strings.HasPrefix(data, cbSwapToPrefix):
		b.handleSwapToSelected(ctx, chatID, strings.TrimPrefix(data, cbSwapToPrefix))
	case strings.HasPrefix(data, cbWorkspace):
		b.handleWorkspaceSelected(ctx, chatID, strings.TrimPrefix(data, cbWorkspace))
	case strings.HasPrefix(data, cbWallet):
		b.handleWalletSelected(chatID, strings.TrimPrefix(data, cbWallet))
	case data == cbConfirmSend:
		b.executeSend(ctx, chatID)
	case data == cbCancelSend:
		b.cancelFlow(chatID, "Send cancelled.")
	case data == cbConfirmSwap:
		b.executeSwap(ctx, chatID)
	case data == cbCancelSwap:
		b.cancelFlow(chatID, "Swap cancelled.")
	case data == cbNewWallet:
		b.beginHandshake(ctx, chatID)
	case data == cbUseCurrent:
		b.say(chatID, "👍 Keeping the current wallet.")
		b.showMainMenu(chatID)
	default:
		b.logger.Warn("unknown callback data", "chat_id", chatID, "data", data)
	}
}

// handleStart greets the user and abandons any flow in progress.
func (b *Bot) handleStart(chatID int64) {
	b.sessions.Delete(chatID)
	b.sessions.ClearSelections(chatID)
	b.say(chatID, "👋 Welcome to the wallet bot!\n\nMonitor balances, send assets and swap tokens from your custodial wallet.")
	b.showMainMenu(chatID)
}

func (b *Bot) handleLogout(chatID int64) {
	b.resetChat(chatID)
	b.identity.Logout()
	b.sayWithMenu(chatID, "🚪 Logged out. Connect a wallet to continue.", connectMenuRows())
}

func (b *Bot) cancelFlow(chatID int64, notice string) {
	b.sessions.Delete(chatID)
	b.sessions.ClearSelections(chatID)
	b.say(chatID, "❌ "+notice)
	b.showMainMenu(chatID)
}
