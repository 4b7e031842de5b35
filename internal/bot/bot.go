package bot

import (
	"context"
	"log/slog"
	"sync"

	"github.com/voidexchange/walletbot/internal/session"
	"github.com/voidexchange/walletbot/internal/viz"
)

type Options struct {
	// VerifyBaseURL is the dashboard page where the user confirms a
	// session request; the QR code points there.
	VerifyBaseURL string
	Logger        *slog.Logger
}

const defaultVerifyBaseURL = "https://app.voidexchange.io/verify"

// Bot drives the conversation: it owns the session store, the pending
// auth polls, and the collaborator clients. All handling for one chat is
// serialized behind the store's per-chat lock.
type Bot struct {
	chat     Chat
	wallets  walletAPI
	identity authAPI
	swaps    dexAPI
	risks    riskAPI
	sessions *session.Store
	logger   *slog.Logger

	verifyBaseURL string

	authMu      sync.Mutex
	authGen     uint64
	authCancels map[int64]authPoll

	// Render hooks default to the viz package; tests stub them.
	renderBalance    func(totalUSD float64) ([]byte, error)
	renderAllocation func(slices []viz.AllocationSlice) ([]byte, error)
	renderQR         func(content string) ([]byte, error)
}

func New(chat Chat, wallets walletAPI, identity authAPI, swaps dexAPI, risks riskAPI, opts Options) *Bot {
	if opts.VerifyBaseURL == "" {
		opts.VerifyBaseURL = defaultVerifyBaseURL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Bot{
		chat:             chat,
		wallets:          wallets,
		identity:         identity,
		swaps:            swaps,
		risks:            risks,
		sessions:         session.NewStore(),
		logger:           opts.Logger,
		verifyBaseURL:    opts.VerifyBaseURL,
		authCancels:      make(map[int64]authPoll),
		renderBalance:    viz.RenderBalanceChart,
		renderAllocation: viz.RenderAllocationChart,
		renderQR:         viz.RenderQRCode,
	}
}

// send helpers swallow transport errors after logging them: a failed
// outgoing message must not wedge the state machine.

func (b *Bot) say(chatID int64, text string) {
	if err := b.chat.SendText(chatID, text); err != nil {
		b.logger.Warn("send message failed", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) sayMarkdown(chatID int64, text string) {
	if err := b.chat.SendMarkdown(chatID, text); err != nil {
		b.logger.Warn("send message failed", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) sayWithMenu(chatID int64, text string, rows [][]string) {
	if err := b.chat.SendTextWithReplyKeyboard(chatID, text, rows); err != nil {
		b.logger.Warn("send menu failed", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) sayWithButtons(chatID int64, text string, rows [][]Button) {
	if err := b.chat.SendTextWithInlineKeyboard(chatID, text, rows); err != nil {
		b.logger.Warn("send inline keyboard failed", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) sendPhoto(chatID int64, caption string, png []byte) {
	if err := b.chat.SendPhoto(chatID, caption, png); err != nil {
		b.logger.Warn("send photo failed", "chat_id", chatID, "error", err)
	}
}

// withLoading shows a transient status message around fn and deletes it
// afterwards, failures swallowed.
func (b *Bot) withLoading(chatID int64, text string, fn func()) {
	msgID, err := b.chat.SendLoading(chatID, text)
	if err != nil {
		b.logger.Warn("send loading message failed", "chat_id", chatID, "error", err)
		fn()
		return
	}
	defer func() {
		if err := b.chat.DeleteMessage(chatID, msgID); err != nil {
			b.logger.Warn("delete loading message failed", "chat_id", chatID, "error", err)
		}
	}()
	fn()
}

func (b *Bot) showMainMenu(chatID int64) {
	if b.identity.IsAuthenticated() {
		b.sayWithMenu(chatID, "What would you like to do?", mainMenuRows())
		return
	}
	b.sayWithMenu(chatID, "Connect a wallet to get started.", connectMenuRows())
}

// requireWallet gates the wallet operations: the chat must be
// authenticated with a wallet selected.
func (b *Bot) requireWallet(ctx context.Context, chatID int64) (string, bool) {
	if !b.identity.IsAuthenticated() {
		b.sayWithMenu(chatID, "🔐 Please connect your wallet first.", connectMenuRows())
		return "", false
	}
	walletID := b.identity.CurrentWalletID()
	if walletID == "" {
		b.say(chatID, "🗂 Please choose a workspace and wallet first.")
		b.showWorkspaceSelection(ctx, chatID)
		return "", false
	}
	return walletID, true
}

// resetChat drops all per-chat state: active session, selection menu,
// and any pending auth poll.
func (b *Bot) resetChat(chatID int64) {
	b.cancelAuthPoll(chatID)
	b.sessions.Delete(chatID)
	b.sessions.ClearSelections(chatID)
}

// fallbackReset handles an unrecognized session step: notify, clear, and
// return to the menu.
func (b *Bot) fallbackReset(chatID int64) {
	b.logger.Warn("unrecognized session step, resetting chat", "chat_id", chatID)
	b.sessions.Delete(chatID)
	b.sessions.ClearSelections(chatID)
	b.say(chatID, "⚠️ Something went wrong, let's start over.")
	b.showMainMenu(chatID)
}
