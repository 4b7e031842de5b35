package bot

import (
	"context"
	"fmt"
	"net/url"

	boterr "github.com/voidexchange/walletbot/internal/errors"
)

// authPoll is one registered background status poll.
type authPoll struct {
	gen    uint64
	cancel context.CancelFunc
}

// handleConnect starts the wallet handshake. When the chat is already
// authenticated the user chooses between reconnecting and keeping the
// current wallet.
func (b *Bot) handleConnect(ctx context.Context, chatID int64) {
	if b.identity.IsAuthenticated() {
		b.sayWithButtons(chatID, "🔗 A wallet is already connected. What would you like to do?", [][]Button{
			{{Text: "Connect a new wallet", Data: cbNewWallet}},
			{{Text: "Keep the current one", Data: cbUseCurrent}},
		})
		return
	}
	b.beginHandshake(ctx, chatID)
}

// beginHandshake submits a session request, shows the QR code and the
// manual verification code, and starts the status poll in the
// background. A new handshake for the same chat cancels the previous
// poll.
func (b *Bot) beginHandshake(ctx context.Context, chatID int64) {
	start, err := b.identity.Start(ctx)
	if err != nil {
		b.logger.Error("start auth session failed", "chat_id", chatID, "error", err)
		b.say(chatID, "❌ Could not start authentication. Please try again later.")
		return
	}

	verifyURL := fmt.Sprintf("%s?request=%s&code=%s",
		b.verifyBaseURL,
		url.QueryEscape(start.SessionRequestID),
		url.QueryEscape(start.VerificationCode))

	if png, err := b.renderQR(verifyURL); err != nil {
		b.logger.Warn("render auth qr failed", "chat_id", chatID, "error", err)
	} else {
		b.sendPhoto(chatID, "📱 Scan to approve this device", png)
	}
	b.sayMarkdown(chatID, fmt.Sprintf(
		"🔐 Or open the dashboard and enter this code:\n\n`%s`\n\nI'll keep checking until you approve.",
		start.VerificationCode))

	pollCtx, cancel := context.WithCancel(ctx)
	gen := b.setAuthPoll(chatID, cancel)

	go func() {
		defer b.clearAuthPoll(chatID, gen)
		err := b.identity.Poll(pollCtx, start.SessionRequestID, nil)

		unlock := b.sessions.Lock(chatID)
		defer unlock()
		switch {
		case err == nil:
			b.say(chatID, "✅ Wallet connected!")
			b.showWorkspaceSelection(pollCtx, chatID)
		case pollCtx.Err() == context.Canceled:
			// Superseded or shut down; stay quiet.
		case boterr.CodeOf(err) == boterr.CodeAuth:
			b.say(chatID, "⌛ The authentication session expired. Send /authenticate to try again.")
		default:
			b.logger.Error("auth poll failed", "chat_id", chatID, "error", err)
			b.say(chatID, "❌ Authentication failed. Send /authenticate to try again.")
		}
	}()
}

// setAuthPoll registers a new poll for the chat, cancelling any previous
// one, and returns a generation number identifying the registration.
func (b *Bot) setAuthPoll(chatID int64, cancel context.CancelFunc) uint64 {
	b.authMu.Lock()
	defer b.authMu.Unlock()
	if prev, ok := b.authCancels[chatID]; ok {
		prev.cancel()
	}
	b.authGen++
	b.authCancels[chatID] = authPoll{gen: b.authGen, cancel: cancel}
	return b.authGen
}

// clearAuthPoll removes the chat's poll entry only while this poll still
// owns it; a newer handshake may have replaced it.
func (b *Bot) clearAuthPoll(chatID int64, gen uint64) {
	b.authMu.Lock()
	defer b.authMu.Unlock()
	if cur, ok := b.authCancels[chatID]; ok && cur.gen == gen {
		cur.cancel()
		delete(b.authCancels, chatID)
	}
}

func (b *Bot) cancelAuthPoll(chatID int64) {
	b.authMu.Lock()
	defer b.authMu.Unlock()
	if cur, ok := b.authCancels[chatID]; ok {
		cur.cancel()
		delete(b.authCancels, chatID)
	}
}

// showWorkspaceSelection lists the workspaces the token can see.
func (b *Bot) showWorkspaceSelection(ctx context.Context, chatID int64) {
	workspaces, err := b.identity.Workspaces(ctx)
	if err != nil {
		b.logger.Error("list workspaces failed", "chat_id", chatID, "error", err)
		b.say(chatID, "❌ Could not load your workspaces. Please try again.")
		return
	}
	if len(workspaces) == 0 {
		b.say(chatID, "🤷 No workspaces are available for this account.")
		return
	}

	rows := make([][]Button, 0, len(workspaces))
	for _, ws := range workspaces {
		rows = append(rows, []Button{{Text: ws.Name, Data: cbWorkspace + ws.ID}})
	}
	b.sayWithButtons(chatID, "🗂 Choose a workspace:", rows)
}

func (b *Bot) handleWorkspaceSelected(ctx context.Context, chatID int64, workspaceID string) {
	b.identity.SetCurrentWorkspace(workspaceID)
	b.showWalletSelection(ctx, chatID, workspaceID)
}

// showWalletSelection lists the wallets of a workspace.
func (b *Bot) showWalletSelection(ctx context.Context, chatID int64, workspaceID string) {
	if workspaceID == "" {
		b.say(chatID, "🗂 Please choose a workspace first.")
		b.showWorkspaceSelection(ctx, chatID)
		return
	}
	wallets, err := b.identity.WorkspaceWallets(ctx, workspaceID)
	if err != nil {
		b.logger.Error("list wallets failed", "chat_id", chatID, "workspace_id", workspaceID, "error", err)
		b.say(chatID, "❌ Could not load the workspace's wallets. Please try again.")
		return
	}
	if len(wallets) == 0 {
		b.say(chatID, "🤷 This workspace has no wallets.")
		return
	}

	rows := make([][]Button, 0, len(wallets))
	for _, w := range wallets {
		label := w.Name
		if w.WalletType != "" {
			label = fmt.Sprintf("%s (%s)", w.Name, w.WalletType)
		}
		rows = append(rows, []Button{{Text: label, Data: cbWallet + w.ID}})
	}
	b.sayWithButtons(chatID, "👛 Choose a wallet:", rows)
}

func (b *Bot) handleWalletSelected(chatID int64, walletID string) {
	b.identity.SetCurrentWalletID(walletID)
	b.say(chatID, "✅ Wallet selected.")
	b.showMainMenu(chatID)
}
