// Package bot implements the Telegram-facing conversation layer: menu
// dispatch, the per-chat multi-step state machine, and the send/swap
// executors. External collaborators are consumed through narrow
// interfaces so the state machine is testable with fakes.
package bot

import (
	"context"

	"github.com/voidexchange/walletbot/internal/dex"
	"github.com/voidexchange/walletbot/internal/risk"
	"github.com/voidexchange/walletbot/internal/wallet"
)

// walletAPI is the slice of the wallet backend the conversation layer
// needs. *wallet.Client satisfies it.
type walletAPI interface {
	Overview(ctx context.Context, walletID string) ([]wallet.Balance, error)
	CreateWithdrawal(ctx context.Context, walletID, assetID, amount, recipientAddress string) (wallet.Withdrawal, error)
}

// authAPI is the identity surface: handshake plus workspace/wallet
// selection. *auth.Coordinator satisfies it.
type authAPI interface {
	Start(ctx context.Context) (wallet.AuthSessionStart, error)
	Poll(ctx context.Context, sessionRequestID string, onComplete func(token string)) error
	IsAuthenticated() bool
	CurrentWalletID() string
	CurrentWorkspaceID() string
	SetCurrentWorkspace(workspaceID string)
	SetCurrentWalletID(walletID string)
	Logout()
	Workspaces(ctx context.Context) ([]wallet.Workspace, error)
	WorkspaceWallets(ctx context.Context, workspaceID string) ([]wallet.Wallet, error)
}

// dexAPI is the aggregator surface. *dex.Client satisfies it.
type dexAPI interface {
	GetQuote(ctx context.Context, inputMint, outputMint, amountBaseUnits string) (dex.Quote, error)
	ExecuteSwap(ctx context.Context, inputMint, outputMint, amount string) (dex.SwapResult, error)
	GetTokenMetadata(ctx context.Context, mintAddress string) (dex.TokenMetadata, error)
}

// riskAPI screens withdrawal addresses. *risk.Client satisfies it.
type riskAPI interface {
	Check(ctx context.Context, address string) (risk.Result, error)
}

// Button is one inline-keyboard button: label plus callback data.
type Button struct {
	Text string
	Data string
}

// Chat abstracts the messaging transport. *Telegram satisfies it; tests
// use an in-memory fake that records outgoing traffic.
type Chat interface {
	SendText(chatID int64, text string) error
	SendMarkdown(chatID int64, text string) error
	SendTextWithReplyKeyboard(chatID int64, text string, rows [][]string) error
	SendTextWithInlineKeyboard(chatID int64, text string, rows [][]Button) error
	SendPhoto(chatID int64, caption string, png []byte) error
	SendRemotePhoto(chatID int64, caption, url string) error
	SendLoading(chatID int64, text string) (messageID int, err error)
	DeleteMessage(chatID int64, messageID int) error
	AnswerCallback(callbackID string) error
}
