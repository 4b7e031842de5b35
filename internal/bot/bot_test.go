package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/voidexchange/walletbot/internal/dex"
	"github.com/voidexchange/walletbot/internal/risk"
	"github.com/voidexchange/walletbot/internal/session"
	"github.com/voidexchange/walletbot/internal/viz"
	"github.com/voidexchange/walletbot/internal/wallet"
)

// fakeChat records outgoing traffic in memory.
type fakeChat struct {
	mu      sync.Mutex
	texts   []string
	inline  [][][]Button
	menus   [][][]string
	photos  []string
	remote  []string
	deleted []int
	nextID  int
}

func (c *fakeChat) record(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, text)
}

func (c *fakeChat) SendText(chatID int64, text string) error     { c.record(text); return nil }
func (c *fakeChat) SendMarkdown(chatID int64, text string) error { c.record(text); return nil }

func (c *fakeChat) SendTextWithReplyKeyboard(chatID int64, text string, rows [][]string) error {
	c.mu.Lock()
	c.menus = append(c.menus, rows)
	c.mu.Unlock()
	c.record(text)
	return nil
}

func (c *fakeChat) SendTextWithInlineKeyboard(chatID int64, text string, rows [][]Button) error {
	c.mu.Lock()
	c.inline = append(c.inline, rows)
	c.mu.Unlock()
	c.record(text)
	return nil
}

func (c *fakeChat) SendPhoto(chatID int64, caption string, png []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.photos = append(c.photos, caption)
	return nil
}

func (c *fakeChat) SendRemotePhoto(chatID int64, caption, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remote = append(c.remote, caption+" "+url)
	return nil
}

func (c *fakeChat) SendLoading(chatID int64, text string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	return c.nextID, nil
}

func (c *fakeChat) DeleteMessage(chatID int64, messageID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, messageID)
	return nil
}

func (c *fakeChat) AnswerCallback(callbackID string) error { return nil }

func (c *fakeChat) allText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.texts, "\n")
}

func (c *fakeChat) lastInline() [][]Button {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inline) == 0 {
		return nil
	}
	return c.inline[len(c.inline)-1]
}

func (c *fakeChat) waitFor(t *testing.T, substr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(c.allText(), substr) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("never saw %q in chat output:\n%s", substr, c.allText())
}

type withdrawalCall struct {
	walletID  string
	assetID   string
	amount    string
	recipient string
}

type fakeWallets struct {
	mu            sync.Mutex
	overview      []wallet.Balance
	overviewErr   error
	overviewCalls int
	withdrawals   []withdrawalCall
	withdrawal    wallet.Withdrawal
	withdrawErr   error
}

func (w *fakeWallets) Overview(ctx context.Context, walletID string) ([]wallet.Balance, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.overviewCalls++
	return w.overview, w.overviewErr
}

func (w *fakeWallets) CreateWithdrawal(ctx context.Context, walletID, assetID, amount, recipientAddress string) (wallet.Withdrawal, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.withdrawals = append(w.withdrawals, withdrawalCall{walletID, assetID, amount, recipientAddress})
	return w.withdrawal, w.withdrawErr
}

type fakeIdentity struct {
	mu          sync.Mutex
	authed      bool
	workspaceID string
	walletID    string

	start    wallet.AuthSessionStart
	startErr error
	pollErr  error
	pollGate chan struct{}

	workspaces []wallet.Workspace
	wallets    []wallet.Wallet
}

func (f *fakeIdentity) Start(ctx context.Context) (wallet.AuthSessionStart, error) {
	return f.start, f.startErr
}

func (f *fakeIdentity) Poll(ctx context.Context, sessionRequestID string, onComplete func(string)) error {
	if f.pollGate != nil {
		select {
		case <-f.pollGate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.pollErr == nil {
		f.mu.Lock()
		f.authed = true
		f.mu.Unlock()
	}
	return f.pollErr
}

func (f *fakeIdentity) IsAuthenticated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authed
}

func (f *fakeIdentity) CurrentWalletID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.walletID
}

func (f *fakeIdentity) CurrentWorkspaceID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.workspaceID
}

func (f *fakeIdentity) SetCurrentWorkspace(workspaceID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.workspaceID = workspaceID
}

func (f *fakeIdentity) SetCurrentWalletID(walletID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.walletID = walletID
}

func (f *fakeIdentity) Logout() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authed = false
	f.workspaceID = ""
	f.walletID = ""
}

func (f *fakeIdentity) Workspaces(ctx context.Context) ([]wallet.Workspace, error) {
	return f.workspaces, nil
}

func (f *fakeIdentity) WorkspaceWallets(ctx context.Context, workspaceID string) ([]wallet.Wallet, error) {
	return f.wallets, nil
}

type executeCall struct {
	inputMint  string
	outputMint string
	amount     string
}

type fakeDex struct {
	mu         sync.Mutex
	quote      dex.Quote
	quoteErr   error
	quoteCalls []executeCall
	result     dex.SwapResult
	execErr    error
	execCalls  []executeCall
	meta       map[string]dex.TokenMetadata
	metaErr    error
}

func (d *fakeDex) GetQuote(ctx context.Context, inputMint, outputMint, amountBaseUnits string) (dex.Quote, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.quoteCalls = append(d.quoteCalls, executeCall{inputMint, outputMint, amountBaseUnits})
	return d.quote, d.quoteErr
}

func (d *fakeDex) ExecuteSwap(ctx context.Context, inputMint, outputMint, amount string) (dex.SwapResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.execCalls = append(d.execCalls, executeCall{inputMint, outputMint, amount})
	return d.result, d.execErr
}

func (d *fakeDex) GetTokenMetadata(ctx context.Context, mintAddress string) (dex.TokenMetadata, error) {
	if d.metaErr != nil {
		return dex.TokenMetadata{}, d.metaErr
	}
	if m, ok := d.meta[mintAddress]; ok {
		return m, nil
	}
	return dex.TokenMetadata{Symbol: "UNK", Name: "Unknown", Decimals: 9}, nil
}

type fakeRisk struct {
	result risk.Result
	err    error
	calls  int
}

func (r *fakeRisk) Check(ctx context.Context, address string) (risk.Result, error) {
	r.calls++
	return r.result, r.err
}

type fixture struct {
	bot      *Bot
	chat     *fakeChat
	wallets  *fakeWallets
	identity *fakeIdentity
	swaps    *fakeDex
	risks    *fakeRisk
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	chat := &fakeChat{}
	wallets := &fakeWallets{withdrawal: wallet.Withdrawal{ID: "wd-1", Status: "pending"}}
	identity := &fakeIdentity{authed: true, workspaceID: "ws-1", walletID: "w1"}
	swaps := &fakeDex{result: dex.SwapResult{TxID: "tx-abc"}}
	risks := &fakeRisk{result: risk.Result{Score: 10, Category: risk.CategoryLow}}

	b := New(chat, wallets, identity, swaps, risks, Options{
		Logger: slog.New(slog.DiscardHandler),
	})
	fakePNG := []byte{0x89, 'P', 'N', 'G'}
	b.renderBalance = func(float64) ([]byte, error) { return fakePNG, nil }
	b.renderAllocation = func([]viz.AllocationSlice) ([]byte, error) { return fakePNG, nil }
	b.renderQR = func(string) ([]byte, error) { return fakePNG, nil }

	return &fixture{bot: b, chat: chat, wallets: wallets, identity: identity, swaps: swaps, risks: risks}
}

func solOverview() []wallet.Balance {
	return []wallet.Balance{
		{
			AvailableBalance: "125",
			ValueUSD:         "8750.00",
			PriceUSD:         "70",
			Asset:            wallet.Asset{ID: "asset-sol", Name: "Solana", Symbol: "SOL", Decimals: 9},
		},
		{
			AvailableBalance: "0",
			ValueUSD:         "0",
			Asset:            wallet.Asset{ID: "asset-usdc", Name: "USD Coin", Symbol: "USDC", Decimals: 6},
		},
	}
}

const testAddress = "4Nd1mYuKZJzVtCAhmkdXKfmZGqDsT2hB7rQwWpPxXcVA"

func TestStartShowsMainMenuWhenAuthenticated(t *testing.T) {
	f := newFixture(t)
	f.bot.HandleMessage(context.Background(), 1, "/start")
	if !strings.Contains(f.chat.allText(), "Welcome") {
		t.Fatalf("missing welcome text:\n%s", f.chat.allText())
	}
	f.chat.mu.Lock()
	defer f.chat.mu.Unlock()
	if len(f.chat.menus) == 0 {
		t.Fatal("no reply keyboard sent")
	}
}

func TestWalletOperationsGatedWhenUnauthenticated(t *testing.T) {
	f := newFixture(t)
	f.identity.authed = false
	f.identity.walletID = ""

	f.bot.HandleMessage(context.Background(), 1, btnSend)
	if !strings.Contains(f.chat.allText(), "connect your wallet") {
		t.Fatalf("expected connect prompt:\n%s", f.chat.allText())
	}
	if f.wallets.overviewCalls != 0 {
		t.Fatal("overview must not be called before authentication")
	}
}

func TestUnknownStepFallbackResets(t *testing.T) {
	f := newFixture(t)
	f.bot.sessions.Put(1, &session.Session{Step: session.Step("confirm_teleport")})

	f.bot.HandleMessage(context.Background(), 1, "anything")
	if f.bot.sessions.Get(1) != nil {
		t.Fatal("session should be cleared by fallback")
	}
	if !strings.Contains(f.chat.allText(), "start over") {
		t.Fatalf("expected fallback notice:\n%s", f.chat.allText())
	}
}

func TestResetCommandClearsStateAndLogsOut(t *testing.T) {
	f := newFixture(t)
	f.bot.sessions.Put(1, &session.Session{Step: session.StepEnterAmount})
	f.bot.sessions.PutSelections(1, map[string]session.AssetRef{"asset_0": {ID: "a"}})

	f.bot.HandleMessage(context.Background(), 1, "/reset")
	if f.bot.sessions.Get(1) != nil {
		t.Fatal("session survived /reset")
	}
	if _, ok := f.bot.sessions.ResolveSelection(1, "asset_0"); ok {
		t.Fatal("selections survived /reset")
	}
	if f.identity.IsAuthenticated() {
		t.Fatal("identity survived /reset")
	}
	if f.identity.CurrentWalletID() != "" {
		t.Fatal("wallet selection survived /reset")
	}
}

func TestStartAbandonsActiveFlow(t *testing.T) {
	f := newFixture(t)
	f.bot.sessions.Put(1, &session.Session{Step: session.StepEnterAddress})
	f.bot.sessions.PutSelections(1, map[string]session.AssetRef{"asset_0": {ID: "a"}})

	f.bot.HandleMessage(context.Background(), 1, "/start")
	if f.bot.sessions.Get(1) != nil {
		t.Fatal("session survived /start")
	}
	if _, ok := f.bot.sessions.ResolveSelection(1, "asset_0"); ok {
		t.Fatal("selections survived /start")
	}
	// The identity is untouched: /start only abandons the flow.
	if !f.identity.IsAuthenticated() {
		t.Fatal("/start must not log the identity out")
	}
}

func TestLogoutClearsIdentityAndShowsConnectMenu(t *testing.T) {
	f := newFixture(t)
	f.bot.HandleMessage(context.Background(), 1, btnLogout)

	if f.identity.IsAuthenticated() {
		t.Fatal("logout did not clear authentication")
	}
	f.chat.mu.Lock()
	defer f.chat.mu.Unlock()
	last := f.chat.menus[len(f.chat.menus)-1]
	if len(last) != 1 || len(last[0]) != 1 || last[0][0] != btnConnectWallet {
		t.Fatalf("expected connect-only keyboard, got %v", last)
	}
}

func TestFreeTextOutsideFlowIgnored(t *testing.T) {
	f := newFixture(t)
	f.bot.HandleMessage(context.Background(), 1, "hello there")
	if got := f.chat.allText(); got != "" {
		t.Fatalf("expected silence, got:\n%s", got)
	}
}

func TestPerChatStateIsolated(t *testing.T) {
	f := newFixture(t)
	f.wallets.overview = solOverview()

	f.bot.HandleMessage(context.Background(), 1, btnSend)
	if f.bot.sessions.Get(2) != nil {
		t.Fatal("chat 2 must not see chat 1's session")
	}
	if sess := f.bot.sessions.Get(1); sess == nil || sess.Step != session.StepSelectAsset {
		t.Fatalf("chat 1 session missing or wrong: %+v", f.bot.sessions.Get(1))
	}
}
