package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	boterr "github.com/voidexchange/walletbot/internal/errors"
	"github.com/voidexchange/walletbot/internal/wallet"
)

// Backend is the slice of the wallet API the coordinator needs.
type Backend interface {
	StartAuthSession(ctx context.Context, device wallet.DeviceInfo, durationSeconds int) (wallet.AuthSessionStart, error)
	AuthStatus(ctx context.Context, sessionRequestID string) (wallet.AuthStatus, error)
	Workspaces(ctx context.Context) ([]wallet.Workspace, error)
	WorkspaceWallets(ctx context.Context, workspaceID string) ([]wallet.Wallet, error)
}

// TokenSink receives the decrypted bearer token. *httpx.Client satisfies it.
type TokenSink interface {
	SetBearerToken(token string)
}

type Options struct {
	DataDir         string
	PollInterval    time.Duration
	PollTimeout     time.Duration
	SessionDuration time.Duration
	Logger          *slog.Logger
}

// Coordinator owns the device keypair and the process identity state: the
// bearer token plus the currently selected workspace and wallet. It is an
// explicit object rather than package globals so tests can run several
// identities side by side.
type Coordinator struct {
	backend Backend
	tokens  TokenSink
	logger  *slog.Logger

	dataDir         string
	pollInterval    time.Duration
	pollTimeout     time.Duration
	sessionDuration time.Duration

	mu          sync.RWMutex
	key         *rsa.PrivateKey
	publicKey   string
	accessToken string
	workspaceID string
	walletID    string
}

func NewCoordinator(backend Backend, tokens TokenSink, opts Options) *Coordinator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 10 * time.Minute
	}
	if opts.SessionDuration <= 0 {
		opts.SessionDuration = 24 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Coordinator{
		backend:         backend,
		tokens:          tokens,
		logger:          opts.Logger,
		dataDir:         opts.DataDir,
		pollInterval:    opts.PollInterval,
		pollTimeout:     opts.PollTimeout,
		sessionDuration: opts.SessionDuration,
	}
}

// Start submits a session request and returns the id to poll on plus the
// verification code shown to the user.
func (c *Coordinator) Start(ctx context.Context) (wallet.AuthSessionStart, error) {
	if err := c.ensureKeys(); err != nil {
		return wallet.AuthSessionStart{}, err
	}

	c.mu.RLock()
	publicKey := c.publicKey
	c.mu.RUnlock()

	device := wallet.DeviceInfo{
		Fingerprint: Fingerprint(),
		Hostname:    hostname(),
		Username:    username(),
		OS:          runtime.GOOS,
		PublicKey:   publicKey,
	}
	return c.backend.StartAuthSession(ctx, device, int(c.sessionDuration.Seconds()))
}

// Poll queries session-request status until the handshake completes, the
// context is cancelled, or the poll timeout elapses. Transient backend
// failures and decrypt failures are logged and polling continues; only
// cancellation and timeout are terminal.
func (c *Coordinator) Poll(ctx context.Context, sessionRequestID string, onComplete func(token string)) error {
	ctx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		done, err := c.checkOnce(ctx, sessionRequestID, onComplete)
		if done {
			return err
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return boterr.New(boterr.CodeAuth, "authentication session expired")
			}
			return boterr.Wrap(boterr.CodeAuth, "authentication polling cancelled", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Coordinator) checkOnce(ctx context.Context, sessionRequestID string, onComplete func(token string)) (bool, error) {
	status, err := c.backend.AuthStatus(ctx, sessionRequestID)
	if err != nil {
		if ctx.Err() != nil {
			return false, nil
		}
		c.logger.Warn("auth status check failed", "session_request_id", sessionRequestID, "error", err)
		return false, nil
	}
	if status.Status != wallet.StatusCompleted || status.EncryptedKey == "" || status.AccessToken == "" {
		return false, nil
	}

	c.mu.RLock()
	key := c.key
	c.mu.RUnlock()
	if key == nil {
		return true, boterr.New(boterr.CodeState, "device keypair not initialized")
	}

	token, err := DecryptTokenPayload(key, status.EncryptedKey, status.AccessToken)
	if err != nil {
		c.logger.Warn("token decrypt failed, continuing to poll", "error", err)
		return false, nil
	}

	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
	c.tokens.SetBearerToken(token)
	c.logger.Info("wallet authentication completed", "session_request_id", sessionRequestID)

	if onComplete != nil {
		onComplete(token)
	}
	return true, nil
}

func (c *Coordinator) ensureKeys() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.key != nil {
		return nil
	}
	key, publicKey, err := LoadOrCreateKeys(c.dataDir)
	if err != nil {
		return err
	}
	c.key = key
	c.publicKey = publicKey
	return nil
}

func (c *Coordinator) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken != ""
}

func (c *Coordinator) CurrentWalletID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.walletID
}

func (c *Coordinator) CurrentWorkspaceID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.workspaceID
}

func (c *Coordinator) SetCurrentWorkspace(workspaceID string) {
	c.mu.Lock()
	c.workspaceID = workspaceID
	c.mu.Unlock()
}

func (c *Coordinator) SetCurrentWalletID(walletID string) {
	c.mu.Lock()
	c.walletID = walletID
	c.mu.Unlock()
}

// Logout clears the token, workspace and wallet selection. Idempotent.
func (c *Coordinator) Logout() {
	c.mu.Lock()
	c.accessToken = ""
	c.workspaceID = ""
	c.walletID = ""
	c.mu.Unlock()
	c.tokens.SetBearerToken("")
}

func (c *Coordinator) Workspaces(ctx context.Context) ([]wallet.Workspace, error) {
	return c.backend.Workspaces(ctx)
}

func (c *Coordinator) WorkspaceWallets(ctx context.Context, workspaceID string) ([]wallet.Wallet, error) {
	return c.backend.WorkspaceWallets(ctx, workspaceID)
}
