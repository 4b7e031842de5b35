package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	boterr "github.com/voidexchange/walletbot/internal/errors"
	"github.com/voidexchange/walletbot/internal/httpx"
)

// Client talks to the custodial wallet backend. Every endpoint wraps its
// payload in a {success, data, message} envelope; a 2xx response with
// success=false is still a backend failure.
type Client struct {
	http    *httpx.Client
	baseURL string
}

func New(httpClient *httpx.Client, baseURL string) *Client {
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type startSessionRequest struct {
	DeviceFingerprint string `json:"device_fingerprint"`
	DeviceName        string `json:"device_name"`
	DeviceUserName    string `json:"device_user_name"`
	DeviceOS          string `json:"device_os"`
	Platform          string `json:"platform"`
	BotVersion        string `json:"bot_version"`
	DurationInSeconds int    `json:"duration_in_seconds"`
	PublicKey         string `json:"public_key"`
}

// DeviceInfo identifies the machine requesting an authentication session so
// repeated attempts from the same device are recognized by the backend.
type DeviceInfo struct {
	Fingerprint string
	Hostname    string
	Username    string
	OS          string
	PublicKey   string
}

func (c *Client) StartAuthSession(ctx context.Context, device DeviceInfo, durationSeconds int) (AuthSessionStart, error) {
	payload, err := json.Marshal(startSessionRequest{
		DeviceFingerprint: device.Fingerprint,
		DeviceName:        device.Hostname,
		DeviceUserName:    device.Username,
		DeviceOS:          device.OS,
		Platform:          "bot",
		BotVersion:        "1.0.0",
		DurationInSeconds: durationSeconds,
		PublicKey:         device.PublicKey,
	})
	if err != nil {
		return AuthSessionStart{}, boterr.Wrap(boterr.CodeInternal, "encode session request", err)
	}

	var resp struct {
		Success bool             `json:"success"`
		Message string           `json:"message"`
		Data    AuthSessionStart `json:"data"`
	}
	endpoint := c.baseURL + "/authentication/session-requests/start"
	if _, err := httpx.DoBodyJSON(ctx, c.http, http.MethodPost, endpoint, payload, nil, &resp); err != nil {
		return AuthSessionStart{}, err
	}
	if !resp.Success {
		return AuthSessionStart{}, boterr.New(boterr.CodeAuth, backendMessage("authentication start failed", resp.Message))
	}
	if resp.Data.SessionRequestID == "" || resp.Data.VerificationCode == "" {
		return AuthSessionStart{}, boterr.New(boterr.CodeAuth, "authentication start returned incomplete session")
	}
	return resp.Data, nil
}

func (c *Client) AuthStatus(ctx context.Context, sessionRequestID string) (AuthStatus, error) {
	var resp struct {
		Success bool       `json:"success"`
		Message string     `json:"message"`
		Data    AuthStatus `json:"data"`
	}
	endpoint := fmt.Sprintf("%s/authentication/session-requests/status/%s", c.baseURL, url.PathEscape(sessionRequestID))
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return AuthStatus{}, err
	}
	if !resp.Success {
		return AuthStatus{}, boterr.New(boterr.CodeBackend, backendMessage("authentication status failed", resp.Message))
	}
	return resp.Data, nil
}

func (c *Client) Workspaces(ctx context.Context) ([]Workspace, error) {
	var resp struct {
		Success bool        `json:"success"`
		Message string      `json:"message"`
		Data    []Workspace `json:"data"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/workspaces", &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, boterr.New(boterr.CodeBackend, backendMessage("list workspaces failed", resp.Message))
	}
	return resp.Data, nil
}

func (c *Client) WorkspaceWallets(ctx context.Context, workspaceID string) ([]Wallet, error) {
	var resp struct {
		Success bool     `json:"success"`
		Message string   `json:"message"`
		Data    []Wallet `json:"data"`
	}
	endpoint := fmt.Sprintf("%s/workspaces/%s/wallets", c.baseURL, url.PathEscape(workspaceID))
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, boterr.New(boterr.CodeBackend, backendMessage("list wallets failed", resp.Message))
	}
	return resp.Data, nil
}

func (c *Client) Overview(ctx context.Context, walletID string) ([]Balance, error) {
	if walletID == "" {
		return nil, boterr.New(boterr.CodeState, "no wallet selected")
	}
	var resp struct {
		Success bool      `json:"success"`
		Message string    `json:"message"`
		Data    []Balance `json:"data"`
	}
	endpoint := fmt.Sprintf("%s/wallets/%s/overview?offset=0&limit=10", c.baseURL, url.PathEscape(walletID))
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, boterr.New(boterr.CodeBackend, backendMessage("wallet overview failed", resp.Message))
	}
	return resp.Data, nil
}

type withdrawalRequest struct {
	AssetID          string `json:"asset_id"`
	Amount           string `json:"amount"`
	RecipientAddress string `json:"recipient_address"`
}

// CreateWithdrawal submits a withdrawal of a human-readable decimal amount.
// The backend owns transaction construction; the returned status is usually
// pending co-signer approval.
func (c *Client) CreateWithdrawal(ctx context.Context, walletID, assetID, amount, recipientAddress string) (Withdrawal, error) {
	if walletID == "" {
		return Withdrawal{}, boterr.New(boterr.CodeState, "no wallet selected")
	}
	payload, err := json.Marshal(withdrawalRequest{
		AssetID:          assetID,
		Amount:           amount,
		RecipientAddress: recipientAddress,
	})
	if err != nil {
		return Withdrawal{}, boterr.Wrap(boterr.CodeInternal, "encode withdrawal request", err)
	}

	var resp struct {
		Success bool       `json:"success"`
		Message string     `json:"message"`
		Data    Withdrawal `json:"data"`
	}
	endpoint := fmt.Sprintf("%s/wallets/%s/withdrawal", c.baseURL, url.PathEscape(walletID))
	if _, err := httpx.DoBodyJSON(ctx, c.http, http.MethodPost, endpoint, payload, nil, &resp); err != nil {
		return Withdrawal{}, err
	}
	if !resp.Success {
		return Withdrawal{}, boterr.New(boterr.CodeBackend, backendMessage("create withdrawal failed", resp.Message))
	}
	return resp.Data, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return boterr.Wrap(boterr.CodeInternal, "build backend request", err)
	}
	_, err = c.http.DoJSON(ctx, req, out)
	return err
}

func backendMessage(fallback, message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return fallback
	}
	return fallback + ": " + message
}
