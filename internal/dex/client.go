package dex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	boterr "github.com/voidexchange/walletbot/internal/errors"
	"github.com/voidexchange/walletbot/internal/httpx"
	"github.com/voidexchange/walletbot/internal/metacache"
)

const (
	defaultSlippageBps  = 50
	defaultTxVersion    = "LEGACY"
	defaultMetadataTTL  = 24 * time.Hour
	metadataCachePrefix = "token-meta:"
)

// Client talks to the DEX aggregator: swap quotes, swap execution and token
// metadata. Metadata lookups go through an optional on-disk cache since mint
// records change rarely.
type Client struct {
	http      *httpx.Client
	swapBase  string
	tokenBase string
	meta      *metacache.Store
	metaTTL   time.Duration
}

func New(httpClient *httpx.Client, swapBase, tokenBase string, meta *metacache.Store) *Client {
	return &Client{
		http:      httpClient,
		swapBase:  strings.TrimRight(swapBase, "/"),
		tokenBase: strings.TrimRight(tokenBase, "/"),
		meta:      meta,
		metaTTL:   defaultMetadataTTL,
	}
}

// SetMetadataTTL overrides how long token metadata stays cached.
func (c *Client) SetMetadataTTL(ttl time.Duration) {
	if ttl > 0 {
		c.metaTTL = ttl
	}
}

// Quote is the aggregator's answer for an exact-input swap: the expected
// output in the destination token's smallest units.
type Quote struct {
	OutputAmount string
}

// SwapResult carries the transaction reference of an executed swap.
type SwapResult struct {
	TxID string
}

// TokenMetadata describes a mint. Decimals drive output-amount conversion.
type TokenMetadata struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int    `json:"decimals"`
}

type swapEnvelope struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
	Data    struct {
		OutputAmount json.Number `json:"outputAmount"`
		TxID         string      `json:"txId"`
	} `json:"data"`
}

// GetQuote fetches the expected output for swapping amountBaseUnits of
// inputMint into outputMint.
func (c *Client) GetQuote(ctx context.Context, inputMint, outputMint, amountBaseUnits string) (Quote, error) {
	vals := url.Values{}
	vals.Set("inputMint", inputMint)
	vals.Set("outputMint", outputMint)
	vals.Set("amount", amountBaseUnits)
	vals.Set("slippageBps", fmt.Sprintf("%d", defaultSlippageBps))
	vals.Set("txVersion", defaultTxVersion)

	endpoint := fmt.Sprintf("%s/compute/swap-base-in?%s", c.swapBase, vals.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, boterr.Wrap(boterr.CodeInternal, "build quote request", err)
	}

	var resp swapEnvelope
	if _, err := c.http.DoJSON(ctx, req, &resp); err != nil {
		return Quote{}, err
	}
	if !resp.Success {
		return Quote{}, boterr.New(boterr.CodeBackend, aggregatorMessage("swap quote failed", resp.Msg))
	}
	out := resp.Data.OutputAmount.String()
	if out == "" || out == "0" {
		return Quote{}, boterr.New(boterr.CodeBackend, "swap quote missing output amount")
	}
	return Quote{OutputAmount: out}, nil
}

type executeRequest struct {
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	Amount     string `json:"amount"`
	TxVersion  string `json:"txVersion"`
}

// ExecuteSwap submits the swap for the given raw input amount. Transaction
// construction and signing happen aggregator-side against the custodial
// wallet; only the resulting transaction id comes back.
func (c *Client) ExecuteSwap(ctx context.Context, inputMint, outputMint, amountBaseUnits string) (SwapResult, error) {
	payload, err := json.Marshal(executeRequest{
		InputMint:  inputMint,
		OutputMint: outputMint,
		Amount:     amountBaseUnits,
		TxVersion:  defaultTxVersion,
	})
	if err != nil {
		return SwapResult{}, boterr.Wrap(boterr.CodeInternal, "encode swap request", err)
	}

	var resp swapEnvelope
	endpoint := c.swapBase + "/transaction/swap-base-in"
	if _, err := httpx.DoBodyJSON(ctx, c.http, http.MethodPost, endpoint, payload, nil, &resp); err != nil {
		return SwapResult{}, err
	}
	if !resp.Success {
		return SwapResult{}, boterr.New(boterr.CodeBackend, aggregatorMessage("swap execution failed", resp.Msg))
	}
	if resp.Data.TxID == "" {
		return SwapResult{}, boterr.New(boterr.CodeBackend, "swap execution missing transaction id")
	}
	return SwapResult{TxID: resp.Data.TxID}, nil
}

// GetTokenMetadata resolves name, symbol and decimals for a mint, consulting
// the cache first. Callers decide how to degrade when this fails; the client
// itself never invents defaults.
func (c *Client) GetTokenMetadata(ctx context.Context, mintAddress string) (TokenMetadata, error) {
	cacheKey := metadataCachePrefix + mintAddress
	if cached, ok, err := c.meta.Get(cacheKey); err == nil && ok {
		var meta TokenMetadata
		if json.Unmarshal(cached, &meta) == nil && meta.Symbol != "" {
			return meta, nil
		}
	}

	endpoint := fmt.Sprintf("%s/tokens/v1/token/%s", c.tokenBase, url.PathEscape(mintAddress))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return TokenMetadata{}, boterr.Wrap(boterr.CodeInternal, "build metadata request", err)
	}

	var meta TokenMetadata
	if _, err := c.http.DoJSON(ctx, req, &meta); err != nil {
		return TokenMetadata{}, err
	}
	if meta.Symbol == "" {
		return TokenMetadata{}, boterr.New(boterr.CodeBackend, "token metadata missing symbol")
	}

	if encoded, err := json.Marshal(meta); err == nil {
		_ = c.meta.Set(cacheKey, encoded, c.metaTTL)
	}
	return meta, nil
}

func aggregatorMessage(fallback, msg string) string {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return fallback
	}
	return fallback + ": " + msg
}
