package risk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	boterr "github.com/voidexchange/walletbot/internal/errors"
	"github.com/voidexchange/walletbot/internal/httpx"
)

// Result is an address-reputation verdict. Category is bucketed locally from
// the numeric score; EvidenceURL points at a rendered report image when the
// service provides one.
type Result struct {
	Score       float64
	Category    string
	EvidenceURL string
}

const (
	CategoryLow    = "Low Risk"
	CategoryMedium = "Medium Risk"
	CategoryHigh   = "High Risk"

	lowThreshold    = 23
	mediumThreshold = 50
)

// Client queries the external address-reputation service. Failures here are
// never fatal to a send flow; callers degrade to a caution notice.
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

type checkResponse struct {
	RiskScore   float64 `json:"risk_score"`
	EvidenceURL string  `json:"evidence_url"`
}

func (c *Client) Check(ctx context.Context, address string) (Result, error) {
	endpoint := fmt.Sprintf("%s/check?address=%s", c.baseURL, url.QueryEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{}, boterr.Wrap(boterr.CodeInternal, "build risk check request", err)
	}

	var resp checkResponse
	if _, err := c.http.DoJSON(ctx, req, &resp); err != nil {
		return Result{}, err
	}
	return Result{
		Score:       resp.RiskScore,
		Category:    Categorize(resp.RiskScore),
		EvidenceURL: resp.EvidenceURL,
	}, nil
}

// Categorize buckets a numeric reputation score.
func Categorize(score float64) string {
	switch {
	case score <= lowThreshold:
		return CategoryLow
	case score <= mediumThreshold:
		return CategoryMedium
	default:
		return CategoryHigh
	}
}
