// Package dexscreener is the REST client for the DexScreener pair API, the
// ticker source of the ingestion pipeline.
package dexscreener

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dexiq/dexiq/internal/domain"
)

// ClientConfig holds connection parameters for the DexScreener client.
type ClientConfig struct {
	BaseURL        string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	RetryCount     int
}

// Client fetches pair ticker data from DexScreener. It is stateless and
// idempotent per call; retry/backoff is delegated to resty.
type Client struct {
	http *resty.Client
}

// NewClient creates a new DexScreener client.
//
// baseURL is the API root, e.g. "https://api.dexscreener.com/latest/dex".
func NewClient(cfg ClientConfig) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.RequestTimeout).
		SetRetryCount(cfg.RetryCount).
		SetHeader("Accept", "application/json")

	if cfg.ConnectTimeout > 0 {
		httpClient.SetTransport(&http.Transport{
			DialContext: (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
		})
	}

	return &Client{http: httpClient}
}

// FetchPair returns the ticker record for a pair, identified by the
// DexScreener chain id and pair address. It returns domain.ErrNoData when
// DexScreener does not know the pair.
func (c *Client) FetchPair(ctx context.Context, chainID, pairAddress string) (*APIPair, error) {
	var out pairsResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(fmt.Sprintf("/pairs/%s/%s", url.PathEscape(chainID), url.PathEscape(pairAddress)))
	if err != nil {
		return nil, fmt.Errorf("dexscreener: get pair %s/%s: %w", chainID, pairAddress, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, domain.ErrNoData
	}
	if resp.IsError() {
		return nil, fmt.Errorf("dexscreener: get pair %s/%s: unexpected status %d", chainID, pairAddress, resp.StatusCode())
	}

	if out.Pair != nil {
		return out.Pair, nil
	}
	if len(out.Pairs) > 0 {
		return &out.Pairs[0], nil
	}
	return nil, domain.ErrNoData
}

// FetchSnapshot fetches the pair and converts it to a domain ticker snapshot
// for the given token.
func (c *Client) FetchSnapshot(ctx context.Context, chainID, pairAddress string, tokenID int64) (domain.TickerSnapshot, error) {
	pair, err := c.FetchPair(ctx, chainID, pairAddress)
	if err != nil {
		return domain.TickerSnapshot{}, err
	}
	return pair.ToSnapshot(tokenID), nil
}
