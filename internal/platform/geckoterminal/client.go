// Package geckoterminal is the REST client for the GeckoTerminal API, which
// provides the pool metadata and OHLCV candle sources of the ingestion
// pipeline.
package geckoterminal

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dexiq/dexiq/internal/domain"
)

// ClientConfig holds connection parameters for the GeckoTerminal client.
type ClientConfig struct {
	BaseURL        string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	RetryCount     int
}

// Client fetches pool metadata and OHLCV candles from GeckoTerminal. It is
// stateless and idempotent per call.
type Client struct {
	http *resty.Client
}

// NewClient creates a new GeckoTerminal client.
//
// baseURL is the API root, e.g. "https://api.geckoterminal.com/api/v2".
func NewClient(cfg ClientConfig) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.RequestTimeout).
		SetRetryCount(cfg.RetryCount).
		SetHeader("Accept", "application/json;version=20230302")

	if cfg.ConnectTimeout > 0 {
		httpClient.SetTransport(&http.Transport{
			DialContext: (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
		})
	}

	return &Client{http: httpClient}
}

// FetchPoolInfo returns metadata snapshots for both sides of a pool: the
// base token first, then the quote token when the API reports one. network
// must already be a GeckoTerminal network id (see the chains package).
// It returns domain.ErrNoData when the pool is unknown or reports no tokens.
func (c *Client) FetchPoolInfo(ctx context.Context, network, poolAddress string, tokenID int64) ([]domain.MetadataSnapshot, error) {
	var out poolInfoResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(fmt.Sprintf("/networks/%s/pools/%s/info", url.PathEscape(network), url.PathEscape(poolAddress)))
	if err != nil {
		return nil, fmt.Errorf("geckoterminal: get pool info %s/%s: %w", network, poolAddress, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, domain.ErrNoData
	}
	if resp.IsError() {
		return nil, fmt.Errorf("geckoterminal: get pool info %s/%s: unexpected status %d", network, poolAddress, resp.StatusCode())
	}
	if len(out.Data) == 0 {
		return nil, domain.ErrNoData
	}

	// The info endpoint lists the pair's tokens base first.
	snaps := make([]domain.MetadataSnapshot, 0, 2)
	snaps = append(snaps, out.Data[0].ToSnapshot(tokenID, domain.RoleBase))
	if len(out.Data) > 1 {
		snaps = append(snaps, out.Data[1].ToSnapshot(tokenID, domain.RoleQuote))
	}
	return snaps, nil
}

// OHLCVQuery bounds one candle fetch.
type OHLCVQuery struct {
	Spec domain.TimeframeSpec
	// FromTs requests candles strictly after this unix timestamp; 0 means
	// unbounded (full history up to the page limit).
	FromTs int64
	Limit  int
}

// FetchOHLCV returns candles for a pool and timeframe, oldest data the API
// has after the lower bound, newest first as delivered. It returns
// domain.ErrNoData when the API has no candles for the range.
func (c *Client) FetchOHLCV(ctx context.Context, network, poolAddress string, tokenID int64, q OHLCVQuery) ([]domain.Candle, error) {
	var out ohlcvResponse

	req := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetQueryParams(map[string]string{
			"aggregate":               strconv.Itoa(q.Spec.Aggregate),
			"before_timestamp":        strconv.FormatInt(time.Now().Unix(), 10),
			"limit":                   strconv.Itoa(q.Limit),
			"currency":                "usd",
			"token":                   "base",
			"include_empty_intervals": "false",
		})
	if q.FromTs > 0 {
		req.SetQueryParam("from_timestamp", strconv.FormatInt(q.FromTs, 10))
	}

	resp, err := req.Get(fmt.Sprintf("/networks/%s/pools/%s/ohlcv/%s",
		url.PathEscape(network), url.PathEscape(poolAddress), url.PathEscape(string(q.Spec.Timeframe))))
	if err != nil {
		return nil, fmt.Errorf("geckoterminal: get ohlcv %s/%s %s/%d: %w",
			network, poolAddress, q.Spec.Timeframe, q.Spec.Aggregate, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, domain.ErrNoData
	}
	if resp.IsError() {
		return nil, fmt.Errorf("geckoterminal: get ohlcv %s/%s %s/%d: unexpected status %d",
			network, poolAddress, q.Spec.Timeframe, q.Spec.Aggregate, resp.StatusCode())
	}

	list := out.Data.Attributes.OhlcvList
	if len(list) == 0 {
		return nil, domain.ErrNoData
	}

	candles := make([]domain.Candle, 0, len(list))
	for _, entry := range list {
		if len(entry) < 6 {
			continue
		}
		ts, err := entry[0].Int64()
		if err != nil {
			continue
		}
		c := domain.Candle{
			TokenID:   tokenID,
			Timeframe: q.Spec.Timeframe,
			Aggregate: q.Spec.Aggregate,
			Ts:        ts,
		}
		c.Open, _ = entry[1].Float64()
		c.High, _ = entry[2].Float64()
		c.Low, _ = entry[3].Float64()
		c.Close, _ = entry[4].Float64()
		c.Volume, _ = entry[5].Float64()
		candles = append(candles, c)
	}
	if len(candles) == 0 {
		return nil, domain.ErrNoData
	}
	return candles, nil
}
