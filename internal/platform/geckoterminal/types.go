package geckoterminal

import (
	"encoding/json"

	"github.com/dexiq/dexiq/internal/domain"
)

// poolInfoResponse is the /pools/{address}/info envelope. The data array
// lists the pair's tokens, base first.
type poolInfoResponse struct {
	Data []APITokenInfo `json:"data"`
}

// APITokenInfo is the raw GeckoTerminal token info record.
type APITokenInfo struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes struct {
		Address         string   `json:"address"`
		Name            string   `json:"name"`
		Symbol          string   `json:"symbol"`
		Decimals        *int     `json:"decimals"`
		CoingeckoCoinID string   `json:"coingecko_coin_id"`
		ImageURL        string   `json:"image_url"`
		Description     string   `json:"description"`
		GTScore         *float64 `json:"gt_score"`

		TwitterHandle  string `json:"twitter_handle"`
		DiscordURL     string `json:"discord_url"`
		TelegramHandle string `json:"telegram_handle"`

		Holders *struct {
			Count        *int `json:"count"`
			Distribution *struct {
				Top10      string `json:"top_10"`
				From11To20 string `json:"11_20"`
				From21To40 string `json:"21_40"`
				Rest       string `json:"rest"`
			} `json:"distribution_percentage"`
		} `json:"holders"`

		MintAuthority   string `json:"mint_authority"`
		FreezeAuthority string `json:"freeze_authority"`
	} `json:"attributes"`
}

// ToSnapshot converts the API record into a domain metadata snapshot with
// the given role.
func (t *APITokenInfo) ToSnapshot(tokenID int64, role domain.MetadataRole) domain.MetadataSnapshot {
	a := &t.Attributes
	snap := domain.MetadataSnapshot{
		TokenID:         tokenID,
		Role:            role,
		Address:         a.Address,
		Name:            a.Name,
		Symbol:          a.Symbol,
		Decimals:        a.Decimals,
		CoingeckoCoinID: a.CoingeckoCoinID,
		ImageLarge:      a.ImageURL,
		Description:     a.Description,
		TwitterHandle:   a.TwitterHandle,
		DiscordURL:      a.DiscordURL,
		TelegramHandle:  a.TelegramHandle,
		GTScore:         a.GTScore,
		MintAuthority:   a.MintAuthority,
		FreezeAuthority: a.FreezeAuthority,
	}

	if a.Holders != nil {
		snap.HoldersCount = a.Holders.Count
		if d := a.Holders.Distribution; d != nil {
			snap.HoldersTop10 = d.Top10
			snap.Holders11To20 = d.From11To20
			snap.Holders21To40 = d.From21To40
			snap.HoldersRest = d.Rest
		}
	}

	return snap
}

// ohlcvResponse is the /ohlcv/{timeframe} envelope. Each list entry is
// [timestamp, open, high, low, close, volume].
type ohlcvResponse struct {
	Data struct {
		Attributes struct {
			OhlcvList [][]json.Number `json:"ohlcv_list"`
		} `json:"attributes"`
	} `json:"data"`
}
