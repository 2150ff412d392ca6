// Package chains maps between the canonical chain identifiers used across
// the service and the network identifiers each external source expects.
package chains

import "strings"

// canonicalByAlias maps every known source-specific or colloquial network id
// to the single canonical identifier used in token identities.
var canonicalByAlias = map[string]string{
	"eth":                 "ethereum",
	"ethereum":            "ethereum",
	"bnb":                 "bsc",
	"bsc":                 "bsc",
	"binance-smart-chain": "bsc",
	"matic":               "polygon",
	"polygon":             "polygon",
	"arbitrum":            "arbitrum",
	"arbitrum-one":        "arbitrum",
	"optimism":            "optimism",
	"avax":                "avalanche",
	"avalanche":           "avalanche",
	"ftm":                 "fantom",
	"fantom":              "fantom",
	"sol":                 "solana",
	"solana":              "solana",
	"base":                "base",
}

// geckoByCanonical maps canonical identifiers to GeckoTerminal network ids.
var geckoByCanonical = map[string]string{
	"ethereum":  "eth",
	"bsc":       "bsc",
	"polygon":   "polygon",
	"arbitrum":  "arbitrum",
	"optimism":  "optimism",
	"avalanche": "avalanche",
	"fantom":    "fantom",
	"solana":    "solana",
	"base":      "base",
}

// Canonical normalizes any known network identifier to the canonical form.
// Unknown identifiers pass through lower-cased, unchanged.
func Canonical(id string) string {
	key := strings.ToLower(strings.TrimSpace(id))
	if canonical, ok := canonicalByAlias[key]; ok {
		return canonical
	}
	return key
}

// GeckoNetwork returns the GeckoTerminal network id for a chain. Input may be
// canonical or any known alias; unknown chains pass through lower-cased.
func GeckoNetwork(id string) string {
	canonical := Canonical(id)
	if gecko, ok := geckoByCanonical[canonical]; ok {
		return gecko
	}
	return canonical
}
