package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/dexiq/dexiq/internal/domain"
)

// AnalysisCache implements domain.AnalysisCache using Redis string keys with
// an explicit TTL. The key is (token id, reference price), so analyses
// anchored to different purchase prices are cached independently.
type AnalysisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewAnalysisCache creates an AnalysisCache backed by the given Client.
func NewAnalysisCache(c *Client, ttl time.Duration) *AnalysisCache {
	return &AnalysisCache{rdb: c.Underlying(), ttl: ttl}
}

func analysisKey(tokenID int64, referencePrice *decimal.Decimal) string {
	price := "none"
	if referencePrice != nil {
		price = referencePrice.String()
	}
	return fmt.Sprintf("analysis:%d:%s", tokenID, price)
}

// Get returns the cached analysis result, or domain.ErrNotFound on a miss or
// after expiry.
func (ac *AnalysisCache) Get(ctx context.Context, tokenID int64, referencePrice *decimal.Decimal) (domain.AnalysisResult, error) {
	key := analysisKey(tokenID, referencePrice)

	data, err := ac.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.AnalysisResult{}, domain.ErrNotFound
		}
		return domain.AnalysisResult{}, fmt.Errorf("redis: get analysis %s: %w", key, err)
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("redis: decode analysis %s: %w", key, err)
	}
	return result, nil
}

// Set stores an analysis result under the (token, reference price) key with
// the configured expiry.
func (ac *AnalysisCache) Set(ctx context.Context, tokenID int64, referencePrice *decimal.Decimal, result domain.AnalysisResult) error {
	key := analysisKey(tokenID, referencePrice)

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("redis: encode analysis %s: %w", key, err)
	}
	if err := ac.rdb.Set(ctx, key, data, ac.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set analysis %s: %w", key, err)
	}
	return nil
}
