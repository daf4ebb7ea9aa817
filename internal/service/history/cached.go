package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"PriceCast/internal/domain/models"
	drepo "PriceCast/internal/domain/repository"
	"PriceCast/internal/service/cache"
	applogger "PriceCast/pkg/logger"
)

// CachedProvider caches raw history from an upstream provider. Concurrent
// misses for the same key share one upstream call. Cache failures are logged
// and never fail the request.
type CachedProvider struct {
	upstream drepo.HistoryProvider
	cache    cache.BytesCache
	ttl      time.Duration
	l        *applogger.Logger
	group    singleflight.Group
}

var _ drepo.HistoryProvider = (*CachedProvider)(nil)

func NewCachedProvider(upstream drepo.HistoryProvider, c cache.BytesCache, ttl time.Duration, l *applogger.Logger) *CachedProvider {
	if l == nil {
		l = applogger.Nop()
	}
	return &CachedProvider{upstream: upstream, cache: c, ttl: ttl, l: l}
}

func cacheKey(symbol string, p drepo.Period) string {
	return fmt.Sprintf("history:%s:%s", symbol, p)
}

func (p *CachedProvider) GetDailyHistory(ctx context.Context, symbol, period string) ([]models.PriceRecord, error) {
	key := cacheKey(symbol, drepo.NormalizePeriod(period))

	if b, ok, err := p.cache.GetBytes(ctx, key); err != nil {
		p.l.Warn("history cache read failed", applogger.String("key", key), applogger.Error(err))
	} else if ok {
		var recs []models.PriceRecord
		if err := json.Unmarshal(b, &recs); err == nil {
			return recs, nil
		}
		p.l.Warn("history cache entry corrupt", applogger.String("key", key))
	}

	v, err, _ := p.group.Do(key, func() (interface{}, error) {
		recs, err := p.upstream.GetDailyHistory(ctx, symbol, period)
		if err != nil {
			return nil, err
		}
		if b, err := json.Marshal(recs); err == nil {
			if err := p.cache.SetBytes(ctx, key, b, p.ttl); err != nil {
				p.l.Warn("history cache write failed", applogger.String("key", key), applogger.Error(err))
			}
		}
		return recs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.PriceRecord), nil
}
