package analyzer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"JournalSync/internal/domain"
	"JournalSync/internal/ports"
	"JournalSync/internal/textnorm"
)

// DefaultCacheTTL is how long provider results stay cached.
const DefaultCacheTTL = 24 * time.Hour

// CachedProvider is a cache-aside decorator around an AnalysisProvider.
//
// Cache misses and cache backend failures fall through to the live provider;
// the cache never fails a request. Concurrent misses for the same key share
// one provider call.
type CachedProvider struct {
	inner  ports.AnalysisProvider
	cache  ports.AnalysisCache
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

var _ ports.AnalysisProvider = (*CachedProvider)(nil)

// NewCachedProvider wraps inner with cache; ttl defaults to 24h.
func NewCachedProvider(inner ports.AnalysisProvider, cache ports.AnalysisCache, ttl time.Duration, logger *slog.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedProvider{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

// Name reports the wrapped provider's name.
func (p *CachedProvider) Name() string {
	return p.inner.Name()
}

// Analyze serves a single-entry request from cache when possible.
func (p *CachedProvider) Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.Analysis, error) {
	key := CacheKey(domain.KindEntry, req.Text)

	var cached domain.Analysis
	if p.load(ctx, key, &cached) {
		return cached, nil
	}

	v, err, _ := p.group.Do(key, func() (any, error) {
		result, err := p.inner.Analyze(ctx, req)
		if err != nil {
			return nil, err
		}
		p.store(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return domain.Analysis{}, err
	}
	result, ok := v.(domain.Analysis)
	if !ok {
		return domain.Analysis{}, fmt.Errorf("unexpected cached result type %T", v)
	}
	return result, nil
}

// AnalyzeBatch caches the whole batch result under one key.
func (p *CachedProvider) AnalyzeBatch(ctx context.Context, reqs []domain.AnalysisRequest) ([]domain.Analysis, error) {
	texts := make([]string, len(reqs))
	for i, req := range reqs {
		texts[i] = req.Text
	}
	key := CacheKey(domain.KindBatch, texts...)

	var cached []domain.Analysis
	if p.load(ctx, key, &cached) && len(cached) == len(reqs) {
		return cached, nil
	}

	v, err, _ := p.group.Do(key, func() (any, error) {
		results, err := p.inner.AnalyzeBatch(ctx, reqs)
		if err != nil {
			return nil, err
		}
		p.store(ctx, key, results)
		return results, nil
	})
	if err != nil {
		return nil, err
	}
	results, ok := v.([]domain.Analysis)
	if !ok {
		return nil, fmt.Errorf("unexpected cached result type %T", v)
	}
	return results, nil
}

func (p *CachedProvider) load(ctx context.Context, key string, dst any) bool {
	if p.cache == nil {
		return false
	}
	raw, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		p.logger.Warn("analysis cache read failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		p.logger.Warn("analysis cache entry unreadable", "key", key, "error", err)
		return false
	}
	return true
}

func (p *CachedProvider) store(ctx context.Context, key string, value any) {
	if p.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		p.logger.Warn("analysis cache encode failed", "key", key, "error", err)
		return
	}
	if err := p.cache.Set(ctx, key, raw, p.ttl); err != nil {
		p.logger.Warn("analysis cache write failed", "key", key, "error", err)
	}
}

// CacheKey hashes the request kind and the normalized texts.
func CacheKey(kind domain.AnalysisKind, texts ...string) string {
	h := sha256.New()
	h.Write([]byte(kind))
	for _, text := range texts {
		h.Write([]byte{0})
		h.Write([]byte(textnorm.Clean(text)))
	}
	return "analysis:" + string(kind) + ":" + hex.EncodeToString(h.Sum(nil))
}
