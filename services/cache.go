package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"wardrobeapi/outfits"
	"wardrobeapi/tagutil"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
	"go.uber.org/zap"
)

// slightly less than presignedURLExpiration
const readURLCacheTTL = 12 * time.Minute

const tipsCacheTTL = time.Hour

func newRistrettoStore(maxCost int64) (*ristretto_store.RistrettoStore, error) {
	ristrettoCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxCost * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}
	return ristretto_store.NewRistretto(ristrettoCache), nil
}

type URLCacheServiceProvider interface {
	GetReadURL(ctx context.Context, objectKey string) (string, error)
}

// URLCacheService caches presigned read links for clothing images.
type URLCacheService struct {
	cache *cache.LoadableCache[string]
}

func NewURLCacheService(awsService AWSServiceProvider, bucketName string, logger *zap.SugaredLogger) (*URLCacheService, error) {
	ristrettoStore, err := newRistrettoStore(1 << 20)
	if err != nil {
		return nil, err
	}
	load := func(ctx context.Context, key any) (string, []store.Option, error) {
		objectKey, ok := key.(string)
		if !ok {
			return "", nil, fmt.Errorf("invalid key type provided to URL cache: expected string, got %T", key)
		}
		logger.Debugw("read url cache miss", "key", objectKey)
		url, err := awsService.GetPresignedR2FileReadURL(ctx, bucketName, objectKey)
		return url, []store.Option{store.WithExpiration(readURLCacheTTL)}, err
	}
	return &URLCacheService{
		cache: cache.NewLoadable[string](load, cache.New[string](ristrettoStore)),
	}, nil
}

func (s *URLCacheService) GetReadURL(ctx context.Context, objectKey string) (string, error) {
	if objectKey == "" {
		return "", nil
	}
	return s.cache.Get(ctx, objectKey)
}

// CachedTipSource memoizes tip lookups of another TipSource per query.
type CachedTipSource struct {
	cache *cache.LoadableCache[[]outfits.Tip]
}

func NewCachedTipSource(source outfits.TipSource, logger *zap.SugaredLogger) (*CachedTipSource, error) {
	ristrettoStore, err := newRistrettoStore(1 << 16)
	if err != nil {
		return nil, err
	}
	load := func(ctx context.Context, key any) ([]outfits.Tip, []store.Option, error) {
		raw, ok := key.(string)
		if !ok {
			return nil, nil, fmt.Errorf("invalid key type provided to tips cache: expected string, got %T", key)
		}
		var query outfits.TipQuery
		if err := json.Unmarshal([]byte(raw), &query); err != nil {
			return nil, nil, fmt.Errorf("decode tips cache key: %w", err)
		}
		logger.Debugw("tips cache miss", "age_category", query.AgeCategory, "styles", query.Styles)
		tips, err := source.Tips(ctx, query)
		return tips, []store.Option{store.WithExpiration(tipsCacheTTL), store.WithCost(int64(len(tips)) + 1)}, err
	}
	return &CachedTipSource{
		cache: cache.NewLoadable[[]outfits.Tip](load, cache.New[[]outfits.Tip](ristrettoStore)),
	}, nil
}

func (s *CachedTipSource) Tips(ctx context.Context, query outfits.TipQuery) ([]outfits.Tip, error) {
	return s.cache.Get(ctx, tipsCacheKey(query))
}

// tipsCacheKey is order insensitive so equivalent queries share an entry.
func tipsCacheKey(query outfits.TipQuery) string {
	normalized := outfits.TipQuery{
		AgeCategory: query.AgeCategory,
		Gender:      tagutil.NormalizeTag(query.Gender),
		Styles:      tagutil.NormalizeTags(query.Styles),
		Seasons:     tagutil.NormalizeTags(query.Seasons),
	}
	sort.Strings(normalized.Styles)
	sort.Strings(normalized.Seasons)
	raw, _ := json.Marshal(normalized)
	return string(raw)
}
