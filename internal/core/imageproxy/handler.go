package imageproxy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultCacheTTL     = 24 * time.Hour
	defaultFetchTimeout = 15 * time.Second
	maxImageSize        = 10 << 20
	contentTypeSep      = "\n"
)

// Cache хранит скачанные картинки. Реализация по умолчанию - Redis.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type RedisCache struct {
	rdb redis.UniversalClient
}

func NewRedisCache(rdb redis.UniversalClient) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

type HandlerConfig struct {
	CacheTTL     time.Duration
	FetchTimeout time.Duration
}

// Handler отдаёт картинку по токену: GET /img/{token}. Любая ошибка - 404,
// чтобы по ответу нельзя было отличить битый токен от недоступного источника.
type Handler struct {
	tokens *Tokens
	cache  Cache
	http   *resty.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewHandler: cache может быть nil, тогда картинка каждый раз скачивается заново.
func NewHandler(tokens *Tokens, cache Cache, cfg HandlerConfig, log *zap.Logger) *Handler {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	return &Handler{
		tokens: tokens,
		cache:  cache,
		http:   resty.New().SetTimeout(cfg.FetchTimeout).SetRetryCount(0).SetResponseBodyLimit(maxImageSize),
		ttl:    cfg.CacheTTL,
		log:    log.Named("imageproxy"),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		token = strings.TrimPrefix(r.URL.Path, "/img/")
	}

	payload, err := h.tokens.Resolve(token)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	body, contentType, err := h.load(r.Context(), payload.URL)
	if err != nil {
		h.log.Warn("Failed to proxy image", zap.Int64("product_id", payload.ProductID),
			zap.Int64("image_id", payload.ImageID), zap.Error(err))
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(h.ttl.Seconds())))
	w.Write(body)
}

func (h *Handler) load(ctx context.Context, source string) ([]byte, string, error) {
	key := cacheKey(source)
	if h.cache != nil {
		if cached, ok, err := h.cache.Get(ctx, key); err != nil {
			h.log.Debug("Image cache read failed", zap.Error(err))
		} else if ok {
			if ct, body, found := strings.Cut(string(cached), contentTypeSep); found {
				return []byte(body), ct, nil
			}
		}
	}

	resp, err := h.http.R().SetContext(ctx).Get(source)
	if err != nil {
		return nil, "", err
	}
	if resp.IsError() {
		return nil, "", fmt.Errorf("source responded %s", resp.Status())
	}
	body := resp.Body()
	if len(body) > maxImageSize {
		return nil, "", fmt.Errorf("image is too large: %d bytes", len(body))
	}

	contentType := resp.Header().Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", fmt.Errorf("source returned %s, not an image", contentType)
	}

	if h.cache != nil {
		entry := append([]byte(contentType+contentTypeSep), body...)
		if err := h.cache.Set(ctx, key, entry, h.ttl); err != nil {
			h.log.Debug("Image cache write failed", zap.Error(err))
		}
	}
	return body, contentType, nil
}

func cacheKey(source string) string {
	sum := sha256.Sum256([]byte(source))
	return "img:" + hex.EncodeToString(sum[:])
}
