package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/ignatzorin/cityfix-backend/internal/logger"
)

const limiterPrefix = "cityfix:limiter"

// NewLimiterStore возвращает общий Redis store, если задан redisURL, иначе
// хранилище в памяти процесса (счётчики не разделяются между инстансами).
func NewLimiterStore(redisURL string) (limiter.Store, func() error, error) {
	if redisURL == "" {
		return memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: limiterPrefix}), func() error { return nil }, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("rate limit: некорректный REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: limiterPrefix})
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("rate limit: не удалось подключиться к redis: %w", err)
	}
	return store, client.Close, nil
}

// RateLimitMiddleware ограничивает количество запросов с одного IP.
// name отделяет счётчики разных лимитов в общем хранилище.
func RateLimitMiddleware(store limiter.Store, name string, limit int64, period time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		limit = 10
	}
	if period <= 0 {
		period = time.Minute
	}

	instance := limiter.New(store, limiter.Rate{Period: period, Limit: limit})

	return func(c *gin.Context) {
		key := name + ":" + c.ClientIP()
		lctx, err := instance.Get(c, key)
		if err != nil {
			// Хранилище лимитов недоступно: пропускаем запрос, а не роняем API.
			logger.Log.WithError(err).Warn("rate limit: не удалось проверить лимит")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "RATE_LIMITED",
					"message": "слишком много запросов, попробуйте позже",
				},
			})
			return
		}

		c.Next()
	}
}
