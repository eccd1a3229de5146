package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/campus-portal-api/pkg/config"
)

// DashboardPrefix namespaces cached dashboard payloads.
const DashboardPrefix = "dash"

// NewRedis returns a configured Redis client.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}

// DashboardKey builds the cache key for a role specific dashboard, e.g. dash:student:42.
func DashboardKey(role string, id int64) string {
	return fmt.Sprintf("%s:%s:%d", DashboardPrefix, strings.ToLower(role), id)
}
