package cache

import (
	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisStore "github.com/eko/gocache/store/redis/v4"
	ristrettoStore "github.com/eko/gocache/store/ristretto/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var (
	S store.StoreInterface
	R store.StoreInterface
)

func NewStore() error {
	ristrettoCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 26,
		BufferItems: 64,
	})
	if err != nil {
		return err
	}
	S = ristrettoStore.NewRistretto(ristrettoCache)

	if addr := viper.GetString("cache.redis_addr"); len(addr) > 0 {
		R = redisStore.NewRedis(redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: viper.GetString("cache.redis_password"),
		}))
		log.Info().Str("addr", addr).Msg("Redis cache tier enabled.")
	}

	return nil
}

// NewManager returns the local cache, chained in front of redis when one is configured.
func NewManager() cache.CacheInterface[any] {
	local := cache.New[any](S)
	if R == nil {
		return local
	}
	return cache.NewChain[any](local, cache.New[any](R))
}
