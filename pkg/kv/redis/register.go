package redis

import (
	"fmt"

	"github.com/khanhnotech/congdongacf-gateway/pkg/kv"
)

func init() {
	kv.RegisterBackend(kv.BackendRedis, func(cfg kv.Config) (kv.Store, error) {
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("redis backend requires RedisAddr")
		}
		return New(cfg.RedisAddr), nil
	})
}
