package redis

import (
	"log"
	"sync"

	radix "github.com/mediocregopher/radix/v3"

	"github.com/example/fueldispenser/internal/config"
)

// The pool serves two small read-mostly caches (pump status, admin token
// claims); a handful of connections is plenty.
const poolSize = 10

var (
	client radix.Client
	once   sync.Once
)

// Init opens the shared Redis pool and verifies the server answers.
func Init(cfg *config.RedisConfig) radix.Client {
	once.Do(func() {
		pool, err := radix.NewPool("tcp", cfg.Addr, poolSize)
		if err != nil {
			log.Fatalf("failed to connect redis at %s: %v", cfg.Addr, err)
		}
		if err := pool.Do(radix.Cmd(nil, "PING")); err != nil {
			log.Fatalf("redis at %s not answering: %v", cfg.Addr, err)
		}
		client = pool
	})
	return client
}

// Client returns the shared pool.
func Client() radix.Client {
	return client
}
