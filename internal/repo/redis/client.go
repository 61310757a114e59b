package redis

import (
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// NewClient builds a redis client without dialing. Connection errors
// surface from the individual commands.
func NewClient(addr, password string, db int) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}
