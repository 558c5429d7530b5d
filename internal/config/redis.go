package config

// Redis backs the API rate limiter.  When the server cannot be reached at
// startup the caller gets an error and should run without rate limiting.

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds a client from the environment and pings it.
// Supported variables are:
//
//	REDIS_ADDR      host:port (default localhost:6379); REDIS_HOST + REDIS_PORT override it
//	REDIS_PASSWORD  optional password
//	REDIS_DB        database number (default 0)
//	REDIS_TLS       enable TLS when "true" or "1"
func NewRedisClient(ctx context.Context) (*redis.Client, error) {
	addr := envStr("REDIS_ADDR", "localhost:6379")
	if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
		addr = host + ":" + port
	}
	var tlsConf *tls.Config
	if v := envStr("REDIS_TLS", ""); strings.EqualFold(v, "true") || v == "1" {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      addr,
		Password:  envStr("REDIS_PASSWORD", ""),
		DB:        envInt("REDIS_DB", 0),
		TLSConfig: tlsConf,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}
