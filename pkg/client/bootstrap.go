package client

import (
	"context"
	"os"
	"strconv"
	"sync"

	"github.com/redlinedb/redline/pkg/respio"
)

// Commander is the surface a single connection and a pool share.
type Commander interface {
	Do(ctx context.Context, args ...string) (*respio.RespPacket, error)
	DoMap(ctx context.Context, args ...string) (*respio.RespPacket, error)
	Pipeline() *Pipeline
	PMulti() *Pipeline
	Close() error
	On(event EventType, fn Listener)
	Once(event EventType, fn Listener)
	RemoveListener(event EventType, fn Listener)
	RemoveAllListeners(events ...EventType)
}

var (
	defaultClient Commander
	defaultOnce   sync.Once
)

// FromEnv builds a client from REDIS_HOST and REDIS_PORT; when
// REDIS_POOL_SIZE is present it builds a pool of that size instead. Returns
// nil when the variables are absent. Dialing happens in the background.
func FromEnv() Commander {
	host, hasHost := os.LookupEnv("REDIS_HOST")
	portStr, hasPort := os.LookupEnv("REDIS_PORT")
	if !hasHost || !hasPort {
		return nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		logger.Error(err, "Invalid REDIS_PORT, ignoring environment bootstrap", "value", portStr)
		return nil
	}
	cfg := &Config{Host: host, Port: port}
	if sizeStr, hasSize := os.LookupEnv("REDIS_POOL_SIZE"); hasSize {
		if size, err := strconv.Atoi(sizeStr); err == nil && size > 0 {
			cfg.PoolSize = size
			cfg.Normalize()
			return NewPool(cfg)
		}
	}
	cfg.Normalize()
	conn := NewConn(cfg)
	go func() {
		_ = conn.Connect(context.Background())
	}()
	return conn
}

// Default returns the process-wide client built from the environment on
// first use, or nil when the environment names no server.
func Default() Commander {
	defaultOnce.Do(func() {
		defaultClient = FromEnv()
	})
	return defaultClient
}
