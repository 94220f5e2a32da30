package testutils

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redlinedb/redline/pkg/client"
	"github.com/redlinedb/redline/pkg/common"
)

var (
	Logger    = common.InitLogger().WithName("[Client-TEST]")
	RedisHost = "127.0.0.1"
	RedisPort = 6379
	PoolSize  = -1
)

func GenerateKey(cmd string) string {
	timestamp := time.Now().UnixMilli()
	key := fmt.Sprintf("client_test_%s_%d", cmd, timestamp)
	return key
}

func Addr() string {
	return net.JoinHostPort(RedisHost, strconv.Itoa(RedisPort))
}

func ClientConfig() *client.Config {
	cfg := &client.Config{
		Host: RedisHost,
		Port: RedisPort,
	}
	if PoolSize > 0 {
		cfg.PoolSize = PoolSize
	}
	cfg.Normalize()
	return cfg
}

func MustText(pkt interface{ Text() string }, err error) string {
	if err != nil {
		Logger.Error(err, "Command failed")
		panic(err)
	}
	return pkt.Text()
}
