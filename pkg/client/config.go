package client

import (
	"net"
	"strconv"
	"time"

	"github.com/redlinedb/redline/pkg/common"
	"github.com/redlinedb/redline/pkg/metrics"
)

const (
	DefaultHost            = "127.0.0.1"
	DefaultPort            = 6379
	DefaultConnectTimeout  = 15 * time.Second
	DefaultReconnectAfter  = 3 * time.Second
	DefaultPoolSize        = 5
	DefaultRequestQueueLen = 128
)

// Config carries the per-connection (and per-pool) options. The zero value
// is usable; Normalize fills in the defaults.
type Config struct {
	Host string
	Port int

	// ConnectTimeout bounds the TCP dial. Only the initial connect has a
	// timeout; commands on an established connection wait indefinitely.
	ConnectTimeout time.Duration

	// AutoReconnectAfter is the delay before a broken connection redials.
	// DisableReconnect turns redialing off entirely.
	AutoReconnectAfter time.Duration
	DisableReconnect   bool

	// NoAutoCloseTransaction stops Send from appending EXEC to a pipeline
	// that opened with MULTI.
	NoAutoCloseTransaction bool

	PoolSize int

	// OnConnect fires on every successful (re)connect of a connection.
	OnConnect func(c *Conn)

	// Collector receives command/latency/error metrics when set.
	Collector metrics.ClientMetricsCollector
}

func DefaultClientConfig() *Config {
	cfg := &Config{}
	cfg.Normalize()
	return cfg
}

func (c *Config) Normalize() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.AutoReconnectAfter == 0 {
		c.AutoReconnectAfter = DefaultReconnectAfter
	}
	if c.PoolSize == 0 {
		c.PoolSize = DefaultPoolSize
	}
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Config) clone() *Config {
	dup := *c
	return &dup
}

// FromCliConfig maps the kong-parsed CLI flags onto a client Config.
func FromCliConfig(cli *common.CliConfig) *Config {
	cfg := &Config{
		Host:                   cli.Host,
		Port:                   cli.Port,
		ConnectTimeout:         time.Duration(cli.ConnectTimeoutSec) * time.Second,
		AutoReconnectAfter:     time.Duration(cli.ReconnectAfterSec) * time.Second,
		DisableReconnect:       cli.ReconnectAfterSec == 0,
		NoAutoCloseTransaction: cli.NoAutoCloseTx,
		PoolSize:               cli.PoolSize,
	}
	cfg.Normalize()
	return cfg
}
