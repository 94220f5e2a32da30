package common

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

type StatServerConfig struct {
	Enable      bool `help:"Expose the debug/stat HTTP server" name:"enable" default:"false"`
	Port        int  `help:"Port for the debug/stat HTTP server" name:"port" default:"7080"`
	EnablePprof bool `help:"Enable pprof on the stat server" name:"pprof" default:"true"`
}

type MetricsConfig struct {
	EnableMetrics   bool   `help:"Enable metrics collection" name:"enable" default:"false"`
	MetricsPath     string `help:"Metrics path" name:"path" default:"/metrics"`
	MetricsSinkType string `help:"Metrics sink type. support prometheus and memory." name:"sink" default:"prometheus"`
}

// CliConfig is the kong-parsed configuration shared by the redline-cli
// sub-commands.
type CliConfig struct {
	Host                 string           `help:"Redis host" name:"host" default:"127.0.0.1"`
	Port                 int              `help:"Redis port" name:"port" default:"6379"`
	PoolSize             int              `help:"Connection pool size. 0 uses a single connection." name:"pool-size" default:"0"`
	ConnectTimeoutSec    int              `help:"TCP connect timeout in seconds" name:"connect-timeout" default:"15"`
	ReconnectAfterSec    int              `help:"Delay before auto reconnect in seconds. 0 disables reconnect." name:"reconnect-after" default:"3"`
	NoAutoCloseTx        bool             `help:"Do not append EXEC to MULTI pipelines automatically" name:"no-auto-exec" default:"false"`
	Stat                 StatServerConfig `embed:"" prefix:"stat."`
	Metrics              MetricsConfig    `embed:"" prefix:"metrics."`
}

func (c *CliConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *CliConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", c.Port)
	}
	if c.PoolSize < 0 {
		return fmt.Errorf("invalid pool size: %d", c.PoolSize)
	}
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("host must not be empty")
	}
	return nil
}
