package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/redlinedb/redline/pkg/client"
	"github.com/redlinedb/redline/pkg/common"
	"github.com/redlinedb/redline/pkg/metrics"
	"github.com/redlinedb/redline/pkg/webstat"
)

var (
	logger = common.InitLogger().WithName("main")
)

type CmdCommand struct {
	Args []string `arg:"" name:"command" help:"Command and arguments, e.g. GET mykey"`
}

type BenchCommand struct {
	Clients  int           `help:"Concurrent workers" default:"8"`
	Requests int           `help:"Requests per worker" default:"10000"`
	Hold     time.Duration `help:"Keep the stat server alive after the run" default:"0s"`
}

type cliRoot struct {
	common.CliConfig `embed:""`

	Cmd   CmdCommand   `cmd:"" help:"Run a single command and print the reply."`
	Bench BenchCommand `cmd:"" help:"Run a SET/GET benchmark through the client."`
}

func main() {
	var cli cliRoot
	ctx := kong.Parse(&cli)
	if err := cli.Validate(); err != nil {
		ctx.FatalIfErrorf(err)
	}
	ctx.FatalIfErrorf(ctx.Run(&cli))
}

func buildCommander(cli *cliRoot) (client.Commander, *client.Pool, *client.Config, error) {
	cfg := client.FromCliConfig(&cli.CliConfig)
	if cli.Metrics.EnableMetrics {
		sink := metrics.ExposeMetricSink(cli.Metrics.MetricsSinkType)
		if sink == "memory" {
			sink = metrics.InMemorySink
		}
		collector, err := metrics.NewMetricsCollector(&metrics.Config{
			ServiceName:         "redline-cli",
			AggregationInterval: 5 * time.Second,
			RetentionPeriod:     10 * time.Minute,
			ExposeSink:          sink,
			MetricsEndpoint:     cli.Metrics.MetricsPath,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		cfg.Collector = collector
	}
	if cli.PoolSize > 0 {
		pool := client.NewPool(cfg)
		return pool, pool, cfg, nil
	}
	conn, err := client.Dial(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return conn, nil, cfg, nil
}

func startStatServer(cli *cliRoot, pool *client.Pool, cfg *client.Config) *webstat.StatServer {
	if !cli.Stat.Enable {
		return nil
	}
	srv := webstat.NewStatServer(&cli.Stat, &webstat.PoolStatsHandler{Pool: pool})
	if cli.Metrics.EnableMetrics && cfg.Collector != nil {
		srv.RegisterRaw(cli.Metrics.MetricsPath, cfg.Collector.Handler())
	}
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error(err, "Stat server exited")
		}
	}()
	return srv
}

func (c *CmdCommand) Run(cli *cliRoot) error {
	commander, pool, _, err := buildCommander(cli)
	if err != nil {
		return err
	}
	defer commander.Close()
	if pool != nil {
		if err := pool.Connect(context.Background()); err != nil {
			return err
		}
	}
	reply, err := commander.Do(context.Background(), c.Args...)
	if err != nil {
		return err
	}
	fmt.Println(reply.String())
	return nil
}

func (b *BenchCommand) Run(cli *cliRoot) error {
	commander, pool, cfg, err := buildCommander(cli)
	if err != nil {
		return err
	}
	defer commander.Close()
	if pool != nil {
		if err := pool.Connect(context.Background()); err != nil {
			return err
		}
	}
	statSrv := startStatServer(cli, pool, cfg)

	logger.Info("Bench starting", "clients", b.Clients, "requests", b.Requests,
		"addr", cli.Addr(), "poolSize", cli.PoolSize)
	var errCount atomic.Int64
	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(b.Clients)
	for w := 0; w < b.Clients; w++ {
		go func(worker int) {
			defer wg.Done()
			ctx := context.Background()
			key := fmt.Sprintf("redline_bench_%d", worker)
			for i := 0; i < b.Requests; i++ {
				if _, err := commander.Do(ctx, "SET", key, fmt.Sprintf("v%d", i)); err != nil {
					errCount.Add(1)
					continue
				}
				if _, err := commander.Do(ctx, "GET", key); err != nil {
					errCount.Add(1)
				}
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)
	total := int64(b.Clients) * int64(b.Requests) * 2
	logger.Info("Bench finished", "ops", total, "elapsed", elapsed,
		"opsPerSec", float64(total)/elapsed.Seconds(), "errors", errCount.Load())

	if statSrv != nil && b.Hold > 0 {
		signChan := make(chan os.Signal, 1)
		signal.Notify(signChan, os.Interrupt, syscall.SIGQUIT, syscall.SIGTERM)
		select {
		case sig := <-signChan:
			logger.Info("Received signal, shutting down...", "Sigs", sig)
		case <-time.After(b.Hold):
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		statSrv.Shutdown(shutdownCtx)
	}
	return nil
}
