package main

import (
	"context"
	"flag"
	"fmt"
	"sync"

	"github.com/redlinedb/redline/client-test/testutils"
	"github.com/redlinedb/redline/pkg/client"
)

func main() {
	flag.StringVar(&testutils.RedisHost, "host", "127.0.0.1", "redis host")
	flag.IntVar(&testutils.RedisPort, "port", 6379, "redis port")
	flag.IntVar(&testutils.PoolSize, "pool-size", 2, "pool size")
	flag.Parse()

	ctx := context.Background()
	pool := client.NewPool(testutils.ClientConfig())
	defer pool.Close()
	if err := pool.Connect(ctx); err != nil {
		panic(err)
	}
	testutils.Logger.Info("Pool connected", "addr", testutils.Addr(), "size", pool.Size())

	var wg sync.WaitGroup
	wg.Add(2)
	// Start transaction client
	go runTransactionClient(ctx, pool, &wg)
	// Start normal client
	go runNormalClient(ctx, pool, &wg)
	wg.Wait()
	testutils.Logger.Info("Transaction cmd test completed")
}

func runTransactionClient(ctx context.Context, pool *client.Pool, wg *sync.WaitGroup) {
	defer wg.Done()
	key := testutils.GenerateKey("tx")

	// The whole transaction stays on one connection inside the pipeline.
	execReplies, err := pool.PMulti().
		Set(key, "1", nil).
		Incr(key).
		Get(key).
		Send(ctx)
	if err != nil {
		testutils.Logger.Error(err, "Transaction failed")
		panic(err)
	}
	if len(execReplies) != 3 {
		panic(fmt.Errorf("EXEC expected 3 replies, got %d", len(execReplies)))
	}
	if got := execReplies[2].Text(); got != "2" {
		panic(fmt.Errorf("transaction GET expected 2, got %q", got))
	}

	last, err := pool.PMulti().
		Set(key, "1", nil).
		Incr(key).
		Get(key).
		SendIndex(ctx, -1)
	if err != nil {
		panic(err)
	}
	if got := last.Text(); got != "2" {
		panic(fmt.Errorf("transaction SendIndex expected 2, got %q", got))
	}
	if _, err := pool.Del(ctx, key); err != nil {
		panic(err)
	}
	testutils.Logger.Info("Transaction client ok", "key", key)
}

func runNormalClient(ctx context.Context, pool *client.Pool, wg *sync.WaitGroup) {
	defer wg.Done()
	key := testutils.GenerateKey("normal")
	for i := 0; i < 100; i++ {
		if got := testutils.MustText(pool.Set(ctx, key, "x", nil)); got != "OK" {
			panic(fmt.Errorf("SET expected OK, got %q", got))
		}
		if got := testutils.MustText(pool.Get(ctx, key)); got != "x" {
			panic(fmt.Errorf("GET expected x, got %q", got))
		}
	}
	if _, err := pool.Del(ctx, key); err != nil {
		panic(err)
	}
	testutils.Logger.Info("Normal client ok", "key", key)
}
