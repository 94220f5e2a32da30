package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/redlinedb/redline/client-test/testutils"
	"github.com/redlinedb/redline/pkg/client"
)

func main() {
	flag.StringVar(&testutils.RedisHost, "host", "127.0.0.1", "redis host")
	flag.IntVar(&testutils.RedisPort, "port", 6379, "redis port")
	flag.Parse()

	ctx := context.Background()
	conn, err := client.Dial(testutils.ClientConfig())
	if err != nil {
		panic(err)
	}
	defer conn.Close()
	testutils.Logger.Info("Connected", "addr", testutils.Addr())

	runStringCmds(ctx, conn)
	runHashCmds(ctx, conn)
	runPipeline(ctx, conn)
	testutils.Logger.Info("Normal cmd test completed")
}

func runStringCmds(ctx context.Context, conn *client.Conn) {
	key := testutils.GenerateKey("str")
	if got := testutils.MustText(conn.Set(ctx, key, "v", nil)); got != "OK" {
		panic(fmt.Errorf("SET expected OK, got %q", got))
	}
	if got := testutils.MustText(conn.Get(ctx, key)); got != "v" {
		panic(fmt.Errorf("GET expected v, got %q", got))
	}
	delReply, err := conn.Del(ctx, key)
	if err != nil {
		panic(err)
	}
	if n, _ := delReply.Int(); n != 1 {
		panic(fmt.Errorf("DEL expected 1, got %d", n))
	}
	existsReply, err := conn.Exists(ctx, key)
	if err != nil {
		panic(err)
	}
	if n, _ := existsReply.Int(); n != 0 {
		panic(fmt.Errorf("EXISTS expected 0, got %d", n))
	}
	testutils.Logger.Info("String commands ok", "key", key)
}

func runHashCmds(ctx context.Context, conn *client.Conn) {
	key := testutils.GenerateKey("hash")
	if _, err := conn.HSet(ctx, key, "f", "1"); err != nil {
		panic(err)
	}
	if _, err := conn.HIncrBy(ctx, key, "f", 2); err != nil {
		panic(err)
	}
	if _, err := conn.HIncrBy(ctx, key, "f", 0.5); err != nil {
		panic(err)
	}
	all, err := conn.HGetAll(ctx, key)
	if err != nil {
		panic(err)
	}
	fields, err := all.StringMap()
	if err != nil {
		panic(err)
	}
	if fields["f"] != "3.5" {
		panic(fmt.Errorf("HGETALL expected f=3.5, got %q", fields["f"]))
	}
	if _, err := conn.Del(ctx, key); err != nil {
		panic(err)
	}
	testutils.Logger.Info("Hash commands ok", "key", key)
}

func runPipeline(ctx context.Context, conn *client.Conn) {
	key := testutils.GenerateKey("pipe")
	replies, err := conn.Pipeline().
		Set(key, "1", nil).
		Incr(key).
		Incr(key).
		Get(key).
		Send(ctx)
	if err != nil {
		panic(err)
	}
	if len(replies) != 4 {
		panic(fmt.Errorf("pipeline expected 4 replies, got %d", len(replies)))
	}
	if got := replies[3].Text(); got != "3" {
		panic(fmt.Errorf("pipeline GET expected 3, got %q", got))
	}
	last, err := conn.Pipeline().Get(key).SendIndex(ctx, -1)
	if err != nil {
		panic(err)
	}
	if got := last.Text(); got != "3" {
		panic(fmt.Errorf("SendIndex expected 3, got %q", got))
	}
	if _, err := conn.Del(ctx, key); err != nil {
		panic(err)
	}
	testutils.Logger.Info("Pipeline ok", "key", key)
}
