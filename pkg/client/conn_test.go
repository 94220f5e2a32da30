package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redlinedb/redline/pkg/common"
)

func TestConn_BasicCommands(t *testing.T) {
	server := newFakeServer(t)
	conn := dialTestConn(t, server)
	ctx := context.Background()

	setReply, err := conn.Set(ctx, "k", "v", nil)
	require.NoError(t, err)
	assert.Equal(t, "OK", setReply.Text())

	getReply, err := conn.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", getReply.Text())

	delReply, err := conn.Del(ctx, "k")
	require.NoError(t, err)
	n, err := delReply.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	existsReply, err := conn.Exists(ctx, "k")
	require.NoError(t, err)
	n, err = existsReply.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestConn_NilReply(t *testing.T) {
	server := newFakeServer(t)
	conn := dialTestConn(t, server)

	reply, err := conn.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.True(t, reply.IsNil())
}

func TestConn_ServerErrorKeepsConnectionLive(t *testing.T) {
	server := newFakeServer(t)
	conn := dialTestConn(t, server)
	ctx := context.Background()

	var redisErrSeen error
	conn.On(EventRedisError, func(args ...any) {
		if err, ok := args[0].(error); ok {
			redisErrSeen = err
		}
	})

	_, err := conn.Do(ctx, "NOSUCHCMD")
	var serverErr *common.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "NOSUCHCMD", serverErr.Command)

	// The connection stays usable for the next command.
	pong, err := conn.Ping(ctx)
	require.NoError(t, err)
	assert.Equal(t, "PONG", pong.Text())
	assert.Error(t, redisErrSeen)
}

func TestConn_HGetAllFoldsToMap(t *testing.T) {
	server := newFakeServer(t)
	conn := dialTestConn(t, server)
	ctx := context.Background()

	_, err := conn.HSet(ctx, "h", "f", "3.5")
	require.NoError(t, err)

	reply, err := conn.HGetAll(ctx, "h")
	require.NoError(t, err)
	fields, err := reply.StringMap()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"f": "3.5"}, fields)
}

func TestConn_ConcurrentSubmitsDemultiplexInOrder(t *testing.T) {
	server := newFakeServer(t)
	conn := dialTestConn(t, server)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(worker int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", worker)
			for i := 0; i < 20; i++ {
				want := fmt.Sprintf("v%d_%d", worker, i)
				_, err := conn.Set(ctx, key, want, nil)
				assert.NoError(t, err)
				got, err := conn.Get(ctx, key)
				assert.NoError(t, err)
				assert.Equal(t, want, got.Text())
			}
		}(w)
	}
	wg.Wait()
}

func TestConn_SubmitBeforeConnectRunsAfterConnected(t *testing.T) {
	server := newFakeServer(t)
	conn := NewConn(server.config())
	t.Cleanup(func() { _ = conn.Close() })

	done := make(chan error, 1)
	go func() {
		_, err := conn.Ping(context.Background())
		done <- err
	}()
	// The submit parks in the queue until the serve loop starts.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, conn.Connect(context.Background()))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("queued submit never completed after connect")
	}
}

func TestConn_ConnectErrorWithoutReconnect(t *testing.T) {
	cfg := &Config{
		Host:             "127.0.0.1",
		Port:             1, // nothing listens here
		ConnectTimeout:   200 * time.Millisecond,
		DisableReconnect: true,
	}
	conn := NewConn(cfg)
	var connectErrSeen bool
	conn.On(EventConnectError, func(args ...any) {
		connectErrSeen = true
	})
	err := conn.Connect(context.Background())
	var connectErr *common.ConnectError
	require.ErrorAs(t, err, &connectErr)
	assert.True(t, connectErrSeen)
	assert.Equal(t, StateClosed, conn.State())
}

func TestConn_CloseIsIdempotentAndFailsLaterSubmits(t *testing.T) {
	server := newFakeServer(t)
	conn := dialTestConn(t, server)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())

	_, err := conn.Ping(context.Background())
	assert.True(t, errors.Is(err, common.ErrClosed))
}

func TestConn_DisconnectedEventOnClose(t *testing.T) {
	server := newFakeServer(t)
	conn := dialTestConn(t, server)

	gotHadError := make(chan bool, 1)
	conn.On(EventDisconnected, func(args ...any) {
		hadError, _ := args[0].(bool)
		gotHadError <- hadError
	})
	require.NoError(t, conn.Close())
	select {
	case hadError := <-gotHadError:
		assert.False(t, hadError)
	case <-time.After(time.Second):
		t.Fatal("disconnected event never fired")
	}
}

func TestConn_TxOpenTracksMultiExec(t *testing.T) {
	server := newFakeServer(t)
	conn := dialTestConn(t, server)
	ctx := context.Background()

	_, err := conn.Multi(ctx)
	require.NoError(t, err)
	assert.True(t, conn.TxOpen())
	assert.False(t, conn.Idle())

	_, err = conn.Do(ctx, "SET", "a", "1")
	require.NoError(t, err) // QUEUED
	assert.True(t, conn.TxOpen())

	_, err = conn.Do(ctx, "EXEC")
	require.NoError(t, err)
	assert.False(t, conn.TxOpen())
	assert.True(t, conn.Idle())
}

func TestConn_MultiWhileOpenIsUsageError(t *testing.T) {
	server := newFakeServer(t)
	conn := dialTestConn(t, server)
	ctx := context.Background()

	_, err := conn.Multi(ctx)
	require.NoError(t, err)
	_, err = conn.Multi(ctx)
	var usageErr *common.UsageError
	require.ErrorAs(t, err, &usageErr)
	_, err = conn.Do(ctx, "DISCARD")
	require.NoError(t, err)
}
