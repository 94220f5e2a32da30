package client

import (
	"context"
	"math"
	"strconv"

	"github.com/redlinedb/redline/pkg/respio"
)

// SetOptions carries the optional SET modifiers. Tokens are appended in the
// fixed order EX, PX, NX, XX.
type SetOptions struct {
	EX int64
	PX int64
	NX bool
	XX bool
}

func isIntegral(f float64) bool {
	return f == math.Trunc(f)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}

func setArgs(key, value string, opts *SetOptions) []string {
	args := []string{"SET", key, value}
	if opts == nil {
		return args
	}
	if opts.EX > 0 {
		args = append(args, "EX", formatInt(opts.EX))
	}
	if opts.PX > 0 {
		args = append(args, "PX", formatInt(opts.PX))
	}
	if opts.NX {
		args = append(args, "NX")
	}
	if opts.XX {
		args = append(args, "XX")
	}
	return args
}

// msetArgs flattens the mapping pairwise. Iteration order is whatever the
// map exposes; Redis does not care.
func msetArgs(kv map[string]string) []string {
	args := make([]string, 0, 1+2*len(kv))
	args = append(args, "MSET")
	for k, v := range kv {
		args = append(args, k, v)
	}
	return args
}

func hmsetMapArgs(key string, kv map[string]string) []string {
	args := make([]string, 0, 2+2*len(kv))
	args = append(args, "HMSET", key)
	for k, v := range kv {
		args = append(args, k, v)
	}
	return args
}

// incrArgs routes on the delta: no fraction and delta 1 is plain INCR,
// other integers are INCRBY, fractions are INCRBYFLOAT.
func incrArgs(key string, by float64) []string {
	switch {
	case by == 1:
		return []string{"INCR", key}
	case isIntegral(by):
		return []string{"INCRBY", key, formatInt(int64(by))}
	default:
		return []string{"INCRBYFLOAT", key, formatFloat(by)}
	}
}

// decrArgs sends DECRBY with the positive delta for integers; fractional
// deltas have no DECRBYFLOAT so they go out as a negated INCRBYFLOAT.
func decrArgs(key string, by float64) []string {
	switch {
	case by == 1:
		return []string{"DECR", key}
	case isIntegral(by):
		return []string{"DECRBY", key, formatInt(int64(by))}
	default:
		return []string{"INCRBYFLOAT", key, formatFloat(-by)}
	}
}

func hincrArgs(key, field string, by float64) []string {
	if isIntegral(by) {
		return []string{"HINCRBY", key, field, formatInt(int64(by))}
	}
	return []string{"HINCRBYFLOAT", key, field, formatFloat(by)}
}

// spopArgs omits the count entirely when absent; SPOP with an explicit
// count replies with an array instead of a single bulk.
func spopArgs(key string, count []int64) []string {
	if len(count) == 0 {
		return []string{"SPOP", key}
	}
	return []string{"SPOP", key, formatInt(count[0])}
}

// doer is what the command surface runs on: a single connection or a pool.
type doer interface {
	Do(ctx context.Context, args ...string) (*respio.RespPacket, error)
	DoMap(ctx context.Context, args ...string) (*respio.RespPacket, error)
}

// commands is the flat verb surface shared by Conn and Pool. Helpers only
// shape an argv and submit it.
type commands struct {
	d doer
}

func (c *commands) Ping(ctx context.Context) (*respio.RespPacket, error) {
	return c.d.Do(ctx, "PING")
}

func (c *commands) Echo(ctx context.Context, msg string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, "ECHO", msg)
}

func (c *commands) Select(ctx context.Context, db int64) (*respio.RespPacket, error) {
	return c.d.Do(ctx, "SELECT", formatInt(db))
}

func (c *commands) FlushDB(ctx context.Context) (*respio.RespPacket, error) {
	return c.d.Do(ctx, "FLUSHDB")
}

func (c *commands) Get(ctx context.Context, key string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, "GET", key)
}

func (c *commands) Set(ctx context.Context, key, value string, opts *SetOptions) (*respio.RespPacket, error) {
	return c.d.Do(ctx, setArgs(key, value, opts)...)
}

func (c *commands) MSet(ctx context.Context, kv map[string]string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, msetArgs(kv)...)
}

func (c *commands) MGet(ctx context.Context, keys ...string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, append([]string{"MGET"}, keys...)...)
}

func (c *commands) Del(ctx context.Context, keys ...string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, append([]string{"DEL"}, keys...)...)
}

func (c *commands) Exists(ctx context.Context, keys ...string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, append([]string{"EXISTS"}, keys...)...)
}

func (c *commands) Expire(ctx context.Context, key string, seconds int64) (*respio.RespPacket, error) {
	return c.d.Do(ctx, "EXPIRE", key, formatInt(seconds))
}

func (c *commands) TTL(ctx context.Context, key string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, "TTL", key)
}

func (c *commands) Type(ctx context.Context, key string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, "TYPE", key)
}

func (c *commands) Keys(ctx context.Context, pattern string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, "KEYS", pattern)
}

// Incr adds one. IncrBy routes to INCR, INCRBY or INCRBYFLOAT on the shape
// of the delta.
func (c *commands) Incr(ctx context.Context, key string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, "INCR", key)
}

func (c *commands) IncrBy(ctx context.Context, key string, by float64) (*respio.RespPacket, error) {
	return c.d.Do(ctx, incrArgs(key, by)...)
}

func (c *commands) Decr(ctx context.Context, key string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, "DECR", key)
}

func (c *commands) DecrBy(ctx context.Context, key string, by float64) (*respio.RespPacket, error) {
	return c.d.Do(ctx, decrArgs(key, by)...)
}

func (c *commands) Append(ctx context.Context, key, value string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, "APPEND", key, value)
}

func (c *commands) StrLen(ctx context.Context, key string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, "STRLEN", key)
}

func (c *commands) HSet(ctx context.Context, key, field, value string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, "HSET", key, field, value)
}

func (c *commands) HGet(ctx context.Context, key, field string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, "HGET", key, field)
}

// HGetAll folds the flat field/value reply into a map packet.
func (c *commands) HGetAll(ctx context.Context, key string) (*respio.RespPacket, error) {
	return c.d.DoMap(ctx, "HGETALL", key)
}

// HMSet accepts the flat field, value, field, value form.
func (c *commands) HMSet(ctx context.Context, key string, fieldVals ...string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, append([]string{"HMSET", key}, fieldVals...)...)
}

// HMSetMap accepts the mapping form of HMSet.
func (c *commands) HMSetMap(ctx context.Context, key string, kv map[string]string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, hmsetMapArgs(key, kv)...)
}

func (c *commands) HMGet(ctx context.Context, key string, fields ...string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, append([]string{"HMGET", key}, fields...)...)
}

func (c *commands) HDel(ctx context.Context, key string, fields ...string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, append([]string{"HDEL", key}, fields...)...)
}

func (c *commands) HKeys(ctx context.Context, key string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, "HKEYS", key)
}

func (c *commands) HVals(ctx context.Context, key string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, "HVALS", key)
}

func (c *commands) HLen(ctx context.Context, key string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, "HLEN", key)
}

func (c *commands) HIncrBy(ctx context.Context, key, field string, by float64) (*respio.RespPacket, error) {
	return c.d.Do(ctx, hincrArgs(key, field, by)...)
}

func (c *commands) LPush(ctx context.Context, key string, values ...string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, append([]string{"LPUSH", key}, values...)...)
}

func (c *commands) RPush(ctx context.Context, key string, values ...string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, append([]string{"RPUSH", key}, values...)...)
}

func (c *commands) LPop(ctx context.Context, key string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, "LPOP", key)
}

func (c *commands) RPop(ctx context.Context, key string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, "RPOP", key)
}

func (c *commands) LLen(ctx context.Context, key string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, "LLEN", key)
}

func (c *commands) LRange(ctx context.Context, key string, start, stop int64) (*respio.RespPacket, error) {
	return c.d.Do(ctx, "LRANGE", key, formatInt(start), formatInt(stop))
}

func (c *commands) SAdd(ctx context.Context, key string, members ...string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, append([]string{"SADD", key}, members...)...)
}

// SRem is variadic like SAdd.
func (c *commands) SRem(ctx context.Context, key string, members ...string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, append([]string{"SREM", key}, members...)...)
}

func (c *commands) SMembers(ctx context.Context, key string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, "SMEMBERS", key)
}

func (c *commands) SCard(ctx context.Context, key string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, "SCARD", key)
}

func (c *commands) SIsMember(ctx context.Context, key, member string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, "SISMEMBER", key, member)
}

func (c *commands) SPop(ctx context.Context, key string, count ...int64) (*respio.RespPacket, error) {
	return c.d.Do(ctx, spopArgs(key, count)...)
}

func (c *commands) ZAdd(ctx context.Context, key string, score float64, member string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, "ZADD", key, formatFloat(score), member)
}

func (c *commands) ZRange(ctx context.Context, key string, start, stop int64) (*respio.RespPacket, error) {
	return c.d.Do(ctx, "ZRANGE", key, formatInt(start), formatInt(stop))
}

func (c *commands) ZScore(ctx context.Context, key, member string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, "ZSCORE", key, member)
}

func (c *commands) ZRem(ctx context.Context, key string, members ...string) (*respio.RespPacket, error) {
	return c.d.Do(ctx, append([]string{"ZREM", key}, members...)...)
}
