package client

// Chainable mirrors of the verb surface for deferred dispatch. Each appends
// one slot; nothing touches the socket until Send.

func (p *Pipeline) Ping() *Pipeline {
	return p.Queue(nil, "PING")
}

func (p *Pipeline) Echo(msg string) *Pipeline {
	return p.Queue(nil, "ECHO", msg)
}

func (p *Pipeline) Select(db int64) *Pipeline {
	return p.Queue(nil, "SELECT", formatInt(db))
}

func (p *Pipeline) FlushDB() *Pipeline {
	return p.Queue(nil, "FLUSHDB")
}

func (p *Pipeline) Type(key string) *Pipeline {
	return p.Queue(nil, "TYPE", key)
}

func (p *Pipeline) Get(key string) *Pipeline {
	return p.Queue(nil, "GET", key)
}

func (p *Pipeline) Set(key, value string, opts *SetOptions) *Pipeline {
	return p.Queue(nil, setArgs(key, value, opts)...)
}

func (p *Pipeline) MSet(kv map[string]string) *Pipeline {
	return p.Queue(nil, msetArgs(kv)...)
}

func (p *Pipeline) MGet(keys ...string) *Pipeline {
	return p.Queue(nil, append([]string{"MGET"}, keys...)...)
}

func (p *Pipeline) Del(keys ...string) *Pipeline {
	return p.Queue(nil, append([]string{"DEL"}, keys...)...)
}

func (p *Pipeline) Exists(keys ...string) *Pipeline {
	return p.Queue(nil, append([]string{"EXISTS"}, keys...)...)
}

func (p *Pipeline) Expire(key string, seconds int64) *Pipeline {
	return p.Queue(nil, "EXPIRE", key, formatInt(seconds))
}

func (p *Pipeline) TTL(key string) *Pipeline {
	return p.Queue(nil, "TTL", key)
}

func (p *Pipeline) Keys(pattern string) *Pipeline {
	return p.Queue(nil, "KEYS", pattern)
}

func (p *Pipeline) Incr(key string) *Pipeline {
	return p.Queue(nil, "INCR", key)
}

func (p *Pipeline) IncrBy(key string, by float64) *Pipeline {
	return p.Queue(nil, incrArgs(key, by)...)
}

func (p *Pipeline) Decr(key string) *Pipeline {
	return p.Queue(nil, "DECR", key)
}

func (p *Pipeline) DecrBy(key string, by float64) *Pipeline {
	return p.Queue(nil, decrArgs(key, by)...)
}

func (p *Pipeline) Append(key, value string) *Pipeline {
	return p.Queue(nil, "APPEND", key, value)
}

func (p *Pipeline) StrLen(key string) *Pipeline {
	return p.Queue(nil, "STRLEN", key)
}

func (p *Pipeline) HSet(key, field, value string) *Pipeline {
	return p.Queue(nil, "HSET", key, field, value)
}

func (p *Pipeline) HGet(key, field string) *Pipeline {
	return p.Queue(nil, "HGET", key, field)
}

func (p *Pipeline) HGetAll(key string) *Pipeline {
	return p.QueueMap(nil, "HGETALL", key)
}

func (p *Pipeline) HMSet(key string, fieldVals ...string) *Pipeline {
	return p.Queue(nil, append([]string{"HMSET", key}, fieldVals...)...)
}

func (p *Pipeline) HMSetMap(key string, kv map[string]string) *Pipeline {
	return p.Queue(nil, hmsetMapArgs(key, kv)...)
}

func (p *Pipeline) HMGet(key string, fields ...string) *Pipeline {
	return p.Queue(nil, append([]string{"HMGET", key}, fields...)...)
}

func (p *Pipeline) HDel(key string, fields ...string) *Pipeline {
	return p.Queue(nil, append([]string{"HDEL", key}, fields...)...)
}

func (p *Pipeline) HKeys(key string) *Pipeline {
	return p.Queue(nil, "HKEYS", key)
}

func (p *Pipeline) HVals(key string) *Pipeline {
	return p.Queue(nil, "HVALS", key)
}

func (p *Pipeline) HLen(key string) *Pipeline {
	return p.Queue(nil, "HLEN", key)
}

func (p *Pipeline) HIncrBy(key, field string, by float64) *Pipeline {
	return p.Queue(nil, hincrArgs(key, field, by)...)
}

func (p *Pipeline) LPush(key string, values ...string) *Pipeline {
	return p.Queue(nil, append([]string{"LPUSH", key}, values...)...)
}

func (p *Pipeline) RPush(key string, values ...string) *Pipeline {
	return p.Queue(nil, append([]string{"RPUSH", key}, values...)...)
}

func (p *Pipeline) LPop(key string) *Pipeline {
	return p.Queue(nil, "LPOP", key)
}

func (p *Pipeline) RPop(key string) *Pipeline {
	return p.Queue(nil, "RPOP", key)
}

func (p *Pipeline) LLen(key string) *Pipeline {
	return p.Queue(nil, "LLEN", key)
}

func (p *Pipeline) LRange(key string, start, stop int64) *Pipeline {
	return p.Queue(nil, "LRANGE", key, formatInt(start), formatInt(stop))
}

func (p *Pipeline) SAdd(key string, members ...string) *Pipeline {
	return p.Queue(nil, append([]string{"SADD", key}, members...)...)
}

func (p *Pipeline) SRem(key string, members ...string) *Pipeline {
	return p.Queue(nil, append([]string{"SREM", key}, members...)...)
}

func (p *Pipeline) SMembers(key string) *Pipeline {
	return p.Queue(nil, "SMEMBERS", key)
}

func (p *Pipeline) SCard(key string) *Pipeline {
	return p.Queue(nil, "SCARD", key)
}

func (p *Pipeline) SIsMember(key, member string) *Pipeline {
	return p.Queue(nil, "SISMEMBER", key, member)
}

func (p *Pipeline) SPop(key string, count ...int64) *Pipeline {
	return p.Queue(nil, spopArgs(key, count)...)
}

func (p *Pipeline) ZAdd(key string, score float64, member string) *Pipeline {
	return p.Queue(nil, "ZADD", key, formatFloat(score), member)
}

func (p *Pipeline) ZRange(key string, start, stop int64) *Pipeline {
	return p.Queue(nil, "ZRANGE", key, formatInt(start), formatInt(stop))
}

func (p *Pipeline) ZScore(key, member string) *Pipeline {
	return p.Queue(nil, "ZSCORE", key, member)
}

func (p *Pipeline) ZRem(key string, members ...string) *Pipeline {
	return p.Queue(nil, append([]string{"ZREM", key}, members...)...)
}
