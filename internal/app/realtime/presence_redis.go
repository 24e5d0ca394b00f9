package realtime

import (
	"context"
	"sort"

	"github.com/redis/go-redis/v9"
)

// RedisPresence is a PresenceStore shared by every instance through Redis.
//
// Keys:
//
//	<prefix>:g:<group>            set of user ids present in the group
//	<prefix>:g:<group>:u:<user>   set of connection ids holding that presence
//
// Entries written by an instance that crashes are not reclaimed until the
// same connection ids are removed, which never happens; operators clear the
// prefix on a full restart.
type RedisPresence struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisPresence creates a presence store under key prefix.
func NewRedisPresence(rdb redis.UniversalClient, prefix string) *RedisPresence {
	if prefix == "" {
		prefix = "noteku:presence"
	}
	return &RedisPresence{rdb: rdb, prefix: prefix}
}

var addScript = redis.NewScript(`
redis.call("SADD", KEYS[2], ARGV[2])
redis.call("SADD", KEYS[1], ARGV[1])
return redis.call("SMEMBERS", KEYS[1])
`)

var removeScript = redis.NewScript(`
redis.call("SREM", KEYS[2], ARGV[2])
if redis.call("SCARD", KEYS[2]) == 0 then
  redis.call("SREM", KEYS[1], ARGV[1])
end
return redis.call("SMEMBERS", KEYS[1])
`)

func (p *RedisPresence) groupKey(group string) string { return p.prefix + ":g:" + group }

func (p *RedisPresence) connKey(group, userID string) string {
	return p.prefix + ":g:" + group + ":u:" + userID
}

func (p *RedisPresence) Add(ctx context.Context, group, userID, connID string) ([]string, error) {
	return p.run(ctx, addScript, group, userID, connID)
}

func (p *RedisPresence) Remove(ctx context.Context, group, userID, connID string) ([]string, error) {
	return p.run(ctx, removeScript, group, userID, connID)
}

func (p *RedisPresence) Members(ctx context.Context, group string) ([]string, error) {
	members, err := p.rdb.SMembers(ctx, p.groupKey(group)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(members)
	return members, nil
}

func (p *RedisPresence) run(ctx context.Context, s *redis.Script, group, userID, connID string) ([]string, error) {
	keys := []string{p.groupKey(group), p.connKey(group, userID)}
	members, err := s.Run(ctx, p.rdb, keys, userID, connID).StringSlice()
	if err != nil {
		return nil, err
	}
	sort.Strings(members)
	return members, nil
}
