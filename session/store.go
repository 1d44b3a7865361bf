package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a session id has no live record in the store.
var ErrNotFound = errors.New("session not found")

// ErrStoreUnavailable wraps any failure talking to the backing store.
var ErrStoreUnavailable = errors.New("session store unavailable")

// ErrCorruptRecord is returned when a stored blob cannot be decoded.
var ErrCorruptRecord = errors.New("session record corrupt")

// Store persists session records.
//
// Implementations must be safe for concurrent use. Get and ListByUser return
// records regardless of expiry; the caller decides what an expired record means.
type Store interface {
	// Put inserts or replaces r.
	Put(ctx context.Context, r *Record) error
	// Get returns the record for id, ErrNotFound, or ErrCorruptRecord.
	Get(ctx context.Context, id string) (*Record, error)
	// Update replaces r only if it still exists and reports whether it did.
	Update(ctx context.Context, r *Record) (bool, error)
	// Delete atomically removes id and returns the removed record. Of any number
	// of concurrent deleters exactly one receives the record; the rest get ErrNotFound.
	// If the removed blob was undecodable the record carries only ID and UserID
	// and the error is ErrCorruptRecord.
	Delete(ctx context.Context, id string) (*Record, error)
	// ListByUser returns every record owned by userID. An undecodable blob is
	// listed as a record carrying only ID and UserID (see [Record.Corrupt]).
	ListByUser(ctx context.Context, userID string) ([]*Record, error)
	// SweepExpired removes up to limit records with ExpiresAt <= now and
	// returns the removed records.
	SweepExpired(ctx context.Context, now time.Time, limit int) ([]*Record, error)
}

const minRetention = time.Second

const updateSessionScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "rec", ARGV[1])
redis.call("PEXPIRE", KEYS[1], ARGV[2])
redis.call("ZADD", KEYS[2], ARGV[3], ARGV[4])
return 1
`

var updateSessionLua = redis.NewScript(updateSessionScript)

const claimSessionScript = `
local vals = redis.call("HMGET", KEYS[1], "uid", "rec")
if not vals[1] or not vals[2] then
  redis.call("ZREM", KEYS[2], ARGV[1])
  return false
end
redis.call("DEL", KEYS[1])
redis.call("SREM", ARGV[2] .. vals[1], ARGV[1])
redis.call("ZREM", KEYS[2], ARGV[1])
return vals
`

var claimSessionLua = redis.NewScript(claimSessionScript)

// Same as claimSessionScript but only claims when the expiry score is due.
const sweepSessionScript = `
local score = redis.call("ZSCORE", KEYS[2], ARGV[1])
if not score or tonumber(score) > tonumber(ARGV[3]) then
  return false
end
local vals = redis.call("HMGET", KEYS[1], "uid", "rec")
redis.call("ZREM", KEYS[2], ARGV[1])
if not vals[1] or not vals[2] then
  return false
end
redis.call("DEL", KEYS[1])
redis.call("SREM", ARGV[2] .. vals[1], ARGV[1])
return vals
`

var sweepSessionLua = redis.NewScript(sweepSessionScript)

// RedisStore is a Redis-backed [Store].
//
// Layout under prefix:
//
//	{prefix}:s:{id}   HASH {uid, rec}, PEXPIRE = remaining lifetime + retention grace
//	{prefix}:u:{uid}  SET of session ids
//	{prefix}:exp      ZSET id -> expiry (unix ms, rounded up)
//
// The physical TTL outlives the logical expiry by the retention grace so the
// sweeper, not Redis eviction, removes records and the expiry is audited.
type RedisStore struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
}

// NewRedisStore creates a [RedisStore]. A retention grace below one second is raised to one second.
func NewRedisStore(client redis.UniversalClient, prefix string, retentionGrace time.Duration) *RedisStore {
	if retentionGrace < minRetention {
		retentionGrace = minRetention
	}
	return &RedisStore{
		redis:     client,
		prefix:    prefix,
		retention: retentionGrace,
	}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + ":s:" + id
}

func (s *RedisStore) userKeyPrefix() string {
	return s.prefix + ":u:"
}

func (s *RedisStore) userKey(userID string) string {
	return s.userKeyPrefix() + userID
}

func (s *RedisStore) expiryKey() string {
	return s.prefix + ":exp"
}

func (s *RedisStore) physicalTTL(r *Record) time.Duration {
	remaining := time.Until(r.ExpiresAt)
	if remaining < 0 {
		remaining = 0
	}
	return remaining + s.retention
}

func expiryScore(t time.Time) int64 {
	ms := t.UnixMilli()
	if t.Sub(time.UnixMilli(ms)) > 0 {
		ms++
	}
	return ms
}

// Put writes r and its indexes in one MULTI/EXEC.
//
//	Performance: 1 round trip (HSET + PEXPIRE + SADD + ZADD).
func (s *RedisStore) Put(ctx context.Context, r *Record) error {
	if r == nil || r.ID == "" {
		return fmt.Errorf("%w: missing session id", errInvalidRecord)
	}
	data, err := Encode(r)
	if err != nil {
		return err
	}

	key := s.key(r.ID)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "uid", r.UserID, "rec", data)
		pipe.PExpire(ctx, key, s.physicalTTL(r))
		pipe.SAdd(ctx, s.userKey(r.UserID), r.ID)
		pipe.ZAdd(ctx, s.expiryKey(), redis.Z{Score: float64(expiryScore(r.ExpiresAt)), Member: r.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Get returns the stored record for id.
//
//	Performance: 1 Redis HGET.
func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	data, err := s.redis.HGet(ctx, s.key(id), "rec").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return decodeWithID(id, data)
}

// Update rewrites r if its key still exists. A concurrent Delete always wins.
func (s *RedisStore) Update(ctx context.Context, r *Record) (bool, error) {
	if r == nil || r.ID == "" {
		return false, fmt.Errorf("%w: missing session id", errInvalidRecord)
	}
	data, err := Encode(r)
	if err != nil {
		return false, err
	}

	res, err := updateSessionLua.Run(
		ctx,
		s.redis,
		[]string{s.key(r.ID), s.expiryKey()},
		data,
		s.physicalTTL(r).Milliseconds(),
		expiryScore(r.ExpiresAt),
		r.ID,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return res == 1, nil
}

// Delete claims and removes id.
//
//	Performance: 1 Lua script (HMGET + DEL + SREM + ZREM).
func (s *RedisStore) Delete(ctx context.Context, id string) (*Record, error) {
	data, err := claimSessionLua.Run(
		ctx,
		s.redis,
		[]string{s.key(id), s.expiryKey()},
		id,
		s.userKeyPrefix(),
	).StringSlice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return claimedRecord(id, data)
}

// ListByUser reads the user's index and fetches each record in one pipeline.
// Index members whose record is gone are pruned; undecodable records are listed
// with only their ID and owner so callers can still remove them.
func (s *RedisStore) ListByUser(ctx context.Context, userID string) ([]*Record, error) {
	userKey := s.userKey(userID)
	ids, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*Record{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(ids) == 0 {
		return []*Record{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGet(ctx, s.key(id), "rec")
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	records := make([]*Record, 0, len(ids))
	stale := make([]any, 0)
	for i, cmd := range cmds {
		data, cmdErr := cmd.Bytes()
		if cmdErr != nil {
			if errors.Is(cmdErr, redis.Nil) {
				stale = append(stale, ids[i])
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, cmdErr)
		}
		rec, decErr := decodeWithID(ids[i], data)
		if decErr != nil {
			rec = &Record{ID: ids[i], UserID: userID}
		}
		records = append(records, rec)
	}

	if len(stale) > 0 {
		if err := s.redis.SRem(ctx, userKey, stale...).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	return records, nil
}

// SweepExpired claims due records one script call at a time so each removal
// is atomic against concurrent Delete/Update and handed to exactly one sweeper.
// Records already evicted by Redis are dropped from the index without being returned.
// A corrupt blob is returned as a Record carrying only its ID and owner.
func (s *RedisStore) SweepExpired(ctx context.Context, now time.Time, limit int) ([]*Record, error) {
	if limit <= 0 {
		return []*Record{}, nil
	}
	nowMs := now.UnixMilli()

	ids, err := s.redis.ZRangeByScore(ctx, s.expiryKey(), &redis.ZRangeBy{
		Min:    "-inf",
		Max:    fmt.Sprintf("%d", nowMs),
		Offset: 0,
		Count:  int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	swept := make([]*Record, 0, len(ids))
	for _, id := range ids {
		data, err := sweepSessionLua.Run(
			ctx,
			s.redis,
			[]string{s.key(id), s.expiryKey()},
			id,
			s.userKeyPrefix(),
			nowMs,
		).StringSlice()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return swept, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		rec, _ := claimedRecord(id, data)
		swept = append(swept, rec)
	}
	return swept, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}

func decodeWithID(id string, data []byte) (*Record, error) {
	rec, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	rec.ID = id
	return rec, nil
}

// claimedRecord decodes the {uid, rec} pair returned by a claim script. A
// corrupt blob still yields the id and owner so the caller can audit the removal.
func claimedRecord(id string, pair []string) (*Record, error) {
	if len(pair) != 2 {
		return &Record{ID: id}, fmt.Errorf("%w: unexpected claim reply", ErrCorruptRecord)
	}
	rec, err := decodeWithID(id, []byte(pair[1]))
	if err != nil {
		return &Record{ID: id, UserID: pair[0]}, err
	}
	return rec, nil
}
