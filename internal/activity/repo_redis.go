package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepo stores the log as a single Redis list of JSON entries.
//
// Appends go through appendScript, so the idempotency marker and the RPUSH
// land together or not at all, and appends from several processes are
// serialised. The list index is the insertion sequence. Reads load the list
// and filter in process, which is fine at admin-tool volumes.
type RedisRepo struct {
	rdb       *redis.Client
	key       string
	markerTTL time.Duration
}

const (
	DefaultRedisKey = "activity:log"
	// DefaultMarkerTTL bounds how long an idempotency key is remembered.
	// It must outlive any retry of the same mutation.
	DefaultMarkerTTL = 24 * time.Hour
)

// appendScript pushes ARGV[2] onto KEYS[1] unless marker KEYS[2] exists.
// It returns {list length, entry id}; a length of 0 means the key was seen
// before and the id is that of the stored entry.
var appendScript = redis.NewScript(`
local existing = redis.call('GET', KEYS[2])
if existing then
  return {0, existing}
end
local n = redis.call('RPUSH', KEYS[1], ARGV[2])
redis.call('SET', KEYS[2], ARGV[1], 'PX', ARGV[3])
return {n, ARGV[1]}
`)

func NewRedisRepo(rdb *redis.Client, key string) *RedisRepo {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisRepo{rdb: rdb, key: key, markerTTL: DefaultMarkerTTL}
}

// WithMarkerTTL overrides DefaultMarkerTTL.
func (r *RedisRepo) WithMarkerTTL(ttl time.Duration) *RedisRepo {
	if ttl > 0 {
		r.markerTTL = ttl
	}
	return r
}

func (r *RedisRepo) idemKey(k string) string { return r.key + ":idem:" + k }

// storedEntry carries the fields Entry hides from API JSON.
type storedEntry struct {
	Entry
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// Append is safe to retry after any error, including a lost reply: a
// repeated IdempotencyKey returns the entry that is already stored.
func (r *RedisRepo) Append(ctx context.Context, e Entry) (Entry, error) {
	if r.rdb == nil {
		return Entry{}, errors.New("redis client is nil")
	}
	// Seq is not stored; it is the list position.
	raw, err := json.Marshal(storedEntry{Entry: e, IdempotencyKey: e.IdempotencyKey})
	if err != nil {
		return Entry{}, err
	}

	if e.IdempotencyKey == "" {
		n, err := r.rdb.RPush(ctx, r.key, raw).Result()
		if err != nil {
			return Entry{}, fmt.Errorf("activity append %s: %w", e.ID, err)
		}
		e.Seq = n
		return e, nil
	}

	res, err := appendScript.Run(ctx, r.rdb,
		[]string{r.key, r.idemKey(e.IdempotencyKey)},
		e.ID, raw, r.markerTTL.Milliseconds(),
	).Slice()
	if err != nil {
		return Entry{}, fmt.Errorf("activity append %s: %w", e.ID, err)
	}
	if len(res) != 2 {
		return Entry{}, fmt.Errorf("activity append %s: unexpected script reply %v", e.ID, res)
	}
	n, _ := res[0].(int64)
	storedID, _ := res[1].(string)
	if n > 0 {
		e.Seq = n
		return e, nil
	}
	return r.findByID(ctx, storedID)
}

func (r *RedisRepo) findByID(ctx context.Context, id string) (Entry, error) {
	all, err := r.All(ctx)
	if err != nil {
		return Entry{}, err
	}
	for _, e := range all {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("activity entry %s not found", id)
}

func (r *RedisRepo) Count(ctx context.Context, f Filter) (int, error) {
	all, err := r.All(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range all {
		if f.Matches(e) {
			n++
		}
	}
	return n, nil
}

func (r *RedisRepo) List(ctx context.Context, f Filter, offset, limit int) ([]Entry, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	return window(filterSorted(all, f), offset, limit), nil
}

// All returns entries in append order with Seq set from list position.
func (r *RedisRepo) All(ctx context.Context) ([]Entry, error) {
	if r.rdb == nil {
		return nil, errors.New("redis client is nil")
	}
	raws, err := r.rdb.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("activity list: %w", err)
	}
	out := make([]Entry, 0, len(raws))
	for i, raw := range raws {
		var s storedEntry
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, fmt.Errorf("activity decode entry %d: %w", i, err)
		}
		e := s.Entry
		e.Seq = int64(i + 1)
		e.IdempotencyKey = s.IdempotencyKey
		out = append(out, e)
	}
	return out, nil
}
