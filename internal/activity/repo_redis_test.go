package activity

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisRepo(t *testing.T) *RedisRepo {
	t.Helper()
	repo, _, _ := newRedisRepoWithServer(t)
	return repo
}

func newRedisRepoWithServer(t *testing.T) (*RedisRepo, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisRepo(rdb, "test:activity"), s, rdb
}

// dropReply fails the next script call. With afterServer set the call is
// executed by the server first and only the reply is lost; otherwise it never
// reaches the server.
type dropReply struct {
	armed       atomic.Bool
	afterServer bool
}

func (h *dropReply) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *dropReply) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		isScript := cmd.Name() == "eval" || cmd.Name() == "evalsha"
		if isScript && !h.afterServer && h.armed.CompareAndSwap(true, false) {
			return errors.New("dial tcp: connection refused")
		}
		err := next(ctx, cmd)
		if isScript && err == nil && h.afterServer && h.armed.CompareAndSwap(true, false) {
			return errors.New("read tcp: i/o timeout")
		}
		return err
	}
}

func (h *dropReply) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func armDropReply(rdb *redis.Client, afterServer bool) {
	h := &dropReply{afterServer: afterServer}
	h.armed.Store(true)
	rdb.AddHook(h)
}

func TestRedisRepo_AppendAssignsSequence(t *testing.T) {
	repo := newRedisRepo(t)
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()

	for i := 0; i < 3; i++ {
		e, err := repo.Append(ctx, Entry{
			ID: fmt.Sprintf("e%d", i), Action: ActionCreate, EntityType: EntityTypeOwner,
			EntityID: "o", EntityName: fmt.Sprintf("n%d", i), AdminUser: "admin",
			Timestamp: now, IdempotencyKey: fmt.Sprintf("k%d", i),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), e.Seq)
	}

	all, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "k2", all[2].IdempotencyKey)
	assert.True(t, all[0].Timestamp.Equal(now))
}

func TestRedisRepo_DuplicateKeyIsNoop(t *testing.T) {
	repo := newRedisRepo(t)
	ctx := context.Background()
	e := Entry{ID: "e1", Action: ActionUpdate, EntityType: EntityTypeProperty, EntityID: "p", EntityName: "Condo", AdminUser: "admin", Timestamp: time.Now().UTC(), IdempotencyKey: "same"}

	first, err := repo.Append(ctx, e)
	require.NoError(t, err)

	e.ID = "e2"
	second, err := repo.Append(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	n, err := repo.Count(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRedisRepo_WorksBehindTracker(t *testing.T) {
	repo := newRedisRepo(t)
	tr := NewTracker(repo, Options{})
	ctx := context.Background()

	_, err := tr.RecordMutation(ctx, Mutation{Action: ActionCreate, EntityType: EntityTypeOwner, EntityID: "o1", EntityName: "Alice", AdminUser: "admin"})
	require.NoError(t, err)
	_, err = tr.RecordMutation(ctx, Mutation{
		Action: ActionUpdate, EntityType: EntityTypeProperty, EntityID: "p1", EntityName: "Bob", AdminUser: "admin",
		Changes: []Change{{Field: "title", OldValue: strPtr("B"), NewValue: strPtr("Bob")}},
	})
	require.NoError(t, err)

	p, err := tr.QueryLog(ctx, Filter{Action: ActionUpdate, EntityType: EntityTypeProperty}, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, p.TotalFiltered)
	assert.Equal(t, "Bob", p.Entries[0].EntityName)
	require.Len(t, p.Entries[0].Changes, 1)
	assert.Equal(t, "Bob", *p.Entries[0].Changes[0].NewValue)
}

func TestRedisRepo_LostReplyRetryStoresOnce(t *testing.T) {
	for _, afterServer := range []bool{true, false} {
		t.Run(fmt.Sprintf("executed=%v", afterServer), func(t *testing.T) {
			repo, _, rdb := newRedisRepoWithServer(t)
			armDropReply(rdb, afterServer)
			tr := NewTracker(repo, Options{AppendRetries: 2})
			ctx := context.Background()

			e, err := tr.RecordMutation(ctx, Mutation{Action: ActionCreate, EntityType: EntityTypeOwner, EntityID: "o1", EntityName: "Alice", AdminUser: "admin"})
			require.NoError(t, err)

			all, err := repo.All(ctx)
			require.NoError(t, err)
			require.Len(t, all, 1, "one mutation must produce one entry")
			assert.Equal(t, e.ID, all[0].ID)
			assert.Equal(t, int64(1), e.Seq)
		})
	}
}

func TestRedisRepo_RepeatAfterLostReplyReturnsStoredEntry(t *testing.T) {
	repo, _, rdb := newRedisRepoWithServer(t)
	armDropReply(rdb, true)
	ctx := context.Background()
	e := Entry{ID: "e1", Action: ActionDelete, EntityType: EntityTypeOwner, EntityID: "o1", EntityName: "Alice", AdminUser: "admin", Timestamp: time.Now().UTC(), IdempotencyKey: "k1"}

	_, err := repo.Append(ctx, e)
	require.Error(t, err)

	got, err := repo.Append(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, "e1", got.ID)
	assert.Equal(t, int64(1), got.Seq)

	n, err := repo.Count(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRedisRepo_MarkersExpire(t *testing.T) {
	repo, s, _ := newRedisRepoWithServer(t)
	repo.WithMarkerTTL(time.Hour)
	ctx := context.Background()

	_, err := repo.Append(ctx, Entry{ID: "e1", Action: ActionCreate, EntityType: EntityTypeOwner, EntityID: "o1", AdminUser: "admin", Timestamp: time.Now().UTC(), IdempotencyKey: "k1"})
	require.NoError(t, err)

	ttl := s.TTL("test:activity:idem:k1")
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Hour)
	assert.Equal(t, time.Duration(0), s.TTL("test:activity"), "the log itself never expires")
}
