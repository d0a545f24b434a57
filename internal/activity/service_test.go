package activity

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func mutation(a Action, et EntityType, name, actor string) Mutation {
	return Mutation{Action: a, EntityType: et, EntityID: "id-" + name, EntityName: name, AdminUser: actor}
}

func TestTracker_RecordRequiresActorAndClosedSets(t *testing.T) {
	tr := NewTracker(NewMemoryRepo(), Options{})
	ctx := context.Background()

	_, err := tr.RecordMutation(ctx, mutation(ActionCreate, EntityTypeOwner, "a", ""))
	assert.ErrorIs(t, err, ErrInvalidMutation, "missing actor")
	_, err = tr.RecordMutation(ctx, mutation("RENAME", EntityTypeOwner, "a", "admin"))
	assert.ErrorIs(t, err, ErrInvalidMutation, "unknown action")
	_, err = tr.RecordMutation(ctx, mutation(ActionCreate, "TENANT", "a", "admin"))
	assert.ErrorIs(t, err, ErrInvalidMutation, "unknown entity type")
}

func TestTracker_RecordAssignsIDAndTimestamp(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	tr := NewTracker(NewMemoryRepo(), Options{}).WithClock(fixedClock(now))

	e, err := tr.RecordMutation(context.Background(), mutation(ActionCreate, EntityTypeOwner, "Alice", "admin"))
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.True(t, e.Timestamp.Equal(now))
	assert.Nil(t, e.Changes)

	e2, err := tr.RecordMutation(context.Background(), mutation(ActionCreate, EntityTypeOwner, "Alice", "admin"))
	require.NoError(t, err)
	assert.NotEqual(t, e.ID, e2.ID, "ids must not be reused")
}

func TestTracker_EmptyChangesStoredAsAbsent(t *testing.T) {
	tr := NewTracker(NewMemoryRepo(), Options{})
	m := mutation(ActionUpdate, EntityTypeOwner, "Alice", "admin")
	m.Changes = []Change{}

	e, err := tr.RecordMutation(context.Background(), m)
	require.NoError(t, err)
	assert.Nil(t, e.Changes)
}

func TestTracker_QueryOrdersNewestFirstWithStableTies(t *testing.T) {
	base := time.Unix(1700000000, 0).UTC()
	tr := NewTracker(NewMemoryRepo(), Options{})
	ctx := context.Background()

	// n1..n3 share a timestamp, n4 is later, n0 is earlier.
	stamps := []time.Time{base.Add(-time.Minute), base, base, base, base.Add(time.Minute)}
	for i, ts := range stamps {
		tr.WithClock(fixedClock(ts))
		_, err := tr.RecordMutation(ctx, mutation(ActionCreate, EntityTypeOwner, fmt.Sprintf("n%d", i), "admin"))
		require.NoError(t, err)
	}

	p, err := tr.QueryLog(ctx, Filter{}, 1, 10)
	require.NoError(t, err)
	names := make([]string, 0, len(p.Entries))
	for i, e := range p.Entries {
		names = append(names, e.EntityName)
		if i > 0 {
			assert.False(t, e.Timestamp.After(p.Entries[i-1].Timestamp), "timestamps must be non-increasing")
		}
	}
	assert.Equal(t, []string{"n4", "n1", "n2", "n3", "n0"}, names)
}

func TestTracker_FiltersAreANDed(t *testing.T) {
	tr := NewTracker(NewMemoryRepo(), Options{})
	ctx := context.Background()
	_, _ = tr.RecordMutation(ctx, mutation(ActionCreate, EntityTypeOwner, "Alice", "admin"))
	_, _ = tr.RecordMutation(ctx, mutation(ActionUpdate, EntityTypeProperty, "Bob", "admin"))

	p, err := tr.QueryLog(ctx, Filter{Action: ActionUpdate, EntityType: EntityTypeProperty}, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, p.TotalFiltered)
	assert.Equal(t, "Bob", p.Entries[0].EntityName)

	p, err = tr.QueryLog(ctx, Filter{Action: ActionUpdate, EntityType: EntityTypeOwner}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, p.TotalFiltered)
	assert.Empty(t, p.Entries)
}

func TestTracker_SearchMatchesNameOrActorCaseInsensitive(t *testing.T) {
	tr := NewTracker(NewMemoryRepo(), Options{})
	ctx := context.Background()
	_, _ = tr.RecordMutation(ctx, mutation(ActionCreate, EntityTypeOwner, "Alice Smith", "root"))
	_, _ = tr.RecordMutation(ctx, mutation(ActionCreate, EntityTypeOwner, "Carol", "SMITHERS"))
	_, _ = tr.RecordMutation(ctx, mutation(ActionCreate, EntityTypeOwner, "Dave", "admin"))

	p, err := tr.QueryLog(ctx, Filter{Search: "  smith "}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, p.TotalFiltered)
}

func TestTracker_UnknownFilterValuesMatchNothing(t *testing.T) {
	tr := NewTracker(NewMemoryRepo(), Options{})
	ctx := context.Background()
	_, _ = tr.RecordMutation(ctx, mutation(ActionCreate, EntityTypeOwner, "Alice", "admin"))

	p, err := tr.QueryLog(ctx, Filter{Action: "ARCHIVE"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, p.TotalFiltered)

	p, err = tr.QueryLog(ctx, Filter{EntityType: "TENANT"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, p.TotalFiltered)
}

func TestTracker_PaginationBoundary(t *testing.T) {
	tr := NewTracker(NewMemoryRepo(), Options{})
	ctx := context.Background()
	for i := 0; i < 11; i++ {
		_, _ = tr.RecordMutation(ctx, mutation(ActionCreate, EntityTypeOwner, fmt.Sprintf("o%d", i), "admin"))
	}

	p1, err := tr.QueryLog(ctx, Filter{}, 1, 10)
	require.NoError(t, err)
	p2, err := tr.QueryLog(ctx, Filter{}, 2, 10)
	require.NoError(t, err)

	assert.Len(t, p1.Entries, 10)
	assert.Len(t, p2.Entries, 1)
	assert.Equal(t, 11, p1.TotalFiltered)
	assert.Equal(t, 11, p2.TotalFiltered)
	assert.Equal(t, [2]int{1, 10}, [2]int{p1.From, p1.To})
	assert.Equal(t, [2]int{11, 11}, [2]int{p2.From, p2.To})
	assert.Equal(t, 2, p1.TotalPages)
}

func TestTracker_PageClampedIntoRange(t *testing.T) {
	tr := NewTracker(NewMemoryRepo(), Options{})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _ = tr.RecordMutation(ctx, mutation(ActionCreate, EntityTypeOwner, fmt.Sprintf("o%d", i), "admin"))
	}

	p, _ := tr.QueryLog(ctx, Filter{}, 9, 2)
	assert.Equal(t, 2, p.Page, "clamped to last page")
	assert.Len(t, p.Entries, 1)

	p, _ = tr.QueryLog(ctx, Filter{}, -4, 2)
	assert.Equal(t, 1, p.Page, "clamped to first page")

	p, _ = tr.QueryLog(ctx, Filter{Search: "nobody"}, 5, 2)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 1, p.TotalPages)
	assert.NotNil(t, p.Entries)
	assert.Equal(t, 0, p.From)
}

func TestTracker_DefaultPageSize(t *testing.T) {
	tr := NewTracker(NewMemoryRepo(), Options{PageSize: 3})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, _ = tr.RecordMutation(ctx, mutation(ActionCreate, EntityTypeOwner, fmt.Sprintf("o%d", i), "admin"))
	}
	p, err := tr.QueryLog(ctx, Filter{}, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, p.PageSize)
	assert.Len(t, p.Entries, 3)
}

type flakyRepo struct {
	*MemoryRepo
	failures int
	calls    int
}

func (f *flakyRepo) Append(ctx context.Context, e Entry) (Entry, error) {
	f.calls++
	if f.calls <= f.failures {
		// The write lands but its ack is lost.
		_, _ = f.MemoryRepo.Append(ctx, e)
		return Entry{}, errors.New("connection reset")
	}
	return f.MemoryRepo.Append(ctx, e)
}

func TestTracker_RetriesAreIdempotent(t *testing.T) {
	repo := &flakyRepo{MemoryRepo: NewMemoryRepo(), failures: 2}
	tr := NewTracker(repo, Options{AppendRetries: 2})

	_, err := tr.RecordMutation(context.Background(), mutation(ActionDelete, EntityTypeProperty, "Condo", "admin"))
	require.NoError(t, err)

	all, err := repo.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, 3, repo.calls)
}

type failingRepo struct{ MemoryRepo }

func (f *failingRepo) Append(context.Context, Entry) (Entry, error) {
	return Entry{}, errors.New("storage unavailable")
}

func TestTracker_WriteFailureIsDistinct(t *testing.T) {
	tr := NewTracker(&failingRepo{}, Options{AppendRetries: 1})
	_, err := tr.RecordMutation(context.Background(), mutation(ActionCreate, EntityTypeOwner, "Alice", "admin"))
	assert.ErrorIs(t, err, ErrLogWrite)
}

func TestTracker_RecentAndStatistics(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(NewMemoryRepo(), Options{Location: time.UTC})
	ctx := context.Background()

	tr.WithClock(fixedClock(now.Add(-10 * 24 * time.Hour)))
	_, _ = tr.RecordMutation(ctx, mutation(ActionCreate, EntityTypeOwner, "old", "admin"))
	tr.WithClock(fixedClock(now.Add(-2 * 24 * time.Hour)))
	_, _ = tr.RecordMutation(ctx, mutation(ActionUpdate, EntityTypeOwner, "mid", "admin"))
	tr.WithClock(fixedClock(now.Add(-time.Hour)))
	_, _ = tr.RecordMutation(ctx, mutation(ActionDelete, EntityTypeOwner, "new", "admin"))

	tr.WithClock(fixedClock(now))
	st, err := tr.ComputeStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, Statistics{Total: 3, Today: 1, ThisWeek: 2, Creates: 1, Updates: 1, Deletes: 1}, st)

	recent, err := tr.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "new", recent[0].EntityName)
}
