package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/goaltracker/internal/domain"
)

var day = civil.Date{Year: 2025, Month: 3, Day: 10}

func TestIncrementCreatesThenAccumulates(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()
	at := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

	first, err := repo.Increment(ctx, domain.IncrementCommand{ID: "rec-1", TenantID: "t1", UserID: "u1", Date: day, Category: domain.CategoryGoals, Amount: 1, At: at})
	require.NoError(t, err)
	require.Equal(t, "rec-1", first.ID)
	require.Equal(t, 1, first.GoalsCompleted)

	second, err := repo.Increment(ctx, domain.IncrementCommand{ID: "rec-2", TenantID: "t1", UserID: "u1", Date: day, Category: domain.CategoryTasks, Amount: 3, At: at.Add(time.Hour)})
	require.NoError(t, err)
	require.Equal(t, "rec-1", second.ID, "existing record keeps its id")
	require.Equal(t, 1, second.GoalsCompleted)
	require.Equal(t, 3, second.TasksCompleted)
	require.Equal(t, at, second.CreatedAt)
	require.Equal(t, at.Add(time.Hour), second.UpdatedAt)

	records, err := repo.ListByUser(ctx, "t1", "u1")
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestConcurrentIncrementsKeepOneRecordPerDay(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Increment(ctx, domain.IncrementCommand{ID: "rec", TenantID: "t1", UserID: "u1", Date: day, Category: domain.CategoryHabits, Amount: 1, At: time.Now()})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	records, err := repo.ListByUser(ctx, "t1", "u1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, 50, records[0].HabitsCompleted)
}

func TestTouchLoginStampsRecord(t *testing.T) {
	repo := NewRepository()
	at := time.Date(2025, time.March, 10, 7, 30, 0, 0, time.UTC)

	rec, err := repo.TouchLogin(context.Background(), domain.LoginCommand{ID: "rec-1", TenantID: "t1", UserID: "u1", Date: day, At: at})
	require.NoError(t, err)
	require.NotNil(t, rec.LastLoginAt)
	require.Equal(t, at, *rec.LastLoginAt)
	require.Zero(t, rec.GoalsCompleted)

	*rec.LastLoginAt = time.Time{}
	records, err := repo.ListByUser(context.Background(), "t1", "u1")
	require.NoError(t, err)
	require.Equal(t, at, *records[0].LastLoginAt, "callers cannot mutate stored state")
}

func TestListRangeIsInclusiveAndScopedToUser(t *testing.T) {
	repo := seed(t, "t1", "u1", 0, 1, 2, 5, 9)
	_, err := repo.Increment(context.Background(), domain.IncrementCommand{ID: "other", TenantID: "t1", UserID: "u2", Date: day, Category: domain.CategoryGoals, Amount: 1})
	require.NoError(t, err)
	_, err = repo.Increment(context.Background(), domain.IncrementCommand{ID: "tenant", TenantID: "t2", UserID: "u1", Date: day, Category: domain.CategoryGoals, Amount: 1})
	require.NoError(t, err)

	records, err := repo.ListRange(context.Background(), "t1", "u1", day.AddDays(-5), day.AddDays(-1))
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, rec := range records {
		require.Equal(t, "u1", rec.UserID)
		require.Equal(t, "t1", rec.TenantID)
	}
}

func TestListPageWalksDescending(t *testing.T) {
	repo := seed(t, "t1", "u1", 0, 1, 2, 3, 4)
	ctx := context.Background()

	page, next, err := repo.ListPage(ctx, "t1", "u1", nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, day, page[0].ActivityDate)
	require.Equal(t, day.AddDays(-1), page[1].ActivityDate)
	require.NotNil(t, next)

	page, next, err = repo.ListPage(ctx, "t1", "u1", next, 2)
	require.NoError(t, err)
	require.Equal(t, day.AddDays(-2), page[0].ActivityDate)
	require.NotNil(t, next)

	page, next, err = repo.ListPage(ctx, "t1", "u1", next, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Nil(t, next)
}

func TestCanceledContext(t *testing.T) {
	repo := NewRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.ListByUser(ctx, "t1", "u1")
	require.ErrorIs(t, err, context.Canceled)
}

func seed(t *testing.T, tenantID, userID string, offsets ...int) *Repository {
	t.Helper()
	repo := NewRepository()
	for _, offset := range offsets {
		_, err := repo.Increment(context.Background(), domain.IncrementCommand{
			ID:       civilID(offset),
			TenantID: tenantID,
			UserID:   userID,
			Date:     day.AddDays(-offset),
			Category: domain.CategoryTasks,
			Amount:   1,
		})
		require.NoError(t, err)
	}
	return repo
}

func civilID(offset int) string {
	return "rec-" + day.AddDays(-offset).String()
}
