//go:build integration

package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/traininglog/internal/domain"
)

func setupRepository(t *testing.T) *Repository {
	t.Helper()
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("traininglog"),
		postgrescontainer.WithUsername("traininglog"),
		postgrescontainer.WithPassword("traininglog"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	migration, err := os.ReadFile("../../../db/postgres/migrations/0001_init.up.sql")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(migration))
	require.NoError(t, err)

	return NewRepository(pool)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	var lastErr error
	for time.Now().Before(deadline) {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				pool.Close()
				return nil
			}
			pool.Close()
		}
		lastErr = err
		time.Sleep(500 * time.Millisecond)
	}
	return lastErr
}

func record(uuidStr string) domain.TrainingSession {
	return domain.TrainingSession{
		SessionDate:     "2024-01-01",
		ActivityType:    "run",
		DurationMinutes: 30,
		EnergyLevel:     3,
		SessionEmphasis: "physical",
		UUID:            uuidStr,
	}
}

func TestUpsertTwiceKeepsOneRow(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	id := uuid.NewString()
	_, err := repo.Upsert(ctx, record(id), false)
	require.NoError(t, err)

	first, err := repo.ListByDate(ctx, "2024-01-01")
	require.NoError(t, err)
	require.Len(t, first, 1)

	time.Sleep(20 * time.Millisecond)

	edited := record(id)
	edited.DurationMinutes = 45
	rpe := 8
	edited.RPE = &rpe
	_, err = repo.Upsert(ctx, edited, false)
	require.NoError(t, err)

	rows, err := repo.ListByDate(ctx, "2024-01-01")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, first[0].ID, rows[0].ID)
	require.Equal(t, 45, rows[0].DurationMinutes)
	require.NotNil(t, rows[0].RPE)
	require.Equal(t, 8, *rows[0].RPE)
	require.True(t, rows[0].UpdatedAt.After(first[0].UpdatedAt))
}

func TestMergeMaxProtectsDeletes(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	id := uuid.NewString()
	deleted := record(id)
	deleted.Deleted = 1
	_, err := repo.Upsert(ctx, deleted, true)
	require.NoError(t, err)

	// A stale sync payload without the delete flag must not resurrect.
	stale := record(id)
	_, err = repo.Upsert(ctx, stale, true)
	require.NoError(t, err)

	rows, err := repo.ListSince(ctx, time.Unix(0, 0), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 1, rows[0].Deleted)

	// The browser edit path overwrites the flag; an explicit edit is
	// allowed to bring the row back.
	edit := record(id)
	_, err = repo.Upsert(ctx, edit, false)
	require.NoError(t, err)

	rows, err = repo.ListByDate(ctx, "2024-01-01")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 0, rows[0].Deleted)
}

func TestSoftDeleteTwice(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	id := uuid.NewString()
	_, err := repo.Upsert(ctx, record(id), false)
	require.NoError(t, err)

	ok, err := repo.SoftDelete(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.SoftDelete(ctx, id)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = repo.SoftDelete(ctx, uuid.NewString())
	require.NoError(t, err)
	require.False(t, ok)

	rows, err := repo.ListSince(ctx, time.Unix(0, 0), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 1, rows[0].Deleted)
}

func TestListSinceStrictBoundaryAndOrder(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	ids := []string{uuid.NewString(), uuid.NewString(), uuid.NewString()}
	for _, id := range ids {
		_, err := repo.Upsert(ctx, record(id), false)
		require.NoError(t, err)
		time.Sleep(20 * time.Millisecond)
	}

	all, err := repo.ListSince(ctx, time.Unix(0, 0), 500)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		require.True(t, all[i].UpdatedAt.After(all[i-1].UpdatedAt))
	}

	// Strictly-greater comparison: the boundary row itself is excluded,
	// everything after it survives.
	tail, err := repo.ListSince(ctx, all[0].UpdatedAt, 500)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	require.Equal(t, all[1].UUID, tail[0].UUID)

	// Deleted rows still flow to sync consumers.
	ok, err := repo.SoftDelete(ctx, all[0].UUID)
	require.NoError(t, err)
	require.True(t, ok)

	changed, err := repo.ListSince(ctx, all[2].UpdatedAt, 500)
	require.NoError(t, err)
	require.Len(t, changed, 1)
	require.Equal(t, all[0].UUID, changed[0].UUID)
	require.Equal(t, 1, changed[0].Deleted)
}

func TestListByDateAndRecentOrdering(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	day1a := record(uuid.NewString())
	day1b := record(uuid.NewString())
	day2 := record(uuid.NewString())
	day2.SessionDate = "2024-01-02"

	for _, rec := range []domain.TrainingSession{day1a, day1b, day2} {
		_, err := repo.Upsert(ctx, rec, false)
		require.NoError(t, err)
	}

	byDate, err := repo.ListByDate(ctx, "2024-01-01")
	require.NoError(t, err)
	require.Len(t, byDate, 2)
	require.Greater(t, byDate[0].ID, byDate[1].ID)

	recent, err := repo.ListRecent(ctx, 200)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	require.Equal(t, "2024-01-02", recent[0].SessionDate)

	ok, err := repo.SoftDelete(ctx, day2.UUID)
	require.NoError(t, err)
	require.True(t, ok)

	recent, err = repo.ListRecent(ctx, 200)
	require.NoError(t, err)
	require.Len(t, recent, 2)
}
