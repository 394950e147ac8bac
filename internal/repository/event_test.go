package repository_test

import (
	"context"
	"testing"
	"time"

	"ept-positioning/internal/models"
	"ept-positioning/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEventRepository_GetActiveEvents(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := repository.NewEventRepository(db, zap.NewNop())

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	start := now.Add(-time.Hour)
	end := now.Add(time.Hour)
	layout := `{"children": []}`

	mock.ExpectQuery(`SELECT\s+event_id`).
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows([]string{
			"event_id", "event_name", "start_date", "end_date", "floor_layout",
		}).AddRow("event-1", "Tech Expo", start, end, layout))

	events, err := repo.GetActiveEvents(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "event-1", events[0].EventID)
	require.Equal(t, "Tech Expo", events[0].EventName)
	require.Equal(t, layout, events[0].FloorLayout)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_GetActiveEvents_NullLayout(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := repository.NewEventRepository(db, zap.NewNop())
	now := time.Now().UTC()

	// COALESCE 把缺失的平面图折叠成空串
	mock.ExpectQuery(`SELECT\s+event_id`).
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows([]string{
			"event_id", "event_name", "start_date", "end_date", "floor_layout",
		}).AddRow("event-1", "No Layout", now.Add(-time.Hour), now.Add(time.Hour), ""))

	events, err := repo.GetActiveEvents(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Empty(t, events[0].FloorLayout)
}

func TestEventRepository_AddDevicePositions(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := repository.NewEventRepository(db, zap.NewNop())

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	positions := []models.EstimatedPosition{
		{ID: 0, X: 3.0, Y: 4.0, Timestamp: ts},
		{ID: 1, X: 7.1, Y: 2.2, Timestamp: ts},
	}

	// 两行位置对应一条多行 INSERT；行 id 为生成的 uuid
	mock.ExpectExec(`INSERT INTO device_positions`).
		WithArgs(
			sqlmock.AnyArg(), "event-1", 0, 3.0, 4.0, ts,
			sqlmock.AnyArg(), "event-1", 1, 7.1, 2.2, ts,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.AddDevicePositions(context.Background(), "event-1", positions))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_AddDevicePositions_EmptyBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := repository.NewEventRepository(db, zap.NewNop())

	// 空批次不产生任何 SQL
	require.NoError(t, repo.AddDevicePositions(context.Background(), "event-1", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_GetDevicePositions(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := repository.NewEventRepository(db, zap.NewNop())

	from := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	to := from.Add(10 * time.Minute)

	mock.ExpectQuery(`SELECT\s+device_id`).
		WithArgs("event-1", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"device_id", "x", "y", "timestamp"}).
			AddRow(0, 3.0, 4.0, from.Add(time.Minute)).
			AddRow(0, 3.1, 4.1, from.Add(2*time.Minute)))

	positions, err := repo.GetDevicePositions(context.Background(), "event-1", from, to)
	require.NoError(t, err)
	require.Len(t, positions, 2)
	require.Equal(t, 0, positions[0].ID)
	require.Equal(t, 3.0, positions[0].X)
	require.True(t, positions[1].Timestamp.After(positions[0].Timestamp))
	require.NoError(t, mock.ExpectationsWereMet())
}
