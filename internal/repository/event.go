package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ept-positioning/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventRepository 活动与设备位置仓库
type EventRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEventRepository 创建活动仓库
func NewEventRepository(db *sql.DB, logger *zap.Logger) *EventRepository {
	return &EventRepository{
		db:     db,
		logger: logger,
	}
}

// GetActiveEvents 查询活动窗口包含 now 的全部活动（含平面图）
func (r *EventRepository) GetActiveEvents(ctx context.Context, now time.Time) ([]*models.Event, error) {
	query := `
		SELECT
			event_id,
			event_name,
			start_date,
			end_date,
			COALESCE(floor_layout::text, '')
		FROM events
		WHERE start_date <= $1 AND end_date >= $1
	`

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query active events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event := &models.Event{}
		if err := rows.Scan(
			&event.EventID,
			&event.EventName,
			&event.StartDate,
			&event.EndDate,
			&event.FloorLayout,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return events, nil
}

// AddDevicePositions 追加一批设备位置（单条多行 INSERT）
func (r *EventRepository) AddDevicePositions(ctx context.Context, eventID string, positions []models.EstimatedPosition) error {
	if len(positions) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(positions))
	args := make([]interface{}, 0, len(positions)*6)
	for i, pos := range positions {
		base := i * 6
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6))
		args = append(args, uuid.New().String(), eventID, pos.ID, pos.X, pos.Y, pos.Timestamp)
	}

	query := fmt.Sprintf(`
		INSERT INTO device_positions (id, event_id, device_id, x, y, timestamp)
		VALUES %s
	`, strings.Join(placeholders, ", "))

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert device positions: %w", err)
	}

	return nil
}

// GetDevicePositions 查询某活动在时间窗口内的位置记录（报表用）
func (r *EventRepository) GetDevicePositions(ctx context.Context, eventID string, from, to time.Time) ([]models.EstimatedPosition, error) {
	query := `
		SELECT device_id, x, y, timestamp
		FROM device_positions
		WHERE event_id = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp ASC
	`

	rows, err := r.db.QueryContext(ctx, query, eventID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query device positions: %w", err)
	}
	defer rows.Close()

	var positions []models.EstimatedPosition
	for rows.Next() {
		var pos models.EstimatedPosition
		if err := rows.Scan(&pos.ID, &pos.X, &pos.Y, &pos.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan device position: %w", err)
		}
		positions = append(positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate device positions: %w", err)
	}

	return positions, nil
}
