package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ept-positioning/internal/config"
	"ept-positioning/internal/models"
	"ept-positioning/internal/positioning"
	"ept-positioning/internal/repository"

	"go.uber.org/zap"
)

// EventStore 活动持久化协作方
type EventStore interface {
	// GetActiveEvents 返回活动窗口包含 now 的全部活动
	GetActiveEvents(ctx context.Context, now time.Time) ([]*models.Event, error)
	// AddDevicePositions 追加一批设备位置（按活动独立提交）
	AddDevicePositions(ctx context.Context, eventID string, positions []models.EstimatedPosition) error
}

// SensorLinker 传感器标记 → 硬件地址的别名查询协作方
type SensorLinker interface {
	GetMacAddress(ctx context.Context, markerID string) (string, error)
}

// Processor 单次 tick 的定位处理器
//
// 每个 tick：取走缓冲区快照，对每个活动中的平面图提取传感器标记、
// 解析硬件地址、匹配读数、换算距离、多边定位求解，
// 可选经 Kalman 平滑后写入活动持久化。
//
// ProcessTick 由调度循环单线程串行调用，不可重入
type Processor struct {
	config    *config.Config
	logger    *zap.Logger
	buffer    *Buffer
	estimator *positioning.DistanceEstimator
	filters   *positioning.FilterBank
	store     EventStore
	links     SensorLinker
}

// NewProcessor 创建定位处理器
func NewProcessor(
	cfg *config.Config,
	buffer *Buffer,
	store EventStore,
	links SensorLinker,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		config:    cfg,
		logger:    logger,
		buffer:    buffer,
		estimator: positioning.NewDistanceEstimator(cfg.Positioning.ReferenceLoss, cfg.Positioning.PathLossExponent),
		filters:   positioning.NewFilterBank(cfg.Positioning.ProcessNoise, cfg.Positioning.MeasurementNoise),
		store:     store,
		links:     links,
	}
}

// ProcessTick 处理一个定位周期
//
// 快照在任何持久化写入开始之前取走，生产者不会被在途写入阻塞；
// 未被任何活动消费的读数随快照一起丢弃（不跨 tick 重试）。
// 单个活动的写入失败只记录日志，不影响同一 tick 内的其他活动
func (p *Processor) ProcessTick(ctx context.Context, now time.Time) error {
	snapshot := p.buffer.Drain()

	events, err := p.store.GetActiveEvents(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to query active events: %w", err)
	}

	for _, event := range events {
		positions := p.processEvent(ctx, event, snapshot)
		if len(positions) == 0 || !p.config.Positioning.PersistenceEnabled {
			continue
		}
		if err := p.store.AddDevicePositions(ctx, event.EventID, positions); err != nil {
			p.logger.Error("Failed to persist device positions",
				zap.String("event_id", event.EventID),
				zap.Int("position_count", len(positions)),
				zap.Error(err),
			)
			continue
		}
		p.logger.Debug("Persisted device positions",
			zap.String("event_id", event.EventID),
			zap.Int("position_count", len(positions)),
		)
	}

	if evicted := p.filters.EvictStale(now, p.config.Positioning.FilterTTL); evicted > 0 {
		p.logger.Debug("Evicted stale device filters", zap.Int("evicted", evicted))
	}

	return nil
}

// processEvent 对单个活动求解本 tick 的设备位置
//
// 平面图缺失/无法解析/没有标记时整个活动跳过；
// 无法解析硬件地址的标记不贡献读数
func (p *Processor) processEvent(ctx context.Context, event *models.Event, snapshot []models.SensorReading) []models.EstimatedPosition {
	markers, err := ExtractSensorMarkers(event.FloorLayout)
	if err != nil {
		p.logger.Debug("Skipping event without usable floor layout",
			zap.String("event_id", event.EventID),
			zap.Error(err),
		)
		return nil
	}
	if len(markers) == 0 {
		return nil
	}

	var observations []models.RangeObservation
	for _, marker := range markers {
		mac, err := p.links.GetMacAddress(ctx, marker.SensorID)
		if err != nil {
			if !errors.Is(err, repository.ErrLinkNotFound) {
				p.logger.Warn("Sensor link lookup failed",
					zap.String("marker_id", marker.SensorID),
					zap.Error(err),
				)
			}
			continue
		}

		for _, reading := range snapshot {
			if reading.SensorMac != mac {
				continue
			}
			observations = append(observations, models.RangeObservation{
				DeviceID:  reading.DeviceID,
				SensorX:   marker.X,
				SensorY:   marker.Y,
				Distance:  p.estimator.EstimateDistance(reading.RSSIMagnitude),
				Timestamp: reading.Timestamp,
			})
		}
	}

	positions := positioning.SolvePositions(observations)
	if p.config.Positioning.SmoothingEnabled {
		positions = p.filters.Smooth(positions)
	}
	return positions
}
