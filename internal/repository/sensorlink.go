package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ErrLinkNotFound 表示标记没有对应的硬件地址
var ErrLinkNotFound = errors.New("sensor link not found")

// sensorLinkKeyPrefix 传感器链接服务写入的键前缀
const sensorLinkKeyPrefix = "sensorlink:"

// SensorLinkRepository 平面图标记 → 传感器硬件地址的别名表
//
// 链接关系由外部传感器配对服务维护，本仓库只做查询；
// 这里额外提供 LinkSensor 供工具和测试写入
type SensorLinkRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewSensorLinkRepository 创建别名表仓库
func NewSensorLinkRepository(client *redis.Client, logger *zap.Logger) *SensorLinkRepository {
	return &SensorLinkRepository{
		client: client,
		logger: logger,
	}
}

// GetMacAddress 查询标记对应的传感器硬件地址
//
// 不存在时返回 ErrLinkNotFound
func (r *SensorLinkRepository) GetMacAddress(ctx context.Context, markerID string) (string, error) {
	mac, err := r.client.Get(ctx, sensorLinkKeyPrefix+markerID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrLinkNotFound
		}
		return "", fmt.Errorf("failed to look up sensor link %s: %w", markerID, err)
	}
	return mac, nil
}

// LinkSensor 写入标记与硬件地址的对应关系
func (r *SensorLinkRepository) LinkSensor(ctx context.Context, markerID, mac string) error {
	if err := r.client.Set(ctx, sensorLinkKeyPrefix+markerID, mac, 0).Err(); err != nil {
		return fmt.Errorf("failed to link sensor %s: %w", markerID, err)
	}
	return nil
}
