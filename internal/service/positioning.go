package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ept-positioning/internal/config"
	"ept-positioning/internal/consumer"
	"ept-positioning/internal/database"
	"ept-positioning/internal/pipeline"
	"ept-positioning/internal/repository"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	mqttcommon "ept-positioning/internal/mqtt"
	rediscommon "ept-positioning/internal/redis"
)

// PositioningService 设备定位服务
//
// 组装缓冲区、MQTT消费者、定位处理器与各仓库，
// 并以固定 tick 周期串行驱动处理器
type PositioningService struct {
	config      *config.Config
	logger      *zap.Logger
	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqttcommon.Client
	buffer      *pipeline.Buffer
	processor   *pipeline.Processor
	consumer    *consumer.MQTTConsumer
}

// NewPositioningService 创建定位服务
func NewPositioningService(cfg *config.Config, logger *zap.Logger) (*PositioningService, error) {
	// 初始化数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 初始化 Redis（传感器别名表）
	redisClient := rediscommon.NewRedisClient(&cfg.Redis)
	if err := rediscommon.Ping(context.Background(), redisClient); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	// 初始化 MQTT
	mqttClient, err := mqttcommon.NewClient(&cfg.MQTT, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	eventRepo := repository.NewEventRepository(db, logger)
	linkRepo := repository.NewSensorLinkRepository(redisClient, logger)

	buffer := pipeline.NewBuffer()
	processor := pipeline.NewProcessor(cfg, buffer, eventRepo, linkRepo, logger)
	mqttConsumer := consumer.NewMQTTConsumer(cfg, mqttClient, buffer, logger)

	return &PositioningService{
		config:      cfg,
		logger:      logger,
		db:          db,
		redisClient: redisClient,
		mqttClient:  mqttClient,
		buffer:      buffer,
		processor:   processor,
		consumer:    mqttConsumer,
	}, nil
}

// Start 启动服务
//
// 消费者在独立 goroutine 中订阅广播；tick 循环在当前 goroutine
// 内串行执行，上一个 tick 未完成时下一个 tick 顺延，永不并发
func (s *PositioningService) Start(ctx context.Context) error {
	s.logger.Info("Starting positioning service",
		zap.Duration("tick_interval", s.config.Positioning.TickInterval),
		zap.Bool("smoothing_enabled", s.config.Positioning.SmoothingEnabled),
		zap.Bool("persistence_enabled", s.config.Positioning.PersistenceEnabled),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := s.consumer.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	ticker := time.NewTicker(s.config.Positioning.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errChan:
			return fmt.Errorf("mqtt consumer failed: %w", err)
		case <-ticker.C:
			if err := s.processor.ProcessTick(ctx, time.Now().UTC()); err != nil {
				s.logger.Error("Tick processing failed", zap.Error(err))
			}
		}
	}
}

// Stop 停止服务并释放连接
func (s *PositioningService) Stop(ctx context.Context) error {
	if err := s.consumer.Stop(ctx); err != nil {
		s.logger.Error("Error stopping consumer", zap.Error(err))
	}

	s.mqttClient.Disconnect()

	if err := rediscommon.Close(s.redisClient); err != nil {
		s.logger.Error("Error closing redis client", zap.Error(err))
	}
	if err := database.Close(s.db); err != nil {
		s.logger.Error("Error closing database", zap.Error(err))
	}

	s.logger.Info("Positioning service stopped")
	return nil
}
