package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ept-positioning/internal/config"
	"ept-positioning/internal/models"

	"go.uber.org/zap"

	mqttcommon "ept-positioning/internal/mqtt"
)

// Ingestor 原始广播的接收方（缓冲区）
type Ingestor interface {
	Ingest(broadcast *models.RawBroadcast)
}

// MQTTConsumer 传感器广播消费者
//
// 订阅传感器扫描主题，把每条广播解析为 RawBroadcast 并交给缓冲区。
// 解析失败的消息整条丢弃并记录日志，不会向发布方传播错误
type MQTTConsumer struct {
	config     *config.Config
	mqttClient *mqttcommon.Client
	buffer     Ingestor
	logger     *zap.Logger
}

// NewMQTTConsumer 创建MQTT消费者
func NewMQTTConsumer(
	cfg *config.Config,
	mqttClient *mqttcommon.Client,
	buffer Ingestor,
	logger *zap.Logger,
) *MQTTConsumer {
	return &MQTTConsumer{
		config:     cfg,
		mqttClient: mqttClient,
		buffer:     buffer,
		logger:     logger,
	}
}

// Start 启动消费者
func (c *MQTTConsumer) Start(ctx context.Context) error {
	if err := c.mqttClient.Subscribe(c.config.Positioning.Topic, c.config.MQTT.QoS, c.HandleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to scan topic: %w", err)
	}

	c.logger.Info("MQTT consumer started",
		zap.String("topic", c.config.Positioning.Topic),
	)

	// 等待上下文取消
	<-ctx.Done()
	return nil
}

// Stop 停止消费者
func (c *MQTTConsumer) Stop(ctx context.Context) error {
	if err := c.mqttClient.Unsubscribe(c.config.Positioning.Topic); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}

	c.logger.Info("MQTT consumer stopped")
	return nil
}

// HandleMessage 处理单条传感器广播
func (c *MQTTConsumer) HandleMessage(topic string, payload []byte) error {
	var broadcast models.RawBroadcast
	if err := json.Unmarshal(payload, &broadcast); err != nil {
		c.logger.Warn("Failed to unmarshal sensor broadcast",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return fmt.Errorf("failed to unmarshal broadcast: %w", err)
	}

	if broadcast.SensorMac == "" {
		return fmt.Errorf("broadcast missing sensorMac on topic %s", topic)
	}
	if broadcast.Time.IsZero() {
		broadcast.Time = time.Now().UTC()
	}

	c.buffer.Ingest(&broadcast)

	c.logger.Debug("Buffered sensor broadcast",
		zap.String("sensor_mac", broadcast.SensorMac),
		zap.Int("device_count", len(broadcast.Devices)),
	)

	return nil
}
