package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// Config 定位服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	// 定位管线配置
	Positioning struct {
		// 原始传感器数据主题，如 "sensors/+/scan"
		Topic string

		// 定位周期（每个 tick 处理一次缓冲区）
		TickInterval time.Duration

		// 信号衰减 → 距离换算参数（对数距离路径损耗模型）
		// ReferenceLoss: 1m 处的参考衰减（dB）
		// PathLossExponent: 路径损耗指数（自由空间约 2.0，室内更高）
		ReferenceLoss    float64
		PathLossExponent float64

		// Kalman 平滑配置
		// SmoothingEnabled=false 时直接输出多边定位原始结果
		SmoothingEnabled bool
		ProcessNoise     float64
		MeasurementNoise float64

		// 滤波器空闲淘汰时间（超过该时间未更新的设备滤波器被移除）
		FilterTTL time.Duration

		// 是否将定位结果写入数据库（开发环境可关闭）
		PersistenceEnabled bool
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	// 从环境变量加载（默认值）
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "ept")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "ept-positioning")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1

	cfg.Positioning.Topic = getEnv("POSITIONING_TOPIC", "sensors/+/scan")
	cfg.Positioning.TickInterval = time.Duration(getEnvInt("POSITIONING_TICK_MS", 1000)) * time.Millisecond
	cfg.Positioning.ReferenceLoss = getEnvFloat("POSITIONING_REFERENCE_LOSS", 41.0)
	cfg.Positioning.PathLossExponent = getEnvFloat("POSITIONING_PATH_LOSS_EXP", 2.0)
	cfg.Positioning.SmoothingEnabled = getEnv("POSITIONING_FILTER", "kalman") == "kalman"
	cfg.Positioning.ProcessNoise = getEnvFloat("POSITIONING_PROCESS_NOISE", 0.003)
	cfg.Positioning.MeasurementNoise = getEnvFloat("POSITIONING_MEASUREMENT_NOISE", 0.5)
	cfg.Positioning.FilterTTL = time.Duration(getEnvInt("POSITIONING_FILTER_TTL_S", 300)) * time.Second
	cfg.Positioning.PersistenceEnabled = getEnv("POSITIONING_ENVIRONMENT", "production") == "production"

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if cfg.Positioning.TickInterval <= 0 {
		return nil, fmt.Errorf("tick interval must be positive")
	}
	if cfg.Positioning.PathLossExponent <= 0 {
		return nil, fmt.Errorf("path loss exponent must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			return v
		}
	}
	return defaultValue
}
