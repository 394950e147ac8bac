package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// 检查默认值
	if cfg.Database.Host != "localhost" {
		t.Errorf("Expected DB_HOST default 'localhost', got '%s'", cfg.Database.Host)
	}

	if cfg.Database.Port != 5432 {
		t.Errorf("Expected DB_PORT default 5432, got %d", cfg.Database.Port)
	}

	if cfg.Database.Database != "ept" {
		t.Errorf("Expected DB_NAME default 'ept', got '%s'", cfg.Database.Database)
	}

	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Expected REDIS_ADDR default 'localhost:6379', got '%s'", cfg.Redis.Addr)
	}

	if cfg.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("Expected MQTT_BROKER default 'tcp://localhost:1883', got '%s'", cfg.MQTT.Broker)
	}

	if cfg.Positioning.Topic != "sensors/+/scan" {
		t.Errorf("Expected POSITIONING_TOPIC default 'sensors/+/scan', got '%s'", cfg.Positioning.Topic)
	}

	if cfg.Positioning.TickInterval != time.Second {
		t.Errorf("Expected tick interval default 1s, got %v", cfg.Positioning.TickInterval)
	}

	if !cfg.Positioning.SmoothingEnabled {
		t.Error("Expected smoothing enabled by default")
	}

	if !cfg.Positioning.PersistenceEnabled {
		t.Error("Expected persistence enabled by default")
	}

	if cfg.Positioning.ProcessNoise != 0.003 {
		t.Errorf("Expected process noise default 0.003, got %f", cfg.Positioning.ProcessNoise)
	}

	if cfg.Positioning.MeasurementNoise != 0.5 {
		t.Errorf("Expected measurement noise default 0.5, got %f", cfg.Positioning.MeasurementNoise)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Expected LOG_LEVEL default 'info', got '%s'", cfg.Log.Level)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	// 设置环境变量
	os.Setenv("DB_HOST", "test-host")
	os.Setenv("POSITIONING_TICK_MS", "250")
	os.Setenv("POSITIONING_FILTER", "none")
	os.Setenv("POSITIONING_ENVIRONMENT", "development")
	os.Setenv("POSITIONING_PATH_LOSS_EXP", "2.7")
	os.Setenv("LOG_LEVEL", "debug")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Database.Host != "test-host" {
		t.Errorf("Expected DB_HOST 'test-host', got '%s'", cfg.Database.Host)
	}

	if cfg.Positioning.TickInterval != 250*time.Millisecond {
		t.Errorf("Expected tick interval 250ms, got %v", cfg.Positioning.TickInterval)
	}

	if cfg.Positioning.SmoothingEnabled {
		t.Error("Expected smoothing disabled when POSITIONING_FILTER != 'kalman'")
	}

	if cfg.Positioning.PersistenceEnabled {
		t.Error("Expected persistence disabled outside production")
	}

	if cfg.Positioning.PathLossExponent != 2.7 {
		t.Errorf("Expected path loss exponent 2.7, got %f", cfg.Positioning.PathLossExponent)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Expected LOG_LEVEL 'debug', got '%s'", cfg.Log.Level)
	}
}

func TestLoad_InvalidTickInterval(t *testing.T) {
	os.Clearenv()
	os.Setenv("POSITIONING_TICK_MS", "0")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Expected error for zero tick interval")
	}
}
