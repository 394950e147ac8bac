package models

import "time"

// RawBroadcast 传感器上报的原始扫描数据（MQTT payload）
//
// rssi 为负的 dBm 值，入缓冲区时统一取反为非负衰减幅度
type RawBroadcast struct {
	SensorMac string              `json:"sensorMac"`
	Time      time.Time           `json:"time"`
	Devices   []DeviceObservation `json:"devices"`
}

// DeviceObservation 单个被扫描到的设备
type DeviceObservation struct {
	Mac  string  `json:"mac"`
	RSSI float64 `json:"rssi"`
}

// SensorReading 归一化后的单条读数（缓冲区内部格式）
//
// DeviceID 是会话内分配的递增编号，不向下游暴露设备原始 MAC
type SensorReading struct {
	DeviceID      int
	SensorMac     string
	RSSIMagnitude float64
	Timestamp     time.Time
}

// SensorMarker 平面图上放置的传感器标记
//
// 坐标为该活动平面图的本地坐标系
type SensorMarker struct {
	SensorID string
	X        float64
	Y        float64
}

// RangeObservation 多边定位求解器的单条输入
// （传感器坐标 + 估算距离，按 DeviceID 分组求解）
type RangeObservation struct {
	DeviceID  int
	SensorX   float64
	SensorY   float64
	Distance  float64
	Timestamp time.Time
}

// EstimatedPosition 求解（或平滑）后的设备位置
//
// 坐标仅在产生它的活动平面图坐标系内有意义
type EstimatedPosition struct {
	ID        int       `json:"id"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Timestamp time.Time `json:"timestamp"`
}

// Event 活动记录（含平面图定义）
//
// FloorLayout 为序列化的场景描述 JSON，其中 className 为 "Circle"
// 的子节点代表传感器标记
type Event struct {
	EventID     string
	EventName   string
	StartDate   time.Time
	EndDate     time.Time
	FloorLayout string
}
