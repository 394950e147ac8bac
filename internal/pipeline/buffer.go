package pipeline

import (
	"sync"

	"ept-positioning/internal/models"
)

// Buffer 原始读数缓冲区
//
// 职责：
// - 设备 MAC → 会话内递增编号的别名分配（原始 MAC 不出缓冲区）
// - 排除传感器自身地址（传感器不作为被跟踪设备）
// - RSSI 符号归一化（原始负 dBm 在入口统一取反为衰减幅度）
// - 按 tick 的快照隔离：Drain 之后到达的读数进入下一代缓冲区
//
// Ingest 可被任意数量的生产者并发调用，仅做内存写入，不阻塞
type Buffer struct {
	mu       sync.Mutex
	readings []models.SensorReading
	macToID  map[string]int
	nextID   int
	sensors  map[string]struct{}
}

// NewBuffer 创建缓冲区
func NewBuffer() *Buffer {
	return &Buffer{
		macToID: make(map[string]int),
		sensors: make(map[string]struct{}),
	}
}

// Ingest 将一条传感器广播归一化后追加到当前缓冲区
//
// 缺少设备地址的条目被单独跳过，不影响同一广播内的其他条目
func (b *Buffer) Ingest(broadcast *models.RawBroadcast) {
	if broadcast == nil || broadcast.SensorMac == "" {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.sensors[broadcast.SensorMac] = struct{}{}

	for _, device := range broadcast.Devices {
		if device.Mac == "" {
			continue
		}
		if _, isSensor := b.sensors[device.Mac]; isSensor {
			continue
		}

		id, ok := b.macToID[device.Mac]
		if !ok {
			id = b.nextID
			b.macToID[device.Mac] = id
			b.nextID++
		}

		b.readings = append(b.readings, models.SensorReading{
			DeviceID:      id,
			SensorMac:     broadcast.SensorMac,
			RSSIMagnitude: -device.RSSI,
			Timestamp:     broadcast.Time,
		})
	}
}

// Drain 取走当前缓冲区内容并开启下一代缓冲区
//
// 别名表与传感器地址表跨代保留，只有读数被清空
func (b *Buffer) Drain() []models.SensorReading {
	b.mu.Lock()
	defer b.mu.Unlock()

	snapshot := b.readings
	b.readings = nil
	return snapshot
}

// Len 当前缓冲区内读数条数
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.readings)
}

// KnownDevices 已分配编号的设备数量
func (b *Buffer) KnownDevices() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.macToID)
}
