package positioning

import (
	"time"

	"ept-positioning/internal/models"

	"gonum.org/v1/gonum/mat"
)

// kalmanFilter 单个设备的匀速模型 Kalman 滤波器
//
// 状态向量 [x, y, vx, vy]，观测为多边定位输出的原始 (x, y)。
// 状态与协方差仅由 FilterBank 通过 Update 驱动，外部不可见。
type kalmanFilter struct {
	x *mat.VecDense // 状态 [x y vx vy]
	p *mat.Dense    // 协方差 4x4

	processNoise     float64
	measurementNoise float64

	lastUpdate time.Time
}

func newKalmanFilter(x0, y0 float64, ts time.Time, processNoise, measurementNoise float64) *kalmanFilter {
	f := &kalmanFilter{
		x:                mat.NewVecDense(4, []float64{x0, y0, 0, 0}),
		p:                mat.NewDense(4, 4, nil),
		processNoise:     processNoise,
		measurementNoise: measurementNoise,
		lastUpdate:       ts,
	}
	// 初始不确定度：位置取观测噪声量级，速度未知取较大值
	f.p.Set(0, 0, measurementNoise)
	f.p.Set(1, 1, measurementNoise)
	f.p.Set(2, 2, 1.0)
	f.p.Set(3, 3, 1.0)
	return f
}

// predict 将状态外推到 ts（匀速模型 + 白噪声加速度过程噪声）
func (f *kalmanFilter) predict(ts time.Time) {
	dt := ts.Sub(f.lastUpdate).Seconds()
	if dt < 0 {
		dt = 0
	}

	fm := mat.NewDense(4, 4, []float64{
		1, 0, dt, 0,
		0, 1, 0, dt,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})

	q := f.processNoise
	dt2 := dt * dt
	dt3 := dt2 * dt / 2
	dt4 := dt2 * dt2 / 4
	qm := mat.NewDense(4, 4, []float64{
		dt4 * q, 0, dt3 * q, 0,
		0, dt4 * q, 0, dt3 * q,
		dt3 * q, 0, dt2 * q, 0,
		0, dt3 * q, 0, dt2 * q,
	})

	var xPred mat.VecDense
	xPred.MulVec(fm, f.x)
	f.x.CopyVec(&xPred)

	var fp, pPred mat.Dense
	fp.Mul(fm, f.p)
	pPred.Mul(&fp, fm.T())
	pPred.Add(&pPred, qm)
	f.p.Copy(&pPred)
}

// correct 用原始观测 (zx, zy) 修正状态
func (f *kalmanFilter) correct(zx, zy float64) {
	h := mat.NewDense(2, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
	})
	r := mat.NewDense(2, 2, []float64{
		f.measurementNoise, 0,
		0, f.measurementNoise,
	})

	// 新息 y = z - Hx
	innov := mat.NewVecDense(2, []float64{
		zx - f.x.AtVec(0),
		zy - f.x.AtVec(1),
	})

	// S = HPH' + R
	var ph, s mat.Dense
	ph.Mul(f.p, h.T())
	s.Mul(h, &ph)
	s.Add(&s, r)

	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		// 协方差退化时放弃本次修正，保留预测值
		return
	}

	// K = PH'S^-1
	var k mat.Dense
	k.Mul(&ph, &sInv)

	var dx mat.VecDense
	dx.MulVec(&k, innov)
	f.x.AddVec(f.x, &dx)

	// P = (I - KH)P
	var kh, ikh, pNew mat.Dense
	kh.Mul(&k, h)
	ikh.Sub(eye4(), &kh)
	pNew.Mul(&ikh, f.p)
	f.p.Copy(&pNew)
}

func eye4() *mat.Dense {
	return mat.NewDense(4, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
}

// FilterBank 按设备维护 Kalman 滤波器集合
//
// 滤波器在设备首次出现时延迟创建，由调度循环单线程驱动，
// 不做并发保护；空闲超过 TTL 的条目由 EvictStale 回收。
type FilterBank struct {
	processNoise     float64
	measurementNoise float64
	filters          map[int]*kalmanFilter
}

// NewFilterBank 创建滤波器组
func NewFilterBank(processNoise, measurementNoise float64) *FilterBank {
	return &FilterBank{
		processNoise:     processNoise,
		measurementNoise: measurementNoise,
		filters:          make(map[int]*kalmanFilter),
	}
}

// Update 推进单个设备的滤波器并返回平滑后的位置
//
// 首次出现的设备以原始位置为种子，返回原始值；
// 之后每次先外推到 ts 再用原始观测修正
func (b *FilterBank) Update(deviceID int, rawX, rawY float64, ts time.Time) models.EstimatedPosition {
	f, ok := b.filters[deviceID]
	if !ok {
		f = newKalmanFilter(rawX, rawY, ts, b.processNoise, b.measurementNoise)
		b.filters[deviceID] = f
		return models.EstimatedPosition{ID: deviceID, X: rawX, Y: rawY, Timestamp: ts}
	}

	f.predict(ts)
	f.correct(rawX, rawY)
	f.lastUpdate = ts

	return models.EstimatedPosition{
		ID:        deviceID,
		X:         f.x.AtVec(0),
		Y:         f.x.AtVec(1),
		Timestamp: ts,
	}
}

// Smooth 对一批求解结果逐个应用 Update
func (b *FilterBank) Smooth(positions []models.EstimatedPosition) []models.EstimatedPosition {
	smoothed := make([]models.EstimatedPosition, 0, len(positions))
	for _, pos := range positions {
		smoothed = append(smoothed, b.Update(pos.ID, pos.X, pos.Y, pos.Timestamp))
	}
	return smoothed
}

// EvictStale 移除空闲超过 ttl 的滤波器，返回移除数量
//
// 长期运行时每个出现过的设备都会留下一个滤波器条目，
// 不回收会无限增长
func (b *FilterBank) EvictStale(now time.Time, ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	evicted := 0
	for id, f := range b.filters {
		if now.Sub(f.lastUpdate) > ttl {
			delete(b.filters, id)
			evicted++
		}
	}
	return evicted
}

// Size 当前滤波器数量
func (b *FilterBank) Size() int {
	return len(b.filters)
}
