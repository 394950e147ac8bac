package positioning

import "math"

// MinDistance 距离换算下限，避免向求解器输入退化的零距离
const MinDistance = 0.1

// DistanceEstimator 信号衰减幅度 → 距离换算器
//
// 采用对数距离路径损耗模型：
//
//	d = 10^((magnitude - referenceLoss) / (10 * pathLossExponent))
//
// 输入为非负衰减幅度（缓冲区入口已对原始 rssi 取反），
// 幅度越大（信号越弱）换算距离越远，单位与平面图坐标一致
type DistanceEstimator struct {
	referenceLoss    float64
	pathLossExponent float64
}

// NewDistanceEstimator 创建距离换算器
//
// referenceLoss: 1m 处参考衰减（dB）
// pathLossExponent: 路径损耗指数（自由空间约 2.0，室内 2.5~4.0）
func NewDistanceEstimator(referenceLoss, pathLossExponent float64) *DistanceEstimator {
	return &DistanceEstimator{
		referenceLoss:    referenceLoss,
		pathLossExponent: pathLossExponent,
	}
}

// EstimateDistance 将衰减幅度换算为距离
//
// 纯函数，对所有非负有限输入有定义；结果不小于 MinDistance
func (e *DistanceEstimator) EstimateDistance(magnitude float64) float64 {
	d := math.Pow(10, (magnitude-e.referenceLoss)/(10*e.pathLossExponent))
	if d < MinDistance {
		return MinDistance
	}
	return d
}

// MagnitudeForDistance 距离 → 衰减幅度的反向换算（标定工具用）
func (e *DistanceEstimator) MagnitudeForDistance(distance float64) float64 {
	if distance < MinDistance {
		distance = MinDistance
	}
	return e.referenceLoss + 10*e.pathLossExponent*math.Log10(distance)
}
