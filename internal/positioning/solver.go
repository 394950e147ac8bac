package positioning

import (
	"math"
	"sort"

	"ept-positioning/internal/models"

	"gonum.org/v1/gonum/mat"
)

// MinObservations 2D 多边定位所需的最少观测数
const MinObservations = 3

// SolvePositions 按设备分组做线性最小二乘多边定位
//
// 输入为本 tick 收集到的全部（传感器坐标，估算距离）观测，
// 对每个观测数 >= MinObservations 的设备求解一个 (x, y)：
// 用最后一个观测作为参考，逐对相减消去二次项，
// 得到线性方程组后做最小二乘求解。
//
// 观测不足或几何退化（传感器共线导致方程组奇异）的设备
// 本 tick 不产生结果，不视为错误。
// 输出中设备编号唯一，顺序不作保证。
func SolvePositions(observations []models.RangeObservation) []models.EstimatedPosition {
	grouped := make(map[int][]models.RangeObservation)
	for _, obs := range observations {
		grouped[obs.DeviceID] = append(grouped[obs.DeviceID], obs)
	}

	// 固定遍历顺序，便于结果复现
	deviceIDs := make([]int, 0, len(grouped))
	for id := range grouped {
		deviceIDs = append(deviceIDs, id)
	}
	sort.Ints(deviceIDs)

	positions := make([]models.EstimatedPosition, 0, len(deviceIDs))
	for _, id := range deviceIDs {
		group := grouped[id]
		if len(group) < MinObservations {
			continue
		}
		if pos, ok := solveDevice(id, group); ok {
			positions = append(positions, pos)
		}
	}
	return positions
}

// solveDevice 对单个设备的观测组求解
//
// 线性化：以最后一个观测 (xr, yr, dr) 为参考，对每个观测 i：
//
//	2(xr-xi)x + 2(yr-yi)y = di^2 - dr^2 + xr^2 - xi^2 + yr^2 - yi^2
func solveDevice(deviceID int, group []models.RangeObservation) (models.EstimatedPosition, bool) {
	ref := group[len(group)-1]
	refNormSq := ref.SensorX*ref.SensorX + ref.SensorY*ref.SensorY
	refDistSq := ref.Distance * ref.Distance

	rows := len(group) - 1
	aData := make([]float64, rows*2)
	bData := make([]float64, rows)
	for i := 0; i < rows; i++ {
		obs := group[i]
		aData[i*2] = 2 * (ref.SensorX - obs.SensorX)
		aData[i*2+1] = 2 * (ref.SensorY - obs.SensorY)
		normSq := obs.SensorX*obs.SensorX + obs.SensorY*obs.SensorY
		bData[i] = obs.Distance*obs.Distance - refDistSq + refNormSq - normSq
	}

	a := mat.NewDense(rows, 2, aData)
	b := mat.NewVecDense(rows, bData)

	var qr mat.QR
	qr.Factorize(a)

	var x mat.VecDense
	if err := qr.SolveVecTo(&x, false, b); err != nil {
		// 奇异/病态几何：该设备本 tick 无解
		return models.EstimatedPosition{}, false
	}

	px, py := x.AtVec(0), x.AtVec(1)
	if math.IsNaN(px) || math.IsNaN(py) || math.IsInf(px, 0) || math.IsInf(py, 0) {
		return models.EstimatedPosition{}, false
	}

	return models.EstimatedPosition{
		ID:        deviceID,
		X:         px,
		Y:         py,
		Timestamp: group[0].Timestamp,
	}, true
}
