package pipeline

import (
	"encoding/json"
	"fmt"

	"ept-positioning/internal/models"
)

// floorLayout 平面图场景描述 JSON 的最小结构
//
// 编辑器导出的场景树中 className 为 "Circle" 的子节点是传感器标记，
// 标记编号在 uniqueId 或（旧版导出）customId 属性中
type floorLayout struct {
	Children []struct {
		ClassName string `json:"className"`
		Attrs     struct {
			X        float64 `json:"x"`
			Y        float64 `json:"y"`
			UniqueID string  `json:"uniqueId"`
			CustomID string  `json:"customId"`
		} `json:"attrs"`
	} `json:"children"`
}

// ExtractSensorMarkers 从平面图 JSON 提取传感器标记
//
// 平面图缺失或无法解析时返回错误（调用方跳过该活动）；
// 没有可用标记时返回空列表；缺少编号的 Circle 被跳过
func ExtractSensorMarkers(layout string) ([]models.SensorMarker, error) {
	if layout == "" {
		return nil, fmt.Errorf("floor layout is empty")
	}

	var parsed floorLayout
	if err := json.Unmarshal([]byte(layout), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse floor layout: %w", err)
	}

	markers := make([]models.SensorMarker, 0)
	for _, child := range parsed.Children {
		if child.ClassName != "Circle" {
			continue
		}
		id := child.Attrs.UniqueID
		if id == "" {
			id = child.Attrs.CustomID
		}
		if id == "" {
			continue
		}
		markers = append(markers, models.SensorMarker{
			SensorID: id,
			X:        child.Attrs.X,
			Y:        child.Attrs.Y,
		})
	}

	return markers, nil
}
