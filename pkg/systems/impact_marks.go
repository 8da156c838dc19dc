package systems

import "github.com/gonewx/dicefidget/pkg/config"

// ImpactMark 地面撞击印记：宽度随时间增长，alpha 随时间衰减
type ImpactMark struct {
	X, Y  float64
	Width float64
	Alpha float64
	Color config.RGB
}

// ImpactMarks 有上限的撞击印记列表
// 达到上限后新的插入被静默丢弃
type ImpactMarks struct {
	max    int
	growth float64
	fade   float64
	marks  []ImpactMark
}

// NewImpactMarks 创建撞击印记列表
func NewImpactMarks(ec config.EffectsConfig) *ImpactMarks {
	return &ImpactMarks{
		max:    ec.MaxImpacts,
		growth: ec.ImpactGrowth,
		fade:   ec.ImpactFade,
		marks:  make([]ImpactMark, 0, ec.MaxImpacts),
	}
}

// Add 添加一个印记；列表已满时丢弃并返回 false
func (m *ImpactMarks) Add(x, y, width float64, c config.RGB) bool {
	if len(m.marks) >= m.max {
		return false
	}
	m.marks = append(m.marks, ImpactMark{X: x, Y: y, Width: width, Alpha: 1, Color: c})
	return true
}

// Update 推进印记动画，移除完全淡出的印记
func (m *ImpactMarks) Update(dt float64) {
	for i := 0; i < len(m.marks); {
		mk := &m.marks[i]
		mk.Width += m.growth * dt
		mk.Alpha -= m.fade * dt
		if mk.Alpha <= 0 {
			last := len(m.marks) - 1
			m.marks[i] = m.marks[last]
			m.marks = m.marks[:last]
			continue
		}
		i++
	}
}

// Len 返回当前印记数
func (m *ImpactMarks) Len() int {
	return len(m.marks)
}

// Marks 返回当前印记（只读，下一次 Update 前有效）
func (m *ImpactMarks) Marks() []ImpactMark {
	return m.marks
}

// Clear 清空所有印记
func (m *ImpactMarks) Clear() {
	m.marks = m.marks[:0]
}
