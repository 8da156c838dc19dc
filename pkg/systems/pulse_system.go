package systems

import (
	"math"

	"github.com/gonewx/dicefidget/pkg/config"
	"github.com/gonewx/dicefidget/pkg/physics"
)

// ComputePulseImpulse 计算指针脉冲对单个方块的速度冲量
//
// 纯函数：只依赖指针位置、方块位置、方块尺寸（以及地面线和调参常量），不保留状态。
//   - 径向分量：从指针指向方块，强度与距离成反比（距离低于 MinDistance 时封顶，
//     超过 MaxDistance 时为零），并带少量向上偏置
//   - 尺寸缩放：乘以 ReferenceSize/size，大方块不那么"飘"
//   - 贴地弹跳：指针和方块都靠近地面、且水平距离足够近时，额外向上加速
//
// 返回值是速度增量（像素/秒），调用方乘以质量得到真正的冲量。
func ComputePulseImpulse(pointer, cube physics.Vec2, size, floorY float64, pc config.PulseConfig) physics.Vec2 {
	if size <= 0 {
		size = pc.ReferenceSize
	}
	sizeFactor := 1.0
	if pc.ReferenceSize > 0 {
		sizeFactor = pc.ReferenceSize / size
	}

	var dv physics.Vec2

	d := cube.Sub(pointer)
	dist := d.Length()
	if dist <= pc.MaxDistance {
		var dir physics.Vec2
		if dist < 1e-6 {
			dir = physics.Vec2{Y: -1}
		} else {
			dir = d.Scale(1 / dist)
		}
		dir.Y -= pc.UpwardBias

		falloff := pc.MinDistance / math.Max(dist, pc.MinDistance)
		dv = dir.Scale(pc.Strength * falloff * sizeFactor)
	}

	pointerNearFloor := floorY-pointer.Y <= pc.FloorZone
	cubeNearFloor := floorY-(cube.Y+size/2) <= pc.FloorZone
	if pointerNearFloor && cubeNearFloor && math.Abs(cube.X-pointer.X) <= pc.FloorReach {
		dv.Y -= pc.FloorBoost * sizeFactor
	}

	return dv
}

// PulseSystem 把指针按下事件转成对所有方块的冲量
type PulseSystem struct {
	pw  *PhysicsWorldSystem
	cfg *config.FidgetConfig

	// isInteractive 判断指针是否落在真实 UI 控件上（是则不触发脉冲）
	isInteractive func(x, y float64) bool
}

// NewPulseSystem 创建脉冲系统
func NewPulseSystem(pw *PhysicsWorldSystem, cfg *config.FidgetConfig) *PulseSystem {
	return &PulseSystem{pw: pw, cfg: cfg}
}

// SetInteractiveHitTest 设置 UI 控件命中测试
func (s *PulseSystem) SetInteractiveHitTest(fn func(x, y float64) bool) {
	s.isInteractive = fn
}

// PointerDown 处理一次指针按下
//
// 返回:
//   - int: 受到冲量的方块数；落在 UI 控件上或物理不可用时返回 0
//   - bool: 事件是否被当作脉冲处理
func (s *PulseSystem) PointerDown(x, y float64) (int, bool) {
	if !s.pw.Enabled() {
		return 0, false
	}
	if s.isInteractive != nil && s.isInteractive(x, y) {
		return 0, false
	}

	pointer := physics.Vec2{X: x, Y: y}
	floorY := s.pw.FloorY()
	affected := 0
	for _, id := range s.pw.Cubes() {
		cube, ok := s.pw.Cube(id)
		if !ok || cube.IsPopping() {
			continue
		}
		dv := ComputePulseImpulse(pointer, cube.CurrentPosition, cube.Size, floorY, s.cfg.Pulse)
		if dv.X == 0 && dv.Y == 0 {
			continue
		}
		s.pw.ApplyVelocityImpulse(id, dv)
		affected++
	}
	return affected, true
}
