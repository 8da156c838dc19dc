package systems

import (
	"github.com/gonewx/dicefidget/pkg/config"
	"github.com/gonewx/dicefidget/pkg/physics"
)

// Bounds 方块允许活动的屏幕边界
type Bounds struct {
	Left, Right float64
	Top         float64
	Floor       float64 // 地面线
}

// ClampToBounds 将越界的方块拉回边界，并把法向速度分量反射、按 restitution 衰减
//
// 参数:
//   - pos, vel: 方块中心位置与速度
//   - half: 方块半边长
//   - b: 边界
//   - restitution: 反弹衰减系数（约 0.5）
//   - clampTop: 是否校正顶边（告别序列期间为 false，让方块从天花板离开）
//
// 返回:
//   - 校正后的位置、速度，以及是否发生了校正
func ClampToBounds(pos, vel physics.Vec2, half float64, b Bounds, restitution float64, clampTop bool) (physics.Vec2, physics.Vec2, bool) {
	corrected := false

	if pos.X-half < b.Left {
		pos.X = b.Left + half
		if vel.X < 0 {
			vel.X = -vel.X * restitution
		}
		corrected = true
	} else if pos.X+half > b.Right {
		pos.X = b.Right - half
		if vel.X > 0 {
			vel.X = -vel.X * restitution
		}
		corrected = true
	}

	if clampTop && pos.Y-half < b.Top {
		pos.Y = b.Top + half
		if vel.Y < 0 {
			vel.Y = -vel.Y * restitution
		}
		corrected = true
	} else if pos.Y+half > b.Floor {
		pos.Y = b.Floor - half
		if vel.Y > 0 {
			vel.Y = -vel.Y * restitution
		}
		corrected = true
	}

	return pos, vel, corrected
}

// ContainmentSystem 每帧把所有方块限制在可见区域内，并把地面撞击转成撞击印记
type ContainmentSystem struct {
	pw  *PhysicsWorldSystem
	cfg *config.FidgetConfig

	// topSuppressed 返回 true 时不校正顶边（告别序列进行中）
	topSuppressed func() bool
	// onImpact 地面撞击回调（位置、宽度、颜色）
	onImpact func(x, y, width float64, c config.RGB)
}

// NewContainmentSystem 创建边界约束系统
func NewContainmentSystem(pw *PhysicsWorldSystem, cfg *config.FidgetConfig) *ContainmentSystem {
	return &ContainmentSystem{
		pw:  pw,
		cfg: cfg,
	}
}

// SetTopSuppressed 设置顶边校正的抑制条件
func (s *ContainmentSystem) SetTopSuppressed(fn func() bool) {
	s.topSuppressed = fn
}

// SetImpactHandler 设置地面撞击回调
func (s *ContainmentSystem) SetImpactHandler(fn func(x, y, width float64, c config.RGB)) {
	s.onImpact = fn
}

// Bounds 返回当前边界
func (s *ContainmentSystem) Bounds() Bounds {
	w, _ := s.pw.Viewport()
	return Bounds{Left: 0, Right: w, Top: 0, Floor: s.pw.FloorY()}
}

// Update 对所有越界方块执行一次校正
// 返回被校正的方块数
func (s *ContainmentSystem) Update() int {
	if !s.pw.Enabled() {
		return 0
	}
	b := s.Bounds()
	clampTop := s.topSuppressed == nil || !s.topSuppressed()
	restitution := s.cfg.Physics.BoundaryRestitution

	count := 0
	for _, id := range s.pw.Cubes() {
		cube, ok := s.pw.Cube(id)
		if !ok {
			continue
		}
		vel, ok := s.pw.Velocity(id)
		if !ok {
			continue
		}
		pos, newVel, corrected := ClampToBounds(cube.CurrentPosition, vel, cube.Size/2, b, restitution, clampTop)
		if !corrected {
			continue
		}
		s.pw.Teleport(id, pos)
		s.pw.SetVelocity(id, newVel)
		count++
	}
	return count
}

// HandleCollision 地面撞击速度足够大时生成撞击印记
func (s *ContainmentSystem) HandleCollision(ev physics.CollisionEvent) {
	if !ev.IsFloor || s.onImpact == nil || ev.Speed < s.cfg.Pulse.ImpactMinSpeed {
		return
	}
	id, ok := s.pw.EntityForBody(ev.Body)
	if !ok {
		return
	}
	cube, ok := s.pw.Cube(id)
	if !ok {
		return
	}
	s.onImpact(cube.CurrentPosition.X, s.pw.FloorY(), cube.Size, s.cfg.Tier(cube.Tier).Color)
}
