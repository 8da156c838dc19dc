package systems

import (
	"log"

	"github.com/gonewx/dicefidget/pkg/components"
	"github.com/gonewx/dicefidget/pkg/config"
	"github.com/gonewx/dicefidget/pkg/ecs"
	"github.com/gonewx/dicefidget/pkg/physics"
	"github.com/gonewx/dicefidget/pkg/utils"
)

// GoodbyeState 告别序列状态
type GoodbyeState int

const (
	GoodbyeNormal   GoodbyeState = iota // 正常模式
	GoodbyeRising                       // 重力反转，方块上升
	GoodbyeRestored                     // 重力已恢复，方块落定后弹出
)

// String 返回状态名
func (s GoodbyeState) String() string {
	switch s {
	case GoodbyeNormal:
		return "Normal"
	case GoodbyeRising:
		return "Rising"
	case GoodbyeRestored:
		return "Restored"
	default:
		return "Unknown"
	}
}

// goodbyeTransitions 允许的状态转换
// Rising → Normal 只在上升期间方块全部消失时发生
var goodbyeTransitions = map[GoodbyeState][]GoodbyeState{
	GoodbyeNormal:   {GoodbyeRising},
	GoodbyeRising:   {GoodbyeRestored, GoodbyeNormal},
	GoodbyeRestored: {GoodbyeNormal},
}

// GoodbyeSystem 告别序列控制器
//
// 叠加在物理世界管理器之上的小型状态机：
// 反转重力把所有方块送上去，过半后恢复重力，方块碰到地面/天花板或静止后弹出并移除，
// 方块全部移除后回到正常模式。这是唯一永久销毁方块的地方。
type GoodbyeSystem struct {
	pw  *PhysicsWorldSystem
	cfg *config.FidgetConfig

	state GoodbyeState
	now   float64

	// onPop 方块开始弹出时回调（用于粒子爆发）
	onPop func(x, y float64, tier int)
}

// NewGoodbyeSystem 创建告别序列控制器
func NewGoodbyeSystem(pw *PhysicsWorldSystem, cfg *config.FidgetConfig) *GoodbyeSystem {
	return &GoodbyeSystem{
		pw:    pw,
		cfg:   cfg,
		state: GoodbyeNormal,
	}
}

// SetPopHook 设置弹出回调
func (s *GoodbyeSystem) SetPopHook(fn func(x, y float64, tier int)) {
	s.onPop = fn
}

// State 返回当前状态
func (s *GoodbyeSystem) State() GoodbyeState {
	return s.state
}

// IsActive 告别序列是否进行中
func (s *GoodbyeSystem) IsActive() bool {
	return s.state != GoodbyeNormal
}

// transition 执行状态转换；未定义的转换被拒绝并记录日志
func (s *GoodbyeSystem) transition(to GoodbyeState) bool {
	for _, allowed := range goodbyeTransitions[s.state] {
		if allowed == to {
			log.Printf("[Goodbye] %s -> %s", s.state, to)
			s.state = to
			return true
		}
	}
	log.Printf("[Goodbye] 拒绝状态转换 %s -> %s", s.state, to)
	return false
}

// Trigger 开始告别序列
//
// 已在进行中或没有方块时为空操作。
// 否则创建天花板碰撞体、反转重力并进入 Rising。
//
// 返回:
//   - bool: 是否真正开始
func (s *GoodbyeSystem) Trigger() bool {
	if s.IsActive() || !s.pw.Enabled() || s.pw.CubeCount() == 0 {
		return false
	}
	if !s.transition(GoodbyeRising) {
		return false
	}
	s.pw.CreateCeiling()
	s.pw.SetGravityReversed(true)
	return true
}

// Update 每帧推进状态机
//
// 参数:
//   - now: 当前模拟时间（秒），用于弹出动画计时
func (s *GoodbyeSystem) Update(now float64) {
	s.now = now
	if s.state == GoodbyeNormal {
		return
	}

	switch s.state {
	case GoodbyeRising:
		if s.allAboveHalfway() {
			s.pw.SetGravityReversed(false)
			s.transition(GoodbyeRestored)
		}
	case GoodbyeRestored:
		s.popSettled()
	}

	s.animatePops()

	if s.pw.CubeCount() == 0 {
		s.finish()
	}
}

// HandleCollision Restored 状态下碰到地面或天花板的方块开始弹出
func (s *GoodbyeSystem) HandleCollision(ev physics.CollisionEvent) {
	if s.state != GoodbyeRestored || !(ev.IsFloor || ev.IsCeiling) {
		return
	}
	id, ok := s.pw.EntityForBody(ev.Body)
	if !ok {
		return
	}
	s.startPop(id)
}

func (s *GoodbyeSystem) allAboveHalfway() bool {
	_, h := s.pw.Viewport()
	halfway := h / 2
	for _, id := range s.pw.Cubes() {
		cube, ok := s.pw.Cube(id)
		if !ok {
			continue
		}
		if cube.CurrentPosition.Y >= halfway {
			return false
		}
	}
	return true
}

func (s *GoodbyeSystem) popSettled() {
	threshold := s.cfg.Goodbye.SettleSpeed
	for _, id := range s.pw.Cubes() {
		vel, ok := s.pw.Velocity(id)
		if !ok {
			continue
		}
		if vel.Length() < threshold {
			s.startPop(id)
		}
	}
}

func (s *GoodbyeSystem) startPop(id ecs.EntityID) {
	cube, ok := s.pw.Cube(id)
	if !ok || !cube.StartPop(s.now) {
		return
	}
	if s.onPop != nil {
		s.onPop(cube.CurrentPosition.X, cube.CurrentPosition.Y, cube.Tier)
	}
}

// animatePops 推进所有弹出动画，动画结束的方块标记移除
func (s *GoodbyeSystem) animatePops() {
	gc := s.cfg.Goodbye
	for _, id := range s.pw.Cubes() {
		cube, ok := s.pw.Cube(id)
		if !ok || !cube.IsPopping() {
			continue
		}
		progress := (s.now - *cube.PoppingAt) / gc.PopDuration
		if progress >= 1 {
			cube.Scale = 0
			cube.Alpha = 0
			s.pw.RemoveCube(id)
			continue
		}
		cube.Scale, cube.Alpha = PopCurve(progress, gc.PopPeakScale, gc.PopPeakAt)
	}
}

// PopCurve 弹出动画曲线
//
// 先在 peakAt 之前从 1 放大到 peak，再缩小到 0；alpha 线性淡出。
//
// 参数:
//   - progress: 动画进度 [0,1]
//
// 返回:
//   - scale, alpha
func PopCurve(progress, peak, peakAt float64) (float64, float64) {
	progress = utils.Clamp01(progress)
	var scale float64
	if peakAt > 0 && progress < peakAt {
		scale = utils.Lerp(1, peak, progress/peakAt)
	} else if peakAt >= 1 {
		scale = peak
	} else {
		scale = utils.Lerp(peak, 0, utils.InverseLerp(peakAt, 1, progress))
	}
	return scale, 1 - progress
}

// finish 方块全部移除：销毁天花板、恢复重力（幂等）、回到 Normal
func (s *GoodbyeSystem) finish() {
	s.pw.RemoveCeiling()
	s.pw.SetGravityReversed(false)
	s.transition(GoodbyeNormal)
}

// poppingCount 测试辅助：正在弹出的方块数
func (s *GoodbyeSystem) poppingCount() int {
	n := 0
	for _, id := range s.pw.Cubes() {
		if cube, ok := ecs.GetComponent[*components.CubeComponent](s.pw.em, id); ok && cube.IsPopping() {
			n++
		}
	}
	return n
}
