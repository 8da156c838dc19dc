package systems

import (
	"log"
	"math"
	"math/rand/v2"

	"github.com/gonewx/dicefidget/pkg/components"
	"github.com/gonewx/dicefidget/pkg/config"
	"github.com/gonewx/dicefidget/pkg/ecs"
	"github.com/gonewx/dicefidget/pkg/physics"
)

// Rect 屏幕矩形（像素）
type Rect struct {
	X, Y, W, H float64
}

// Host 宿主渲染表面与布局测量
//
// 由 UI 层提供：视口尺寸与"地面"容器在屏幕上的矩形。
// 视口尺寸为 0 视为渲染表面不可用。
type Host interface {
	ViewportSize() (w, h float64)
	FloorRect() Rect
}

// PhysicsWorldSystem 物理世界管理器
//
// 拥有刚体世界，使用固定步长 + 累加器推进模拟，
// 维护地面/天花板静态碰撞体，并在每个物理步之后分发碰撞事件。
// 初始化失败后所有方法都是安全的空操作。
type PhysicsWorldSystem struct {
	em  *ecs.EntityManager
	cfg *config.FidgetConfig
	rng *rand.Rand

	world   physics.World
	host    Host
	enabled bool

	accumulator  float64
	alpha        float64
	lastSubsteps int
	totalSteps   int

	viewW, viewH    float64
	floorRect       Rect
	floorCollider   physics.ColliderHandle
	ceilingCollider physics.ColliderHandle

	bodyIndex      map[physics.BodyHandle]ecs.EntityID
	pendingRemoval []ecs.EntityID

	spawnBlocked func() bool
	listeners    []func(physics.CollisionEvent)
}

// NewPhysicsWorldSystem 创建物理世界管理器（未初始化，需调用 Init）
func NewPhysicsWorldSystem(em *ecs.EntityManager, cfg *config.FidgetConfig, rng *rand.Rand) *PhysicsWorldSystem {
	return &PhysicsWorldSystem{
		em:        em,
		cfg:       cfg,
		rng:       rng,
		alpha:     1,
		bodyIndex: make(map[physics.BodyHandle]ecs.EntityID),
	}
}

// Init 创建刚体世界并放置地面碰撞体
//
// 参数:
//   - host: 宿主表面；为 nil 或视口尺寸为 0 时初始化失败
//   - factory: 物理引擎工厂；返回错误时初始化失败
//
// 返回:
//   - bool: 是否初始化成功；失败时物理功能被禁用，后续调用均为空操作
func (s *PhysicsWorldSystem) Init(host Host, factory physics.Factory) bool {
	if s.enabled {
		return true
	}
	if host == nil {
		log.Printf("[PhysicsWorld] 渲染表面不可用，物理功能已禁用")
		return false
	}
	w, h := host.ViewportSize()
	if w <= 0 || h <= 0 {
		log.Printf("[PhysicsWorld] 视口尺寸无效 (%.0fx%.0f)，物理功能已禁用", w, h)
		return false
	}
	if factory == nil {
		factory = physics.NewChipmunkWorld
	}
	world, err := factory(s.normalGravity())
	if err != nil || world == nil {
		log.Printf("[PhysicsWorld] 物理引擎加载失败: %v，物理功能已禁用", err)
		return false
	}

	s.world = world
	s.host = host
	s.enabled = true
	s.viewW, s.viewH = w, h
	s.floorRect = host.FloorRect()
	s.createFloor()

	log.Printf("[PhysicsWorld] Initialized: viewport %.0fx%.0f, floor y=%.0f", w, h, s.floorY())
	return true
}

// Enabled 物理功能是否可用
func (s *PhysicsWorldSystem) Enabled() bool {
	return s.enabled
}

// SetSpawnGuard 设置生成拦截条件（返回 true 时拒绝生成）
func (s *PhysicsWorldSystem) SetSpawnGuard(blocked func() bool) {
	s.spawnBlocked = blocked
}

// OnCollision 注册碰撞事件监听器
func (s *PhysicsWorldSystem) OnCollision(fn func(physics.CollisionEvent)) {
	if fn != nil {
		s.listeners = append(s.listeners, fn)
	}
}

// Step 以固定步长推进世界
//
// frameDelta 先被限制到 MaxFrameDelta，再累加进累加器；
// 每个子步之前快照所有方块的上一步变换。子步数达到上限且累加器仍不少于一步时，
// 丢弃剩余时间并把插值系数设为 1（渲染不滞后）。
//
// 返回本次执行的子步数。
func (s *PhysicsWorldSystem) Step(frameDelta float64) int {
	if !s.enabled {
		return 0
	}
	pc := s.cfg.Physics
	if frameDelta < 0 {
		frameDelta = 0
	}
	if frameDelta > pc.MaxFrameDelta {
		frameDelta = pc.MaxFrameDelta
	}
	s.accumulator += frameDelta

	ts := pc.FixedTimestep
	substeps := 0
	for s.accumulator >= ts && substeps < pc.MaxSubsteps {
		s.snapshot()
		s.world.Step(ts)
		s.syncFromWorld()
		s.dispatchCollisions()
		s.accumulator -= ts
		substeps++
	}

	if substeps == pc.MaxSubsteps && s.accumulator >= ts {
		s.accumulator = 0
		s.alpha = 1
	} else {
		s.alpha = s.accumulator / ts
	}

	s.lastSubsteps = substeps
	s.totalSteps += substeps
	return substeps
}

// Alpha 返回当前渲染插值系数
func (s *PhysicsWorldSystem) Alpha() float64 {
	return s.alpha
}

// Accumulator 返回累加器中剩余的时间
func (s *PhysicsWorldSystem) Accumulator() float64 {
	return s.accumulator
}

// TotalSteps 返回累计执行的固定步数
func (s *PhysicsWorldSystem) TotalSteps() int {
	return s.totalSteps
}

func (s *PhysicsWorldSystem) snapshot() {
	for _, id := range ecs.GetEntitiesWith1[*components.CubeComponent](s.em) {
		if cube, ok := ecs.GetComponent[*components.CubeComponent](s.em, id); ok {
			cube.Snapshot()
		}
	}
}

func (s *PhysicsWorldSystem) syncFromWorld() {
	for _, id := range ecs.GetEntitiesWith1[*components.CubeComponent](s.em) {
		cube, ok := ecs.GetComponent[*components.CubeComponent](s.em, id)
		if !ok {
			continue
		}
		if pos, rot, ok := s.world.Transform(cube.Body); ok {
			cube.CurrentPosition = pos
			cube.CurrentRotation = rot
		}
	}
}

func (s *PhysicsWorldSystem) dispatchCollisions() {
	events := s.DrainCollisionEvents()
	for _, ev := range events {
		for _, fn := range s.listeners {
			fn(ev)
		}
	}
}

// DrainCollisionEvents 取出世界中累积的碰撞事件
// 已被标记移除的方块产生的事件会被过滤
func (s *PhysicsWorldSystem) DrainCollisionEvents() []physics.CollisionEvent {
	if !s.enabled {
		return nil
	}
	events := s.world.DrainCollisionEvents()
	out := events[:0]
	for _, ev := range events {
		id, ok := s.bodyIndex[ev.Body]
		if !ok || s.em.IsMarkedForDestruction(id) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// SpawnCube 生成一个方块
//
// 告别序列进行中时拒绝生成。初始状态：±SpawnJitter 位置抖动、随机旋转、
// 随机方向的向外初速度（带轻微向下偏置）和随机角速度。
//
// 返回:
//   - ecs.EntityID: 新方块实体；被拒绝或物理不可用时返回 0
func (s *PhysicsWorldSystem) SpawnCube(tier int, x, y float64) ecs.EntityID {
	if !s.enabled {
		return 0
	}
	if s.spawnBlocked != nil && s.spawnBlocked() {
		log.Printf("[PhysicsWorld] 告别序列进行中，忽略 tier %d 方块生成", tier)
		return 0
	}

	pc := s.cfg.Physics
	tc := s.cfg.Tier(tier)

	pos := physics.Vec2{
		X: x + (s.rng.Float64()*2-1)*pc.SpawnJitter,
		Y: y + (s.rng.Float64()*2-1)*pc.SpawnJitter,
	}
	angle := s.rng.Float64() * 2 * math.Pi
	dir := s.rng.Float64() * 2 * math.Pi
	speed := pc.SpawnSpeed * (0.5 + 0.5*s.rng.Float64())
	vel := physics.Vec2{
		X: math.Cos(dir) * speed,
		Y: math.Sin(dir)*speed + pc.SpawnDownBias,
	}
	angVel := (s.rng.Float64()*2 - 1) * pc.MaxAngularVelocity

	body, collider := s.world.CreateBody(physics.BodyDef{
		Position:        pos,
		Angle:           angle,
		Velocity:        vel,
		AngularVelocity: angVel,
		Size:            tc.Size,
		Density:         pc.Density,
		Restitution:     pc.Restitution,
		Friction:        pc.Friction,
	})

	id := s.em.CreateEntity()
	ecs.AddComponent(s.em, id, components.NewCubeComponent(tc.Tier, tc.Size, body, collider, pos, angle))
	s.bodyIndex[body] = id
	return id
}

// RemoveCube 标记方块待移除
// 实际移除推迟到本帧渲染之后（FlushRemovals），避免渲染时引用已删除的刚体
func (s *PhysicsWorldSystem) RemoveCube(id ecs.EntityID) {
	if !s.enabled || s.em.IsMarkedForDestruction(id) {
		return
	}
	if !ecs.HasComponent[*components.CubeComponent](s.em, id) {
		return
	}
	s.em.DestroyEntity(id)
	s.pendingRemoval = append(s.pendingRemoval, id)
}

// FlushRemovals 真正销毁待移除的方块（刚体、碰撞体和实体）
func (s *PhysicsWorldSystem) FlushRemovals() int {
	if len(s.pendingRemoval) == 0 {
		return 0
	}
	for _, id := range s.pendingRemoval {
		cube, ok := ecs.GetComponent[*components.CubeComponent](s.em, id)
		if !ok {
			continue
		}
		s.world.RemoveBody(cube.Body)
		delete(s.bodyIndex, cube.Body)
	}
	n := len(s.pendingRemoval)
	s.pendingRemoval = s.pendingRemoval[:0]
	s.em.RemoveMarkedEntities()
	return n
}

// CubeCount 返回存活方块数（不含已标记移除的）
func (s *PhysicsWorldSystem) CubeCount() int {
	count := 0
	for _, id := range ecs.GetEntitiesWith1[*components.CubeComponent](s.em) {
		if !s.em.IsMarkedForDestruction(id) {
			count++
		}
	}
	return count
}

// Cubes 返回存活方块实体（按 ID 升序）
func (s *PhysicsWorldSystem) Cubes() []ecs.EntityID {
	ids := ecs.GetEntitiesWith1[*components.CubeComponent](s.em)
	out := ids[:0]
	for _, id := range ids {
		if !s.em.IsMarkedForDestruction(id) {
			out = append(out, id)
		}
	}
	return out
}

// Cube 获取方块组件
func (s *PhysicsWorldSystem) Cube(id ecs.EntityID) (*components.CubeComponent, bool) {
	return ecs.GetComponent[*components.CubeComponent](s.em, id)
}

// EntityForBody 根据刚体句柄查找方块实体
func (s *PhysicsWorldSystem) EntityForBody(h physics.BodyHandle) (ecs.EntityID, bool) {
	id, ok := s.bodyIndex[h]
	return id, ok
}

// Velocity 读取方块速度
func (s *PhysicsWorldSystem) Velocity(id ecs.EntityID) (physics.Vec2, bool) {
	cube, ok := s.Cube(id)
	if !s.enabled || !ok {
		return physics.Vec2{}, false
	}
	return s.world.Velocity(cube.Body)
}

// SetVelocity 设置方块速度
func (s *PhysicsWorldSystem) SetVelocity(id ecs.EntityID, v physics.Vec2) {
	if cube, ok := s.Cube(id); s.enabled && ok {
		s.world.SetVelocity(cube.Body, v)
	}
}

// Teleport 瞬移方块并同步插值快照
func (s *PhysicsWorldSystem) Teleport(id ecs.EntityID, pos physics.Vec2) {
	if cube, ok := s.Cube(id); s.enabled && ok {
		s.world.SetPosition(cube.Body, pos)
		cube.Teleport(pos)
	}
}

// ApplyVelocityImpulse 施加使速度改变 dv 的冲量（冲量 = dv × 质量）
func (s *PhysicsWorldSystem) ApplyVelocityImpulse(id ecs.EntityID, dv physics.Vec2) {
	cube, ok := s.Cube(id)
	if !s.enabled || !ok {
		return
	}
	mass, ok := s.world.Mass(cube.Body)
	if !ok {
		return
	}
	s.world.ApplyImpulse(cube.Body, dv.Scale(mass))
}

// Viewport 返回视口尺寸
func (s *PhysicsWorldSystem) Viewport() (float64, float64) {
	return s.viewW, s.viewH
}

// FloorY 返回地面线的 Y 坐标
func (s *PhysicsWorldSystem) FloorY() float64 {
	return s.floorY()
}

func (s *PhysicsWorldSystem) floorY() float64 {
	if s.floorRect.H <= 0 && s.floorRect.W <= 0 {
		return s.viewH
	}
	return s.floorRect.Y
}

func (s *PhysicsWorldSystem) normalGravity() physics.Vec2 {
	return physics.Vec2{Y: s.cfg.Physics.Gravity}
}

// SetGravityReversed 反转（true）或恢复（false）重力方向
func (s *PhysicsWorldSystem) SetGravityReversed(reversed bool) {
	if !s.enabled {
		return
	}
	g := s.normalGravity()
	if reversed {
		g.Y = -g.Y
	}
	s.world.SetGravity(g)
}

// Gravity 返回当前重力
func (s *PhysicsWorldSystem) Gravity() physics.Vec2 {
	if !s.enabled {
		return physics.Vec2{}
	}
	return s.world.Gravity()
}

// HasCeiling 天花板碰撞体是否存在
func (s *PhysicsWorldSystem) HasCeiling() bool {
	return s.ceilingCollider != 0
}

// CreateCeiling 在视口顶边上方创建天花板碰撞体（已存在则忽略）
// 碰撞体下沿位于 y = -(最大方块半边长)，方块碰到它之前已完全离开可见区域
func (s *PhysicsWorldSystem) CreateCeiling() {
	if !s.enabled || s.ceilingCollider != 0 {
		return
	}
	r := s.cfg.Physics.ColliderThickness
	y := s.CeilingY() - r
	s.ceilingCollider = s.world.CreateStaticSegment(
		physics.Vec2{X: -s.viewW, Y: y},
		physics.Vec2{X: 2 * s.viewW, Y: y},
		r, physics.ColliderCeiling)
}

// CeilingY 天花板碰撞体下沿的 y 坐标
func (s *PhysicsWorldSystem) CeilingY() float64 {
	maxHalf := 0.0
	for _, t := range s.cfg.Tiers {
		maxHalf = math.Max(maxHalf, t.Size/2)
	}
	return -maxHalf
}

// RemoveCeiling 移除天花板碰撞体
func (s *PhysicsWorldSystem) RemoveCeiling() {
	if !s.enabled || s.ceilingCollider == 0 {
		return
	}
	s.world.RemoveCollider(s.ceilingCollider)
	s.ceilingCollider = 0
}

func (s *PhysicsWorldSystem) createFloor() {
	r := s.cfg.Physics.ColliderThickness
	y := s.floorY() + r
	s.floorCollider = s.world.CreateStaticSegment(
		physics.Vec2{X: -s.viewW, Y: y},
		physics.Vec2{X: 2 * s.viewW, Y: y},
		r, physics.ColliderFloor)
}

// Resize 重新测量宿主布局；地面矩形或视口变化时重建静态碰撞体
//
// 返回布局是否发生变化（调用方据此执行一次越界校正）。
func (s *PhysicsWorldSystem) Resize() bool {
	if !s.enabled {
		return false
	}
	w, h := s.host.ViewportSize()
	rect := s.host.FloorRect()
	if w == s.viewW && h == s.viewH && rect == s.floorRect {
		return false
	}
	if w <= 0 || h <= 0 {
		return false
	}

	s.viewW, s.viewH = w, h
	s.floorRect = rect

	s.world.RemoveCollider(s.floorCollider)
	s.createFloor()
	if s.ceilingCollider != 0 {
		s.world.RemoveCollider(s.ceilingCollider)
		s.ceilingCollider = 0
		s.CreateCeiling()
	}

	log.Printf("[PhysicsWorld] Resized: viewport %.0fx%.0f, floor y=%.0f", w, h, s.floorY())
	return true
}
