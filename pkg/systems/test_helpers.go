package systems

import (
	"errors"
	"math/rand/v2"

	"github.com/gonewx/dicefidget/pkg/config"
	"github.com/gonewx/dicefidget/pkg/ecs"
	"github.com/gonewx/dicefidget/pkg/physics"
)

// 测试辅助：假物理世界、假宿主、假帧调度
// 被多个测试文件共享使用

// testViewportW/H 与 testFloorRect 是所有测试共用的布局：800x600，地面从 y=560 开始
const (
	testViewportW = 800.0
	testViewportH = 600.0
)

var testFloorRect = Rect{X: 0, Y: 560, W: 800, H: 40}

// fakeHost 固定布局的宿主
type fakeHost struct {
	w, h  float64
	floor Rect
}

func newFakeHost() *fakeHost {
	return &fakeHost{w: testViewportW, h: testViewportH, floor: testFloorRect}
}

func (h *fakeHost) ViewportSize() (float64, float64) { return h.w, h.h }
func (h *fakeHost) FloorRect() Rect                  { return h.floor }

// fakeSegment 静态线段碰撞体的几何
type fakeSegment struct {
	a, b   physics.Vec2
	radius float64
}

type fakeBody struct {
	pos, vel   physics.Vec2
	angle, avl float64
	mass       float64
}

// fakeWorld 只做显式欧拉积分的假世界：没有碰撞响应，碰撞事件由测试手动注入
type fakeWorld struct {
	next      uint64
	bodies    map[physics.BodyHandle]*fakeBody
	colliders map[physics.ColliderHandle]physics.ColliderKind
	segments  map[physics.ColliderHandle]fakeSegment
	gravity   physics.Vec2
	events    []physics.CollisionEvent
	steps     int
}

func newFakeWorld(gravity physics.Vec2) *fakeWorld {
	return &fakeWorld{
		bodies:    make(map[physics.BodyHandle]*fakeBody),
		colliders: make(map[physics.ColliderHandle]physics.ColliderKind),
		segments:  make(map[physics.ColliderHandle]fakeSegment),
		gravity:   gravity,
	}
}

// factoryFor 返回总是产出 w 的工厂
func factoryFor(w *fakeWorld) physics.Factory {
	return func(g physics.Vec2) (physics.World, error) {
		w.gravity = g
		return w, nil
	}
}

func failingFactory(physics.Vec2) (physics.World, error) {
	return nil, errors.New("engine unavailable")
}

func (w *fakeWorld) CreateBody(def physics.BodyDef) (physics.BodyHandle, physics.ColliderHandle) {
	w.next++
	h := physics.BodyHandle(w.next)
	w.bodies[h] = &fakeBody{
		pos:   def.Position,
		vel:   def.Velocity,
		angle: def.Angle,
		avl:   def.AngularVelocity,
		mass:  def.Density * def.Size * def.Size,
	}
	w.next++
	c := physics.ColliderHandle(w.next)
	w.colliders[c] = physics.ColliderCube
	return h, c
}

func (w *fakeWorld) RemoveBody(h physics.BodyHandle) { delete(w.bodies, h) }

func (w *fakeWorld) CreateStaticSegment(a, b physics.Vec2, radius float64, kind physics.ColliderKind) physics.ColliderHandle {
	w.next++
	c := physics.ColliderHandle(w.next)
	w.colliders[c] = kind
	w.segments[c] = fakeSegment{a: a, b: b, radius: radius}
	return c
}

func (w *fakeWorld) RemoveCollider(c physics.ColliderHandle) {
	delete(w.colliders, c)
	delete(w.segments, c)
}
func (w *fakeWorld) SetGravity(g physics.Vec2)               { w.gravity = g }
func (w *fakeWorld) Gravity() physics.Vec2                   { return w.gravity }

func (w *fakeWorld) Step(dt float64) {
	w.steps++
	for _, b := range w.bodies {
		b.vel = b.vel.Add(w.gravity.Scale(dt))
		b.pos = b.pos.Add(b.vel.Scale(dt))
		b.angle += b.avl * dt
	}
}

func (w *fakeWorld) DrainCollisionEvents() []physics.CollisionEvent {
	out := w.events
	w.events = nil
	return out
}

func (w *fakeWorld) Transform(h physics.BodyHandle) (physics.Vec2, float64, bool) {
	b, ok := w.bodies[h]
	if !ok {
		return physics.Vec2{}, 0, false
	}
	return b.pos, b.angle, true
}

func (w *fakeWorld) SetPosition(h physics.BodyHandle, pos physics.Vec2) {
	if b, ok := w.bodies[h]; ok {
		b.pos = pos
	}
}

func (w *fakeWorld) Velocity(h physics.BodyHandle) (physics.Vec2, bool) {
	b, ok := w.bodies[h]
	if !ok {
		return physics.Vec2{}, false
	}
	return b.vel, true
}

func (w *fakeWorld) SetVelocity(h physics.BodyHandle, v physics.Vec2) {
	if b, ok := w.bodies[h]; ok {
		b.vel = v
	}
}

func (w *fakeWorld) ApplyImpulse(h physics.BodyHandle, impulse physics.Vec2) {
	if b, ok := w.bodies[h]; ok && b.mass > 0 {
		b.vel = b.vel.Add(impulse.Scale(1 / b.mass))
	}
}

func (w *fakeWorld) Mass(h physics.BodyHandle) (float64, bool) {
	b, ok := w.bodies[h]
	if !ok {
		return 0, false
	}
	return b.mass, true
}

func (w *fakeWorld) countColliders(kind physics.ColliderKind) int {
	n := 0
	for _, k := range w.colliders {
		if k == kind {
			n++
		}
	}
	return n
}

// fakeScheduler 记录帧回调，由测试手动推进
type fakeScheduler struct {
	pending []func(dt float64)
}

func (s *fakeScheduler) RequestFrame(fn func(dt float64)) {
	s.pending = append(s.pending, fn)
}

// runFrame 执行一帧，返回执行的回调数
func (s *fakeScheduler) runFrame(dt float64) int {
	batch := s.pending
	s.pending = nil
	for _, fn := range batch {
		fn(dt)
	}
	return len(batch)
}

// recordingAnnouncer 记录所有播报
type recordingAnnouncer struct {
	messages []string
}

func (a *recordingAnnouncer) Announce(text string) {
	a.messages = append(a.messages, text)
}

// newTestRNG 固定种子的随机源
func newTestRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0))
}

// newTestPhysicsWorld 在假世界上创建已初始化的物理世界管理器
func newTestPhysicsWorld(cfg *config.FidgetConfig) (*PhysicsWorldSystem, *fakeWorld) {
	if cfg == nil {
		cfg = config.DefaultFidgetConfig()
	}
	world := newFakeWorld(physics.Vec2{})
	pw := NewPhysicsWorldSystem(ecs.NewEntityManager(), cfg, newTestRNG(1))
	pw.Init(newFakeHost(), factoryFor(world))
	return pw, world
}
