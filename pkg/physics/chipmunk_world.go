package physics

import (
	"github.com/jakecoffman/cp"
)

// Chipmunk 碰撞类型
const (
	collisionCube cp.CollisionType = iota + 1
	collisionFloor
	collisionCeiling
)

// ChipmunkWorld 基于 Chipmunk2D（jakecoffman/cp）的 World 实现
type ChipmunkWorld struct {
	space *cp.Space

	nextBody     BodyHandle
	nextCollider ColliderHandle

	bodies    map[BodyHandle]*cp.Body
	colliders map[ColliderHandle]*cp.Shape
	// 方块刚体 -> 其碰撞体句柄，RemoveBody 时一并移除
	bodyShapes map[BodyHandle]ColliderHandle

	events []CollisionEvent
}

// NewChipmunkWorld 创建新的 Chipmunk 世界
//
// 签名满足 Factory，可直接作为 InitPhysics 的引擎工厂。
func NewChipmunkWorld(gravity Vec2) (World, error) {
	space := cp.NewSpace()
	space.SetGravity(toCP(gravity))

	w := &ChipmunkWorld{
		space:      space,
		bodies:     make(map[BodyHandle]*cp.Body),
		colliders:  make(map[ColliderHandle]*cp.Shape),
		bodyShapes: make(map[BodyHandle]ColliderHandle),
		events:     make([]CollisionEvent, 0, 16),
	}

	floor := space.NewCollisionHandler(collisionCube, collisionFloor)
	floor.BeginFunc = func(arb *cp.Arbiter, _ *cp.Space, _ interface{}) bool {
		w.recordContact(arb, true, false)
		return true
	}
	ceiling := space.NewCollisionHandler(collisionCube, collisionCeiling)
	ceiling.BeginFunc = func(arb *cp.Arbiter, _ *cp.Space, _ interface{}) bool {
		w.recordContact(arb, false, true)
		return true
	}

	return w, nil
}

// recordContact 将接触开始事件记入队列，等待 DrainCollisionEvents 取出
func (w *ChipmunkWorld) recordContact(arb *cp.Arbiter, isFloor, isCeiling bool) {
	a, b := arb.Bodies()
	for _, body := range []*cp.Body{a, b} {
		if body == nil {
			continue
		}
		handle, ok := body.UserData.(BodyHandle)
		if !ok {
			continue
		}
		w.events = append(w.events, CollisionEvent{
			Body:      handle,
			IsFloor:   isFloor,
			IsCeiling: isCeiling,
			Speed:     body.Velocity().Length(),
		})
		return
	}
}

// CreateBody 创建动态方块
func (w *ChipmunkWorld) CreateBody(def BodyDef) (BodyHandle, ColliderHandle) {
	size := def.Size
	if size <= 0 {
		size = 1
	}
	density := def.Density
	if density <= 0 {
		density = 1
	}
	mass := density * size * size

	body := cp.NewBody(mass, cp.MomentForBox(mass, size, size))
	body.SetPosition(toCP(def.Position))
	body.SetAngle(def.Angle)
	body.SetVelocityVector(toCP(def.Velocity))
	body.SetAngularVelocity(def.AngularVelocity)

	shape := cp.NewBox(body, size, size, 0)
	shape.SetElasticity(def.Restitution)
	shape.SetFriction(def.Friction)
	shape.SetCollisionType(collisionCube)

	w.space.AddBody(body)
	w.space.AddShape(shape)

	w.nextBody++
	bh := w.nextBody
	body.UserData = bh
	w.bodies[bh] = body

	ch := w.addCollider(shape)
	w.bodyShapes[bh] = ch
	return bh, ch
}

// RemoveBody 移除刚体和它的碰撞体
func (w *ChipmunkWorld) RemoveBody(h BodyHandle) {
	body, ok := w.bodies[h]
	if !ok {
		return
	}
	if ch, ok := w.bodyShapes[h]; ok {
		w.RemoveCollider(ch)
		delete(w.bodyShapes, h)
	}
	w.space.RemoveBody(body)
	delete(w.bodies, h)
}

// CreateStaticSegment 在静态刚体上创建线段碰撞体
func (w *ChipmunkWorld) CreateStaticSegment(a, b Vec2, radius float64, kind ColliderKind) ColliderHandle {
	shape := cp.NewSegment(w.space.StaticBody, toCP(a), toCP(b), radius)
	shape.SetElasticity(0.4)
	shape.SetFriction(0.8)
	switch kind {
	case ColliderCeiling:
		shape.SetCollisionType(collisionCeiling)
	default:
		shape.SetCollisionType(collisionFloor)
	}
	w.space.AddShape(shape)
	return w.addCollider(shape)
}

func (w *ChipmunkWorld) addCollider(shape *cp.Shape) ColliderHandle {
	w.nextCollider++
	ch := w.nextCollider
	w.colliders[ch] = shape
	return ch
}

// RemoveCollider 移除碰撞体
func (w *ChipmunkWorld) RemoveCollider(c ColliderHandle) {
	shape, ok := w.colliders[c]
	if !ok {
		return
	}
	w.space.RemoveShape(shape)
	delete(w.colliders, c)
}

// SetGravity 设置世界重力
func (w *ChipmunkWorld) SetGravity(g Vec2) {
	w.space.SetGravity(toCP(g))
}

// Gravity 返回当前重力
func (w *ChipmunkWorld) Gravity() Vec2 {
	return fromCP(w.space.Gravity())
}

// Step 推进世界 dt 秒
func (w *ChipmunkWorld) Step(dt float64) {
	w.space.Step(dt)
}

// DrainCollisionEvents 取出并清空事件队列
func (w *ChipmunkWorld) DrainCollisionEvents() []CollisionEvent {
	if len(w.events) == 0 {
		return nil
	}
	out := make([]CollisionEvent, len(w.events))
	copy(out, w.events)
	w.events = w.events[:0]
	return out
}

// Transform 读取刚体位置和角度
func (w *ChipmunkWorld) Transform(h BodyHandle) (Vec2, float64, bool) {
	body, ok := w.bodies[h]
	if !ok {
		return Vec2{}, 0, false
	}
	return fromCP(body.Position()), body.Angle(), true
}

// SetPosition 瞬移刚体
func (w *ChipmunkWorld) SetPosition(h BodyHandle, pos Vec2) {
	if body, ok := w.bodies[h]; ok {
		body.SetPosition(toCP(pos))
	}
}

// Velocity 读取刚体线速度
func (w *ChipmunkWorld) Velocity(h BodyHandle) (Vec2, bool) {
	body, ok := w.bodies[h]
	if !ok {
		return Vec2{}, false
	}
	return fromCP(body.Velocity()), true
}

// SetVelocity 设置刚体线速度
func (w *ChipmunkWorld) SetVelocity(h BodyHandle, v Vec2) {
	if body, ok := w.bodies[h]; ok {
		body.SetVelocityVector(toCP(v))
	}
}

// ApplyImpulse 在质心施加冲量
func (w *ChipmunkWorld) ApplyImpulse(h BodyHandle, impulse Vec2) {
	if body, ok := w.bodies[h]; ok {
		body.ApplyImpulseAtWorldPoint(toCP(impulse), body.Position())
	}
}

// Mass 返回刚体质量
func (w *ChipmunkWorld) Mass(h BodyHandle) (float64, bool) {
	body, ok := w.bodies[h]
	if !ok {
		return 0, false
	}
	return body.Mass(), true
}

func toCP(v Vec2) cp.Vector {
	return cp.Vector{X: v.X, Y: v.Y}
}

func fromCP(v cp.Vector) Vec2 {
	return Vec2{X: v.X, Y: v.Y}
}
