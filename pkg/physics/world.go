// Package physics 定义刚体引擎的依赖边界
//
// 上层模拟逻辑只依赖 World 接口和不透明句柄，任何满足接口的 2D 引擎都可以替换。
// 默认实现见 chipmunk_world.go（基于 github.com/jakecoffman/cp）。
//
// 坐标系与屏幕一致：像素单位，X 向右，Y 向下。
package physics

import (
	"math"

	"github.com/gonewx/dicefidget/pkg/utils"
)

// BodyHandle 刚体的不透明句柄，0 为无效值
type BodyHandle uint64

// ColliderHandle 碰撞体的不透明句柄，0 为无效值
type ColliderHandle uint64

// ColliderKind 碰撞体类别
type ColliderKind int

const (
	// ColliderCube 动态方块
	ColliderCube ColliderKind = iota
	// ColliderFloor 静态地面
	ColliderFloor
	// ColliderCeiling 静态天花板（仅在告别序列期间存在）
	ColliderCeiling
)

// String 返回碰撞体类别名称（用于日志）
func (k ColliderKind) String() string {
	switch k {
	case ColliderCube:
		return "cube"
	case ColliderFloor:
		return "floor"
	case ColliderCeiling:
		return "ceiling"
	default:
		return "unknown"
	}
}

// Vec2 二维向量
type Vec2 struct {
	X, Y float64
}

// Add 向量加法
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }

// Sub 向量减法
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }

// Scale 数乘
func (v Vec2) Scale(f float64) Vec2 { return Vec2{X: v.X * f, Y: v.Y * f} }

// Length 向量长度
func (v Vec2) Length() float64 { return math.Hypot(v.X, v.Y) }

// Lerp 在 v 与 o 之间按 t 线性插值
func (v Vec2) Lerp(o Vec2, t float64) Vec2 {
	return Vec2{X: utils.Lerp(v.X, o.X, t), Y: utils.Lerp(v.Y, o.Y, t)}
}

// BodyDef 创建动态方块刚体所需的参数
//
// 方块总是轴对齐的均匀密度正方形，质量 = Density * Size * Size。
type BodyDef struct {
	Position        Vec2
	Angle           float64 // 弧度
	Velocity        Vec2
	AngularVelocity float64 // 弧度/秒
	Size            float64 // 边长（像素）
	Density         float64
	Restitution     float64
	Friction        float64
}

// CollisionEvent 一次方块与静态碰撞体的接触开始事件
type CollisionEvent struct {
	Body      BodyHandle // 发生接触的方块
	IsFloor   bool
	IsCeiling bool
	Speed     float64 // 接触时方块速度大小（像素/秒）
}

// World 刚体世界的最小接口
//
// 所有方法都不会 panic；对无效句柄的操作是空操作，查询返回 ok=false。
type World interface {
	// CreateBody 创建一个动态方块，返回刚体和碰撞体句柄
	CreateBody(def BodyDef) (BodyHandle, ColliderHandle)
	// RemoveBody 立即移除刚体及其碰撞体（不得在 Step 内调用）
	RemoveBody(h BodyHandle)

	// CreateStaticSegment 创建静态线段碰撞体（地面、天花板）
	CreateStaticSegment(a, b Vec2, radius float64, kind ColliderKind) ColliderHandle
	// RemoveCollider 移除静态碰撞体
	RemoveCollider(c ColliderHandle)

	SetGravity(g Vec2)
	Gravity() Vec2

	// Step 推进世界恰好 dt 秒
	Step(dt float64)
	// DrainCollisionEvents 取出自上次调用以来累积的接触事件
	DrainCollisionEvents() []CollisionEvent

	// Transform 读取刚体当前位置和旋转角
	Transform(h BodyHandle) (pos Vec2, angle float64, ok bool)
	// SetPosition 瞬移刚体（保留速度）
	SetPosition(h BodyHandle, pos Vec2)
	Velocity(h BodyHandle) (Vec2, bool)
	SetVelocity(h BodyHandle, v Vec2)
	// ApplyImpulse 在质心施加冲量
	ApplyImpulse(h BodyHandle, impulse Vec2)
	// Mass 返回刚体质量
	Mass(h BodyHandle) (float64, bool)
}

// Factory 创建 World 的工厂函数；失败时返回错误，上层据此禁用物理功能
type Factory func(gravity Vec2) (World, error)
