package components

import (
	"github.com/gonewx/dicefidget/pkg/physics"
	"github.com/gonewx/dicefidget/pkg/utils"
)

// CubeComponent 方块的渲染/插值状态
//
// 刚体与碰撞体资源归物理世界所有，这里只持有句柄（弱引用）。
// 弹出动画字段（Alpha、Scale、PoppingAt）只在告别序列中被修改。
type CubeComponent struct {
	Tier int // 稀有度档位 1..7
	Size float64

	Body     physics.BodyHandle
	Collider physics.ColliderHandle

	// 插值状态：Prev 在每个固定步之前快照，Current 在每步之后从世界读取
	PrevPosition    physics.Vec2
	PrevRotation    float64
	CurrentPosition physics.Vec2
	CurrentRotation float64

	Alpha float64 // 0..1，默认 1
	Scale float64 // >= 0，默认 1

	// PoppingAt 弹出动画开始的模拟时间（秒）；设置后不再清除，直到方块被移除
	PoppingAt *float64
}

// NewCubeComponent 创建默认可见状态的方块组件
func NewCubeComponent(tier int, size float64, body physics.BodyHandle, collider physics.ColliderHandle, pos physics.Vec2, rot float64) *CubeComponent {
	return &CubeComponent{
		Tier:            tier,
		Size:            size,
		Body:            body,
		Collider:        collider,
		PrevPosition:    pos,
		PrevRotation:    rot,
		CurrentPosition: pos,
		CurrentRotation: rot,
		Alpha:           1,
		Scale:           1,
	}
}

// IsPopping 是否已开始弹出动画
func (c *CubeComponent) IsPopping() bool {
	return c.PoppingAt != nil
}

// StartPop 开始弹出动画；已开始则忽略
// 返回是否本次调用触发了动画
func (c *CubeComponent) StartPop(now float64) bool {
	if c.PoppingAt != nil {
		return false
	}
	at := now
	c.PoppingAt = &at
	return true
}

// Snapshot 将当前变换记为上一步变换
func (c *CubeComponent) Snapshot() {
	c.PrevPosition = c.CurrentPosition
	c.PrevRotation = c.CurrentRotation
}

// Teleport 瞬移后同步两份快照，避免插值出现拖影
func (c *CubeComponent) Teleport(pos physics.Vec2) {
	c.PrevPosition = pos
	c.CurrentPosition = pos
}

// RenderTransform 按插值系数 alpha 计算渲染位置与旋转
func (c *CubeComponent) RenderTransform(alpha float64) (physics.Vec2, float64) {
	pos := c.PrevPosition.Lerp(c.CurrentPosition, alpha)
	rot := utils.Lerp(c.PrevRotation, c.CurrentRotation, alpha)
	return pos, rot
}
