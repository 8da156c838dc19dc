package scenes

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Pointer 一次指针按下（鼠标或触摸）
type Pointer struct {
	X, Y    int
	IsTouch bool
}

// PointerInput 统一处理鼠标点击和触摸
// 触摸 ID 数组逐帧复用
type PointerInput struct {
	touchIDs []ebiten.TouchID
	touches  []Pointer
}

// AppendJustPressed 把本帧刚按下的所有指针追加到 dst
// 多点触摸时每个新触点各算一次；触摸在前，鼠标在后
func (p *PointerInput) AppendJustPressed(dst []Pointer) []Pointer {
	p.touchIDs = inpututil.AppendJustPressedTouchIDs(p.touchIDs[:0])
	p.touches = p.touches[:0]
	for _, id := range p.touchIDs {
		x, y := ebiten.TouchPosition(id)
		p.touches = append(p.touches, Pointer{X: x, Y: y, IsTouch: true})
	}

	mouse := inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft)
	mx, my := ebiten.CursorPosition()
	return mergePointers(dst, p.touches, mouse, mx, my)
}

// mergePointers 合并触摸与鼠标
// 有新触点时忽略同一帧的鼠标事件（移动端浏览器会同时合成鼠标点击）
func mergePointers(dst, touches []Pointer, mouseJustPressed bool, mx, my int) []Pointer {
	dst = append(dst, touches...)
	if mouseJustPressed && len(touches) == 0 {
		dst = append(dst, Pointer{X: mx, Y: my})
	}
	return dst
}
