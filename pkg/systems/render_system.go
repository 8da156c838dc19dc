package systems

import (
	"image"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/gonewx/dicefidget/pkg/utils"
)

// maxBatchVertices uint16 索引能寻址的顶点上限（留出一个四边形余量）
const maxBatchVertices = math.MaxUint16 - 4

// whiteSubImage 纯白贴图，首次绘制时创建
var whiteSubImage *ebiten.Image

func whiteTexture() *ebiten.Image {
	if whiteSubImage == nil {
		img := ebiten.NewImage(3, 3)
		img.Fill(color.White)
		whiteSubImage = img.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
	}
	return whiteSubImage
}

// RenderSystem 把会话状态画到屏幕上
//
// 所有图元都是纯色四边形：方块、粒子、扫描线、撞击印记和地面。
// 顶点/索引数组逐帧复用，整层一次 DrawTriangles（超过 uint16 上限时分批）。
//
// 绘制顺序（从底到顶）：地面 → 撞击印记 → 方块 → 扫描线 → 粒子
type RenderSystem struct {
	session *Session
	target  *ebiten.Image // 仅在 Draw 期间有效

	vertices []ebiten.Vertex
	indices  []uint16

	floorColor color.RGBA
}

// NewRenderSystem 创建渲染系统
func NewRenderSystem(session *Session) *RenderSystem {
	return &RenderSystem{
		session:    session,
		vertices:   make([]ebiten.Vertex, 0, 4*512), // 预分配：512 个四边形
		indices:    make([]uint16, 0, 6*512),
		floorColor: color.RGBA{R: 0x1c, G: 0x1c, B: 0x24, A: 0xff},
	}
}

// Draw 绘制一帧
//
// 参数:
//   - screen: 目标图像
//   - floor: 地面矩形（屏幕坐标）
func (s *RenderSystem) Draw(screen *ebiten.Image, floor Rect) {
	s.target = screen
	defer func() { s.target = nil }()

	s.reset()
	s.appendRect(floor, s.floorColor, 1)
	s.appendImpacts()
	s.appendCubes()
	s.appendScanlines()
	s.appendParticles()
	s.flush()
}

func (s *RenderSystem) reset() {
	s.vertices = s.vertices[:0]
	s.indices = s.indices[:0]
}

func (s *RenderSystem) flush() {
	if len(s.indices) == 0 || s.target == nil {
		s.reset()
		return
	}
	op := &ebiten.DrawTrianglesOptions{}
	op.AntiAlias = true
	s.target.DrawTriangles(s.vertices, s.indices, whiteTexture(), op)
	s.reset()
}

// appendCubes 方块：插值后的位置与旋转，叠加弹出动画的缩放与透明度
func (s *RenderSystem) appendCubes() {
	for _, v := range s.session.Cubes() {
		if v.Alpha <= 0 || v.Scale <= 0 {
			continue
		}
		s.appendQuad(BuildQuad(v.X, v.Y, v.Size, v.Size, v.Rotation, v.Scale, v.Color.RGBA(), v.Alpha))
	}
}

func (s *RenderSystem) appendParticles() {
	for _, p := range s.session.Particles().Particles() {
		s.appendQuad(BuildQuad(p.X, p.Y, p.Size, p.Size, 0, 1, p.Color.RGBA(), p.Alpha))
	}
}

// appendScanlines 扫描线：1 像素高的水平条
func (s *RenderSystem) appendScanlines() {
	for _, l := range s.session.Particles().Scanlines() {
		s.appendQuad(BuildQuad(l.X, l.Y, l.Length, 1, 0, 1, l.Color.RGBA(), l.Alpha))
	}
}

// appendImpacts 撞击印记：贴着地面线的扁平条
func (s *RenderSystem) appendImpacts() {
	for _, m := range s.session.Particles().Impacts().Marks() {
		s.appendQuad(BuildQuad(m.X, m.Y, m.Width, 2, 0, 1, m.Color.RGBA(), m.Alpha))
	}
}

func (s *RenderSystem) appendRect(r Rect, c color.RGBA, alpha float64) {
	if r.W <= 0 || r.H <= 0 {
		return
	}
	s.appendQuad(BuildQuad(r.X+r.W/2, r.Y+r.H/2, r.W, r.H, 0, 1, c, alpha))
}

func (s *RenderSystem) appendQuad(q [4]ebiten.Vertex) {
	if len(s.vertices) >= maxBatchVertices {
		s.flush()
	}
	base := uint16(len(s.vertices))
	s.vertices = append(s.vertices, q[:]...)
	s.indices = append(s.indices,
		base+0, base+1, base+2,
		base+1, base+3, base+2,
	)
}

// BuildQuad 生成一个居中、旋转、缩放后的纯色四边形
//
// 顶点顺序：左上、右上、左下、右下。颜色使用预乘 alpha。
//
// 参数:
//   - cx, cy: 中心点
//   - w, h: 未缩放的宽高
//   - rotation: 旋转（弧度）
//   - scale: 统一缩放
//   - c: 颜色
//   - alpha: 额外透明度，会被限制在 [0, 1]
func BuildQuad(cx, cy, w, h, rotation, scale float64, c color.RGBA, alpha float64) [4]ebiten.Vertex {
	alpha = utils.Clamp01(alpha)
	a := float32(alpha) * float32(c.A) / 255
	r := float32(c.R) / 255 * a
	g := float32(c.G) / 255 * a
	b := float32(c.B) / 255 * a

	hw, hh := w*scale/2, h*scale/2
	corners := [4][2]float64{
		{-hw, -hh},
		{hw, -hh},
		{-hw, hh},
		{hw, hh},
	}

	cos, sin := math.Cos(rotation), math.Sin(rotation)
	var q [4]ebiten.Vertex
	for i, corner := range corners {
		x := corner[0]*cos - corner[1]*sin
		y := corner[0]*sin + corner[1]*cos
		q[i] = ebiten.Vertex{
			DstX:   float32(cx + x),
			DstY:   float32(cy + y),
			SrcX:   1,
			SrcY:   1,
			ColorR: r,
			ColorG: g,
			ColorB: b,
			ColorA: a,
		}
	}
	return q
}
