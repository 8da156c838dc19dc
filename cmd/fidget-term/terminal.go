package main

import (
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/gonewx/dicefidget/pkg/config"
	"github.com/gonewx/dicefidget/pkg/systems"
)

// 每个终端格子对应的模拟像素
const (
	cellWidth  = 10.0
	cellHeight = 20.0
)

// termHost 把终端网格映射为会话的像素坐标
// 最后一行是地面
type termHost struct {
	cols, rows int
}

// ViewportSize 实现 systems.Host
func (h *termHost) ViewportSize() (float64, float64) {
	return float64(h.cols) * cellWidth, float64(h.rows) * cellHeight
}

// FloorRect 实现 systems.Host
func (h *termHost) FloorRect() systems.Rect {
	if h.cols <= 0 || h.rows <= 1 {
		return systems.Rect{}
	}
	return systems.Rect{
		X: 0,
		Y: float64(h.rows-1) * cellHeight,
		W: float64(h.cols) * cellWidth,
		H: cellHeight,
	}
}

// cellAt 像素坐标 → 格子坐标
func cellAt(x, y float64) (int, int) {
	return int(math.Floor(x / cellWidth)), int(math.Floor(y / cellHeight))
}

// pixelAt 格子中心的像素坐标
func pixelAt(col, row int) (float64, float64) {
	return (float64(col) + 0.5) * cellWidth, (float64(row) + 0.5) * cellHeight
}

// cubeCells 方块覆盖的格子矩形（左上角与宽高，至少 1x1）
func cubeCells(v systems.CubeView) (col, row, w, h int) {
	size := v.Size * v.Scale
	w = max(1, int(math.Round(size/cellWidth)))
	h = max(1, int(math.Round(size/cellHeight)))
	cx, cy := cellAt(v.X, v.Y)
	return cx - w/2, cy - h/2, w, h
}

func styleFor(c config.RGB) tcell.Style {
	return tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B)))
}

// fade 按 alpha 选择字符密度
func fade(alpha float64) rune {
	switch {
	case alpha > 0.75:
		return '█'
	case alpha > 0.5:
		return '▓'
	case alpha > 0.25:
		return '▒'
	default:
		return '░'
	}
}

// drawSession 绘制一帧：地面 → 印记 → 方块 → 特效
func drawSession(screen tcell.Screen, host *termHost, session *systems.Session) {
	put := func(col, row int, r rune, style tcell.Style) {
		if col >= 0 && col < host.cols && row >= 0 && row < host.rows {
			screen.SetContent(col, row, r, nil, style)
		}
	}

	floorStyle := tcell.StyleDefault.Foreground(tcell.ColorDimGray)
	for col := 0; col < host.cols; col++ {
		put(col, host.rows-1, '▀', floorStyle)
	}

	for _, m := range session.Particles().Impacts().Marks() {
		col, row := cellAt(m.X, m.Y)
		half := int(m.Width / cellWidth / 2)
		for c := col - half; c <= col+half; c++ {
			put(c, row, '_', styleFor(m.Color))
		}
	}

	for _, v := range session.Cubes() {
		if v.Alpha <= 0 || v.Scale <= 0 {
			continue
		}
		col, row, w, h := cubeCells(v)
		style := styleFor(v.Color)
		r := fade(v.Alpha)
		for dy := 0; dy < h; dy++ {
			for dx := 0; dx < w; dx++ {
				put(col+dx, row+dy, r, style)
			}
		}
	}

	for _, l := range session.Particles().Scanlines() {
		col, row := cellAt(l.X, l.Y)
		n := max(1, int(l.Length/cellWidth))
		for c := col; c < col+n; c++ {
			put(c, row, '─', styleFor(l.Color))
		}
	}
	for _, p := range session.Particles().Particles() {
		col, row := cellAt(p.X, p.Y)
		put(col, row, '·', styleFor(p.Color))
	}
}
