package systems

import (
	"image/color"
	"math"
	"testing"

	"github.com/gonewx/dicefidget/pkg/physics"
)

func approx32(a float32, b float64) bool {
	return math.Abs(float64(a)-b) < 1e-3
}

// TestBuildQuad 测试四边形顶点计算
func TestBuildQuad(t *testing.T) {
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}

	tests := []struct {
		name     string
		w, h     float64
		rotation float64
		scale    float64
		want     [4][2]float64 // 相对中心的偏移
	}{
		{"axis aligned", 10, 4, 0, 1, [4][2]float64{{-5, -2}, {5, -2}, {-5, 2}, {5, 2}}},
		{"scaled", 10, 10, 0, 2, [4][2]float64{{-10, -10}, {10, -10}, {-10, 10}, {10, 10}}},
		{"quarter turn", 10, 4, math.Pi / 2, 1, [4][2]float64{{2, -5}, {2, 5}, {-2, -5}, {-2, 5}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := BuildQuad(100, 50, tt.w, tt.h, tt.rotation, tt.scale, white, 1)
			for i, v := range q {
				if !approx32(v.DstX, 100+tt.want[i][0]) || !approx32(v.DstY, 50+tt.want[i][1]) {
					t.Errorf("vertex %d = (%.2f, %.2f), want (%.2f, %.2f)",
						i, v.DstX, v.DstY, 100+tt.want[i][0], 50+tt.want[i][1])
				}
				if v.SrcX != 1 || v.SrcY != 1 {
					t.Errorf("vertex %d samples (%f, %f), want the white texel", i, v.SrcX, v.SrcY)
				}
			}
		})
	}
}

// TestBuildQuadColor 测试预乘 alpha 与 alpha 限制
func TestBuildQuadColor(t *testing.T) {
	c := color.RGBA{R: 255, G: 0, B: 128, A: 255}

	tests := []struct {
		alpha float64
		wantA float64
	}{
		{1, 1},
		{0.5, 0.5},
		{1.7, 1},
		{-0.3, 0},
	}

	for _, tt := range tests {
		q := BuildQuad(0, 0, 1, 1, 0, 1, c, tt.alpha)
		v := q[0]
		if !approx32(v.ColorA, tt.wantA) {
			t.Errorf("alpha %.1f: ColorA = %f, want %f", tt.alpha, v.ColorA, tt.wantA)
		}
		if !approx32(v.ColorR, tt.wantA) || !approx32(v.ColorG, 0) || !approx32(v.ColorB, 128.0/255*tt.wantA) {
			t.Errorf("alpha %.1f: color not premultiplied: %f %f %f", tt.alpha, v.ColorR, v.ColorG, v.ColorB)
		}
	}
}

// TestRenderSystemCollectsLayers 测试各层图元的收集（不提交到 GPU）
func TestRenderSystemCollectsLayers(t *testing.T) {
	world := newFakeWorld(physics.Vec2{})
	s := NewSession(SessionOptions{Seed: 9, Host: newFakeHost(), PhysicsFactory: factoryFor(world)})
	s.InitPhysics()
	s.InitParticles()
	for i := 0; i < 3; i++ {
		s.SpawnCube(i+1, float64(200+i*100), 200)
	}
	s.SpawnParticles(400, 300)

	rs := NewRenderSystem(s)
	rs.reset()
	rs.appendCubes()
	if got := len(rs.vertices); got != 3*4 {
		t.Errorf("cube vertices = %d, want 12", got)
	}
	if got := len(rs.indices); got != 3*6 {
		t.Errorf("cube indices = %d, want 18", got)
	}

	rs.reset()
	rs.appendParticles()
	rs.appendScanlines()
	wantQuads := len(s.Particles().Particles()) + len(s.Particles().Scanlines())
	if wantQuads == 0 || len(rs.vertices) != wantQuads*4 {
		t.Errorf("effect vertices = %d, want %d", len(rs.vertices), wantQuads*4)
	}

	// 索引必须指向本批次内的顶点
	for _, idx := range rs.indices {
		if int(idx) >= len(rs.vertices) {
			t.Fatalf("index %d out of range (%d vertices)", idx, len(rs.vertices))
		}
	}
}

// TestRenderSystemSkipsInvisibleCubes 测试完全透明或缩放为 0 的方块不生成图元
func TestRenderSystemSkipsInvisibleCubes(t *testing.T) {
	world := newFakeWorld(physics.Vec2{})
	s := NewSession(SessionOptions{Seed: 9, Host: newFakeHost(), PhysicsFactory: factoryFor(world)})
	s.InitPhysics()
	id := s.SpawnCube(2, 300, 200)
	s.SpawnCube(3, 400, 200)

	cube, _ := s.physicsWorld.Cube(id)
	cube.Alpha = 0

	rs := NewRenderSystem(s)
	rs.reset()
	rs.appendCubes()
	if len(rs.vertices) != 4 {
		t.Errorf("vertices = %d, want only the visible cube", len(rs.vertices))
	}
}

// TestRenderSystemEmptyFloor 测试空地面矩形不生成图元
func TestRenderSystemEmptyFloor(t *testing.T) {
	rs := NewRenderSystem(NewSession(SessionOptions{Seed: 1}))
	rs.reset()
	rs.appendRect(Rect{}, color.RGBA{A: 255}, 1)
	if len(rs.vertices) != 0 {
		t.Errorf("empty rect produced %d vertices", len(rs.vertices))
	}
	rs.appendRect(testFloorRect, color.RGBA{A: 255}, 1)
	if len(rs.vertices) != 4 {
		t.Errorf("floor rect produced %d vertices", len(rs.vertices))
	}
}
