package systems

import (
	"math"
	"testing"

	"github.com/gonewx/dicefidget/pkg/config"
	"github.com/gonewx/dicefidget/pkg/physics"
)

// 地面远在视口之外，排除贴地弹跳的影响
const noFloor = 1e6

func TestPulseImpulsePointsAwayFromPointer(t *testing.T) {
	pc := config.DefaultFidgetConfig().Pulse
	pointer := physics.Vec2{X: 400, Y: 300}

	right := ComputePulseImpulse(pointer, physics.Vec2{X: 500, Y: 300}, pc.ReferenceSize, noFloor, pc)
	left := ComputePulseImpulse(pointer, physics.Vec2{X: 300, Y: 300}, pc.ReferenceSize, noFloor, pc)

	if right.X <= 0 || left.X >= 0 {
		t.Errorf("impulse should push away from the pointer: right=%+v left=%+v", right, left)
	}
	if right.Y >= 0 || left.Y >= 0 {
		t.Errorf("impulse should carry an upward bias: right=%+v left=%+v", right, left)
	}
	if math.Abs(right.X+left.X) > 1e-9 {
		t.Errorf("symmetric positions should mirror: right=%+v left=%+v", right, left)
	}
}

func TestPulseImpulseFalloff(t *testing.T) {
	pc := config.DefaultFidgetConfig().Pulse
	pointer := physics.Vec2{X: 0, Y: 0}
	size := pc.ReferenceSize

	touching := ComputePulseImpulse(pointer, physics.Vec2{X: pc.MinDistance / 4}, size, noFloor, pc)
	atMin := ComputePulseImpulse(pointer, physics.Vec2{X: pc.MinDistance}, size, noFloor, pc)
	far := ComputePulseImpulse(pointer, physics.Vec2{X: pc.MinDistance * 4}, size, noFloor, pc)
	outside := ComputePulseImpulse(pointer, physics.Vec2{X: pc.MaxDistance + 1}, size, noFloor, pc)

	if touching.Length() != atMin.Length() {
		t.Errorf("falloff should be capped below MinDistance: %f vs %f", touching.Length(), atMin.Length())
	}
	if math.Abs(far.Length()*4-atMin.Length()) > 1e-6 {
		t.Errorf("impulse should fall off inversely with distance: near=%f far=%f", atMin.Length(), far.Length())
	}
	if outside != (physics.Vec2{}) {
		t.Errorf("beyond MaxDistance impulse = %+v, want zero", outside)
	}
}

func TestPulseImpulseSizeScaling(t *testing.T) {
	pc := config.DefaultFidgetConfig().Pulse
	pointer := physics.Vec2{X: 0, Y: 0}
	cube := physics.Vec2{X: 100, Y: 0}

	ref := ComputePulseImpulse(pointer, cube, pc.ReferenceSize, noFloor, pc)
	big := ComputePulseImpulse(pointer, cube, pc.ReferenceSize*2, noFloor, pc)

	if math.Abs(big.Length()*2-ref.Length()) > 1e-6 {
		t.Errorf("a cube twice the reference size should get half the push: ref=%f big=%f", ref.Length(), big.Length())
	}
}

func TestPulseImpulseCoincidentPointer(t *testing.T) {
	pc := config.DefaultFidgetConfig().Pulse
	p := physics.Vec2{X: 100, Y: 100}

	dv := ComputePulseImpulse(p, p, pc.ReferenceSize, noFloor, pc)
	if dv.X != 0 || dv.Y >= 0 {
		t.Errorf("coincident pointer should push straight up, got %+v", dv)
	}
}

func TestPulseFloorBounce(t *testing.T) {
	pc := config.DefaultFidgetConfig().Pulse
	floorY := 560.0
	size := pc.ReferenceSize
	resting := physics.Vec2{X: 400, Y: floorY - size/2}

	tests := []struct {
		name      string
		pointer   physics.Vec2
		wantBoost bool
	}{
		{"pointer near floor and close", physics.Vec2{X: 420, Y: floorY - 10}, true},
		{"pointer high above floor", physics.Vec2{X: 420, Y: floorY - pc.FloorZone - 50}, false},
		{"pointer near floor but far sideways", physics.Vec2{X: 400 + pc.FloorReach + 50, Y: floorY - 10}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withFloor := ComputePulseImpulse(tt.pointer, resting, size, floorY, pc)
			without := ComputePulseImpulse(tt.pointer, resting, size, noFloor, pc)
			boost := without.Y - withFloor.Y

			if tt.wantBoost && math.Abs(boost-pc.FloorBoost) > 1e-6 {
				t.Errorf("upward boost = %f, want %f", boost, pc.FloorBoost)
			}
			if !tt.wantBoost && boost != 0 {
				t.Errorf("unexpected boost %f", boost)
			}
		})
	}
}

func TestPulseSystemPointerDown(t *testing.T) {
	pw, world := newTestPhysicsWorld(nil)
	ps := NewPulseSystem(pw, pw.cfg)

	near := pw.SpawnCube(5, 450, 300)
	far := pw.SpawnCube(5, 50, 50)
	for _, b := range world.bodies {
		b.vel = physics.Vec2{}
	}
	nearCube, _ := pw.Cube(near)
	nearCube.CurrentPosition = physics.Vec2{X: 450, Y: 300}
	farCube, _ := pw.Cube(far)
	farCube.CurrentPosition = physics.Vec2{X: 20, Y: 20}

	n, handled := ps.PointerDown(780, 300)
	if !handled || n != 1 {
		t.Fatalf("PointerDown = (%d, %v), want (1, true)", n, handled)
	}
	vel, _ := pw.Velocity(near)
	if vel.X >= 0 {
		t.Errorf("near cube should be pushed left, got %+v", vel)
	}
	if v, _ := pw.Velocity(far); v != (physics.Vec2{}) {
		t.Errorf("far cube should be untouched, got %+v", v)
	}
}

func TestPulseSystemIgnoresInteractiveTargets(t *testing.T) {
	pw, _ := newTestPhysicsWorld(nil)
	ps := NewPulseSystem(pw, pw.cfg)
	pw.SpawnCube(5, 400, 300)
	ps.SetInteractiveHitTest(func(x, y float64) bool { return y < 50 })

	if n, handled := ps.PointerDown(400, 10); handled || n != 0 {
		t.Errorf("click on UI control = (%d, %v), want (0, false)", n, handled)
	}
	if _, handled := ps.PointerDown(400, 290); !handled {
		t.Error("click on the arena should pulse")
	}
}

func TestPulseSystemSkipsPoppingCubes(t *testing.T) {
	pw, _ := newTestPhysicsWorld(nil)
	ps := NewPulseSystem(pw, pw.cfg)
	id := pw.SpawnCube(5, 400, 300)
	cube, _ := pw.Cube(id)
	cube.StartPop(0)

	if n, _ := ps.PointerDown(400, 320); n != 0 {
		t.Errorf("popping cube should not be pushed, affected %d", n)
	}
}
