package systems

import (
	"math"
	"testing"

	"github.com/gonewx/dicefidget/pkg/ecs"
	"github.com/gonewx/dicefidget/pkg/physics"
)

func newTestGoodbye() (*GoodbyeSystem, *PhysicsWorldSystem, *fakeWorld) {
	pw, world := newTestPhysicsWorld(nil)
	g := NewGoodbyeSystem(pw, pw.cfg)
	pw.SetSpawnGuard(g.IsActive)
	pw.OnCollision(g.HandleCollision)
	return g, pw, world
}

// placeCube 把方块放到指定位置并清零速度
func placeCube(pw *PhysicsWorldSystem, id ecs.EntityID, x, y float64) {
	pw.Teleport(id, physics.Vec2{X: x, Y: y})
	pw.SetVelocity(id, physics.Vec2{})
}

func TestGoodbyeTriggerWithoutCubesIsNoop(t *testing.T) {
	g, pw, _ := newTestGoodbye()

	if g.Trigger() {
		t.Error("Trigger with zero cubes should return false")
	}
	if g.State() != GoodbyeNormal || pw.HasCeiling() {
		t.Errorf("state=%s ceiling=%v after no-op trigger", g.State(), pw.HasCeiling())
	}
}

func TestGoodbyeTriggerReversesGravity(t *testing.T) {
	g, pw, world := newTestGoodbye()
	pw.SpawnCube(5, 400, 500)

	if !g.Trigger() {
		t.Fatal("Trigger should start the sequence")
	}
	if g.State() != GoodbyeRising || !g.IsActive() {
		t.Errorf("state = %s, want Rising", g.State())
	}
	if world.gravity.Y >= 0 {
		t.Errorf("gravity = %+v, want reversed", world.gravity)
	}
	if !pw.HasCeiling() {
		t.Error("ceiling collider should exist")
	}

	// 进行中再次触发不改变任何状态
	if g.Trigger() {
		t.Error("second Trigger should be a no-op")
	}
	if g.State() != GoodbyeRising || world.countColliders(physics.ColliderCeiling) != 1 {
		t.Errorf("second Trigger changed state: %s, ceilings=%d", g.State(), world.countColliders(physics.ColliderCeiling))
	}

	if id := pw.SpawnCube(1, 100, 100); id != 0 {
		t.Error("spawning should be blocked while goodbye is active")
	}
}

func TestGoodbyeRestoresGravityPastHalfway(t *testing.T) {
	g, pw, world := newTestGoodbye()
	a := pw.SpawnCube(5, 200, 500)
	b := pw.SpawnCube(5, 600, 500)
	g.Trigger()

	placeCube(pw, a, 200, 100)
	placeCube(pw, b, 600, 400) // 仍在中线以下
	g.Update(0.1)
	if g.State() != GoodbyeRising {
		t.Fatalf("state = %s, want Rising while a cube is below halfway", g.State())
	}

	placeCube(pw, b, 600, 120)
	g.Update(0.2)
	if g.State() != GoodbyeRestored {
		t.Fatalf("state = %s, want Restored", g.State())
	}
	if world.gravity.Y <= 0 {
		t.Errorf("gravity = %+v, want restored downward", world.gravity)
	}
}

func TestGoodbyeRestoredPopsOnContactAndSettle(t *testing.T) {
	g, pw, world := newTestGoodbye()
	a := pw.SpawnCube(5, 200, 500)
	b := pw.SpawnCube(5, 600, 500)
	g.Trigger()
	placeCube(pw, a, 200, 50)
	placeCube(pw, b, 600, 50)
	g.Update(0)

	// Restored：碰到天花板/地面或速度低于阈值都会开始弹出
	pw.SetVelocity(a, physics.Vec2{Y: 500})
	pw.SetVelocity(b, physics.Vec2{Y: 500})
	cubeA, _ := pw.Cube(a)
	cubeB, _ := pw.Cube(b)

	world.events = []physics.CollisionEvent{{Body: cubeA.Body, IsCeiling: true}}
	pw.Step(pw.cfg.Physics.FixedTimestep)
	if !cubeA.IsPopping() {
		t.Fatal("ceiling contact should start the pop")
	}
	startedAt := *cubeA.PoppingAt

	// 重复接触不会重置计时
	g.Update(0.05)
	world.events = []physics.CollisionEvent{{Body: cubeA.Body, IsFloor: true}}
	pw.Step(pw.cfg.Physics.FixedTimestep)
	if *cubeA.PoppingAt != startedAt {
		t.Error("PoppingAt must be set only once")
	}

	if cubeB.IsPopping() {
		t.Fatal("fast-moving cube without contact should not pop yet")
	}
	pw.SetVelocity(b, physics.Vec2{X: 1})
	g.Update(0.1)
	if !cubeB.IsPopping() {
		t.Error("settled cube should start popping")
	}
}

func TestGoodbyeFullSequenceWithFakeWorld(t *testing.T) {
	g, pw, world := newTestGoodbye()
	var ids []ecs.EntityID
	for i := 0; i < 5; i++ {
		ids = append(ids, pw.SpawnCube(5, float64(100+i*120), 500))
	}
	pops := 0
	g.SetPopHook(func(x, y float64, tier int) { pops++ })

	g.Trigger()
	for i, id := range ids {
		placeCube(pw, id, float64(100+i*120), 40)
	}

	now := 0.0
	for frame := 0; frame < 200 && g.IsActive(); frame++ {
		now += 1.0 / 60
		for _, id := range pw.Cubes() {
			pw.SetVelocity(id, physics.Vec2{})
		}
		g.Update(now)
		pw.FlushRemovals()
	}

	if pops != 5 {
		t.Errorf("pop hook fired %d times, want 5", pops)
	}
	if pw.CubeCount() != 0 {
		t.Errorf("CubeCount = %d, want 0", pw.CubeCount())
	}
	if g.State() != GoodbyeNormal {
		t.Errorf("state = %s, want Normal", g.State())
	}
	if pw.HasCeiling() || world.countColliders(physics.ColliderCeiling) != 0 {
		t.Error("ceiling should be removed")
	}
	if world.gravity.Y != pw.cfg.Physics.Gravity {
		t.Errorf("gravity = %+v, want normal", world.gravity)
	}
	if len(world.bodies) != 0 {
		t.Errorf("%d bodies left in the world", len(world.bodies))
	}
}

func TestGoodbyeRejectsUndefinedTransitions(t *testing.T) {
	g, _, _ := newTestGoodbye()

	if g.transition(GoodbyeRestored) {
		t.Error("Normal -> Restored should be rejected")
	}
	if g.transition(GoodbyeNormal) {
		t.Error("Normal -> Normal should be rejected")
	}
	if g.State() != GoodbyeNormal {
		t.Errorf("state = %s after rejected transitions", g.State())
	}
}

func TestPopCurve(t *testing.T) {
	const peak, peakAt = 1.4, 0.3

	tests := []struct {
		progress  float64
		wantScale float64
		wantAlpha float64
	}{
		{0, 1, 1},
		{0.15, 1.2, 0.85},
		{0.3, 1.4, 0.7},
		{0.65, 0.7, 0.35},
		{1, 0, 0},
		{2, 0, 0},
	}

	for _, tt := range tests {
		scale, alpha := PopCurve(tt.progress, peak, peakAt)
		if math.Abs(scale-tt.wantScale) > 1e-9 || math.Abs(alpha-tt.wantAlpha) > 1e-9 {
			t.Errorf("PopCurve(%v) = (%f, %f), want (%f, %f)", tt.progress, scale, alpha, tt.wantScale, tt.wantAlpha)
		}
	}
}
