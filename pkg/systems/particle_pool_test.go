package systems

import (
	"testing"

	"github.com/gonewx/dicefidget/pkg/config"
)

func newTestParticlePool(cfg *config.FidgetConfig) (*ParticlePool, *fakeScheduler) {
	if cfg == nil {
		cfg = config.DefaultFidgetConfig()
	}
	sched := &fakeScheduler{}
	p := NewParticlePool(cfg, newTestRNG(3), sched)
	p.Init()
	return p, sched
}

// runUntilIdle 推进帧直到粒子循环自行停止，返回执行的帧数
func runUntilIdle(t *testing.T, sched *fakeScheduler) int {
	t.Helper()
	frames := 0
	for sched.runFrame(1.0/60) > 0 {
		frames++
		if frames > 10000 {
			t.Fatal("particle loop never terminated")
		}
	}
	return frames
}

func TestParticlePoolInitWithoutScheduler(t *testing.T) {
	p := NewParticlePool(config.DefaultFidgetConfig(), newTestRNG(1), nil)
	if p.Init() {
		t.Fatal("Init without a frame scheduler should fail")
	}
	p.SpawnParticles(10, 10)
	p.SpawnSparkles(10, 10)
	if p.AddImpact(10, 10, 20, config.RGB{}) {
		t.Error("AddImpact on a disabled pool should report false")
	}
	if p.ActiveCount() != 0 {
		t.Errorf("disabled pool spawned %d objects", p.ActiveCount())
	}
}

func TestParticlePoolSpawnCounts(t *testing.T) {
	p, sched := newTestParticlePool(nil)
	ec := p.cfg.Effects

	p.SpawnParticles(100, 100)
	if got := len(p.Particles()); got != ec.BurstCount {
		t.Errorf("particles = %d, want %d", got, ec.BurstCount)
	}
	if got := len(p.Scanlines()); got != ec.ScanlineCount {
		t.Errorf("scanlines = %d, want %d", got, ec.ScanlineCount)
	}

	p.SpawnSparkles(100, 100)
	if got := len(p.Particles()); got != ec.BurstCount+ec.SparkleCount {
		t.Errorf("particles after sparkles = %d", got)
	}
	for _, pt := range p.Particles()[ec.BurstCount:] {
		if pt.VY >= 0 {
			t.Errorf("sparkle should fly upward, vy=%f", pt.VY)
		}
	}

	if len(sched.pending) != 1 {
		t.Errorf("pending frame callbacks = %d, want exactly 1", len(sched.pending))
	}
}

func TestParticlePoolSelfTerminates(t *testing.T) {
	p, sched := newTestParticlePool(nil)

	p.SpawnParticles(50, 50)
	if !p.Running() {
		t.Fatal("spawn should start the frame loop")
	}
	runUntilIdle(t, sched)

	if p.Running() || p.ActiveCount() != 0 {
		t.Errorf("loop still running=%v active=%d", p.Running(), p.ActiveCount())
	}
	if len(sched.pending) != 0 {
		t.Errorf("idle pool left %d frame requests", len(sched.pending))
	}

	// 新的生成重新启动循环
	p.SpawnSparkles(50, 50)
	if !p.Running() || len(sched.pending) != 1 {
		t.Error("spawn after idle should restart the loop")
	}
}

func TestParticlePoolRecyclesObjects(t *testing.T) {
	p, sched := newTestParticlePool(nil)
	ec := p.cfg.Effects

	for cycle := 0; cycle < 25; cycle++ {
		p.SpawnParticles(float64(cycle), 0)
		runUntilIdle(t, sched)
	}

	particles, scanlines := p.Constructed()
	if particles > ec.BurstCount {
		t.Errorf("constructed %d particles over 25 cycles, peak concurrent is %d", particles, ec.BurstCount)
	}
	if scanlines > ec.ScanlineCount {
		t.Errorf("constructed %d scanlines over 25 cycles, peak concurrent is %d", scanlines, ec.ScanlineCount)
	}
}

func TestParticlePoolActiveAndFreeAreDisjoint(t *testing.T) {
	p, sched := newTestParticlePool(nil)
	p.SpawnParticles(0, 0)

	// 让一部分过期后再补充一批，混合新旧对象
	for i := 0; i < 20; i++ {
		sched.runFrame(1.0 / 60)
	}
	p.SpawnSparkles(0, 0)

	seen := make(map[*Particle]string)
	for _, pt := range p.particles {
		seen[pt] = "active"
	}
	for _, pt := range p.freeParticles {
		if seen[pt] != "" {
			t.Fatal("particle is both active and free")
		}
		seen[pt] = "free"
	}
	particles, _ := p.Constructed()
	if len(seen) != particles {
		t.Errorf("tracked %d particles, constructed %d", len(seen), particles)
	}
}

func TestParticlePoolOverwritesRecycledFields(t *testing.T) {
	p, sched := newTestParticlePool(nil)
	p.SpawnParticles(0, 0)
	runUntilIdle(t, sched)

	p.SpawnSparkles(300, 200)
	for _, pt := range p.Particles() {
		if pt.X != 300 || pt.Y != 200 {
			t.Errorf("recycled particle kept stale position (%f,%f)", pt.X, pt.Y)
		}
		if pt.Life != pt.MaxLife || pt.Life <= 0 || pt.Alpha != 1 {
			t.Errorf("recycled particle life=%f max=%f alpha=%f", pt.Life, pt.MaxLife, pt.Alpha)
		}
		if pt.Color != sparkleColor {
			t.Errorf("recycled particle color = %v", pt.Color)
		}
	}
}

func TestParticlePoolEffectsToggle(t *testing.T) {
	p, _ := newTestParticlePool(nil)
	p.SpawnParticles(0, 0)
	p.AddImpact(0, 560, 20, config.RGB{R: 1})

	p.SetEnabled(false)
	if p.ActiveCount() != 0 || p.Impacts().Len() != 0 {
		t.Error("disabling effects should release everything")
	}
	p.SpawnParticles(0, 0)
	if p.ActiveCount() != 0 {
		t.Error("spawn while disabled should be a no-op")
	}

	p.SetEnabled(true)
	p.SpawnParticles(0, 0)
	if p.ActiveCount() == 0 {
		t.Error("spawn after re-enabling should work")
	}
}

func TestImpactMarksCap(t *testing.T) {
	cfg := config.DefaultFidgetConfig()
	cfg.Effects.MaxImpacts = 3
	p, _ := newTestParticlePool(cfg)

	results := make([]bool, 0, 5)
	for i := 0; i < 5; i++ {
		results = append(results, p.AddImpact(float64(i), 560, 20, config.RGB{}))
	}

	if p.Impacts().Len() != 3 {
		t.Errorf("impacts = %d, want cap 3", p.Impacts().Len())
	}
	want := []bool{true, true, true, false, false}
	for i := range want {
		if results[i] != want[i] {
			t.Errorf("AddImpact #%d = %v, want %v", i, results[i], want[i])
		}
	}
	// 溢出的插入被丢弃，保留的是最早的三个
	for i, mk := range p.Impacts().Marks() {
		if mk.X != float64(i) {
			t.Errorf("mark %d x=%f", i, mk.X)
		}
	}
}

func TestImpactMarksGrowAndFade(t *testing.T) {
	ec := config.DefaultFidgetConfig().Effects
	m := NewImpactMarks(ec)
	m.Add(100, 560, 30, config.RGB{})

	m.Update(0.1)
	mk := m.Marks()[0]
	if mk.Width <= 30 {
		t.Errorf("width = %f, should grow", mk.Width)
	}
	if mk.Alpha >= 1 {
		t.Errorf("alpha = %f, should fade", mk.Alpha)
	}

	m.Update(10)
	if m.Len() != 0 {
		t.Errorf("faded marks should be removed, %d left", m.Len())
	}
}

func TestParticlePoolLoopRunsWhileImpactsRemain(t *testing.T) {
	p, sched := newTestParticlePool(nil)
	p.AddImpact(100, 560, 30, config.RGB{})

	frames := runUntilIdle(t, sched)
	fadeFrames := int(60/p.cfg.Effects.ImpactFade) - 1
	if frames < fadeFrames {
		t.Errorf("loop stopped after %d frames, impact needs about %d to fade", frames, fadeFrames)
	}
	if p.Impacts().Len() != 0 {
		t.Error("impact should have faded before the loop stopped")
	}
}
