package scenes

import (
	"fmt"
	"testing"

	"github.com/gonewx/dicefidget/pkg/config"
	"github.com/gonewx/dicefidget/pkg/game"
	"github.com/gonewx/dicefidget/pkg/systems"
)

func newTestScene(t *testing.T, seed uint64) *FidgetScene {
	t.Helper()
	s := NewFidgetScene(FidgetSceneOptions{Seed: seed, Width: 800, Height: 600})
	if !s.Session().PhysicsEnabled() {
		t.Fatal("physics should initialise with a valid viewport")
	}
	return s
}

// step 模拟 ebiten 的 Update → Draw（不提交 GPU）
func step(s *FidgetScene, frames int) {
	for i := 0; i < frames; i++ {
		s.Session().Update(1.0 / 60)
		s.Session().EndFrame()
	}
}

// TestFidgetSceneHost 测试宿主布局
func TestFidgetSceneHost(t *testing.T) {
	s := newTestScene(t, 1)
	w, h := s.ViewportSize()
	if w != 800 || h != 600 {
		t.Errorf("ViewportSize = %.0fx%.0f", w, h)
	}
	floor := s.FloorRect()
	if floor.Y != 600-config.FloorHeight || floor.W != 800 {
		t.Errorf("FloorRect = %+v", floor)
	}
	if s.Session().FloorY() != floor.Y {
		t.Errorf("session floor %.0f != host floor %.0f", s.Session().FloorY(), floor.Y)
	}
}

// TestFidgetSceneInvalidSizeFallsBack 测试无效尺寸回退到默认窗口
func TestFidgetSceneInvalidSizeFallsBack(t *testing.T) {
	s := NewFidgetScene(FidgetSceneOptions{Seed: 1})
	w, h := s.ViewportSize()
	if w != config.GameWindowWidth || h != config.GameWindowHeight {
		t.Errorf("ViewportSize = %.0fx%.0f", w, h)
	}
}

// TestFidgetSceneRollDropsCubes 测试掷骰后方块落入场地
func TestFidgetSceneRollDropsCubes(t *testing.T) {
	s := newTestScene(t, 42)

	result := s.Roll()
	if result < 1 || result > s.Die() {
		t.Fatalf("Roll = %d outside 1..%d", result, s.Die())
	}
	step(s, 60*10)

	count := s.Session().GetCubeCount()
	if systems.QualifiesForLoot(s.Die(), result) {
		if count != result+1 {
			t.Errorf("qualifying roll %d produced %d cubes, want %d", result, count, result+1)
		}
	} else if count < 1 || count > 4 {
		t.Errorf("consolation produced %d cubes, want 1..4", count)
	}
	if len(s.hudLines()) < 4 {
		t.Error("HUD should show the last roll")
	}
}

// TestFidgetScenePointerOnButtonRolls 测试按钮点击掷骰而不是脉冲
func TestFidgetScenePointerOnButtonRolls(t *testing.T) {
	s := newTestScene(t, 7)
	s.PointerDown(config.RollButtonX+5, config.RollButtonY+5)
	if s.lastRoll == "" {
		t.Error("clicking the roll button should roll")
	}

	s = newTestScene(t, 7)
	s.PointerDown(400, 300)
	if s.lastRoll != "" {
		t.Error("clicking the arena should not roll")
	}
}

// TestFidgetSceneSelectDie 测试数字键选择骰子
func TestFidgetSceneSelectDie(t *testing.T) {
	s := newTestScene(t, 1)
	if s.Die() != config.FallbackDieSize {
		t.Errorf("default die = d%d", s.Die())
	}

	tests := []struct {
		index int
		ok    bool
		want  int
	}{
		{0, true, 4},
		{1, true, 6},
		{5, true, 20},
		{6, false, 20},
		{-1, false, 20},
	}

	for _, tt := range tests {
		if ok := s.SelectDie(tt.index); ok != tt.ok {
			t.Errorf("SelectDie(%d) = %v, want %v", tt.index, ok, tt.ok)
		}
		if s.Die() != tt.want {
			t.Errorf("after SelectDie(%d) die = d%d, want d%d", tt.index, s.Die(), tt.want)
		}
	}
}

// TestFidgetSceneUsesSettings 测试偏好设置的读取与写回
func TestFidgetSceneUsesSettings(t *testing.T) {
	settings, _ := game.NewSettingsManager(nil, []int{4, 6, 8, 10, 12, 20})
	settings.SetDefaultDie(8)
	settings.SetEffectsEnabled(false)

	s := NewFidgetScene(FidgetSceneOptions{Seed: 3, Width: 800, Height: 600, Settings: settings})
	if s.Die() != 8 {
		t.Errorf("die = d%d, want d8 from settings", s.Die())
	}
	if s.Session().EffectsEnabled() {
		t.Error("effects should start disabled from settings")
	}

	if !s.ToggleEffects() || !settings.GetSettings().EffectsEnabled {
		t.Error("ToggleEffects should enable effects and update settings")
	}
	s.SelectDie(1)
	if settings.GetSettings().DefaultDie != 6 {
		t.Errorf("settings die = %d, want 6", settings.GetSettings().DefaultDie)
	}
	if !s.SaveOnExit() {
		t.Error("SaveOnExit in degraded mode should succeed")
	}
}

// TestFidgetSceneAnnouncements 测试播报只保留最近几条
func TestFidgetSceneAnnouncements(t *testing.T) {
	s := newTestScene(t, 1)
	for i := 0; i < maxAnnouncements+3; i++ {
		s.Announce(fmt.Sprintf("msg %d", i))
	}
	got := s.Announcements()
	if len(got) != maxAnnouncements {
		t.Fatalf("len = %d, want %d", len(got), maxAnnouncements)
	}
	if got[len(got)-1] != fmt.Sprintf("msg %d", maxAnnouncements+2) {
		t.Errorf("newest = %q", got[len(got)-1])
	}
}

// TestFidgetSceneResize 测试窗口尺寸变化后地面跟随
func TestFidgetSceneResize(t *testing.T) {
	s := newTestScene(t, 1)
	s.Resize(1024, 768)
	if got := s.Session().FloorY(); got != 768-config.FloorHeight {
		t.Errorf("FloorY = %.0f, want %.0f", got, 768-config.FloorHeight)
	}
}
