package game

import (
	"os"
	"testing"

	"github.com/quasilyte/gdata/v2"
)

var testDice = []int{4, 6, 8, 10, 12, 20}

// openTestGdata 在临时 HOME 下创建 gdata manager
func openTestGdata(t *testing.T, appName string) *gdata.Manager {
	t.Helper()
	tempDir := t.TempDir()
	originalHome := os.Getenv("HOME")
	os.Setenv("HOME", tempDir)
	t.Cleanup(func() { os.Setenv("HOME", originalHome) })

	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		t.Fatalf("Failed to create gdata manager: %v", err)
	}
	return m
}

// TestDefaultSettings 测试默认值
func TestDefaultSettings(t *testing.T) {
	settings := DefaultSettings()
	if settings == nil {
		t.Fatal("DefaultSettings() returned nil")
	}
	if !settings.EffectsEnabled {
		t.Error("EffectsEnabled: got false, want true")
	}
	if settings.DefaultDie != 20 {
		t.Errorf("DefaultDie: got %d, want 20", settings.DefaultDie)
	}
	if settings.Fullscreen {
		t.Error("Fullscreen: got true, want false")
	}
}

// TestNewSettingsManagerNilGdata 测试 gdataManager 为 nil 时的降级场景
func TestNewSettingsManagerNilGdata(t *testing.T) {
	sm, err := NewSettingsManager(nil, testDice)
	if err != nil {
		t.Fatalf("NewSettingsManager(nil) error: %v", err)
	}
	if sm.GetSettings().DefaultDie != 20 {
		t.Errorf("Degraded mode DefaultDie: got %d", sm.GetSettings().DefaultDie)
	}

	sm.SetEffectsEnabled(false)
	if err := sm.Save(); err != nil {
		t.Errorf("Save() in degraded mode should not fail: %v", err)
	}
}

// TestSettingsLoadSave 测试 Load() 和 Save() 往返
func TestSettingsLoadSave(t *testing.T) {
	m := openTestGdata(t, "test_fidget_settings")

	sm1, _ := NewSettingsManager(m, testDice)
	sm1.SetEffectsEnabled(false)
	sm1.SetDefaultDie(8)
	sm1.SetFullscreen(true)
	if err := sm1.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	sm2, _ := NewSettingsManager(m, testDice)
	settings := sm2.GetSettings()
	if settings.EffectsEnabled {
		t.Error("Loaded EffectsEnabled: got true, want false")
	}
	if settings.DefaultDie != 8 {
		t.Errorf("Loaded DefaultDie: got %d, want 8", settings.DefaultDie)
	}
	if !settings.Fullscreen {
		t.Error("Loaded Fullscreen: got false, want true")
	}
}

// TestSettingsLoadUnknownDieFallsBack 测试存档中的未知骰子回退到默认值
func TestSettingsLoadUnknownDieFallsBack(t *testing.T) {
	m := openTestGdata(t, "test_fidget_settings_die")
	if err := m.SaveObjectProp(settingsObject, settingsProperty, []byte("defaultDie: 7\neffectsEnabled: false\n")); err != nil {
		t.Fatalf("SaveObjectProp: %v", err)
	}

	sm, _ := NewSettingsManager(m, testDice)
	if sm.GetSettings().DefaultDie != 20 {
		t.Errorf("DefaultDie = %d, want fallback 20", sm.GetSettings().DefaultDie)
	}
	if sm.GetSettings().EffectsEnabled {
		t.Error("other fields should still load")
	}
}

// TestSettingsLoadCorrupt 测试损坏的存档
func TestSettingsLoadCorrupt(t *testing.T) {
	m := openTestGdata(t, "test_fidget_settings_corrupt")
	if err := m.SaveObjectProp(settingsObject, settingsProperty, []byte("effectsEnabled: [oops")); err != nil {
		t.Fatalf("SaveObjectProp: %v", err)
	}

	sm, err := NewSettingsManager(m, testDice)
	if err != nil {
		t.Fatalf("corrupt settings should not fail construction: %v", err)
	}
	if *sm.GetSettings() != *DefaultSettings() {
		t.Errorf("corrupt settings should fall back to defaults, got %+v", sm.GetSettings())
	}
}

// TestSetDefaultDie 测试骰子校验
func TestSetDefaultDie(t *testing.T) {
	sm, _ := NewSettingsManager(nil, testDice)

	tests := []struct {
		input int
		ok    bool
		want  int
	}{
		{6, true, 6},
		{12, true, 12},
		{7, false, 12},
		{0, false, 12},
		{-4, false, 12},
		{4, true, 4},
	}

	for _, tt := range tests {
		if ok := sm.SetDefaultDie(tt.input); ok != tt.ok {
			t.Errorf("SetDefaultDie(%d) = %v, want %v", tt.input, ok, tt.ok)
		}
		if got := sm.GetSettings().DefaultDie; got != tt.want {
			t.Errorf("after SetDefaultDie(%d): got %d, want %d", tt.input, got, tt.want)
		}
	}
}
