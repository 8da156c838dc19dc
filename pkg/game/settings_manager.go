package game

import (
	"fmt"
	"log"

	"github.com/quasilyte/gdata/v2"
	"gopkg.in/yaml.v3"
)

// FidgetSettings 全局偏好设置
// 只保存偏好，不保存任何掉落或方块状态
type FidgetSettings struct {
	EffectsEnabled bool `yaml:"effectsEnabled"` // 粒子与撞击印记开关
	DefaultDie     int  `yaml:"defaultDie"`     // 启动时选中的骰子面数
	Fullscreen     bool `yaml:"fullscreen"`     // 启动时是否全屏
}

// DefaultSettings 返回默认设置
func DefaultSettings() *FidgetSettings {
	return &FidgetSettings{
		EffectsEnabled: true,
		DefaultDie:     20,
		Fullscreen:     false,
	}
}

// SettingsManager 设置管理器
// 负责设置的加载、保存和内存管理
type SettingsManager struct {
	gdataManager *gdata.Manager // gdata 跨平台存储管理器，可为 nil（降级模式）
	settings     *FidgetSettings
	dieSizes     []int // 允许的骰子面数
}

// 存储路径常量
const (
	settingsObject   = "settings"
	settingsProperty = "global"
)

// NewSettingsManager 创建新的设置管理器实例
//
// 参数：
//   - gdataManager: gdata 跨平台存储管理器，可为 nil（降级模式，仅内存设置）
//   - dieSizes: 允许的骰子面数；加载到不在其中的 DefaultDie 时回退到默认值
//
// 返回：
//   - *SettingsManager: 设置管理器实例
//   - error: 保留以便调用方统一处理（加载失败不影响创建）
func NewSettingsManager(gdataManager *gdata.Manager, dieSizes []int) (*SettingsManager, error) {
	sm := &SettingsManager{
		gdataManager: gdataManager,
		settings:     DefaultSettings(),
		dieSizes:     dieSizes,
	}

	// 加载失败不是致命错误，使用默认设置
	if err := sm.Load(); err != nil {
		log.Printf("[SettingsManager] Warning: Failed to load settings: %v (using defaults)", err)
	}

	return sm, nil
}

// Load 从 gdata 加载设置
//
// 如果 gdataManager 为 nil 或文件不存在，使用默认设置
//
// 返回：
//   - error: 如果反序列化失败返回错误
func (sm *SettingsManager) Load() error {
	// 降级模式：无法持久化
	if sm.gdataManager == nil {
		sm.settings = DefaultSettings()
		return nil
	}

	if !sm.gdataManager.ObjectPropExists(settingsObject, settingsProperty) {
		sm.settings = DefaultSettings()
		return nil
	}

	data, err := sm.gdataManager.LoadObjectProp(settingsObject, settingsProperty)
	if err != nil {
		sm.settings = DefaultSettings()
		return fmt.Errorf("failed to load settings: %w", err)
	}

	loaded := DefaultSettings()
	if err := yaml.Unmarshal(data, loaded); err != nil {
		sm.settings = DefaultSettings()
		return fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	if !sm.allowedDie(loaded.DefaultDie) {
		log.Printf("[SettingsManager] 未知骰子 d%d，回退到 d%d", loaded.DefaultDie, DefaultSettings().DefaultDie)
		loaded.DefaultDie = DefaultSettings().DefaultDie
	}

	sm.settings = loaded
	log.Printf("[SettingsManager] Settings loaded successfully")
	return nil
}

// Save 保存设置到 gdata
//
// 如果 gdataManager 为 nil，返回 nil（降级模式，不报错）
func (sm *SettingsManager) Save() error {
	if sm.gdataManager == nil {
		return nil
	}

	data, err := yaml.Marshal(sm.settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := sm.gdataManager.SaveObjectProp(settingsObject, settingsProperty, data); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	log.Printf("[SettingsManager] Settings saved successfully")
	return nil
}

// GetSettings 获取当前设置
func (sm *SettingsManager) GetSettings() *FidgetSettings {
	return sm.settings
}

// SetEffectsEnabled 设置视觉效果开关
// 注意：仅修改内存中的设置，需调用 Save() 方法持久化
func (sm *SettingsManager) SetEffectsEnabled(enabled bool) {
	sm.settings.EffectsEnabled = enabled
}

// SetDefaultDie 设置默认骰子
//
// 返回：
//   - bool: 面数不在允许列表中时返回 false，设置不变
func (sm *SettingsManager) SetDefaultDie(sides int) bool {
	if !sm.allowedDie(sides) {
		return false
	}
	sm.settings.DefaultDie = sides
	return true
}

// SetFullscreen 设置全屏模式
func (sm *SettingsManager) SetFullscreen(enabled bool) {
	sm.settings.Fullscreen = enabled
}

func (sm *SettingsManager) allowedDie(sides int) bool {
	if len(sm.dieSizes) == 0 {
		return sides > 0
	}
	for _, d := range sm.dieSizes {
		if d == sides {
			return true
		}
	}
	return false
}
