// Package app 提供骰子玩具应用的核心包装器
//
// 该包将初始化逻辑从 main 包提取出来，使其可以被桌面端和移动端共用。
// 桌面端通过 main.go 调用 NewApp()，移动端通过 mobile/mobile.go 调用。
package app

import (
	"image/color"
	"io"
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/quasilyte/gdata/v2"

	"github.com/gonewx/dicefidget/pkg/config"
	"github.com/gonewx/dicefidget/pkg/embedded"
	"github.com/gonewx/dicefidget/pkg/game"
	"github.com/gonewx/dicefidget/pkg/scenes"
)

// appName gdata 存储目录名
const appName = "dicefidget"

// fidgetConfigPath 嵌入的调参文件
const fidgetConfigPath = "data/fidget.yaml"

// Config 定义应用启动配置
type Config struct {
	// Verbose 启用详细日志输出
	Verbose bool
	// Seed 随机种子；0 表示使用当前时间
	Seed uint64
	// Die 启动时选中的骰子面数；0 表示使用保存的偏好
	Die int
}

// App 是应用的核心包装器，实现 ebiten.Game 接口
type App struct {
	sceneManager             *game.SceneManager
	settings                 *game.SettingsManager
	verbose                  bool
	pendingWindowSizeReset   bool // 延迟设置窗口大小标志
	windowSizeResetCountdown int  // 延迟帧数
	lastUpdate               time.Time
}

// NewApp 创建并初始化应用
//
// 调用此函数前，必须先调用 embedded.Init() 初始化嵌入资源。
// 调参文件加载失败时使用内置默认配置；存储不可用时设置只保存在内存中。
func NewApp(cfg Config) (*App, error) {
	// 配置日志输出
	if !cfg.Verbose {
		log.SetOutput(io.Discard)
		log.SetFlags(0)
	}

	var (
		fidgetConfig *config.FidgetConfig
		err          error
	)
	if !embedded.IsInitialized() {
		log.Printf("[App] 嵌入资源未初始化，使用内置默认配置")
		fidgetConfig = config.DefaultFidgetConfig()
	} else if fidgetConfig, err = config.LoadEmbeddedFidgetConfig(fidgetConfigPath); err != nil {
		log.Printf("[App] 调参文件加载失败: %v，使用内置默认配置", err)
		fidgetConfig = config.DefaultFidgetConfig()
	}
	log.Printf("[Config] 加载调参文件: %s (%d 档, %d 种骰子)", fidgetConfigPath, len(fidgetConfig.Tiers), len(fidgetConfig.DropTables))

	gdataManager, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		log.Printf("[App] Warning: gdata 不可用: %v（设置不会持久化）", err)
		gdataManager = nil
	}
	settings, err := game.NewSettingsManager(gdataManager, fidgetConfig.DieSizes())
	if err != nil {
		return nil, err
	}
	if cfg.Die != 0 && !settings.SetDefaultDie(cfg.Die) {
		log.Printf("[App] 未知骰子 d%d，保留 d%d", cfg.Die, settings.GetSettings().DefaultDie)
	}
	if settings.GetSettings().Fullscreen {
		ebiten.SetFullscreen(true)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	log.Printf("[App] Seed: %d", seed)

	sceneManager := game.NewSceneManager()
	sceneManager.SwitchTo(scenes.NewFidgetScene(scenes.FidgetSceneOptions{
		Config:   fidgetConfig,
		Settings: settings,
		Seed:     seed,
		Width:    config.GameWindowWidth,
		Height:   config.GameWindowHeight,
	}))

	return &App{
		sceneManager: sceneManager,
		settings:     settings,
		verbose:      cfg.Verbose,
	}, nil
}

// Update 更新逻辑
// 每个 tick 调用一次（通常每秒 60 次）
func (a *App) Update() error {
	// 窗口关闭：保存偏好后退出
	if ebiten.IsWindowBeingClosed() {
		if !a.sceneManager.SaveOnExit() {
			log.Printf("[App] 退出时保存设置失败")
		}
		return ebiten.Termination
	}

	// 延迟设置窗口大小（退出全屏后需要等待几帧才能正确设置）
	if a.pendingWindowSizeReset {
		a.windowSizeResetCountdown--
		if a.windowSizeResetCountdown <= 0 {
			ebiten.SetWindowSize(config.GameWindowWidth, config.GameWindowHeight)
			log.Printf("[App] Delayed SetWindowSize(%d, %d)", config.GameWindowWidth, config.GameWindowHeight)
			a.pendingWindowSizeReset = false
		}
	}

	// F11 切换全屏
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		a.toggleFullscreen()
	}

	a.sceneManager.Update(a.frameDelta())
	return nil
}

// frameDelta 距上一次 Update 的真实时间
// 会话内部自行钳制和分步，这里只负责测量
func (a *App) frameDelta() float64 {
	now := time.Now()
	if a.lastUpdate.IsZero() {
		a.lastUpdate = now
		return 1.0 / float64(ebiten.TPS())
	}
	dt := now.Sub(a.lastUpdate).Seconds()
	a.lastUpdate = now
	return dt
}

func (a *App) toggleFullscreen() {
	if ebiten.IsFullscreen() {
		// 退出全屏
		ebiten.SetFullscreen(false)
		if ebiten.IsWindowMaximized() || ebiten.IsWindowMinimized() {
			ebiten.RestoreWindow()
		}
		// 延迟几帧后设置窗口大小，让窗口管理器有时间处理
		a.pendingWindowSizeReset = true
		a.windowSizeResetCountdown = 3
		log.Printf("[App] Exit fullscreen, will reset window size in 3 frames")
	} else {
		ebiten.SetFullscreen(true)
	}
	a.settings.SetFullscreen(ebiten.IsFullscreen())
	if err := a.settings.Save(); err != nil {
		log.Printf("[App] 保存设置失败: %v", err)
	}
}

// Draw 绘制画面
// 每帧调用一次
func (a *App) Draw(screen *ebiten.Image) {
	a.sceneManager.Draw(screen)
}

// DrawFinalScreen 实现 FinalScreenDrawer 接口
// 用于控制全屏时的缩放和 letterbox 颜色
func (a *App) DrawFinalScreen(screen ebiten.FinalScreen, offscreen *ebiten.Image, geoM ebiten.GeoM) {
	screen.Fill(color.Black)
	op := &ebiten.DrawImageOptions{}
	op.GeoM = geoM
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(offscreen, op)
}

// Layout 返回逻辑屏幕尺寸
// 场地跟随窗口大小：逻辑尺寸等于窗口尺寸，变化时通知场景重新测量地面
func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth <= 0 || outsideHeight <= 0 {
		return config.GameWindowWidth, config.GameWindowHeight
	}
	a.sceneManager.Resize(outsideWidth, outsideHeight)
	return outsideWidth, outsideHeight
}

// GetSceneManager 返回场景管理器
func (a *App) GetSceneManager() *game.SceneManager {
	return a.sceneManager
}

// IsVerbose 返回是否启用了详细日志
func (a *App) IsVerbose() bool {
	return a.verbose
}
