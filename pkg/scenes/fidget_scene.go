package scenes

import (
	"fmt"
	"image/color"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/gonewx/dicefidget/pkg/config"
	"github.com/gonewx/dicefidget/pkg/game"
	"github.com/gonewx/dicefidget/pkg/systems"
)

// maxAnnouncements HUD 保留的最近播报条数
const maxAnnouncements = 4

// dieKeys 数字键 1..6 依次对应配置中的骰子（按面数升序）
var dieKeys = []ebiten.Key{
	ebiten.Key1, ebiten.Key2, ebiten.Key3,
	ebiten.Key4, ebiten.Key5, ebiten.Key6,
}

var (
	backgroundColor = color.RGBA{R: 0x0e, G: 0x0e, B: 0x14, A: 0xff}
	buttonColor     = color.RGBA{R: 0x2d, G: 0x2d, B: 0x3a, A: 0xff}
)

// FidgetScene 骰子玩具主场景
//
// 职责：
//   - 作为 Session 的宿主（视口尺寸与地面矩形）
//   - 收集指针与键盘输入并转换为会话操作
//   - 绘制方块、特效与 HUD
//
// 操作：
//   - 点击/触摸：脉冲（点在掷骰按钮上时掷骰）
//   - Space：掷骰；1-6：选择骰子；G：告别；E：开关特效
type FidgetScene struct {
	session  *systems.Session
	renderer *systems.RenderSystem
	settings *game.SettingsManager

	width, height int

	dieSizes []int
	die      int
	lastRoll string

	announcements []string
	input         PointerInput
	pointers      []Pointer
}

// FidgetSceneOptions 场景构造参数
type FidgetSceneOptions struct {
	Config   *config.FidgetConfig
	Settings *game.SettingsManager // 可为 nil
	Seed     uint64
	Width    int
	Height   int
}

// NewFidgetScene 创建场景并初始化会话
//
// 物理初始化失败时场景仍可运行（没有方块，只有 HUD）。
func NewFidgetScene(opts FidgetSceneOptions) *FidgetScene {
	s := &FidgetScene{
		settings: opts.Settings,
		width:    opts.Width,
		height:   opts.Height,
	}
	if s.width <= 0 || s.height <= 0 {
		s.width, s.height = config.GameWindowWidth, config.GameWindowHeight
	}

	s.session = systems.NewSession(systems.SessionOptions{
		Config:    opts.Config,
		Seed:      opts.Seed,
		Host:      s,
		Announcer: s,
	})
	s.renderer = systems.NewRenderSystem(s.session)
	s.dieSizes = s.session.Config().DieSizes()
	s.die = config.FallbackDieSize

	if !s.session.InitPhysics() {
		log.Printf("[FidgetScene] 物理不可用，只显示界面")
	}
	s.session.InitLoot()
	s.session.InitParticles()
	s.session.SetInteractiveHitTest(config.InRollButton)

	if s.settings != nil {
		prefs := s.settings.GetSettings()
		s.selectDieSize(prefs.DefaultDie)
		s.session.SetEffectsEnabled(prefs.EffectsEnabled)
	}

	return s
}

// Session 返回场景持有的会话
func (s *FidgetScene) Session() *systems.Session {
	return s.session
}

// ViewportSize 实现 systems.Host
func (s *FidgetScene) ViewportSize() (float64, float64) {
	return float64(s.width), float64(s.height)
}

// FloorRect 实现 systems.Host
func (s *FidgetScene) FloorRect() systems.Rect {
	x, y, w, h := config.FloorBounds(s.width, s.height)
	return systems.Rect{X: x, Y: y, W: w, H: h}
}

// Announce 实现 systems.Announcer：记录到 HUD
func (s *FidgetScene) Announce(message string) {
	log.Printf("[Announce] %s", message)
	s.announcements = append(s.announcements, message)
	if len(s.announcements) > maxAnnouncements {
		s.announcements = s.announcements[len(s.announcements)-maxAnnouncements:]
	}
}

// Announcements 返回最近的播报（旧 → 新）
func (s *FidgetScene) Announcements() []string {
	return s.announcements
}

// Die 返回当前选中的骰子面数
func (s *FidgetScene) Die() int {
	return s.die
}

// Resize 实现 game.Resizable
func (s *FidgetScene) Resize(width, height int) {
	if width == s.width && height == s.height {
		return
	}
	s.width, s.height = width, height
	if !s.session.PhysicsEnabled() && s.session.InitPhysics() {
		log.Printf("[FidgetScene] 渲染表面可用，物理已初始化")
		return
	}
	s.session.Resize()
}

// SaveOnExit 实现 game.Saveable：保存偏好设置
func (s *FidgetScene) SaveOnExit() bool {
	if s.settings == nil {
		return true
	}
	if err := s.settings.Save(); err != nil {
		log.Printf("[FidgetScene] 保存设置失败: %v", err)
		return false
	}
	return true
}

// Update 处理输入并推进会话
func (s *FidgetScene) Update(deltaTime float64) {
	s.handleKeyboard()
	s.handlePointers()
	s.session.Update(deltaTime)
}

func (s *FidgetScene) handleKeyboard() {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		s.Roll()
	}
	for i, key := range dieKeys {
		if inpututil.IsKeyJustPressed(key) {
			s.SelectDie(i)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyG) {
		s.session.TriggerGoodbye()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyE) {
		s.ToggleEffects()
	}
}

func (s *FidgetScene) handlePointers() {
	s.pointers = s.input.AppendJustPressed(s.pointers[:0])
	for _, p := range s.pointers {
		s.PointerDown(float64(p.X), float64(p.Y))
	}
}

// PointerDown 指针按下：按钮上掷骰，其余位置脉冲
func (s *FidgetScene) PointerDown(x, y float64) {
	if config.InRollButton(x, y) {
		s.Roll()
		return
	}
	s.session.Pulse(x, y)
}

// Roll 掷当前骰子，返回掷出的点数
func (s *FidgetScene) Roll() int {
	out := s.session.RollDie(s.die, float64(s.width)/2, float64(s.height)*config.DropHeightRatio)
	if out.Qualified {
		s.lastRoll = fmt.Sprintf("d%d -> %d", out.Die, out.Result)
	} else {
		s.lastRoll = fmt.Sprintf("d%d -> %d (consolation, best %s)", out.Die, out.Result, s.session.Config().Tier(out.BestTier).Name)
	}
	log.Printf("[FidgetScene] 掷骰 %s", s.lastRoll)
	return out.Result
}

// SelectDie 按序号选择骰子（0 = 面数最小）
func (s *FidgetScene) SelectDie(index int) bool {
	if index < 0 || index >= len(s.dieSizes) {
		return false
	}
	return s.selectDieSize(s.dieSizes[index])
}

func (s *FidgetScene) selectDieSize(sides int) bool {
	for _, d := range s.dieSizes {
		if d == sides {
			s.die = sides
			if s.settings != nil {
				s.settings.SetDefaultDie(sides)
			}
			return true
		}
	}
	return false
}

// ToggleEffects 开关粒子特效并立即保存偏好
func (s *FidgetScene) ToggleEffects() bool {
	enabled := !s.session.EffectsEnabled()
	s.session.SetEffectsEnabled(enabled)
	if s.settings != nil {
		s.settings.SetEffectsEnabled(enabled)
		if err := s.settings.Save(); err != nil {
			log.Printf("[FidgetScene] 保存设置失败: %v", err)
		}
	}
	return enabled
}

// Draw 绘制场景；渲染结束后清理本帧移除的方块
func (s *FidgetScene) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)
	s.renderer.Draw(screen, s.FloorRect())
	s.drawHUD(screen)
	s.session.EndFrame()
}

func (s *FidgetScene) drawHUD(screen *ebiten.Image) {
	vector.DrawFilledRect(screen,
		float32(config.RollButtonX), float32(config.RollButtonY),
		float32(config.RollButtonW), float32(config.RollButtonH),
		buttonColor, false)
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("ROLL d%d", s.die),
		int(config.RollButtonX)+12, int(config.RollButtonY)+10)

	for i, line := range s.hudLines() {
		ebitenutil.DebugPrintAt(screen, line, int(config.RollButtonX), int(config.RollButtonY+config.RollButtonH)+8+i*config.HUDLineHeight)
	}
}

// hudLines HUD 文本（按钮下方）
func (s *FidgetScene) hudLines() []string {
	effects := "on"
	if !s.session.EffectsEnabled() {
		effects = "off"
	}
	lines := []string{
		fmt.Sprintf("cubes: %d  drops: %d  queued: %d", s.session.GetCubeCount(), s.session.DropsInFlight(), s.session.QueuedBatches()),
		fmt.Sprintf("goodbye: %s  effects: %s", s.session.GoodbyeState(), effects),
		"[space] roll  [1-6] die  [g] goodbye  [e] effects",
	}
	if s.lastRoll != "" {
		lines = append(lines, "last: "+s.lastRoll)
	}
	return append(lines, s.announcements...)
}
