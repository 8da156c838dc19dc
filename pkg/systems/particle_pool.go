package systems

import (
	"log"
	"math"
	"math/rand/v2"

	"github.com/gonewx/dicefidget/pkg/config"
)

// FrameScheduler 宿主的下一帧回调调度（相当于 requestAnimationFrame）
type FrameScheduler interface {
	RequestFrame(fn func(dt float64))
}

// Particle 故障风格的像素碎片
// 从对象池取出时所有字段都会被覆盖
type Particle struct {
	X, Y    float64
	VX, VY  float64
	Size    float64
	Color   config.RGB
	Alpha   float64
	Life    float64 // 剩余寿命（秒）
	MaxLife float64

	GlitchTimer     float64
	GlitchIntensity float64
}

// Scanline 水平扫描线碎片
type Scanline struct {
	X, Y      float64
	VX        float64
	Length    float64
	MaxLength float64
	Color     config.RGB
	Alpha     float64
	Life      float64
	MaxLife   float64

	GlitchTimer float64
}

// glitchPalette 无指定颜色时的故障配色
var glitchPalette = []config.RGB{
	{R: 0x00, G: 0xff, B: 0xf0},
	{R: 0xff, G: 0x2a, B: 0x6d},
	{R: 0xf5, G: 0xf5, B: 0xf5},
}

// sparkleColor 闪光粒子颜色
var sparkleColor = config.RGB{R: 0xff, G: 0xf4, B: 0xb0}

// ParticlePool 粒子与撞击印记对象池
//
// 两个空闲列表（粒子、扫描线）与两个活跃列表；过期对象用"与末尾交换再弹出"移除，
// 不保证绘制顺序。更新循环自我终止：只有存在活跃对象时才请求下一帧回调。
type ParticlePool struct {
	cfg       *config.FidgetConfig
	rng       *rand.Rand
	scheduler FrameScheduler

	initialized bool
	enabled     bool
	running     bool

	particles     []*Particle
	freeParticles []*Particle
	scanlines     []*Scanline
	freeScanlines []*Scanline
	impacts       *ImpactMarks

	constructedParticles int
	constructedScanlines int
	frames               int
}

// NewParticlePool 创建对象池（未初始化，需调用 Init）
func NewParticlePool(cfg *config.FidgetConfig, rng *rand.Rand, scheduler FrameScheduler) *ParticlePool {
	return &ParticlePool{
		cfg:       cfg,
		rng:       rng,
		scheduler: scheduler,
		enabled:   true,
		impacts:   NewImpactMarks(cfg.Effects),
	}
}

// Init 初始化粒子系统
// 没有帧调度器时返回 false，后续生成调用均为空操作
func (p *ParticlePool) Init() bool {
	if p.scheduler == nil {
		log.Printf("[Particles] 帧调度不可用，粒子效果已禁用")
		return false
	}
	p.initialized = true
	return true
}

// SetEnabled 开关视觉效果；关闭时释放所有活跃对象
func (p *ParticlePool) SetEnabled(enabled bool) {
	p.enabled = enabled
	if !enabled {
		p.releaseAll()
	}
}

// Enabled 视觉效果是否开启
func (p *ParticlePool) Enabled() bool {
	return p.enabled
}

// Running 帧循环是否在运行
func (p *ParticlePool) Running() bool {
	return p.running
}

// Frames 返回帧回调累计执行次数
func (p *ParticlePool) Frames() int {
	return p.frames
}

// ActiveCount 返回活跃粒子与扫描线总数
func (p *ParticlePool) ActiveCount() int {
	return len(p.particles) + len(p.scanlines)
}

// Constructed 返回曾经构造过的粒子与扫描线对象数
func (p *ParticlePool) Constructed() (particles, scanlines int) {
	return p.constructedParticles, p.constructedScanlines
}

// Particles 返回活跃粒子（只读）
func (p *ParticlePool) Particles() []*Particle {
	return p.particles
}

// Scanlines 返回活跃扫描线（只读）
func (p *ParticlePool) Scanlines() []*Scanline {
	return p.scanlines
}

// Impacts 返回撞击印记列表
func (p *ParticlePool) Impacts() *ImpactMarks {
	return p.impacts
}

// SpawnParticles 在 (x, y) 生成一次故障爆发：碎片 + 扫描线
func (p *ParticlePool) SpawnParticles(x, y float64) {
	p.SpawnBurst(x, y, nil)
}

// SpawnBurst 生成故障爆发；c 为 nil 时使用故障配色
func (p *ParticlePool) SpawnBurst(x, y float64, c *config.RGB) {
	if !p.active() {
		return
	}
	ec := p.cfg.Effects
	for i := 0; i < ec.BurstCount; i++ {
		angle := p.rng.Float64() * 2 * math.Pi
		speed := ec.ParticleSpeed * (0.3 + 0.7*p.rng.Float64())
		col := p.pickColor(c)
		p.emitParticle(x, y, math.Cos(angle)*speed, math.Sin(angle)*speed, 2+p.rng.Float64()*4, col, ec.ParticleLifetime)
	}
	for i := 0; i < ec.ScanlineCount; i++ {
		p.emitScanline(x, y, p.pickColor(c))
	}
	p.start()
}

// SpawnSparkles 在 (x, y) 生成少量向上飞散的闪光
func (p *ParticlePool) SpawnSparkles(x, y float64) {
	if !p.active() {
		return
	}
	ec := p.cfg.Effects
	for i := 0; i < ec.SparkleCount; i++ {
		angle := -math.Pi/2 + (p.rng.Float64()*2-1)*math.Pi/3
		speed := ec.ParticleSpeed * (0.4 + 0.6*p.rng.Float64())
		p.emitParticle(x, y, math.Cos(angle)*speed, math.Sin(angle)*speed, 1+p.rng.Float64()*2, sparkleColor, ec.ParticleLifetime*0.6)
	}
	p.start()
}

// AddImpact 添加地面撞击印记；列表已满时静默丢弃
func (p *ParticlePool) AddImpact(x, y, width float64, c config.RGB) bool {
	if !p.active() {
		return false
	}
	ok := p.impacts.Add(x, y, width, c)
	p.start()
	return ok
}

func (p *ParticlePool) active() bool {
	return p.initialized && p.enabled
}

func (p *ParticlePool) pickColor(c *config.RGB) config.RGB {
	if c != nil && p.rng.Float64() < 0.7 {
		return *c
	}
	return glitchPalette[p.rng.IntN(len(glitchPalette))]
}

func (p *ParticlePool) acquireParticle() *Particle {
	if n := len(p.freeParticles); n > 0 {
		pt := p.freeParticles[n-1]
		p.freeParticles = p.freeParticles[:n-1]
		return pt
	}
	p.constructedParticles++
	return &Particle{}
}

func (p *ParticlePool) acquireScanline() *Scanline {
	if n := len(p.freeScanlines); n > 0 {
		sl := p.freeScanlines[n-1]
		p.freeScanlines = p.freeScanlines[:n-1]
		return sl
	}
	p.constructedScanlines++
	return &Scanline{}
}

func (p *ParticlePool) emitParticle(x, y, vx, vy, size float64, c config.RGB, life float64) {
	pt := p.acquireParticle()
	*pt = Particle{
		X: x, Y: y,
		VX: vx, VY: vy,
		Size:            size,
		Color:           c,
		Alpha:           1,
		Life:            life,
		MaxLife:         life,
		GlitchTimer:     p.nextGlitch(),
		GlitchIntensity: 0.5 + p.rng.Float64(),
	}
	p.particles = append(p.particles, pt)
}

func (p *ParticlePool) emitScanline(x, y float64, c config.RGB) {
	ec := p.cfg.Effects
	sl := p.acquireScanline()
	maxLen := ec.ScanlineMaxLength * (0.3 + 0.7*p.rng.Float64())
	*sl = Scanline{
		X:           x - maxLen/2,
		Y:           y + (p.rng.Float64()*2-1)*20,
		VX:          (p.rng.Float64()*2 - 1) * ec.ParticleSpeed * 0.5,
		Length:      maxLen * 0.2,
		MaxLength:   maxLen,
		Color:       c,
		Alpha:       1,
		Life:        ec.ScanlineLifetime,
		MaxLife:     ec.ScanlineLifetime,
		GlitchTimer: p.nextGlitch(),
	}
	p.scanlines = append(p.scanlines, sl)
}

func (p *ParticlePool) nextGlitch() float64 {
	return p.cfg.Effects.GlitchInterval * (0.5 + p.rng.Float64())
}

// start 帧循环未运行时请求下一帧
func (p *ParticlePool) start() {
	if p.running || p.scheduler == nil {
		return
	}
	p.running = true
	p.scheduler.RequestFrame(p.tick)
}

// tick 帧回调：更新后仅在仍有活跃对象时请求下一帧
func (p *ParticlePool) tick(dt float64) {
	p.frames++
	p.Update(dt)
	if p.ActiveCount() == 0 && p.impacts.Len() == 0 {
		p.running = false
		return
	}
	p.scheduler.RequestFrame(p.tick)
}

// Update 推进所有粒子、扫描线和撞击印记
func (p *ParticlePool) Update(dt float64) {
	if dt <= 0 {
		return
	}
	ec := p.cfg.Effects
	decay := math.Exp(-ec.VelocityDecay * dt)

	for i := 0; i < len(p.particles); {
		pt := p.particles[i]
		pt.Life -= dt
		if pt.Life <= 0 {
			p.releaseParticleAt(i)
			continue
		}

		pt.X += pt.VX * dt
		pt.Y += pt.VY * dt
		pt.VX *= decay
		pt.VY *= decay

		pt.GlitchTimer -= dt
		if pt.GlitchTimer <= 0 {
			pt.X += (p.rng.Float64()*2 - 1) * ec.GlitchJump * pt.GlitchIntensity
			pt.Y += (p.rng.Float64()*2 - 1) * ec.GlitchJump * pt.GlitchIntensity
			pt.GlitchTimer = p.nextGlitch()
		}

		pt.Alpha = p.flicker(pt.Life / pt.MaxLife)
		i++
	}

	for i := 0; i < len(p.scanlines); {
		sl := p.scanlines[i]
		sl.Life -= dt
		if sl.Life <= 0 {
			p.releaseScanlineAt(i)
			continue
		}

		progress := 1 - sl.Life/sl.MaxLife
		sl.Length = sl.MaxLength * math.Sin(progress*math.Pi)
		sl.X += sl.VX * dt

		sl.GlitchTimer -= dt
		if sl.GlitchTimer <= 0 {
			sl.X += (p.rng.Float64()*2 - 1) * ec.GlitchJump * 2
			sl.GlitchTimer = p.nextGlitch()
		}

		sl.Alpha = p.flicker(sl.Life / sl.MaxLife)
		i++
	}

	p.impacts.Update(dt)
}

// flicker 随机闪烁而非平滑淡出
func (p *ParticlePool) flicker(base float64) float64 {
	if p.rng.Float64() < p.cfg.Effects.FlickerChance {
		return base * (0.2 + 0.4*p.rng.Float64())
	}
	return base
}

func (p *ParticlePool) releaseParticleAt(i int) {
	pt := p.particles[i]
	last := len(p.particles) - 1
	p.particles[i] = p.particles[last]
	p.particles[last] = nil
	p.particles = p.particles[:last]
	p.freeParticles = append(p.freeParticles, pt)
}

func (p *ParticlePool) releaseScanlineAt(i int) {
	sl := p.scanlines[i]
	last := len(p.scanlines) - 1
	p.scanlines[i] = p.scanlines[last]
	p.scanlines[last] = nil
	p.scanlines = p.scanlines[:last]
	p.freeScanlines = append(p.freeScanlines, sl)
}

func (p *ParticlePool) releaseAll() {
	for len(p.particles) > 0 {
		p.releaseParticleAt(len(p.particles) - 1)
	}
	for len(p.scanlines) > 0 {
		p.releaseScanlineAt(len(p.scanlines) - 1)
	}
	p.impacts.Clear()
}
