package systems

import (
	"log"
	"math/rand/v2"

	"github.com/gonewx/dicefidget/pkg/components"
	"github.com/gonewx/dicefidget/pkg/config"
	"github.com/gonewx/dicefidget/pkg/ecs"
	"github.com/gonewx/dicefidget/pkg/physics"
)

// FrameCallbacks 帧回调队列
//
// RequestFrame 登记的回调在下一次 Run 时执行一次；
// 回调内再次 RequestFrame 的登记到下一帧。
type FrameCallbacks struct {
	pending []func(dt float64)
}

// RequestFrame 登记下一帧回调
func (f *FrameCallbacks) RequestFrame(fn func(dt float64)) {
	if fn != nil {
		f.pending = append(f.pending, fn)
	}
}

// Run 执行本帧所有回调，返回执行数
func (f *FrameCallbacks) Run(dt float64) int {
	if len(f.pending) == 0 {
		return 0
	}
	batch := f.pending
	f.pending = nil
	for _, fn := range batch {
		fn(dt)
	}
	return len(batch)
}

// Pending 返回等待执行的回调数
func (f *FrameCallbacks) Pending() int {
	return len(f.pending)
}

// SessionOptions 会话构造参数
type SessionOptions struct {
	Config    *config.FidgetConfig // nil 时使用内置默认配置
	Seed      uint64               // 随机种子；相同种子得到相同的掉落与动画
	Host      Host
	Announcer Announcer

	// PhysicsFactory 物理引擎工厂；nil 时使用 Chipmunk
	PhysicsFactory physics.Factory
	// Scheduler 粒子帧调度；nil 时使用会话内部的帧回调队列（在 Update 中执行）
	Scheduler FrameScheduler
}

// CubeView 单个方块的插值渲染状态
type CubeView struct {
	ID       ecs.EntityID
	Tier     int
	X, Y     float64
	Rotation float64
	Size     float64
	Color    config.RGB
	Alpha    float64
	Scale    float64
}

// Session 一次模拟会话
//
// 拥有实体管理器、物理世界、掉落调度、告别序列和粒子池，
// 所有状态都属于该结构体，多个会话互不影响。
// 单线程使用：所有方法都应在宿主的帧回调内调用。
type Session struct {
	cfg *config.FidgetConfig
	rng *rand.Rand

	em      *ecs.EntityManager
	queue   *EventQueue
	frames  *FrameCallbacks
	host    Host
	factory physics.Factory

	physicsWorld *PhysicsWorldSystem
	containment  *ContainmentSystem
	pulse        *PulseSystem
	loot         *LootDropSystem
	goodbye      *GoodbyeSystem
	particles    *ParticlePool

	// Cubes() 每帧复用的缓冲
	cubeIDs   []ecs.EntityID
	cubeViews []CubeView
}

// NewSession 创建会话并连接各子系统
// 物理与粒子需要分别调用 InitPhysics / InitParticles 后才生效
func NewSession(opts SessionOptions) *Session {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultFidgetConfig()
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	s := &Session{
		cfg:     cfg,
		rng:     rng,
		em:      ecs.NewEntityManager(),
		queue:   NewEventQueue(),
		frames:  &FrameCallbacks{},
		host:    opts.Host,
		factory: opts.PhysicsFactory,
	}

	scheduler := opts.Scheduler
	if scheduler == nil {
		scheduler = s.frames
	}

	s.physicsWorld = NewPhysicsWorldSystem(s.em, cfg, rng)
	s.containment = NewContainmentSystem(s.physicsWorld, cfg)
	s.pulse = NewPulseSystem(s.physicsWorld, cfg)
	s.loot = NewLootDropSystem(cfg, rng, s.queue, s.physicsWorld, opts.Announcer)
	s.goodbye = NewGoodbyeSystem(s.physicsWorld, cfg)
	s.particles = NewParticlePool(cfg, rng, scheduler)

	s.physicsWorld.SetSpawnGuard(s.goodbye.IsActive)
	s.physicsWorld.OnCollision(s.containment.HandleCollision)
	s.physicsWorld.OnCollision(s.goodbye.HandleCollision)
	s.containment.SetTopSuppressed(s.goodbye.IsActive)
	s.containment.SetImpactHandler(func(x, y, width float64, c config.RGB) {
		s.particles.AddImpact(x, y, width, c)
		s.particles.SpawnSparkles(x, y)
	})
	s.goodbye.SetPopHook(func(x, y float64, tier int) {
		c := cfg.Tier(tier).Color
		s.particles.SpawnBurst(x, y, &c)
	})
	s.loot.SetDropHook(func(tier int, x, y float64) {
		if tier <= cfg.Loot.AnnounceTier {
			c := cfg.Tier(tier).Color
			s.particles.SpawnBurst(x, y, &c)
		}
	})

	return s
}

// Config 返回会话使用的配置
func (s *Session) Config() *config.FidgetConfig {
	return s.cfg
}

// InitPhysics 创建物理世界
// 宿主表面不可用或引擎加载失败时返回 false，之后的物理调用都是空操作
func (s *Session) InitPhysics() bool {
	return s.physicsWorld.Init(s.host, s.factory)
}

// PhysicsEnabled 物理是否可用
func (s *Session) PhysicsEnabled() bool {
	return s.physicsWorld.Enabled()
}

// SpawnCube 在 (x, y) 直接生成一个指定档位的方块
func (s *Session) SpawnCube(tier int, x, y float64) ecs.EntityID {
	return s.physicsWorld.SpawnCube(tier, x, y)
}

// GetCubeCount 返回存活方块数
func (s *Session) GetCubeCount() int {
	return s.physicsWorld.CubeCount()
}

// TriggerGoodbye 开始告别序列
func (s *Session) TriggerGoodbye() bool {
	return s.goodbye.Trigger()
}

// IsGoodbyeActive 告别序列是否进行中
func (s *Session) IsGoodbyeActive() bool {
	return s.goodbye.IsActive()
}

// GoodbyeState 返回告别序列状态
func (s *Session) GoodbyeState() GoodbyeState {
	return s.goodbye.State()
}

// InitLoot 重置掉落调度
func (s *Session) InitLoot() {
	s.loot.Init()
}

// SpawnLoot 合格掷骰的掉落
func (s *Session) SpawnLoot(dieSize, rollResult int, x, y float64) {
	s.loot.SpawnLoot(dieSize, rollResult, x, y)
}

// SpawnConsolationLoot 未达标掷骰的安慰奖，返回掉落中最好的档位
func (s *Session) SpawnConsolationLoot(x, y float64) int {
	return s.loot.SpawnConsolationLoot(x, y)
}

// RollOutcome 一次掷骰的结果
type RollOutcome struct {
	Die       int
	Result    int
	Qualified bool // 是否达到正常掉落门槛
	BestTier  int  // 仅安慰掉落时有效
}

// QualifiesForLoot 点数是否达到正常掉落的门槛（不低于面数的一半）
func QualifiesForLoot(die, result int) bool {
	return result*2 >= die
}

// RollDie 掷一次骰子并触发对应的掉落
//
// 点数不低于面数一半时按点数掉落，否则给安慰掉落。未知骰子按 d20 处理。
//
// 参数:
//   - die: 骰子面数
//   - x, y: 掉落起点
func (s *Session) RollDie(die int, x, y float64) RollOutcome {
	if _, ok := s.cfg.DropTables[die]; !ok {
		die = config.FallbackDieSize
	}
	out := RollOutcome{Die: die, Result: 1 + s.rng.IntN(die)}
	out.Qualified = QualifiesForLoot(die, out.Result)
	if out.Qualified {
		s.SpawnLoot(die, out.Result, x, y)
	} else {
		out.BestTier = s.SpawnConsolationLoot(x, y)
	}
	return out
}

// DropsInFlight 返回进行中的掉落数
func (s *Session) DropsInFlight() int {
	return s.loot.DropsInFlight()
}

// QueuedBatches 返回排队中的掉落批次数
func (s *Session) QueuedBatches() int {
	return s.loot.QueuedBatches()
}

// InitParticles 初始化粒子效果
func (s *Session) InitParticles() bool {
	return s.particles.Init()
}

// SpawnParticles 在 (x, y) 生成故障爆发
func (s *Session) SpawnParticles(x, y float64) {
	s.particles.SpawnParticles(x, y)
}

// SpawnSparkles 在 (x, y) 生成闪光
func (s *Session) SpawnSparkles(x, y float64) {
	s.particles.SpawnSparkles(x, y)
}

// SetEffectsEnabled 开关粒子与撞击印记
func (s *Session) SetEffectsEnabled(enabled bool) {
	s.particles.SetEnabled(enabled)
}

// EffectsEnabled 粒子效果是否开启
func (s *Session) EffectsEnabled() bool {
	return s.particles.Enabled()
}

// Particles 返回粒子池（渲染用）
func (s *Session) Particles() *ParticlePool {
	return s.particles
}

// SetInteractiveHitTest 设置 UI 控件命中测试；命中时指针按下不触发脉冲
func (s *Session) SetInteractiveHitTest(fn func(x, y float64) bool) {
	s.pulse.SetInteractiveHitTest(fn)
}

// Pulse 指针按下：对所有方块施加径向冲量
func (s *Session) Pulse(x, y float64) (int, bool) {
	return s.pulse.PointerDown(x, y)
}

// Resize 宿主布局变化：重建静态碰撞体并执行一次越界校正
func (s *Session) Resize() bool {
	if !s.physicsWorld.Resize() {
		return false
	}
	if n := s.containment.Update(); n > 0 {
		log.Printf("[Session] Resize 校正了 %d 个方块", n)
	}
	return true
}

// Now 返回模拟时钟（秒）
func (s *Session) Now() float64 {
	return s.queue.Now()
}

// FloorY 返回地面线
func (s *Session) FloorY() float64 {
	return s.physicsWorld.FloorY()
}

// Update 推进一帧
//
// 顺序：清理上一帧残留的移除 → 触发到期的掉落事件 → 固定步长物理
// → 越界校正 → 告别状态机 → 粒子帧回调。
//
// 参数:
//   - dt: 距上一帧的真实时间（秒）
func (s *Session) Update(dt float64) {
	if dt < 0 {
		dt = 0
	}
	s.physicsWorld.FlushRemovals()

	s.queue.Advance(dt)
	s.physicsWorld.Step(dt)
	s.containment.Update()
	s.goodbye.Update(s.queue.Now())

	s.frames.Run(dt)
}

// EndFrame 渲染结束后调用：真正销毁本帧标记移除的方块
func (s *Session) EndFrame() {
	s.physicsWorld.FlushRemovals()
}

// Cubes 返回所有方块的插值渲染状态（按实体 ID 升序）
// 返回的切片在下一次调用 Cubes 前有效，需要保留时请自行复制
func (s *Session) Cubes() []CubeView {
	alpha := s.physicsWorld.Alpha()
	s.cubeIDs = ecs.AppendEntitiesWith1[*components.CubeComponent](s.em, s.cubeIDs[:0])
	views := s.cubeViews[:0]
	for _, id := range s.cubeIDs {
		cube, ok := ecs.GetComponent[*components.CubeComponent](s.em, id)
		if !ok {
			continue
		}
		pos, rot := cube.RenderTransform(alpha)
		views = append(views, CubeView{
			ID:       id,
			Tier:     cube.Tier,
			X:        pos.X,
			Y:        pos.Y,
			Rotation: rot,
			Size:     cube.Size,
			Color:    s.cfg.Tier(cube.Tier).Color,
			Alpha:    cube.Alpha,
			Scale:    cube.Scale,
		})
	}
	s.cubeViews = views
	return views
}
