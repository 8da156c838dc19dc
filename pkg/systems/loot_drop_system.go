package systems

import (
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/gonewx/dicefidget/pkg/config"
	"github.com/gonewx/dicefidget/pkg/ecs"
)

// Announcer 无障碍播报接收方（外部协作者）
type Announcer interface {
	Announce(text string)
}

// AnnouncerFunc 函数适配器
type AnnouncerFunc func(text string)

// Announce 实现 Announcer
func (f AnnouncerFunc) Announce(text string) { f(text) }

// CubeSpawner 生成方块的能力（由物理世界管理器提供）
type CubeSpawner interface {
	SpawnCube(tier int, x, y float64) ecs.EntityID
}

// LootQueueEntry 排队等待的掉落批次
type LootQueueEntry struct {
	DieSize    int
	RollResult int
	OriginX    float64
	OriginY    float64

	// tiers 预先掷好的档位（安慰奖）；为 nil 时出队后再掷
	tiers []int
}

// LootDropSystem 掉落调度器
//
// 决定掉落哪些档位，并在模拟时间上错开生成。
// 同一时刻最多只有一个批次在错开生成；其余请求按 FIFO 排队，不会丢失。
type LootDropSystem struct {
	cfg       *config.FidgetConfig
	rng       *rand.Rand
	queue     *EventQueue
	spawner   CubeSpawner
	announcer Announcer

	dropsInFlight int
	pending       []LootQueueEntry
	batches       int
	generation    int // Init 时递增，旧代的已调度事件失效

	onDrop func(tier int, x, y float64)
}

// NewLootDropSystem 创建掉落调度器
func NewLootDropSystem(cfg *config.FidgetConfig, rng *rand.Rand, queue *EventQueue, spawner CubeSpawner, announcer Announcer) *LootDropSystem {
	return &LootDropSystem{
		cfg:       cfg,
		rng:       rng,
		queue:     queue,
		spawner:   spawner,
		announcer: announcer,
		pending:   make([]LootQueueEntry, 0),
	}
}

// Init 重置调度状态
// 之前已调度的掉落与沉降事件随之作废，触发时直接忽略
func (s *LootDropSystem) Init() {
	s.generation++
	s.dropsInFlight = 0
	s.pending = s.pending[:0]
	s.batches = 0
}

// SetDropHook 每个掉落实际生成时回调（用于粒子效果）
func (s *LootDropSystem) SetDropHook(fn func(tier int, x, y float64)) {
	s.onDrop = fn
}

// DropsInFlight 返回正在错开生成或沉降中的掉落数
func (s *LootDropSystem) DropsInFlight() int {
	return s.dropsInFlight
}

// QueuedBatches 返回排队中的批次数
func (s *LootDropSystem) QueuedBatches() int {
	return len(s.pending)
}

// ProcessedBatches 返回已开始处理的批次数
func (s *LootDropSystem) ProcessedBatches() int {
	return s.batches
}

// RollTier 按骰子的权重表掷出一个档位
//
// 在 [0,100) 上均匀取值，返回累积权重区间包含该值的档位；
// 未配置的骰子使用 d20 表。
func (s *LootDropSystem) RollTier(dieSize int) int {
	return TierForRoll(s.cfg.DropTable(dieSize), s.rng.Float64()*100)
}

// TierForRoll 返回累积权重区间包含 roll 的档位（1..7）
// 浮点误差导致落在所有区间之外时返回最常见档位
func TierForRoll(weights []float64, roll float64) int {
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if roll < cumulative {
			return i + 1
		}
	}
	return config.TrashTier
}

// ApplyPityRule 保底规则
//
// 若批次中所有档位都处于最常见的两档，则把最好的（编号最小的）那一个提升一档。
// 原地修改并返回 tiers；返回值 upgraded 表示是否触发。
func ApplyPityRule(tiers []int) (out []int, upgraded bool) {
	if len(tiers) == 0 {
		return tiers, false
	}
	threshold := config.TierCount - 1
	best := 0
	for i, t := range tiers {
		if t < threshold {
			return tiers, false
		}
		if t < tiers[best] {
			best = i
		}
	}
	tiers[best]--
	return tiers, true
}

// SortWorstFirst 按稀有度从低到高排序（档位编号非递增），让动画逐步升级
func SortWorstFirst(tiers []int) {
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i] > tiers[j] })
}

// RollBatch 掷出一个完整批次：rollResult 次掷档 + 一个保底垃圾档，应用保底规则并排序
func (s *LootDropSystem) RollBatch(dieSize, rollResult int) []int {
	if rollResult < 0 {
		rollResult = 0
	}
	tiers := make([]int, 0, rollResult+1)
	for i := 0; i < rollResult; i++ {
		tiers = append(tiers, s.RollTier(dieSize))
	}
	tiers = append(tiers, config.TrashTier)

	if _, upgraded := ApplyPityRule(tiers); upgraded {
		log.Printf("[LootDrop] 保底触发: d%d x%d", dieSize, rollResult)
	}
	SortWorstFirst(tiers)
	return tiers
}

// StaggerInterval 返回 n 个掉落的错开间隔；批次越大间隔越短，不低于 MinStagger
func (s *LootDropSystem) StaggerInterval(n int) float64 {
	lc := s.cfg.Loot
	if n < 1 {
		n = 1
	}
	return math.Max(lc.MinStagger, lc.BaseStagger-lc.StaggerShrink*float64(n-1))
}

// SpawnLoot 处理一次合格的掷骰
//
// 上一批次仍在进行时入队并立即返回；否则立即掷档并开始错开生成。
func (s *LootDropSystem) SpawnLoot(dieSize, rollResult int, originX, originY float64) {
	entry := LootQueueEntry{DieSize: dieSize, RollResult: rollResult, OriginX: originX, OriginY: originY}
	if s.dropsInFlight > 0 {
		s.pending = append(s.pending, entry)
		log.Printf("[LootDrop] 批次排队: d%d x%d (队列长度 %d)", dieSize, rollResult, len(s.pending))
		return
	}
	s.process(entry)
}

// SpawnConsolationLoot 未达标掷骰的安慰奖
//
// 掉落 1~3 个垃圾档，另有 ConsolationBonus 概率追加一个稍好的档位；不触发保底。
// 档位在调用时立即确定（即使需要排队），返回掉落中最好的档位供 UI 反馈。
func (s *LootDropSystem) SpawnConsolationLoot(originX, originY float64) int {
	count := 1 + s.rng.IntN(3)
	tiers := make([]int, 0, count+1)
	for i := 0; i < count; i++ {
		tiers = append(tiers, config.TrashTier)
	}
	if s.rng.Float64() < s.cfg.Loot.ConsolationBonus {
		tiers = append(tiers, config.TrashTier-1)
	}
	SortWorstFirst(tiers)
	best := tiers[len(tiers)-1]

	entry := LootQueueEntry{OriginX: originX, OriginY: originY, tiers: tiers}
	if s.dropsInFlight > 0 {
		s.pending = append(s.pending, entry)
	} else {
		s.process(entry)
	}

	s.announce(fmt.Sprintf("Consolation drop: best item %s", s.cfg.Tier(best).Name))
	return best
}

// process 开始错开生成一个批次
//
// 每个掉落在调度时（生成之前）就计入飞行中计数，生成后经过 SettleDelay 再减回；
// 计数归零时取出下一个排队批次。
func (s *LootDropSystem) process(entry LootQueueEntry) {
	tiers := entry.tiers
	if tiers == nil {
		tiers = s.RollBatch(entry.DieSize, entry.RollResult)
	}
	s.batches++

	interval := s.StaggerInterval(len(tiers))
	settle := s.cfg.Loot.SettleDelay
	gen := s.generation
	for i, tier := range tiers {
		tier := tier
		s.dropsInFlight++
		s.queue.Schedule(float64(i)*interval, func() {
			if gen != s.generation {
				return
			}
			s.drop(tier, entry.OriginX, entry.OriginY)
			s.queue.Schedule(settle, func() {
				if gen == s.generation {
					s.settle()
				}
			})
		})
	}
}

// drop 生成一个掉落；生成被拒绝（例如告别序列进行中）时不触发效果和播报
func (s *LootDropSystem) drop(tier int, x, y float64) {
	if s.spawner != nil && s.spawner.SpawnCube(tier, x, y) == 0 {
		log.Printf("[LootDropSystem] 生成被拒绝，跳过 %s 掉落", s.cfg.Tier(tier).Name)
		return
	}
	if s.onDrop != nil {
		s.onDrop(tier, x, y)
	}
	if tier <= s.cfg.Loot.AnnounceTier {
		s.announce(fmt.Sprintf("%s loot dropped!", s.cfg.Tier(tier).Name))
	}
}

func (s *LootDropSystem) settle() {
	if s.dropsInFlight > 0 {
		s.dropsInFlight--
	}
	if s.dropsInFlight == 0 && len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		s.process(next)
	}
}

func (s *LootDropSystem) announce(text string) {
	if s.announcer != nil {
		s.announcer.Announce(text)
	}
}
