package config

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/gonewx/dicefidget/pkg/embedded"
	"gopkg.in/yaml.v3"
)

// 稀有度相关常量
const (
	// TierCount 稀有度档位数量（1 = 最稀有，7 = 最常见）
	TierCount = 7
	// RarestTier 最稀有档位
	RarestTier = 1
	// TrashTier 最常见档位（"垃圾"掉落）
	TrashTier = 7
	// FallbackDieSize 未配置掉落表的骰子回退到 d20
	FallbackDieSize = 20
)

// RGB 颜色，YAML 中以 "#rrggbb" 表示
type RGB struct {
	R, G, B uint8
}

// RGBA 转换为 image/color 颜色
func (c RGB) RGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// Hex 返回 "#rrggbb" 形式
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ParseRGB 解析 "#rrggbb" 或 "rrggbb"
func ParseRGB(s string) (RGB, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return RGB{}, fmt.Errorf("invalid color %q: expected 6 hex digits", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// UnmarshalYAML 实现 yaml.Unmarshaler
func (c *RGB) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseRGB(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalYAML 实现 yaml.Marshaler
func (c RGB) MarshalYAML() (interface{}, error) {
	return c.Hex(), nil
}

// TierConfig 单个稀有度档位的视觉参数
type TierConfig struct {
	Tier  int     `yaml:"tier"`
	Name  string  `yaml:"name"`
	Size  float64 `yaml:"size"` // 方块边长（像素）
	Color RGB     `yaml:"color"`
}

// PhysicsConfig 物理世界参数
type PhysicsConfig struct {
	Gravity       float64 `yaml:"gravity"`       // 像素/秒²，正值向下
	FixedTimestep float64 `yaml:"fixedTimestep"` // 秒
	MaxFrameDelta float64 `yaml:"maxFrameDelta"` // 单帧最大时间（秒），防止"死亡螺旋"
	MaxSubsteps   int     `yaml:"maxSubsteps"`

	SpawnJitter        float64 `yaml:"spawnJitter"`        // 生成位置随机偏移（±像素）
	SpawnSpeed         float64 `yaml:"spawnSpeed"`         // 初始速度大小
	SpawnDownBias      float64 `yaml:"spawnDownBias"`      // 初始速度额外向下分量
	MaxAngularVelocity float64 `yaml:"maxAngularVelocity"` // 初始角速度上限（弧度/秒）

	Density             float64 `yaml:"density"`
	Restitution         float64 `yaml:"restitution"`
	Friction            float64 `yaml:"friction"`
	BoundaryRestitution float64 `yaml:"boundaryRestitution"` // 越界反弹衰减系数
	ColliderThickness   float64 `yaml:"colliderThickness"`   // 地面/天花板线段半径
}

// PulseConfig 指针脉冲参数
type PulseConfig struct {
	Strength       float64 `yaml:"strength"`       // 基础冲量（距离为 MinDistance 时的速度增量）
	MinDistance    float64 `yaml:"minDistance"`    // 衰减下限距离
	MaxDistance    float64 `yaml:"maxDistance"`    // 超出此距离不受影响
	ReferenceSize  float64 `yaml:"referenceSize"`  // 参考方块边长
	FloorZone      float64 `yaml:"floorZone"`      // 指针/方块距地面多近算"贴地"
	FloorReach     float64 `yaml:"floorReach"`     // 水平距离阈值
	FloorBoost     float64 `yaml:"floorBoost"`     // 额外向上速度增量
	UpwardBias     float64 `yaml:"upwardBias"`     // 径向冲量的向上偏置
	ImpactMinSpeed float64 `yaml:"impactMinSpeed"` // 地面撞击产生印记的最小速度
}

// LootConfig 掉落调度参数
type LootConfig struct {
	BaseStagger      float64 `yaml:"baseStagger"`      // 首个间隔（秒）
	StaggerShrink    float64 `yaml:"staggerShrink"`    // 每多一个掉落缩短的间隔（秒）
	MinStagger       float64 `yaml:"minStagger"`       // 间隔下限（秒）
	SettleDelay      float64 `yaml:"settleDelay"`      // 生成后计入"飞行中"的时长（秒）
	ConsolationBonus float64 `yaml:"consolationBonus"` // 安慰奖额外掉落概率
	AnnounceTier     int     `yaml:"announceTier"`     // 不高于此档位的掉落会播报
}

// GoodbyeConfig 告别序列参数
type GoodbyeConfig struct {
	SettleSpeed  float64 `yaml:"settleSpeed"`  // 低于此速度视为静止
	PopDuration  float64 `yaml:"popDuration"`  // 弹出动画时长（秒）
	PopPeakScale float64 `yaml:"popPeakScale"` // 弹出动画峰值缩放
	PopPeakAt    float64 `yaml:"popPeakAt"`    // 峰值出现在动画进度的比例
}

// EffectsConfig 粒子与撞击印记参数
type EffectsConfig struct {
	MaxImpacts        int     `yaml:"maxImpacts"`
	ImpactGrowth      float64 `yaml:"impactGrowth"` // 宽度增长（像素/秒）
	ImpactFade        float64 `yaml:"impactFade"`   // alpha 衰减（每秒）
	BurstCount        int     `yaml:"burstCount"`
	ScanlineCount     int     `yaml:"scanlineCount"`
	SparkleCount      int     `yaml:"sparkleCount"`
	ParticleLifetime  float64 `yaml:"particleLifetime"`
	ParticleSpeed     float64 `yaml:"particleSpeed"`
	VelocityDecay     float64 `yaml:"velocityDecay"` // 每秒速度衰减率
	GlitchInterval    float64 `yaml:"glitchInterval"`
	GlitchJump        float64 `yaml:"glitchJump"`
	FlickerChance     float64 `yaml:"flickerChance"`
	ScanlineLifetime  float64 `yaml:"scanlineLifetime"`
	ScanlineMaxLength float64 `yaml:"scanlineMaxLength"`
}

// FidgetConfig 骰子玩具的完整调参配置
//
// 配置文件位置: data/fidget.yaml
type FidgetConfig struct {
	Tiers []TierConfig `yaml:"tiers"`

	// DropTables 每种骰子的档位权重表
	// key: 骰子面数（4, 6, 8, 10, 12, 20）
	// value: 档位 1..7 的百分比权重，总和为 100
	DropTables map[int][]float64 `yaml:"dropTables"`

	Physics PhysicsConfig `yaml:"physics"`
	Pulse   PulseConfig   `yaml:"pulse"`
	Loot    LootConfig    `yaml:"loot"`
	Goodbye GoodbyeConfig `yaml:"goodbye"`
	Effects EffectsConfig `yaml:"effects"`
}

// DefaultFidgetConfig 返回内置默认配置
// 配置文件缺失或解析失败时使用
func DefaultFidgetConfig() *FidgetConfig {
	return &FidgetConfig{
		Tiers: []TierConfig{
			{Tier: 1, Name: "Mythic", Size: 56, Color: RGB{R: 0xff, G: 0x3d, B: 0xa5}},
			{Tier: 2, Name: "Legendary", Size: 48, Color: RGB{R: 0xff, G: 0xa6, B: 0x1a}},
			{Tier: 3, Name: "Epic", Size: 40, Color: RGB{R: 0xa3, G: 0x4b, B: 0xff}},
			{Tier: 4, Name: "Rare", Size: 34, Color: RGB{R: 0x2f, G: 0x8c, B: 0xff}},
			{Tier: 5, Name: "Uncommon", Size: 28, Color: RGB{R: 0x3c, G: 0xd0, B: 0x6e}},
			{Tier: 6, Name: "Common", Size: 22, Color: RGB{R: 0xd8, G: 0xd8, B: 0xd8}},
			{Tier: 7, Name: "Trash", Size: 16, Color: RGB{R: 0x7a, G: 0x7a, B: 0x7a}},
		},
		DropTables: map[int][]float64{
			4:  {0, 0, 1, 4, 10, 25, 60},
			6:  {0, 1, 2, 6, 13, 28, 50},
			8:  {0.5, 1, 3, 8, 15, 27.5, 45},
			10: {1, 2, 4, 10, 18, 25, 40},
			12: {1.5, 3, 5.5, 12, 20, 23, 35},
			20: {3, 5, 8, 14, 20, 20, 30},
		},
		Physics: PhysicsConfig{
			Gravity:             1800,
			FixedTimestep:       1.0 / 60.0,
			MaxFrameDelta:       0.05,
			MaxSubsteps:         4,
			SpawnJitter:         10,
			SpawnSpeed:          420,
			SpawnDownBias:       120,
			MaxAngularVelocity:  8,
			Density:             0.002,
			Restitution:         0.3,
			Friction:            0.6,
			BoundaryRestitution: 0.5,
			ColliderThickness:   8,
		},
		Pulse: PulseConfig{
			Strength:       900,
			MinDistance:    40,
			MaxDistance:    420,
			ReferenceSize:  28,
			FloorZone:      90,
			FloorReach:     140,
			FloorBoost:     520,
			UpwardBias:     0.35,
			ImpactMinSpeed: 260,
		},
		Loot: LootConfig{
			BaseStagger:      0.22,
			StaggerShrink:    0.015,
			MinStagger:       0.07,
			SettleDelay:      0.4,
			ConsolationBonus: 0.25,
			AnnounceTier:     2,
		},
		Goodbye: GoodbyeConfig{
			SettleSpeed:  25,
			PopDuration:  0.3,
			PopPeakScale: 1.35,
			PopPeakAt:    0.3,
		},
		Effects: EffectsConfig{
			MaxImpacts:        50,
			ImpactGrowth:      60,
			ImpactFade:        1.6,
			BurstCount:        18,
			ScanlineCount:     4,
			SparkleCount:      10,
			ParticleLifetime:  0.6,
			ParticleSpeed:     260,
			VelocityDecay:     3.5,
			GlitchInterval:    0.08,
			GlitchJump:        6,
			FlickerChance:     0.25,
			ScanlineLifetime:  0.35,
			ScanlineMaxLength: 140,
		},
	}
}

// LoadFidgetConfig 从文件加载配置
//
// 参数:
//   - path: 配置文件路径（如 "data/fidget.yaml"）
//
// 返回:
//   - *FidgetConfig: 以默认配置为底、叠加文件内容后的配置
//   - error: 读取、解析或验证失败时返回错误
func LoadFidgetConfig(path string) (*FidgetConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fidget config: %w", err)
	}
	return ParseFidgetConfig(data)
}

// LoadEmbeddedFidgetConfig 从嵌入资源加载配置
// 调用前必须先 embedded.Init()
func LoadEmbeddedFidgetConfig(path string) (*FidgetConfig, error) {
	data, err := embedded.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded fidget config %s: %w", path, err)
	}
	return ParseFidgetConfig(data)
}

// ParseFidgetConfig 解析 YAML 数据
//
// 未出现在 YAML 中的字段保留默认值；出现的列表/映射整体替换默认值。
func ParseFidgetConfig(data []byte) (*FidgetConfig, error) {
	cfg := DefaultFidgetConfig()
	// yaml.v3 会向已有 map 合并键，这里先清空以保证"整体替换"语义
	defaults := cfg.DropTables
	cfg.DropTables = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse fidget config: %w", err)
	}
	if cfg.DropTables == nil {
		cfg.DropTables = defaults
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fidget config: %w", err)
	}
	return cfg, nil
}

// Validate 验证配置有效性
//
// 检查：
//   - 恰好 7 个档位，编号 1..7，越稀有尺寸越大
//   - 每张掉落表 7 项、非负、总和为 100
//   - 必须存在 d20 表（未知骰子的回退表）
//   - 物理步长与子步数为正
func (c *FidgetConfig) Validate() error {
	if len(c.Tiers) != TierCount {
		return fmt.Errorf("expected %d tiers, got %d", TierCount, len(c.Tiers))
	}
	sorted := make([]TierConfig, len(c.Tiers))
	copy(sorted, c.Tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Tier < sorted[j].Tier })
	for i, t := range sorted {
		if t.Tier != i+1 {
			return fmt.Errorf("tiers must be numbered 1..%d, found %d at position %d", TierCount, t.Tier, i)
		}
		if t.Size <= 0 {
			return fmt.Errorf("tier %d size must be positive, got %.1f", t.Tier, t.Size)
		}
		if i > 0 && t.Size >= sorted[i-1].Size {
			return fmt.Errorf("tier %d size (%.1f) must be smaller than tier %d size (%.1f)",
				t.Tier, t.Size, sorted[i-1].Tier, sorted[i-1].Size)
		}
	}
	c.Tiers = sorted

	if _, ok := c.DropTables[FallbackDieSize]; !ok {
		return fmt.Errorf("drop table for d%d is required as fallback", FallbackDieSize)
	}
	for die, weights := range c.DropTables {
		if len(weights) != TierCount {
			return fmt.Errorf("d%d drop table must have %d weights, got %d", die, TierCount, len(weights))
		}
		sum := 0.0
		for i, w := range weights {
			if w < 0 {
				return fmt.Errorf("d%d weight for tier %d is negative (%.2f)", die, i+1, w)
			}
			sum += w
		}
		if math.Abs(sum-100) > 0.01 {
			return fmt.Errorf("d%d drop table sums to %.2f, expected 100", die, sum)
		}
	}

	if c.Physics.FixedTimestep <= 0 {
		return fmt.Errorf("physics fixedTimestep must be positive, got %f", c.Physics.FixedTimestep)
	}
	if c.Physics.MaxSubsteps < 1 {
		return fmt.Errorf("physics maxSubsteps must be >= 1, got %d", c.Physics.MaxSubsteps)
	}
	if c.Physics.MaxFrameDelta < c.Physics.FixedTimestep {
		return fmt.Errorf("physics maxFrameDelta (%f) must be >= fixedTimestep (%f)",
			c.Physics.MaxFrameDelta, c.Physics.FixedTimestep)
	}
	if c.Loot.MinStagger < 0 || c.Loot.BaseStagger < c.Loot.MinStagger {
		return fmt.Errorf("loot stagger range invalid: base(%.3f) < min(%.3f)", c.Loot.BaseStagger, c.Loot.MinStagger)
	}
	if c.Goodbye.PopDuration <= 0 {
		return fmt.Errorf("goodbye popDuration must be positive, got %f", c.Goodbye.PopDuration)
	}
	if c.Effects.MaxImpacts < 0 {
		return fmt.Errorf("effects maxImpacts must be >= 0, got %d", c.Effects.MaxImpacts)
	}
	return nil
}

// Tier 获取档位配置
//
// 越界档位回退到最常见档位，永不失败。
func (c *FidgetConfig) Tier(tier int) TierConfig {
	if tier < RarestTier || tier > TierCount || len(c.Tiers) < TierCount {
		tier = TrashTier
	}
	if len(c.Tiers) < TierCount {
		return DefaultFidgetConfig().Tiers[tier-1]
	}
	return c.Tiers[tier-1]
}

// DropTable 获取骰子的档位权重表，未配置的骰子回退到 d20
func (c *FidgetConfig) DropTable(dieSize int) []float64 {
	if table, ok := c.DropTables[dieSize]; ok {
		return table
	}
	return c.DropTables[FallbackDieSize]
}

// DieSizes 返回所有已配置的骰子面数（升序）
func (c *FidgetConfig) DieSizes() []int {
	sizes := make([]int, 0, len(c.DropTables))
	for die := range c.DropTables {
		sizes = append(sizes, die)
	}
	sort.Ints(sizes)
	return sizes
}
